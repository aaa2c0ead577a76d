package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/codelists"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Activity is one iati-activity element normalized into a storable
// record. An activity is owned by exactly one resource at a time; a
// re-import replaces the resource's activity set wholesale.
type Activity struct {
	ID             uuid.UUID `db:"id" json:"id"`
	IATIIdentifier string    `db:"iati_identifier" json:"iati_identifier" validate:"required"`
	ResourceURL    string    `db:"resource_url" json:"resource_url" validate:"required"`

	Title          string                                    `db:"title" json:"title"`
	Description    string                                    `db:"description" json:"description"`
	TitleAll       database.JSONB[map[string]string]         `db:"title_all" json:"title_all"`
	DescriptionAll database.JSONB[map[string]map[string]string] `db:"description_all" json:"description_all"`

	ReportingOrgID *uuid.UUID     `db:"reporting_org_id" json:"reporting_org_id"`
	Websites       pq.StringArray `db:"websites" json:"websites"`

	StartPlanned *time.Time `db:"start_planned" json:"start_planned"`
	EndPlanned   *time.Time `db:"end_planned" json:"end_planned"`
	StartActual  *time.Time `db:"start_actual" json:"start_actual"`
	EndActual    *time.Time `db:"end_actual" json:"end_actual"`

	Hierarchy       *int             `db:"hierarchy" json:"hierarchy"`
	DefaultLanguage *codelists.Value `db:"default_language" json:"default_language"`
	DefaultCurrency *codelists.Value `db:"default_currency" json:"default_currency"`

	ActivityStatus     *codelists.Value `db:"activity_status" json:"activity_status"`
	CollaborationType  *codelists.Value `db:"collaboration_type" json:"collaboration_type"`
	DefaultFinanceType *codelists.Value `db:"default_finance_type" json:"default_finance_type"`
	DefaultFlowType    *codelists.Value `db:"default_flow_type" json:"default_flow_type"`
	DefaultAidType     *codelists.Value `db:"default_aid_type" json:"default_aid_type"`
	DefaultTiedStatus  *codelists.Value `db:"default_tied_status" json:"default_tied_status"`

	LastUpdatedDatetime *time.Time `db:"last_updated_datetime" json:"last_updated_datetime"`
	LastChangeDatetime  time.Time  `db:"last_change_datetime" json:"last_change_datetime"`

	RawXML  string                         `db:"raw_xml" json:"raw_xml"`
	RawJSON database.JSONB[map[string]any] `db:"raw_json" json:"raw_json"`

	MajorVersion string  `db:"major_version" json:"major_version"`
	Version      *string `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`

	ReportingOrg                *Organisation       `db:"-" json:"reporting_org"`
	ParticipatingOrgs           []Participation     `db:"-" json:"participating_orgs"`
	RecipientCountryPercentages []CountryPercentage `db:"-" json:"recipient_country_percentages"`
	RecipientRegionPercentages  []RegionPercentage  `db:"-" json:"recipient_region_percentages"`
	SectorPercentages           []SectorPercentage  `db:"-" json:"sector_percentages"`
	Transactions                []Transaction       `db:"-" json:"transactions"`
	Budgets                     []Budget            `db:"-" json:"budgets"`
	PolicyMarkers               []PolicyMarker      `db:"-" json:"policy_markers"`
	RelatedActivities           []RelatedActivity   `db:"-" json:"related_activities"`
}

// Organisation records are interned: one row per distinct
// (ref, name, type) triple, shared between activities.
type Organisation struct {
	ID   uuid.UUID        `db:"id" json:"id"`
	Ref  string           `db:"ref" json:"ref"`
	Name string           `db:"name" json:"name"`
	Type *codelists.Value `db:"type" json:"type"`
}

type Participation struct {
	Role         *codelists.Value `db:"role" json:"role"`
	Organisation *Organisation    `db:"-" json:"organisation"`
}

type CountryPercentage struct {
	Name       *string          `db:"name" json:"name"`
	Country    *codelists.Value `db:"country" json:"country"`
	Percentage *float64         `db:"percentage" json:"percentage"`
}

type RegionPercentage struct {
	Name       *string          `db:"name" json:"name"`
	Region     *codelists.Value `db:"region" json:"region"`
	Percentage *float64         `db:"percentage" json:"percentage"`
}

type SectorPercentage struct {
	Sector     *codelists.Value `db:"sector" json:"sector"`
	Vocabulary *codelists.Value `db:"vocabulary" json:"vocabulary"`
	Percentage *float64         `db:"percentage" json:"percentage"`
	Text       *string          `db:"text" json:"text"`
}

type Transaction struct {
	Ref                   *string          `db:"ref" json:"ref"`
	Description           *string          `db:"description" json:"description"`
	Type                  *codelists.Value `db:"type" json:"type"`
	Date                  *time.Time       `db:"date" json:"date"`
	FlowType              *codelists.Value `db:"flow_type" json:"flow_type"`
	FinanceType           *codelists.Value `db:"finance_type" json:"finance_type"`
	AidType               *codelists.Value `db:"aid_type" json:"aid_type"`
	TiedStatus            *codelists.Value `db:"tied_status" json:"tied_status"`
	DisbursementChannel   *codelists.Value `db:"disbursement_channel" json:"disbursement_channel"`
	ProviderOrg           *Organisation    `db:"-" json:"provider_org"`
	ProviderOrgText       *string          `db:"provider_org_text" json:"provider_org_text"`
	ProviderOrgActivityID *string          `db:"provider_org_activity_id" json:"provider_org_activity_id"`
	ReceiverOrg           *Organisation    `db:"-" json:"receiver_org"`
	ReceiverOrgText       *string          `db:"receiver_org_text" json:"receiver_org_text"`
	ReceiverOrgActivityID *string          `db:"receiver_org_activity_id" json:"receiver_org_activity_id"`
	ValueCurrency         *codelists.Value `db:"value_currency" json:"value_currency"`
	ValueDate             *time.Time       `db:"value_date" json:"value_date"`
	ValueAmount           *float64         `db:"value_amount" json:"value_amount"`
	ValueUSD              *float64         `db:"value_usd" json:"value_usd"`
	ValueEUR              *float64         `db:"value_eur" json:"value_eur"`

	RecipientCountryPercentages []CountryPercentage `db:"-" json:"recipient_country_percentages"`
	RecipientRegionPercentages  []RegionPercentage  `db:"-" json:"recipient_region_percentages"`
	SectorPercentages           []SectorPercentage  `db:"-" json:"sector_percentages"`
}

type Budget struct {
	Type          *codelists.Value `db:"type" json:"type"`
	ValueCurrency *codelists.Value `db:"value_currency" json:"value_currency"`
	ValueAmount   *float64         `db:"value_amount" json:"value_amount"`
	PeriodStart   *time.Time       `db:"period_start" json:"period_start"`
	PeriodEnd     *time.Time       `db:"period_end" json:"period_end"`
}

type PolicyMarker struct {
	Code         *codelists.Value `db:"code" json:"code"`
	Significance *codelists.Value `db:"significance" json:"significance"`
	Text         *string          `db:"text" json:"text"`
}

type RelatedActivity struct {
	Ref  string  `db:"ref" json:"ref" validate:"required"`
	Text *string `db:"text" json:"text"`
}
