package activity

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/reconcile"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/google/uuid"
)

// Repository handles activity persistence. Writes happen inside the
// caller's transaction; the caller owns commit and rollback.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// InsertResult reports the outcome of a bulk insert. Conflicted holds
// identifiers already claimed by another resource; those rows are left
// untouched and the first writer wins.
type InsertResult struct {
	Inserted   []string
	Conflicted []string
}

// GetPrior returns the reconciliation slice of every stored activity
// for the resource.
func (r *Repository) GetPrior(ctx context.Context, resourceURL string) ([]reconcile.PriorActivity, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetPrior")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("iati_identifier", "last_change_datetime", "raw_xml")
	sb.From("activities")
	sb.Where(sb.Equal("resource_url", resourceURL))

	query, args := sb.Build()

	var rows []struct {
		IATIIdentifier     string    `db:"iati_identifier"`
		LastChangeDatetime time.Time `db:"last_change_datetime"`
		RawXML             string    `db:"raw_xml"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("resource_url", resourceURL).Error("Failed to load prior activities")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to load prior activities: %v", err)
	}

	prior := make([]reconcile.PriorActivity, 0, len(rows))
	for _, row := range rows {
		prior = append(prior, reconcile.PriorActivity{
			IATIIdentifier:     row.IATIIdentifier,
			LastChangeDatetime: row.LastChangeDatetime,
			RawXML:             row.RawXML,
		})
	}
	return prior, nil
}

// GetByIdentifier returns the stored activity with the given
// iati-identifier.
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string) (*models.Activity, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetByIdentifier")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(activityColumns...)
	sb.From("activities")
	sb.Where(sb.Equal("iati_identifier", identifier))

	query, args := sb.Build()
	var act models.Activity
	if err := r.db.GetContext(ctx, &act, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "activity %s not found", identifier)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("iati_identifier", identifier).Error("Failed to get activity")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get activity: %v", err)
	}
	return &act, nil
}

// CountByResource returns the number of stored activities owned by the
// resource.
func (r *Repository) CountByResource(ctx context.Context, resourceURL string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.CountByResource")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("activities")
	sb.Where(sb.Equal("resource_url", resourceURL))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("resource_url", resourceURL).Error("Failed to count activities")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count activities: %v", err)
	}
	return count, nil
}

// ListIdentifiersByDataset returns every stored identifier owned by any
// resource of the dataset.
func (r *Repository) ListIdentifiersByDataset(ctx context.Context, datasetID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.ListIdentifiersByDataset")
	defer span.End()

	query := `
		SELECT a.iati_identifier
		FROM activities a
		JOIN resources r ON a.resource_url = r.url
		WHERE r.dataset_id = $1
	`

	var identifiers []string
	if err := r.db.SelectContext(ctx, &identifiers, query, datasetID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("dataset_id", datasetID).Error("Failed to list identifiers by dataset")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list identifiers by dataset: %v", err)
	}
	return identifiers, nil
}

// DeleteByResource removes every activity owned by the resource. Child
// records go with them through cascading deletes.
func (r *Repository) DeleteByResource(ctx context.Context, resourceURL string) error {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.DeleteByResource")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to begin transaction: %v", err)
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom("activities")
	db.Where(db.Equal("resource_url", resourceURL))

	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("resource_url", resourceURL).Error("Failed to delete activities for resource")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete activities for resource: %v", err)
	}
	return nil
}

// BulkInsert stores the batch. Identifier collisions with rows owned by
// other resources surface as conflicts, not errors: the existing row is
// kept and the incoming one dropped.
func (r *Repository) BulkInsert(ctx context.Context, activities []*models.Activity) (*InsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.BulkInsert")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to begin transaction: %v", err)
	}

	result := &InsertResult{}
	for _, act := range activities {
		inserted, err := r.insertOne(ctx, tx, act)
		if err != nil {
			return nil, err
		}
		if inserted {
			result.Inserted = append(result.Inserted, act.IATIIdentifier)
		} else {
			result.Conflicted = append(result.Conflicted, act.IATIIdentifier)
		}
	}
	return result, nil
}

const insertActivityQuery = `
	INSERT INTO activities (
		id, iati_identifier, resource_url, title, description,
		title_all, description_all, reporting_org_id, websites,
		start_planned, end_planned, start_actual, end_actual,
		hierarchy, default_language, default_currency,
		activity_status, collaboration_type, default_finance_type,
		default_flow_type, default_aid_type, default_tied_status,
		last_updated_datetime, last_change_datetime,
		raw_xml, raw_json, major_version, version, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		$27, $28, $29
	)
	ON CONFLICT (iati_identifier) DO NOTHING
	RETURNING id
`

func (r *Repository) insertOne(ctx context.Context, tx database.Tx, act *models.Activity) (bool, error) {
	if act.ID == uuid.Nil {
		act.ID = uuid.New()
	}
	if act.CreatedAt.IsZero() {
		act.CreatedAt = time.Now().UTC()
	}
	if act.ReportingOrg != nil && act.ReportingOrg.ID != uuid.Nil {
		id := act.ReportingOrg.ID
		act.ReportingOrgID = &id
	}

	var id uuid.UUID
	err := tx.GetContext(ctx, &id, insertActivityQuery,
		act.ID, act.IATIIdentifier, act.ResourceURL, act.Title, act.Description,
		act.TitleAll, act.DescriptionAll, act.ReportingOrgID, act.Websites,
		act.StartPlanned, act.EndPlanned, act.StartActual, act.EndActual,
		act.Hierarchy, act.DefaultLanguage, act.DefaultCurrency,
		act.ActivityStatus, act.CollaborationType, act.DefaultFinanceType,
		act.DefaultFlowType, act.DefaultAidType, act.DefaultTiedStatus,
		act.LastUpdatedDatetime, act.LastChangeDatetime,
		act.RawXML, act.RawJSON, act.MajorVersion, act.Version, act.CreatedAt,
	)
	if err != nil {
		// DO NOTHING suppresses the RETURNING row on conflict, which
		// surfaces here as no rows.
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("iati_identifier", act.IATIIdentifier).Error("Failed to insert activity")
		return false, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert activity %s: %v", act.IATIIdentifier, err)
	}

	if err := r.insertChildren(ctx, tx, act); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) insertChildren(ctx context.Context, tx database.Tx, act *models.Activity) error {
	for _, p := range act.ParticipatingOrgs {
		var orgID *uuid.UUID
		if p.Organisation != nil && p.Organisation.ID != uuid.Nil {
			id := p.Organisation.ID
			orgID = &id
		}
		query := `INSERT INTO participations (activity_id, role, organisation_id) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, query, act.ID, p.Role, orgID); err != nil {
			return r.childError(ctx, err, act, "participation")
		}
	}

	if err := r.insertPercentages(ctx, tx, act.ID, nil, act.RecipientCountryPercentages, act.RecipientRegionPercentages, act.SectorPercentages); err != nil {
		return r.childError(ctx, err, act, "percentages")
	}

	for i := range act.Transactions {
		if err := r.insertTransaction(ctx, tx, act, &act.Transactions[i]); err != nil {
			return err
		}
	}

	for _, budget := range act.Budgets {
		query := `
			INSERT INTO budgets (activity_id, type, value_currency, value_amount, period_start, period_end)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.ExecContext(ctx, query, act.ID, budget.Type, budget.ValueCurrency, budget.ValueAmount, budget.PeriodStart, budget.PeriodEnd); err != nil {
			return r.childError(ctx, err, act, "budget")
		}
	}

	for _, marker := range act.PolicyMarkers {
		query := `INSERT INTO policy_markers (activity_id, code, significance, text) VALUES ($1, $2, $3, $4)`
		if _, err := tx.ExecContext(ctx, query, act.ID, marker.Code, marker.Significance, marker.Text); err != nil {
			return r.childError(ctx, err, act, "policy marker")
		}
	}

	for _, related := range act.RelatedActivities {
		query := `INSERT INTO related_activities (activity_id, ref, text) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, query, act.ID, related.Ref, related.Text); err != nil {
			return r.childError(ctx, err, act, "related activity")
		}
	}

	return nil
}

func (r *Repository) insertTransaction(ctx context.Context, tx database.Tx, act *models.Activity, txn *models.Transaction) error {
	txnID := uuid.New()

	var providerOrgID, receiverOrgID *uuid.UUID
	if txn.ProviderOrg != nil && txn.ProviderOrg.ID != uuid.Nil {
		id := txn.ProviderOrg.ID
		providerOrgID = &id
	}
	if txn.ReceiverOrg != nil && txn.ReceiverOrg.ID != uuid.Nil {
		id := txn.ReceiverOrg.ID
		receiverOrgID = &id
	}

	query := `
		INSERT INTO transactions (
			id, activity_id, ref, description, type, date,
			flow_type, finance_type, aid_type, tied_status, disbursement_channel,
			provider_org_id, provider_org_text, provider_org_activity_id,
			receiver_org_id, receiver_org_text, receiver_org_activity_id,
			value_currency, value_date, value_amount, value_usd, value_eur
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22
		)
	`
	_, err := tx.ExecContext(ctx, query,
		txnID, act.ID, txn.Ref, txn.Description, txn.Type, txn.Date,
		txn.FlowType, txn.FinanceType, txn.AidType, txn.TiedStatus, txn.DisbursementChannel,
		providerOrgID, txn.ProviderOrgText, txn.ProviderOrgActivityID,
		receiverOrgID, txn.ReceiverOrgText, txn.ReceiverOrgActivityID,
		txn.ValueCurrency, txn.ValueDate, txn.ValueAmount, txn.ValueUSD, txn.ValueEUR,
	)
	if err != nil {
		return r.childError(ctx, err, act, "transaction")
	}

	return r.insertPercentages(ctx, tx, act.ID, &txnID, txn.RecipientCountryPercentages, txn.RecipientRegionPercentages, txn.SectorPercentages)
}

func (r *Repository) insertPercentages(ctx context.Context, tx database.Tx, activityID uuid.UUID, transactionID *uuid.UUID,
	countries []models.CountryPercentage, regions []models.RegionPercentage, sectors []models.SectorPercentage) error {

	for _, c := range countries {
		query := `
			INSERT INTO country_percentages (activity_id, transaction_id, name, country, percentage)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query, activityID, transactionID, c.Name, c.Country, c.Percentage); err != nil {
			return err
		}
	}
	for _, reg := range regions {
		query := `
			INSERT INTO region_percentages (activity_id, transaction_id, name, region, percentage)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query, activityID, transactionID, reg.Name, reg.Region, reg.Percentage); err != nil {
			return err
		}
	}
	for _, s := range sectors {
		query := `
			INSERT INTO sector_percentages (activity_id, transaction_id, sector, vocabulary, percentage, text)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.ExecContext(ctx, query, activityID, transactionID, s.Sector, s.Vocabulary, s.Percentage, s.Text); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) childError(ctx context.Context, err error, act *models.Activity, kind string) error {
	if httperror.IsHTTPError(err) {
		return err
	}
	r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"iati_identifier": act.IATIIdentifier,
		"record":          kind,
	}).Error("Failed to insert activity child record")
	return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert %s for activity %s: %v", kind, act.IATIIdentifier, err)
}

var activityColumns = []string{
	"id", "iati_identifier", "resource_url", "title", "description",
	"title_all", "description_all", "reporting_org_id", "websites",
	"start_planned", "end_planned", "start_actual", "end_actual",
	"hierarchy", "default_language", "default_currency",
	"activity_status", "collaboration_type", "default_finance_type",
	"default_flow_type", "default_aid_type", "default_tied_status",
	"last_updated_datetime", "last_change_datetime",
	"raw_xml", "raw_json", "major_version", "version", "created_at",
}
