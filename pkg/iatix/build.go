package iatix

import (
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/codelists"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/lib/pq"
)

// builder assembles one Activity record from a parsed element tree.
// Field extraction is best effort: every field is individually wrapped
// and a failure substitutes the field's empty value and records a
// warning. Only a missing iati-identifier fails the whole record.
type builder struct {
	major      string
	version    *string
	res        models.ResourceContext
	conv       Conversions
	logger     ectologger.Logger
	identifier string
	warnings   []models.Warning
}

func newBuilder(res models.ResourceContext, conv Conversions, logger ectologger.Logger) *builder {
	return &builder{
		major:  "1",
		res:    res,
		conv:   conv,
		logger: logger,
	}
}

func (b *builder) warn(field string, err error) {
	warning := models.Warning{
		Field:          field,
		IATIIdentifier: b.identifier,
		DatasetID:      b.res.DatasetID,
		ResourceURL:    b.res.URL,
		Err:            err,
	}
	b.warnings = append(b.warnings, warning)
	if b.logger != nil {
		log := b.logger.WithFields(map[string]any{
			"channel":         "activity_importer",
			"field":           field,
			"iati_identifier": b.identifier,
			"dataset":         b.res.DatasetID,
			"resource":        b.res.URL,
		}).WithError(err)
		if IsRecoverable(err) {
			log.Warnf("failed to import a valid %s in activity %s", field, b.identifier)
		} else {
			log.Errorf("failed to import a valid %s in activity %s", field, b.identifier)
		}
	}
}

// attempt runs one field extraction and recovers any failure by
// substituting the fallback and recording a warning.
func attempt[T any](b *builder, field string, fallback T, fn func() (T, error)) T {
	value, err := fn()
	if err != nil {
		b.warn(field, err)
		return fallback
	}
	return value
}

func (b *builder) text() string {
	return textPath[b.major]
}

func (b *builder) buildActivity(ele *Element) (*models.Activity, error) {
	identifier, err := Val(ele, "./iati-identifier/text()")
	if err != nil {
		return nil, err
	}
	b.identifier = identifier

	act := &models.Activity{
		IATIIdentifier: identifier,
		ResourceURL:    b.res.URL,
		MajorVersion:   b.major,
		Version:        b.version,
	}

	title, _ := Val(ele, "./title/"+b.text(), "")
	act.Title = title
	description, _ := Val(ele, "./description/"+b.text(), "")
	act.Description = description

	act.DefaultCurrency = attempt(b, "default_currency", nil, func() (*codelists.Value, error) {
		return b.currencyAt(ele, "@default-currency")
	})
	act.Hierarchy = attempt(b, "hierarchy", nil, func() (*int, error) {
		return IntVal(ele, "@hierarchy")
	})
	act.LastUpdatedDatetime = attempt(b, "last_updated_datetime", nil, func() (*time.Time, error) {
		return Date(ele, "@last-updated-datetime")
	})
	act.DefaultLanguage = attempt(b, "default_language", nil, func() (*codelists.Value, error) {
		code, _ := Val(ele, "@xml:lang", "")
		if code == "" {
			return nil, nil
		}
		return codelists.Resolve(b.major, codelists.Language, code)
	})
	act.ReportingOrg = attempt(b, "reporting_org", nil, func() (*models.Organisation, error) {
		return b.reportingOrg(ele)
	})
	act.Websites = pq.StringArray(b.websites(ele))
	act.ParticipatingOrgs = b.participatingOrgs(ele)
	act.RecipientCountryPercentages = b.countryPercentages(ele)
	act.RecipientRegionPercentages = b.regionPercentages(ele)
	act.SectorPercentages = b.sectorPercentages(ele)
	act.Transactions = b.transactions(ele)
	act.Budgets = b.budgets(ele)
	act.PolicyMarkers = b.policyMarkers(ele)
	act.RelatedActivities = b.relatedActivities(ele)

	act.StartPlanned = b.activityDate(ele, "start-planned", "1")
	act.StartActual = b.activityDate(ele, "start-actual", "2")
	act.EndPlanned = b.activityDate(ele, "end-planned", "3")
	act.EndActual = b.activityDate(ele, "end-actual", "4")

	act.ActivityStatus = b.fromCodelist(codelists.ActivityStatus, ele, "./activity-status/@code")
	act.CollaborationType = b.fromCodelist(codelists.CollaborationType, ele, "./collaboration-type/@code")
	act.DefaultFinanceType = b.fromCodelist(codelists.FinanceType, ele, "./default-finance-type/@code")
	act.DefaultFlowType = b.fromCodelist(codelists.FlowType, ele, "./default-flow-type/@code")
	act.DefaultAidType = b.fromCodelist(codelists.AidType, ele, "./default-aid-type/@code")
	act.DefaultTiedStatus = b.fromCodelist(codelists.TiedStatus, ele, "./default-tied-status/@code")

	act.TitleAll = database.NewJSONB(b.titleAll(ele))
	act.DescriptionAll = database.NewJSONB(b.descriptionAll(ele))

	return act, nil
}

// activityDate reads one activity-date element, selected by the v1
// type label or the v2 numeric type code depending on document version.
func (b *builder) activityDate(ele *Element, v1Type, v2Type string) *time.Time {
	sel := v1Type
	if b.major == "2" {
		sel = v2Type
	}
	path := "./activity-date[@type='" + sel + "']"
	return attempt(b, strings.ReplaceAll(v1Type, "-", "_"), nil, func() (*time.Time, error) {
		iso, _ := Val(ele, path+"/@iso-date", "")
		if iso == "" {
			iso, _ = Val(ele, path+"/"+b.text(), "")
		}
		return ParseDate(iso)
	})
}

// fromCodelist resolves an optional coded attribute; an unknown code is
// recovered as nil with a warning, an absent one silently.
func (b *builder) fromCodelist(list codelists.Name, ele *Element, path string) *codelists.Value {
	code, _ := Val(ele, path, "")
	if code == "" {
		return nil
	}
	value, err := codelists.Resolve(b.major, list, code)
	if err != nil {
		b.warn(string(list), err)
		return nil
	}
	return value
}

func (b *builder) currencyAt(ele *Element, path string) (*codelists.Value, error) {
	code, _ := Val(ele, path, "")
	if code == "" {
		return nil, nil
	}
	return codelists.Resolve(b.major, codelists.Currency, code)
}

func (b *builder) parseOrg(ele *Element) *models.Organisation {
	ref, _ := Val(ele, "@ref", "")
	name, _ := Val(ele, b.text(), "")
	org := &models.Organisation{Ref: ref, Name: name}
	if code, _ := Val(ele, "@type", ""); code != "" {
		if value, err := codelists.Resolve(b.major, codelists.OrganisationType, code); err == nil {
			org.Type = value
		}
	}
	return org
}

func (b *builder) reportingOrg(ele *Element) (*models.Organisation, error) {
	reporting := ele.Find("reporting-org")
	if reporting == nil {
		if b.major == "1" {
			return nil, nil
		}
		return nil, &MissingValueError{Path: "./reporting-org", Tag: ele.Tag}
	}

	ref, err := Val(reporting, "@ref")
	if err != nil {
		return nil, err
	}
	name, _ := Val(reporting, b.text(), "")
	org := &models.Organisation{Ref: ref, Name: name}

	if code, _ := Val(reporting, "@type", ""); code != "" {
		value, resolveErr := codelists.Resolve(b.major, codelists.OrganisationType, code)
		if resolveErr != nil {
			b.warn("reporting_org.type", resolveErr)
		} else {
			org.Type = value
		}
	}
	return org, nil
}

// v1 documents label participation roles with free text; they are
// mapped onto the v2 numeric codes before storage, with unrecognized
// labels falling back to a v1 codelist lookup.
var v1RoleCodes = map[string]string{
	"funding":      "1",
	"accountable":  "2",
	"extending":    "3",
	"implementing": "4",
}

func (b *builder) participationRole(ele *Element) (*codelists.Value, error) {
	raw, err := Val(ele, "@role")
	if err != nil {
		return nil, err
	}
	if b.major == "1" {
		if code, ok := v1RoleCodes[strings.ToLower(raw)]; ok {
			return codelists.Resolve("2", codelists.OrganisationRole, code)
		}
		return codelists.Resolve("1", codelists.OrganisationRole, titleCase(raw))
	}
	return codelists.Resolve(b.major, codelists.OrganisationRole, titleCase(raw))
}

func (b *builder) participatingOrgs(ele *Element) []models.Participation {
	var out []models.Participation
	type seenKey struct {
		role string
		ref  string
	}
	seen := map[seenKey]bool{}

	for _, orgEle := range ele.FindAll("participating-org") {
		role, err := b.participationRole(orgEle)
		if err != nil {
			b.warn("organisation_role", err)
			continue
		}
		org := b.parseOrg(orgEle)
		key := seenKey{role: role.Code, ref: org.Ref}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.Participation{Role: role, Organisation: org})
	}
	return out
}

func (b *builder) websites(ele *Element) []string {
	var out []string
	for _, site := range ele.FindAll("activity-website") {
		if text, _ := Val(site, "text()", ""); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func (b *builder) percentageAttr(ele *Element) *float64 {
	raw, ok := ele.Attr("percentage")
	if !ok {
		return nil
	}
	value, err := ParseDecimal(raw)
	if err != nil {
		return nil
	}
	return &value
}

func (b *builder) countryPercentages(ele *Element) []models.CountryPercentage {
	var out []models.CountryPercentage
	for _, countryEle := range ele.FindAll("recipient-country") {
		out = append(out, models.CountryPercentage{
			Name:       optionalVal(countryEle, b.text()),
			Country:    b.fromCodelist(codelists.Country, countryEle, "@code"),
			Percentage: b.percentageAttr(countryEle),
		})
	}
	return out
}

func (b *builder) regionPercentages(ele *Element) []models.RegionPercentage {
	var out []models.RegionPercentage
	for _, regionEle := range ele.FindAll("recipient-region") {
		region := b.fromCodelist(codelists.Region, regionEle, "@code")
		if region == nil {
			continue
		}
		out = append(out, models.RegionPercentage{
			Name:       optionalVal(regionEle, b.text()),
			Region:     region,
			Percentage: b.percentageAttr(regionEle),
		})
	}
	return out
}

func (b *builder) sectorPercentages(ele *Element) []models.SectorPercentage {
	var out []models.SectorPercentage
	for _, sectorEle := range ele.FindAll("sector") {
		sp := models.SectorPercentage{
			Sector:     b.fromCodelist(codelists.Sector, sectorEle, "@code"),
			Vocabulary: b.fromCodelist(codelists.Vocabulary, sectorEle, "@vocabulary"),
			Percentage: b.percentageAttr(sectorEle),
			Text:       optionalVal(sectorEle, b.text()),
		}
		if sp.Sector != nil || sp.Vocabulary != nil || sp.Percentage != nil {
			out = append(out, sp)
		}
	}
	return out
}

func (b *builder) transactions(ele *Element) []models.Transaction {
	defaultCurrency := attempt(b, "default_currency", nil, func() (*codelists.Value, error) {
		return b.currencyAt(ele, "@default-currency")
	})

	var out []models.Transaction
	for _, txEle := range ele.FindAll("transaction") {
		out = append(out, b.transaction(txEle, defaultCurrency))
	}
	return out
}

func (b *builder) transaction(ele *Element, defaultCurrency *codelists.Value) models.Transaction {
	tx := models.Transaction{
		Ref:                   optionalVal(ele, "@ref"),
		Description:           optionalVal(ele, "description/"+b.text()),
		ProviderOrgText:       optionalVal(ele, "provider-org/"+b.text()),
		ProviderOrgActivityID: optionalVal(ele, "provider-org/@provider-activity-id"),
		ReceiverOrgText:       optionalVal(ele, "receiver-org/"+b.text()),
		ReceiverOrgActivityID: optionalVal(ele, "receiver-org/@receiver-activity-id"),
	}

	tx.Date = attempt(b, "date", nil, func() (*time.Time, error) {
		return Date(ele, "transaction-date/@iso-date")
	})
	tx.FlowType = b.fromCodelist(codelists.FlowType, ele, "./flow-type/@code")
	tx.FinanceType = b.fromCodelist(codelists.FinanceType, ele, "./finance-type/@code")
	tx.AidType = b.fromCodelist(codelists.AidType, ele, "./aid-type/@code")
	tx.TiedStatus = b.fromCodelist(codelists.TiedStatus, ele, "./tied-status/@code")
	tx.DisbursementChannel = b.fromCodelist(codelists.DisbursementChannel, ele, "./disbursement-channel/@code")
	tx.Type = b.fromCodelist(codelists.TransactionType, ele, "./transaction-type/@code")

	if providerEle := ele.Find("provider-org"); providerEle != nil {
		tx.ProviderOrg = b.parseOrg(providerEle)
	}
	if receiverEle := ele.Find("receiver-org"); receiverEle != nil {
		tx.ReceiverOrg = b.parseOrg(receiverEle)
	}

	tx.ValueCurrency = attempt(b, "value_currency", nil, func() (*codelists.Value, error) {
		return b.currencyAt(ele, "value/@currency")
	})
	tx.ValueDate = attempt(b, "value_date", nil, func() (*time.Time, error) {
		return Date(ele, "value/@value-date")
	})
	tx.ValueAmount = attempt(b, "value_amount", nil, func() (*float64, error) {
		return DecimalVal(ele, "value/text()")
	})
	tx.ValueUSD = attempt(b, "value_usd", nil, func() (*float64, error) {
		return b.convertValue(ele, defaultCurrency, b.conv.USD)
	})
	tx.ValueEUR = attempt(b, "value_eur", nil, func() (*float64, error) {
		return b.convertValue(ele, defaultCurrency, b.conv.EUR)
	})

	tx.RecipientCountryPercentages = b.countryPercentages(ele)
	tx.RecipientRegionPercentages = b.regionPercentages(ele)
	tx.SectorPercentages = b.sectorPercentages(ele)

	return tx
}

// convertValue applies a currency converter to a transaction value,
// falling back to the activity default currency and the transaction
// date when the value element is incomplete. Negative amounts are not
// converted.
func (b *builder) convertValue(ele *Element, defaultCurrency *codelists.Value, conv Converter) (*float64, error) {
	if conv == nil {
		return nil, nil
	}

	valueCurrency, err := b.currencyAt(ele, "value/@currency")
	if err != nil {
		return nil, err
	}
	inputCurrency := valueCurrency
	if inputCurrency == nil {
		inputCurrency = defaultCurrency
	}
	if inputCurrency == nil {
		return nil, nil
	}

	valueDate, err := Date(ele, "value/@value-date")
	if err != nil {
		return nil, err
	}
	transactionDate := valueDate
	if transactionDate == nil {
		if transactionDate, err = Date(ele, "transaction-date/@iso-date"); err != nil {
			return nil, err
		}
	}
	if transactionDate == nil {
		return nil, nil
	}

	amount, err := DecimalVal(ele, "value/text()")
	if err != nil {
		return nil, err
	}
	if amount == nil || *amount < 0 {
		return nil, nil
	}
	return conv(*amount, *transactionDate, inputCurrency.Code), nil
}

func (b *builder) budgetType(ele *Element) (*codelists.Value, error) {
	typestr, _ := Val(ele, "@type", "")
	switch typestr {
	case "":
		return nil, nil
	case "Original":
		return codelists.Resolve(b.major, codelists.BudgetType, "1")
	case "Revised":
		return codelists.Resolve(b.major, codelists.BudgetType, "2")
	default:
		return codelists.Resolve(b.major, codelists.BudgetType, typestr)
	}
}

func (b *builder) budgets(ele *Element) []models.Budget {
	var out []models.Budget
	for _, budgetEle := range ele.FindAll("budget") {
		budget := models.Budget{}
		budget.Type = attempt(b, "budget.type", nil, func() (*codelists.Value, error) {
			return b.budgetType(budgetEle)
		})
		budget.ValueCurrency = attempt(b, "budget.value_currency", nil, func() (*codelists.Value, error) {
			return b.currencyAt(budgetEle, "value/@currency")
		})
		budget.ValueAmount = attempt(b, "budget.value_amount", nil, func() (*float64, error) {
			return DecimalVal(budgetEle, "value/text()")
		})
		budget.PeriodStart = attempt(b, "budget.period_start", nil, func() (*time.Time, error) {
			return Date(budgetEle, "period-start/@iso-date")
		})
		budget.PeriodEnd = attempt(b, "budget.period_end", nil, func() (*time.Time, error) {
			return Date(budgetEle, "period-end/@iso-date")
		})
		out = append(out, budget)
	}
	return out
}

func (b *builder) policyMarkers(ele *Element) []models.PolicyMarker {
	var out []models.PolicyMarker
	for _, markerEle := range ele.FindAll("policy-marker") {
		out = append(out, models.PolicyMarker{
			Code:         b.fromCodelist(codelists.PolicyMarker, markerEle, "@code"),
			Significance: b.fromCodelist(codelists.PolicySignificance, markerEle, "@significance"),
			Text:         optionalVal(markerEle, b.text()),
		})
	}
	return out
}

func (b *builder) relatedActivities(ele *Element) []models.RelatedActivity {
	var out []models.RelatedActivity
	for _, relatedEle := range ele.FindAll("related-activity") {
		ref, err := Val(relatedEle, "@ref")
		if err != nil {
			b.warn("related_activity", err)
			continue
		}
		out = append(out, models.RelatedActivity{
			Ref:  ref,
			Text: optionalVal(relatedEle, b.text()),
		})
	}
	return out
}

func (b *builder) titleAll(ele *Element) map[string]string {
	out := map[string]string{}
	for _, titleEle := range ele.FindAll("title") {
		if b.major == "1" {
			lang, _ := Val(titleEle, "@xml:lang", "default")
			if value, _ := Val(titleEle, "text()", ""); value != "" {
				out[lang] = value
			}
			continue
		}
		for _, narrativeEle := range titleEle.FindAll("narrative") {
			lang, _ := Val(narrativeEle, "@xml:lang", "default")
			if value, _ := Val(narrativeEle, "text()", ""); value != "" {
				out[lang] = value
			}
		}
	}
	return out
}

func (b *builder) descriptionAll(ele *Element) map[string]map[string]string {
	out := map[string]map[string]string{}
	set := func(lang, descType, value string) {
		if value == "" {
			return
		}
		if _, ok := out[lang]; !ok {
			out[lang] = map[string]string{}
		}
		out[lang][descType] = value
	}

	for _, descEle := range ele.FindAll("description") {
		descType, _ := Val(descEle, "@type", "default")
		if b.major == "1" {
			lang, _ := Val(descEle, "@xml:lang", "default")
			value, _ := Val(descEle, "text()", "")
			set(lang, descType, value)
			continue
		}
		for _, narrativeEle := range descEle.FindAll("narrative") {
			lang, _ := Val(narrativeEle, "@xml:lang", "default")
			value, _ := Val(narrativeEle, "text()", "")
			set(lang, descType, value)
		}
	}
	return out
}

func optionalVal(ele *Element, path string) *string {
	values := ele.Strings(path)
	if len(values) == 0 {
		return nil
	}
	return &values[0]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
