package codelists

import "regexp"

// matcher validates codes either against a closed table or, for the
// large open-ended codelists maintained outside this service, against
// the structural shape the standard mandates for the code.
type matcher struct {
	codes   map[string]string
	pattern *regexp.Regexp
}

var (
	countryPattern  = regexp.MustCompile(`^[A-Z]{2}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	languagePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}$`)
	sectorPattern   = regexp.MustCompile(`^\d{3,5}$`)
	financePattern  = regexp.MustCompile(`^\d{3,4}$`)
	aidTypePattern  = regexp.MustCompile(`^[A-H]\d{2}$`)
	regionPattern   = regexp.MustCompile(`^\d{2,4}$`)
)

var activityStatusCodes = map[string]string{
	"1": "Pipeline/identification",
	"2": "Implementation",
	"3": "Finalisation",
	"4": "Closed",
	"5": "Cancelled",
	"6": "Suspended",
}

var budgetTypeCodes = map[string]string{
	"1": "Original",
	"2": "Revised",
}

var collaborationTypeCodes = map[string]string{
	"1": "Bilateral",
	"2": "Multilateral (inflows)",
	"3": "Bilateral, core contributions to NGOs and other private bodies",
	"4": "Multilateral outflows",
	"6": "Private Sector Outflows",
	"7": "Bilateral, ex-post reporting on NGOs' activities funded through core contributions",
	"8": "Other collaboration",
}

var disbursementChannelCodes = map[string]string{
	"1": "Money is disbursed through central Ministry of Finance or Treasury",
	"2": "Money is disbursed directly to the implementing institution",
	"3": "Aid in kind: Donors utilise third party agencies",
	"4": "Aid in kind: Donors manage funds themselves",
}

var flowTypeCodes = map[string]string{
	"10": "ODA",
	"20": "OOF",
	"21": "Non-export credit OOF",
	"22": "Officially supported export credits",
	"30": "Private grants",
	"35": "Private market",
	"36": "Private Foreign Direct Investment",
	"37": "Other private flows at market terms",
	"40": "Non flow",
	"50": "Other flows",
}

var organisationRoleV2Codes = map[string]string{
	"1": "Funding",
	"2": "Accountable",
	"3": "Extending",
	"4": "Implementing",
}

var organisationRoleV1Codes = map[string]string{
	"Funding":      "Funding",
	"Accountable":  "Accountable",
	"Extending":    "Extending",
	"Implementing": "Implementing",
}

var organisationTypeCodes = map[string]string{
	"10": "Government",
	"11": "Local Government",
	"15": "Other Public Sector",
	"21": "International NGO",
	"22": "National NGO",
	"23": "Regional NGO",
	"24": "Partner Country based NGO",
	"30": "Public Private Partnership",
	"40": "Multilateral",
	"60": "Foundation",
	"70": "Private Sector",
	"71": "Private Sector in Provider Country",
	"72": "Private Sector in Aid Recipient Country",
	"73": "Private Sector in Third Country",
	"80": "Academic, Training and Research",
	"90": "Other",
}

var policyMarkerCodes = map[string]string{
	"1": "Gender Equality",
	"2": "Aid to Environment",
	"3": "Participatory Development/Good Governance",
	"4": "Trade Development",
	"5": "Aid Targeting the Objectives of the Convention on Biological Diversity",
	"6": "Aid Targeting the Objectives of the Framework Convention on Climate Change - Mitigation",
	"7": "Aid Targeting the Objectives of the Framework Convention on Climate Change - Adaptation",
	"8": "Aid Targeting the Objectives of the Convention to Combat Desertification",
	"9": "Reproductive, Maternal, Newborn and Child Health",
}

var policySignificanceCodes = map[string]string{
	"0": "not targeted",
	"1": "significant objective",
	"2": "principal objective",
	"3": "principal objective AND in support of an action programme",
	"4": "Explicit primary objective",
}

var tiedStatusCodes = map[string]string{
	"3": "Partially tied",
	"4": "Tied",
	"5": "Untied",
}

var transactionTypeV1Codes = map[string]string{
	"C":  "Commitment",
	"D":  "Disbursement",
	"E":  "Expenditure",
	"IF": "Incoming Funds",
	"IR": "Interest Repayment",
	"LR": "Loan Repayment",
	"R":  "Reimbursement",
	"QP": "Purchase of Equity",
	"QS": "Sale of Equity",
	"CG": "Credit Guarantee",
}

var transactionTypeV2Codes = map[string]string{
	"1":  "Incoming Funds",
	"2":  "Outgoing Commitment",
	"3":  "Disbursement",
	"4":  "Expenditure",
	"5":  "Interest Payment",
	"6":  "Loan Repayment",
	"7":  "Reimbursement",
	"8":  "Purchase of Equity",
	"9":  "Sale of Equity",
	"10": "Credit Guarantee",
	"11": "Incoming Commitment",
	"12": "Outgoing Pledge",
	"13": "Incoming Pledge",
}

var vocabularyV1Codes = map[string]string{
	"ADT":   "AidData",
	"COFOG": "Classification of the Functions of Government (UN)",
	"DAC":   "OECD Development Assistance Committee",
	"DAC-3": "OECD DAC CRS purpose codes (3 digit)",
	"NACE":  "Statistical classification of economic activities in the European Community",
	"NTEE":  "National Taxonomy for Exempt Entities (USA)",
	"RO":    "Reporting Organisation",
	"RO2":   "Reporting Organisation 2",
	"WB":    "World Bank",
}

var vocabularyV2Codes = map[string]string{
	"1":  "OECD DAC CRS Purpose Codes (5 digit)",
	"2":  "OECD DAC CRS Purpose Codes (3 digit)",
	"3":  "Classification of the Functions of Government (UN)",
	"4":  "Statistical classification of economic activities in the European Community",
	"5":  "National Taxonomy for Exempt Entities (USA)",
	"6":  "AidData",
	"7":  "SDG Goal",
	"8":  "SDG Target",
	"9":  "SDG Indicator",
	"10": "Humanitarian Global Clusters",
	"11": "North American Industry Classification System (NAICS)",
	"12": "UN System Function",
	"99": "Reporting Organisation",
	"98": "Reporting Organisation 2",
}

func baseTables() map[Name]matcher {
	return map[Name]matcher{
		ActivityStatus:      {codes: activityStatusCodes},
		AidType:             {pattern: aidTypePattern},
		BudgetType:          {codes: budgetTypeCodes},
		CollaborationType:   {codes: collaborationTypeCodes},
		Country:             {pattern: countryPattern},
		Currency:            {pattern: currencyPattern},
		DisbursementChannel: {codes: disbursementChannelCodes},
		FinanceType:         {pattern: financePattern},
		FlowType:            {codes: flowTypeCodes},
		Language:            {pattern: languagePattern},
		OrganisationType:    {codes: organisationTypeCodes},
		PolicyMarker:        {codes: policyMarkerCodes},
		PolicySignificance:  {codes: policySignificanceCodes},
		Region:              {pattern: regionPattern},
		Sector:              {pattern: sectorPattern},
		TiedStatus:          {codes: tiedStatusCodes},
	}
}

func v1Tables() map[Name]matcher {
	tables := baseTables()
	tables[OrganisationRole] = matcher{codes: organisationRoleV1Codes}
	tables[TransactionType] = matcher{codes: transactionTypeV1Codes}
	tables[Vocabulary] = matcher{codes: vocabularyV1Codes}
	return tables
}

func v2Tables() map[Name]matcher {
	tables := baseTables()
	tables[OrganisationRole] = matcher{codes: organisationRoleV2Codes}
	tables[TransactionType] = matcher{codes: transactionTypeV2Codes}
	tables[Vocabulary] = matcher{codes: vocabularyV2Codes}
	return tables
}

var registry = map[string]map[Name]matcher{
	"1": v1Tables(),
	"2": v2Tables(),
}
