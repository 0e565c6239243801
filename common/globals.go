package common

const (
	DirectionCredit = "CREDIT"
	DirectionDebit  = "DEBIT"

	// tags still sent by the legacy back-office forms
	LegacyDirectionRecette = "RECETTE"
	LegacyDirectionDepense = "DEPENSE"

	AccountTypeCash = "cash"
	AccountTypeBank = "bank"

	SourceTypeManual      = "manual"
	SourceTypeInvoice     = "invoice"
	SourceTypeSale        = "sale"
	SourceTypeMaintenance = "maintenance"
	SourceTypeTransfer    = "transfer"

	EntryReferencePrefix   = "TRANS"
	AccountReferencePrefix = "ACC"

	DefaultMotif = "Sans motif"

	// business dates travel as plain calendar days
	DateLayout = "2006-01-02"

	OperatorHeader = "X-Operator"
)
