package core

// ChangeSet groups changed entities by family. It is what the orchestrator
// loads from a delta query, what callers submit for persistence, and, after
// merging and stripping, what the diff transport serializes.
type ChangeSet struct {
	Budgets                    []Budget                    `json:"budgets,omitempty"`
	GlobalSettings             []GlobalSetting             `json:"globalSettings,omitempty"`
	Accounts                   []Account                   `json:"accounts,omitempty"`
	AccountMonthlyCalculations []AccountMonthlyCalculation `json:"accountMonthlyCalculations,omitempty"`
	MasterCategories           []MasterCategory            `json:"masterCategories,omitempty"`
	SubCategories              []SubCategory               `json:"subCategories,omitempty"`
	MonthlyBudgets             []MonthlyBudget             `json:"monthlyBudgets,omitempty"`
	MonthlySubCategoryBudgets  []MonthlySubCategoryBudget  `json:"monthlySubCategoryBudgets,omitempty"`
	Payees                     []Payee                     `json:"payees,omitempty"`
	PayeeLocations             []PayeeLocation             `json:"payeeLocations,omitempty"`
	PayeeRenameConditions      []PayeeRenameCondition      `json:"payeeRenameConditions,omitempty"`
	ScheduledTransactions      []ScheduledTransaction      `json:"scheduledTransactions,omitempty"`
	Settings                   []Setting                   `json:"settings,omitempty"`
	Transactions               []Transaction               `json:"transactions,omitempty"`
}

// IsEmpty reports whether the change-set contains no entities at all.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Budgets) == 0 &&
		len(c.GlobalSettings) == 0 &&
		len(c.Accounts) == 0 &&
		len(c.AccountMonthlyCalculations) == 0 &&
		len(c.MasterCategories) == 0 &&
		len(c.SubCategories) == 0 &&
		len(c.MonthlyBudgets) == 0 &&
		len(c.MonthlySubCategoryBudgets) == 0 &&
		len(c.Payees) == 0 &&
		len(c.PayeeLocations) == 0 &&
		len(c.PayeeRenameConditions) == 0 &&
		len(c.ScheduledTransactions) == 0 &&
		len(c.Settings) == 0 &&
		len(c.Transactions) == 0
}

// MergeForExport combines a caller-submitted change-set with the
// calculation-produced one ahead of writing a diff file. For families whose
// calculation-produced changes are derived-only (accounts, monthly budgets,
// monthly subcategory budgets) only the submitted side is kept: the derived
// values are stripped before export anyway, so shipping the recalculated rows
// would be pure redundancy. Every other family concatenates both sides.
// Account monthly calculation rows never leave the device.
func MergeForExport(submitted, calculated ChangeSet) ChangeSet {
	return ChangeSet{
		Budgets:                   append([]Budget(nil), submitted.Budgets...),
		GlobalSettings:            concat(submitted.GlobalSettings, calculated.GlobalSettings),
		Accounts:                  append([]Account(nil), submitted.Accounts...),
		MasterCategories:          concat(submitted.MasterCategories, calculated.MasterCategories),
		SubCategories:             concat(submitted.SubCategories, calculated.SubCategories),
		MonthlyBudgets:            append([]MonthlyBudget(nil), submitted.MonthlyBudgets...),
		MonthlySubCategoryBudgets: append([]MonthlySubCategoryBudget(nil), submitted.MonthlySubCategoryBudgets...),
		Payees:                    concat(submitted.Payees, calculated.Payees),
		PayeeLocations:            concat(submitted.PayeeLocations, calculated.PayeeLocations),
		PayeeRenameConditions:     concat(submitted.PayeeRenameConditions, calculated.PayeeRenameConditions),
		ScheduledTransactions:     concat(submitted.ScheduledTransactions, calculated.ScheduledTransactions),
		Settings:                  concat(submitted.Settings, calculated.Settings),
		Transactions:              concat(submitted.Transactions, calculated.Transactions),
	}
}

func concat[T any](a, b []T) []T {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// DiffPayload is the wire form of a change-set: the same families, but with
// every derived field structurally absent. Receiving devices recompute
// derived values locally, so transmitting them would only invite skew.
type DiffPayload struct {
	Budgets                   []Budget                       `json:"budgets,omitempty"`
	GlobalSettings            []GlobalSetting                `json:"globalSettings,omitempty"`
	Accounts                  []AccountDiff                  `json:"accounts,omitempty"`
	MasterCategories          []MasterCategory               `json:"masterCategories,omitempty"`
	SubCategories             []SubCategory                  `json:"subCategories,omitempty"`
	MonthlyBudgets            []MonthlyBudgetDiff            `json:"monthlyBudgets,omitempty"`
	MonthlySubCategoryBudgets []MonthlySubCategoryBudgetDiff `json:"monthlySubCategoryBudgets,omitempty"`
	Payees                    []Payee                        `json:"payees,omitempty"`
	PayeeLocations            []PayeeLocation                `json:"payeeLocations,omitempty"`
	PayeeRenameConditions     []PayeeRenameCondition         `json:"payeeRenameConditions,omitempty"`
	ScheduledTransactions     []ScheduledTransactionDiff     `json:"scheduledTransactions,omitempty"`
	Settings                  []Setting                      `json:"settings,omitempty"`
	Transactions              []TransactionDiff              `json:"transactions,omitempty"`
}

// IsEmpty reports whether the payload carries no entities.
func (p DiffPayload) IsEmpty() bool {
	return len(p.Budgets) == 0 &&
		len(p.GlobalSettings) == 0 &&
		len(p.Accounts) == 0 &&
		len(p.MasterCategories) == 0 &&
		len(p.SubCategories) == 0 &&
		len(p.MonthlyBudgets) == 0 &&
		len(p.MonthlySubCategoryBudgets) == 0 &&
		len(p.Payees) == 0 &&
		len(p.PayeeLocations) == 0 &&
		len(p.PayeeRenameConditions) == 0 &&
		len(p.ScheduledTransactions) == 0 &&
		len(p.Settings) == 0 &&
		len(p.Transactions) == 0
}

// AccountDiff is an Account without its derived balance and count fields.
type AccountDiff struct {
	EntityID              string `json:"entityId"`
	AccountType           string `json:"accountType"`
	AccountName           string `json:"accountName"`
	OnBudget              bool   `json:"onBudget"`
	Closed                bool   `json:"closed"`
	Note                  string `json:"note"`
	LastReconciledDate    string `json:"lastReconciledDate"`
	LastReconciledBalance Money  `json:"lastReconciledBalance"`
	SortableIndex         int64  `json:"sortableIndex"`
	IsTombstone           bool   `json:"isTombstone"`
	DeviceKnowledge       int64  `json:"deviceKnowledge"`
}

// MonthlyBudgetDiff carries only the identity of a monthly totals row; all of
// its numbers are derived.
type MonthlyBudgetDiff struct {
	EntityID        string `json:"entityId"`
	Month           Month  `json:"month"`
	IsTombstone     bool   `json:"isTombstone"`
	DeviceKnowledge int64  `json:"deviceKnowledge"`
}

// MonthlySubCategoryBudgetDiff keeps the user-entered budgeted amount and
// drops the derived rollups.
type MonthlySubCategoryBudgetDiff struct {
	EntityID        string `json:"entityId"`
	Month           Month  `json:"month"`
	SubCategoryID   string `json:"subCategoryId"`
	Budgeted        Money  `json:"budgeted"`
	Note            string `json:"note"`
	IsTombstone     bool   `json:"isTombstone"`
	DeviceKnowledge int64  `json:"deviceKnowledge"`
}

// ScheduledTransactionDiff drops the projected occurrence list; peers rerun
// the projector against the same anchor and frequency.
type ScheduledTransactionDiff struct {
	EntityID        string    `json:"entityId"`
	AccountID       string    `json:"accountId"`
	PayeeID         string    `json:"payeeId"`
	SubCategoryID   string    `json:"subCategoryId"`
	Date            Date      `json:"date"`
	Frequency       Frequency `json:"frequency"`
	Amount          Money     `json:"amount"`
	Memo            string    `json:"memo"`
	Flag            string    `json:"flag"`
	IsTombstone     bool      `json:"isTombstone"`
	DeviceKnowledge int64     `json:"deviceKnowledge"`
}

// TransactionDiff is a Transaction without its derived cash/credit split.
type TransactionDiff struct {
	EntityID               string `json:"entityId"`
	AccountID              string `json:"accountId"`
	PayeeID                string `json:"payeeId"`
	SubCategoryID          string `json:"subCategoryId"`
	Date                   Date   `json:"date"`
	Amount                 Money  `json:"amount"`
	Memo                   string `json:"memo"`
	CheckNumber            string `json:"checkNumber"`
	Flag                   string `json:"flag"`
	Cleared                string `json:"cleared"`
	Accepted               bool   `json:"accepted"`
	ScheduledTransactionID string `json:"scheduledTransactionId"`
	TransferAccountID      string `json:"transferAccountId"`
	IsTombstone            bool   `json:"isTombstone"`
	DeviceKnowledge        int64  `json:"deviceKnowledge"`
}

// ForExport strips every derived field from the change-set, producing the
// payload the diff transport serializes. The stripping is a structural
// transformation into diff types rather than a mutation of the loaded rows.
func (c ChangeSet) ForExport() DiffPayload {
	p := DiffPayload{
		Budgets:               append([]Budget(nil), c.Budgets...),
		GlobalSettings:        append([]GlobalSetting(nil), c.GlobalSettings...),
		MasterCategories:      append([]MasterCategory(nil), c.MasterCategories...),
		SubCategories:         append([]SubCategory(nil), c.SubCategories...),
		Payees:                append([]Payee(nil), c.Payees...),
		PayeeLocations:        append([]PayeeLocation(nil), c.PayeeLocations...),
		PayeeRenameConditions: append([]PayeeRenameCondition(nil), c.PayeeRenameConditions...),
		Settings:              append([]Setting(nil), c.Settings...),
	}
	for _, a := range c.Accounts {
		p.Accounts = append(p.Accounts, AccountDiff{
			EntityID:              a.EntityID,
			AccountType:           a.AccountType,
			AccountName:           a.AccountName,
			OnBudget:              a.OnBudget,
			Closed:                a.Closed,
			Note:                  a.Note,
			LastReconciledDate:    a.LastReconciledDate,
			LastReconciledBalance: a.LastReconciledBalance,
			SortableIndex:         a.SortableIndex,
			IsTombstone:           a.IsTombstone,
			DeviceKnowledge:       a.DeviceKnowledge,
		})
	}
	for _, mb := range c.MonthlyBudgets {
		p.MonthlyBudgets = append(p.MonthlyBudgets, MonthlyBudgetDiff{
			EntityID:        mb.EntityID,
			Month:           mb.Month,
			IsTombstone:     mb.IsTombstone,
			DeviceKnowledge: mb.DeviceKnowledge,
		})
	}
	for _, mcb := range c.MonthlySubCategoryBudgets {
		p.MonthlySubCategoryBudgets = append(p.MonthlySubCategoryBudgets, MonthlySubCategoryBudgetDiff{
			EntityID:        mcb.EntityID,
			Month:           mcb.Month,
			SubCategoryID:   mcb.SubCategoryID,
			Budgeted:        mcb.Budgeted,
			Note:            mcb.Note,
			IsTombstone:     mcb.IsTombstone,
			DeviceKnowledge: mcb.DeviceKnowledge,
		})
	}
	for _, st := range c.ScheduledTransactions {
		p.ScheduledTransactions = append(p.ScheduledTransactions, ScheduledTransactionDiff{
			EntityID:        st.EntityID,
			AccountID:       st.AccountID,
			PayeeID:         st.PayeeID,
			SubCategoryID:   st.SubCategoryID,
			Date:            st.Date,
			Frequency:       st.Frequency,
			Amount:          st.Amount,
			Memo:            st.Memo,
			Flag:            st.Flag,
			IsTombstone:     st.IsTombstone,
			DeviceKnowledge: st.DeviceKnowledge,
		})
	}
	for _, t := range c.Transactions {
		p.Transactions = append(p.Transactions, TransactionDiff{
			EntityID:               t.EntityID,
			AccountID:              t.AccountID,
			PayeeID:                t.PayeeID,
			SubCategoryID:          t.SubCategoryID,
			Date:                   t.Date,
			Amount:                 t.Amount,
			Memo:                   t.Memo,
			CheckNumber:            t.CheckNumber,
			Flag:                   t.Flag,
			Cleared:                t.Cleared,
			Accepted:               t.Accepted,
			ScheduledTransactionID: t.ScheduledTransactionID,
			TransferAccountID:      t.TransferAccountID,
			IsTombstone:            t.IsTombstone,
			DeviceKnowledge:        t.DeviceKnowledge,
		})
	}
	return p
}
