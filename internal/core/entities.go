package core

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Frequency of a scheduled transaction rule.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Cleared status of a transaction.
const (
	Uncleared  = "Uncleared"
	Cleared    = "Cleared"
	Reconciled = "Reconciled"
)

// Account types. Credit account outflows are tracked separately from cash
// outflows by the monthly budget calculator.
const (
	AccountTypeChecking       = "Checking"
	AccountTypeSavings        = "Savings"
	AccountTypeCash           = "Cash"
	AccountTypeCreditCard     = "CreditCard"
	AccountTypeLineOfCredit   = "LineOfCredit"
	AccountTypeOtherAsset     = "OtherAsset"
	AccountTypeOtherLiability = "OtherLiability"
)

// IsCreditAccountType reports whether outflows from accounts of this type
// count as credit outflows.
func IsCreditAccountType(t string) bool {
	return t == AccountTypeCreditCard || t == AccountTypeLineOfCredit
}

// Internal (non user-created) category names.
const (
	InternalMasterCategory       = "__Internal__"
	InternalCategoryToBeBudgeted = "__ToBeBudgeted__"
	InternalCategoryIncome       = "__ImmediateIncome__"
)

// Name of the GlobalSettings row holding the persisted device identifier.
const DeviceIDSettingName = "deviceId"

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrUnknownFrequency = errors.New("unknown frequency")
	ErrNoActiveBudget   = errors.New("no active budget")
)

// NewEntityID generates a fresh globally unique entity id. Calculation-owned
// rows use the deterministic id helpers below instead.
func NewEntityID() string { return uuid.NewString() }

// AccountMonthlyCalculationID is the deterministic id of an account's monthly
// rollup row. Recomputation always upserts the same id.
func AccountMonthlyCalculationID(month Month, accountID string) string {
	return fmt.Sprintf("mac/%s/%s", month, accountID)
}

// MonthlyBudgetID is the deterministic id of a budget's monthly totals row.
func MonthlyBudgetID(month Month, budgetID string) string {
	return fmt.Sprintf("mb/%s/%s", month, budgetID)
}

// MonthlySubCategoryBudgetID is the deterministic id of a category's monthly
// row.
func MonthlySubCategoryBudgetID(month Month, subCategoryID string) string {
	return fmt.Sprintf("mcb/%s/%s", month, subCategoryID)
}

// Budget is a catalog-scoped ledger. LastAccessedOn is unix milliseconds and
// drives which budget opens by default.
type Budget struct {
	EntityID        string `json:"entityId"`
	BudgetName      string `json:"budgetName"`
	DataFormat      string `json:"dataFormat"`
	LastAccessedOn  int64  `json:"lastAccessedOn"`
	FirstMonth      Month  `json:"firstMonth"`
	LastMonth       Month  `json:"lastMonth"`
	IsCloudSynced   bool   `json:"isCloudSynced"`
	IsTombstone     bool   `json:"isTombstone"`
	DeviceKnowledge int64  `json:"deviceKnowledge"`
}

// GlobalSetting is a catalog-scoped key/value row, keyed by name.
type GlobalSetting struct {
	SettingName     string `json:"settingName"`
	SettingValue    string `json:"settingValue"`
	DeviceKnowledge int64  `json:"deviceKnowledge"`
}

// Account is a money account. Balances and the attention counts are derived
// fields owned by the account calculator.
type Account struct {
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

	ClearedBalance   Money `json:"clearedBalance"`
	UnclearedBalance Money `json:"unclearedBalance"`
	InfoCount        int64 `json:"infoCount"`
	WarningCount     int64 `json:"warningCount"`
	ErrorCount       int64 `json:"errorCount"`

	DeviceKnowledge                    int64 `json:"deviceKnowledge"`
	DeviceKnowledgeForCalculatedFields int64 `json:"deviceKnowledgeForCalculatedFields"`
}

// AccountMonthlyCalculation is a wholly calculator-owned per-account-per-month
// rollup. It is never exported in diff files; peers recompute it locally.
type AccountMonthlyCalculation struct {
	EntityID         string `json:"entityId"`
	Month            Month  `json:"month"`
	AccountID        string `json:"accountId"`
	ClearedBalance   Money  `json:"clearedBalance"`
	UnclearedBalance Money  `json:"unclearedBalance"`
	InfoCount        int64  `json:"infoCount"`
	WarningCount     int64  `json:"warningCount"`
	ErrorCount       int64  `json:"errorCount"`
	IsTombstone      bool   `json:"isTombstone"`
	DeviceKnowledge  int64  `json:"deviceKnowledge"`
}

// MasterCategory is the top level of the category hierarchy.
type MasterCategory struct {
	EntityID        string `json:"entityId"`
	Name            string `json:"name"`
	InternalName    string `json:"internalName"`
	IsHidden        bool   `json:"isHidden"`
	SortableIndex   int64  `json:"sortableIndex"`
	IsTombstone     bool   `json:"isTombstone"`
	DeviceKnowledge int64  `json:"deviceKnowledge"`
}

// SubCategory belongs to a MasterCategory and carries optional goal settings.
type SubCategory struct {
	EntityID         string `json:"entityId"`
	MasterCategoryID string `json:"masterCategoryId"`
	Name             string `json:"name"`
	InternalName     string `json:"internalName"`
	IsHidden         bool   `json:"isHidden"`
	SortableIndex    int64  `json:"sortableIndex"`
	Note             string `json:"note"`
	GoalType         string `json:"goalType"`
	GoalTargetAmount Money  `json:"goalTargetAmount"`
	GoalTargetMonth  string `json:"goalTargetMonth"`
	IsTombstone      bool   `json:"isTombstone"`
	DeviceKnowledge  int64  `json:"deviceKnowledge"`
}

// MonthlyBudget holds per-budget per-month totals. Every numeric field is
// derived; the row itself is materialized lazily per month.
type MonthlyBudget struct {
	EntityID    string `json:"entityId"`
	Month       Month  `json:"month"`
	IsTombstone bool   `json:"isTombstone"`

	PreviousIncome    Money `json:"previousIncome"`
	ImmediateIncome   Money `json:"immediateIncome"`
	Budgeted          Money `json:"budgeted"`
	CashOutflows      Money `json:"cashOutflows"`
	CreditOutflows    Money `json:"creditOutflows"`
	Balance           Money `json:"balance"`
	OverSpent         Money `json:"overSpent"`
	AvailableToBudget Money `json:"availableToBudget"`

	DeviceKnowledge                    int64 `json:"deviceKnowledge"`
	DeviceKnowledgeForCalculatedFields int64 `json:"deviceKnowledgeForCalculatedFields"`
}

// MonthlySubCategoryBudget is a category's month row. Budgeted is the only
// user-entered amount; the rest are derived by the monthly budget calculator,
// with Balance carried forward month to month.
type MonthlySubCategoryBudget struct {
	EntityID      string `json:"entityId"`
	Month         Month  `json:"month"`
	SubCategoryID string `json:"subCategoryId"`
	Budgeted      Money  `json:"budgeted"`
	Note          string `json:"note"`
	IsTombstone   bool   `json:"isTombstone"`

	CashOutflows          Money `json:"cashOutflows"`
	CreditOutflows        Money `json:"creditOutflows"`
	Balance               Money `json:"balance"`
	BudgetedPreviousMonth Money `json:"budgetedPreviousMonth"`
	SpentPreviousMonth    Money `json:"spentPreviousMonth"`
	BudgetedAverage       Money `json:"budgetedAverage"`
	SpentAverage          Money `json:"spentAverage"`
	GoalTarget            Money `json:"goalTarget"`
	GoalOverallFunded     Money `json:"goalOverallFunded"`
	GoalUnderFunded       Money `json:"goalUnderFunded"`

	DeviceKnowledge                    int64 `json:"deviceKnowledge"`
	DeviceKnowledgeForCalculatedFields int64 `json:"deviceKnowledgeForCalculatedFields"`
}

// Payee is a transaction counterparty. Transfer payees reference the account
// they move money to.
type Payee struct {
	EntityID              string `json:"entityId"`
	AccountID             string `json:"accountId"`
	Enabled               bool   `json:"enabled"`
	Name                  string `json:"name"`
	InternalName          string `json:"internalName"`
	AutoFillSubCategoryID string `json:"autoFillSubCategoryId"`
	IsTombstone           bool   `json:"isTombstone"`
	DeviceKnowledge       int64  `json:"deviceKnowledge"`
}

// PayeeLocation is a geolocation observed for a payee.
type PayeeLocation struct {
	EntityID        string  `json:"entityId"`
	PayeeID         string  `json:"payeeId"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	IsTombstone     bool    `json:"isTombstone"`
	DeviceKnowledge int64   `json:"deviceKnowledge"`
}

// PayeeRenameCondition matches imported payee names onto a payee.
type PayeeRenameCondition struct {
	EntityID        string `json:"entityId"`
	PayeeID         string `json:"payeeId"`
	Operator        string `json:"operator"`
	Operand         string `json:"operand"`
	IsTombstone     bool   `json:"isTombstone"`
	DeviceKnowledge int64  `json:"deviceKnowledge"`
}

// ScheduledTransaction is a recurring rule. Date is the anchor; the projector
// refreshes UpcomingInstances, an ordered list of projected occurrence dates.
type ScheduledTransaction struct {
	EntityID      string    `json:"entityId"`
	AccountID     string    `json:"accountId"`
	PayeeID       string    `json:"payeeId"`
	SubCategoryID string    `json:"subCategoryId"`
	Date          Date      `json:"date"`
	Frequency     Frequency `json:"frequency"`
	Amount        Money     `json:"amount"`
	Memo          string    `json:"memo"`
	Flag          string    `json:"flag"`
	IsTombstone   bool      `json:"isTombstone"`

	UpcomingInstances []Date `json:"upcomingInstances"`

	DeviceKnowledge                    int64 `json:"deviceKnowledge"`
	DeviceKnowledgeForCalculatedFields int64 `json:"deviceKnowledgeForCalculatedFields"`
}

// Setting is a budget-scoped key/value row, keyed by name.
type Setting struct {
	SettingName     string `json:"settingName"`
	SettingValue    string `json:"settingValue"`
	DeviceKnowledge int64  `json:"deviceKnowledge"`
}

// Transaction is a ledger entry. CashAmount and CreditAmount are derived
// split fields owned by the calculators.
type Transaction struct {
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

	CashAmount   Money `json:"cashAmount"`
	CreditAmount Money `json:"creditAmount"`

	DeviceKnowledge                    int64 `json:"deviceKnowledge"`
	DeviceKnowledgeForCalculatedFields int64 `json:"deviceKnowledgeForCalculatedFields"`
}
