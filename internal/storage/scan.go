package storage

import (
	"encoding/json"

	"envelope/internal/core"
)

// Converters from generic result rows to typed entities. Values were written
// by the statement builders in this package, so parse failures mean schema
// drift and degrade to zero values rather than erroring per row.

// BudgetFromRow converts a Budgets row.
func BudgetFromRow(r Row) core.Budget {
	return core.Budget{
		EntityID:        r.Str("entityId"),
		BudgetName:      r.Str("budgetName"),
		DataFormat:      r.Str("dataFormat"),
		LastAccessedOn:  r.Int("lastAccessedOn"),
		FirstMonth:      monthOrZero(r.Str("firstMonth")),
		LastMonth:       monthOrZero(r.Str("lastMonth")),
		IsCloudSynced:   r.Bool("isCloudSynced"),
		IsTombstone:     r.Bool("isTombstone"),
		DeviceKnowledge: r.Int("deviceKnowledge"),
	}
}

// GlobalSettingFromRow converts a GlobalSettings row.
func GlobalSettingFromRow(r Row) core.GlobalSetting {
	return core.GlobalSetting{
		SettingName:     r.Str("settingName"),
		SettingValue:    r.Str("settingValue"),
		DeviceKnowledge: r.Int("deviceKnowledge"),
	}
}

// AccountFromRow converts an Accounts row.
func AccountFromRow(r Row) core.Account {
	return core.Account{
		EntityID:              r.Str("entityId"),
		AccountType:           r.Str("accountType"),
		AccountName:           r.Str("accountName"),
		OnBudget:              r.Bool("onBudget"),
		Closed:                r.Bool("closed"),
		Note:                  r.Str("note"),
		LastReconciledDate:    r.Str("lastReconciledDate"),
		LastReconciledBalance: core.Money{Cents: r.Int("lastReconciledBalance")},
		SortableIndex:         r.Int("sortableIndex"),
		IsTombstone:           r.Bool("isTombstone"),
		ClearedBalance:        core.Money{Cents: r.Int("clearedBalance")},
		UnclearedBalance:      core.Money{Cents: r.Int("unclearedBalance")},
		InfoCount:             r.Int("infoCount"),
		WarningCount:          r.Int("warningCount"),
		ErrorCount:            r.Int("errorCount"),

		DeviceKnowledge:                    r.Int("deviceKnowledge"),
		DeviceKnowledgeForCalculatedFields: r.Int("deviceKnowledgeForCalculatedFields"),
	}
}

// AccountMonthlyCalculationFromRow converts an AccountMonthlyCalculations row.
func AccountMonthlyCalculationFromRow(r Row) core.AccountMonthlyCalculation {
	return core.AccountMonthlyCalculation{
		EntityID:         r.Str("entityId"),
		Month:            monthOrZero(r.Str("month")),
		AccountID:        r.Str("accountId"),
		ClearedBalance:   core.Money{Cents: r.Int("clearedBalance")},
		UnclearedBalance: core.Money{Cents: r.Int("unclearedBalance")},
		InfoCount:        r.Int("infoCount"),
		WarningCount:     r.Int("warningCount"),
		ErrorCount:       r.Int("errorCount"),
		IsTombstone:      r.Bool("isTombstone"),
		DeviceKnowledge:  r.Int("deviceKnowledge"),
	}
}

// MasterCategoryFromRow converts a MasterCategories row.
func MasterCategoryFromRow(r Row) core.MasterCategory {
	return core.MasterCategory{
		EntityID:        r.Str("entityId"),
		Name:            r.Str("name"),
		InternalName:    r.Str("internalName"),
		IsHidden:        r.Bool("isHidden"),
		SortableIndex:   r.Int("sortableIndex"),
		IsTombstone:     r.Bool("isTombstone"),
		DeviceKnowledge: r.Int("deviceKnowledge"),
	}
}

// SubCategoryFromRow converts a SubCategories row.
func SubCategoryFromRow(r Row) core.SubCategory {
	return core.SubCategory{
		EntityID:         r.Str("entityId"),
		MasterCategoryID: r.Str("masterCategoryId"),
		Name:             r.Str("name"),
		InternalName:     r.Str("internalName"),
		IsHidden:         r.Bool("isHidden"),
		SortableIndex:    r.Int("sortableIndex"),
		Note:             r.Str("note"),
		GoalType:         r.Str("goalType"),
		GoalTargetAmount: core.Money{Cents: r.Int("goalTargetAmount")},
		GoalTargetMonth:  r.Str("goalTargetMonth"),
		IsTombstone:      r.Bool("isTombstone"),
		DeviceKnowledge:  r.Int("deviceKnowledge"),
	}
}

// MonthlyBudgetFromRow converts a MonthlyBudgets row.
func MonthlyBudgetFromRow(r Row) core.MonthlyBudget {
	return core.MonthlyBudget{
		EntityID:          r.Str("entityId"),
		Month:             monthOrZero(r.Str("month")),
		IsTombstone:       r.Bool("isTombstone"),
		PreviousIncome:    core.Money{Cents: r.Int("previousIncome")},
		ImmediateIncome:   core.Money{Cents: r.Int("immediateIncome")},
		Budgeted:          core.Money{Cents: r.Int("budgeted")},
		CashOutflows:      core.Money{Cents: r.Int("cashOutflows")},
		CreditOutflows:    core.Money{Cents: r.Int("creditOutflows")},
		Balance:           core.Money{Cents: r.Int("balance")},
		OverSpent:         core.Money{Cents: r.Int("overSpent")},
		AvailableToBudget: core.Money{Cents: r.Int("availableToBudget")},

		DeviceKnowledge:                    r.Int("deviceKnowledge"),
		DeviceKnowledgeForCalculatedFields: r.Int("deviceKnowledgeForCalculatedFields"),
	}
}

// MonthlySubCategoryBudgetFromRow converts a MonthlySubCategoryBudgets row.
func MonthlySubCategoryBudgetFromRow(r Row) core.MonthlySubCategoryBudget {
	return core.MonthlySubCategoryBudget{
		EntityID:              r.Str("entityId"),
		Month:                 monthOrZero(r.Str("month")),
		SubCategoryID:         r.Str("subCategoryId"),
		Budgeted:              core.Money{Cents: r.Int("budgeted")},
		Note:                  r.Str("note"),
		IsTombstone:           r.Bool("isTombstone"),
		CashOutflows:          core.Money{Cents: r.Int("cashOutflows")},
		CreditOutflows:        core.Money{Cents: r.Int("creditOutflows")},
		Balance:               core.Money{Cents: r.Int("balance")},
		BudgetedPreviousMonth: core.Money{Cents: r.Int("budgetedPreviousMonth")},
		SpentPreviousMonth:    core.Money{Cents: r.Int("spentPreviousMonth")},
		BudgetedAverage:       core.Money{Cents: r.Int("budgetedAverage")},
		SpentAverage:          core.Money{Cents: r.Int("spentAverage")},
		GoalTarget:            core.Money{Cents: r.Int("goalTarget")},
		GoalOverallFunded:     core.Money{Cents: r.Int("goalOverallFunded")},
		GoalUnderFunded:       core.Money{Cents: r.Int("goalUnderFunded")},

		DeviceKnowledge:                    r.Int("deviceKnowledge"),
		DeviceKnowledgeForCalculatedFields: r.Int("deviceKnowledgeForCalculatedFields"),
	}
}

// PayeeFromRow converts a Payees row.
func PayeeFromRow(r Row) core.Payee {
	return core.Payee{
		EntityID:              r.Str("entityId"),
		AccountID:             r.Str("accountId"),
		Enabled:               r.Bool("enabled"),
		Name:                  r.Str("name"),
		InternalName:          r.Str("internalName"),
		AutoFillSubCategoryID: r.Str("autoFillSubCategoryId"),
		IsTombstone:           r.Bool("isTombstone"),
		DeviceKnowledge:       r.Int("deviceKnowledge"),
	}
}

// PayeeLocationFromRow converts a PayeeLocations row.
func PayeeLocationFromRow(r Row) core.PayeeLocation {
	return core.PayeeLocation{
		EntityID:        r.Str("entityId"),
		PayeeID:         r.Str("payeeId"),
		Latitude:        r.Float("latitude"),
		Longitude:       r.Float("longitude"),
		IsTombstone:     r.Bool("isTombstone"),
		DeviceKnowledge: r.Int("deviceKnowledge"),
	}
}

// PayeeRenameConditionFromRow converts a PayeeRenameConditions row.
func PayeeRenameConditionFromRow(r Row) core.PayeeRenameCondition {
	return core.PayeeRenameCondition{
		EntityID:        r.Str("entityId"),
		PayeeID:         r.Str("payeeId"),
		Operator:        r.Str("operator"),
		Operand:         r.Str("operand"),
		IsTombstone:     r.Bool("isTombstone"),
		DeviceKnowledge: r.Int("deviceKnowledge"),
	}
}

// ScheduledTransactionFromRow converts a ScheduledTransactions row, decoding
// the serialized occurrence list.
func ScheduledTransactionFromRow(r Row) core.ScheduledTransaction {
	var upcoming []core.Date
	if raw := r.Str("upcomingInstances"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &upcoming)
	}
	return core.ScheduledTransaction{
		EntityID:          r.Str("entityId"),
		AccountID:         r.Str("accountId"),
		PayeeID:           r.Str("payeeId"),
		SubCategoryID:     r.Str("subCategoryId"),
		Date:              dateOrZero(r.Str("date")),
		Frequency:         core.Frequency(r.Str("frequency")),
		Amount:            core.Money{Cents: r.Int("amount")},
		Memo:              r.Str("memo"),
		Flag:              r.Str("flag"),
		IsTombstone:       r.Bool("isTombstone"),
		UpcomingInstances: upcoming,

		DeviceKnowledge:                    r.Int("deviceKnowledge"),
		DeviceKnowledgeForCalculatedFields: r.Int("deviceKnowledgeForCalculatedFields"),
	}
}

// SettingFromRow converts a Settings row.
func SettingFromRow(r Row) core.Setting {
	return core.Setting{
		SettingName:     r.Str("settingName"),
		SettingValue:    r.Str("settingValue"),
		DeviceKnowledge: r.Int("deviceKnowledge"),
	}
}

// TransactionFromRow converts a Transactions row.
func TransactionFromRow(r Row) core.Transaction {
	return core.Transaction{
		EntityID:               r.Str("entityId"),
		AccountID:              r.Str("accountId"),
		PayeeID:                r.Str("payeeId"),
		SubCategoryID:          r.Str("subCategoryId"),
		Date:                   dateOrZero(r.Str("date")),
		Amount:                 core.Money{Cents: r.Int("amount")},
		Memo:                   r.Str("memo"),
		CheckNumber:            r.Str("checkNumber"),
		Flag:                   r.Str("flag"),
		Cleared:                r.Str("cleared"),
		Accepted:               r.Bool("accepted"),
		ScheduledTransactionID: r.Str("scheduledTransactionId"),
		TransferAccountID:      r.Str("transferAccountId"),
		IsTombstone:            r.Bool("isTombstone"),
		CashAmount:             core.Money{Cents: r.Int("cashAmount")},
		CreditAmount:           core.Money{Cents: r.Int("creditAmount")},

		DeviceKnowledge:                    r.Int("deviceKnowledge"),
		DeviceKnowledgeForCalculatedFields: r.Int("deviceKnowledgeForCalculatedFields"),
	}
}

func monthOrZero(s string) core.Month {
	m, err := core.ParseMonth(s)
	if err != nil {
		return core.Month{}
	}
	return m
}

func dateOrZero(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}
