package storage

import (
	"encoding/json"
	"strings"

	"envelope/internal/core"
)

// Result names under which the budget-scope load queries collect their rows.
const (
	ResultAccounts                   = "accounts"
	ResultAccountMonthlyCalculations = "accountMonthlyCalculations"
	ResultMasterCategories           = "masterCategories"
	ResultSubCategories              = "subCategories"
	ResultMonthlyBudgets             = "monthlyBudgets"
	ResultMonthlySubCategoryBudgets  = "monthlySubCategoryBudgets"
	ResultPayees                     = "payees"
	ResultPayeeLocations             = "payeeLocations"
	ResultPayeeRenameConditions      = "payeeRenameConditions"
	ResultScheduledTransactions      = "scheduledTransactions"
	ResultSettings                   = "settings"
	ResultTransactions               = "transactions"
)

// InsertAccount upserts an account preserving both knowledge stamps carried
// on the entity.
func InsertAccount(budgetID string, a core.Account) Query {
	return Query{
		SQL: `REPLACE INTO Accounts (budgetId, entityId, accountType, accountName, onBudget,
		        closed, note, lastReconciledDate, lastReconciledBalance, sortableIndex, isTombstone,
		        clearedBalance, unclearedBalance, infoCount, warningCount, errorCount,
		        deviceKnowledge, deviceKnowledgeForCalculatedFields)
		      VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, a.EntityID, a.AccountType, a.AccountName, boolToInt(a.OnBudget),
			boolToInt(a.Closed), a.Note, a.LastReconciledDate, a.LastReconciledBalance.Cents,
			a.SortableIndex, boolToInt(a.IsTombstone),
			a.ClearedBalance.Cents, a.UnclearedBalance.Cents, a.InfoCount, a.WarningCount, a.ErrorCount,
			a.DeviceKnowledge, a.DeviceKnowledgeForCalculatedFields,
		},
	}
}

// LoadAccounts selects accounts whose primary stamp exceeds the primary
// watermark or whose calculated stamp exceeds the calculation watermark.
func LoadAccounts(budgetID string, since, sinceCalc int64) Query {
	return Query{
		Name: ResultAccounts,
		SQL: `SELECT * FROM Accounts
		      WHERE budgetId = ? AND (deviceKnowledge > ? OR deviceKnowledgeForCalculatedFields > ?)`,
		Args: []any{budgetID, since, sinceCalc},
	}
}

// AllAccounts selects every account regardless of watermark.
func AllAccounts(budgetID string) Query {
	return Query{
		Name: ResultAccounts,
		SQL:  `SELECT * FROM Accounts WHERE budgetId = ? ORDER BY sortableIndex`,
		Args: []any{budgetID},
	}
}

// LoadAccountMonthlyCalculations selects calculator-owned account rollups past
// the calculation watermark. These rows only have the calculation track.
func LoadAccountMonthlyCalculations(budgetID string, sinceCalc int64) Query {
	return Query{
		Name: ResultAccountMonthlyCalculations,
		SQL:  `SELECT * FROM AccountMonthlyCalculations WHERE budgetId = ? AND deviceKnowledge > ?`,
		Args: []any{budgetID, sinceCalc},
	}
}

// InsertMasterCategory upserts a master category.
func InsertMasterCategory(budgetID string, mc core.MasterCategory) Query {
	return Query{
		SQL: `REPLACE INTO MasterCategories (budgetId, entityId, name, internalName, isHidden,
		        sortableIndex, isTombstone, deviceKnowledge)
		      VALUES (?,?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, mc.EntityID, mc.Name, mc.InternalName, boolToInt(mc.IsHidden),
			mc.SortableIndex, boolToInt(mc.IsTombstone), mc.DeviceKnowledge,
		},
	}
}

// LoadMasterCategories selects master categories past the primary watermark.
func LoadMasterCategories(budgetID string, since int64) Query {
	return Query{
		Name: ResultMasterCategories,
		SQL:  `SELECT * FROM MasterCategories WHERE budgetId = ? AND deviceKnowledge > ?`,
		Args: []any{budgetID, since},
	}
}

// InsertSubCategory upserts a subcategory.
func InsertSubCategory(budgetID string, sc core.SubCategory) Query {
	return Query{
		SQL: `REPLACE INTO SubCategories (budgetId, entityId, masterCategoryId, name, internalName,
		        isHidden, sortableIndex, note, goalType, goalTargetAmount, goalTargetMonth,
		        isTombstone, deviceKnowledge)
		      VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, sc.EntityID, sc.MasterCategoryID, sc.Name, sc.InternalName,
			boolToInt(sc.IsHidden), sc.SortableIndex, sc.Note, sc.GoalType,
			sc.GoalTargetAmount.Cents, sc.GoalTargetMonth,
			boolToInt(sc.IsTombstone), sc.DeviceKnowledge,
		},
	}
}

// LoadSubCategories selects subcategories past the primary watermark.
func LoadSubCategories(budgetID string, since int64) Query {
	return Query{
		Name: ResultSubCategories,
		SQL:  `SELECT * FROM SubCategories WHERE budgetId = ? AND deviceKnowledge > ?`,
		Args: []any{budgetID, since},
	}
}

// AllSubCategories selects every subcategory regardless of watermark.
func AllSubCategories(budgetID string) Query {
	return Query{
		Name: ResultSubCategories,
		SQL:  `SELECT * FROM SubCategories WHERE budgetId = ? ORDER BY sortableIndex`,
		Args: []any{budgetID},
	}
}

// InsertMonthlyBudget upserts a monthly totals row.
func InsertMonthlyBudget(budgetID string, mb core.MonthlyBudget) Query {
	return Query{
		SQL: `REPLACE INTO MonthlyBudgets (budgetId, entityId, month, isTombstone,
		        previousIncome, immediateIncome, budgeted, cashOutflows, creditOutflows,
		        balance, overSpent, availableToBudget,
		        deviceKnowledge, deviceKnowledgeForCalculatedFields)
		      VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, mb.EntityID, mb.Month.String(), boolToInt(mb.IsTombstone),
			mb.PreviousIncome.Cents, mb.ImmediateIncome.Cents, mb.Budgeted.Cents,
			mb.CashOutflows.Cents, mb.CreditOutflows.Cents,
			mb.Balance.Cents, mb.OverSpent.Cents, mb.AvailableToBudget.Cents,
			mb.DeviceKnowledge, mb.DeviceKnowledgeForCalculatedFields,
		},
	}
}

// LoadMonthlyBudgets selects monthly totals rows past either watermark.
func LoadMonthlyBudgets(budgetID string, since, sinceCalc int64) Query {
	return Query{
		Name: ResultMonthlyBudgets,
		SQL: `SELECT * FROM MonthlyBudgets
		      WHERE budgetId = ? AND (deviceKnowledge > ? OR deviceKnowledgeForCalculatedFields > ?)`,
		Args: []any{budgetID, since, sinceCalc},
	}
}

// AllMonthlyBudgets selects every materialized month, in ascending order.
func AllMonthlyBudgets(budgetID string) Query {
	return Query{
		Name: ResultMonthlyBudgets,
		SQL:  `SELECT * FROM MonthlyBudgets WHERE budgetId = ? ORDER BY month`,
		Args: []any{budgetID},
	}
}

// InsertMonthlySubCategoryBudget upserts a category month row.
func InsertMonthlySubCategoryBudget(budgetID string, m core.MonthlySubCategoryBudget) Query {
	return Query{
		SQL: `REPLACE INTO MonthlySubCategoryBudgets (budgetId, entityId, month, subCategoryId,
		        budgeted, note, isTombstone, cashOutflows, creditOutflows, balance,
		        budgetedPreviousMonth, spentPreviousMonth, budgetedAverage, spentAverage,
		        goalTarget, goalOverallFunded, goalUnderFunded,
		        deviceKnowledge, deviceKnowledgeForCalculatedFields)
		      VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, m.EntityID, m.Month.String(), m.SubCategoryID,
			m.Budgeted.Cents, m.Note, boolToInt(m.IsTombstone),
			m.CashOutflows.Cents, m.CreditOutflows.Cents, m.Balance.Cents,
			m.BudgetedPreviousMonth.Cents, m.SpentPreviousMonth.Cents,
			m.BudgetedAverage.Cents, m.SpentAverage.Cents,
			m.GoalTarget.Cents, m.GoalOverallFunded.Cents, m.GoalUnderFunded.Cents,
			m.DeviceKnowledge, m.DeviceKnowledgeForCalculatedFields,
		},
	}
}

// LoadMonthlySubCategoryBudgets selects category month rows past either
// watermark.
func LoadMonthlySubCategoryBudgets(budgetID string, since, sinceCalc int64) Query {
	return Query{
		Name: ResultMonthlySubCategoryBudgets,
		SQL: `SELECT * FROM MonthlySubCategoryBudgets
		      WHERE budgetId = ? AND (deviceKnowledge > ? OR deviceKnowledgeForCalculatedFields > ?)`,
		Args: []any{budgetID, since, sinceCalc},
	}
}

// AllMonthlySubCategoryBudgets selects every category month row in ascending
// month order; the monthly budget calculator depends on that ordering.
func AllMonthlySubCategoryBudgets(budgetID string) Query {
	return Query{
		Name: ResultMonthlySubCategoryBudgets,
		SQL:  `SELECT * FROM MonthlySubCategoryBudgets WHERE budgetId = ? ORDER BY month, subCategoryId`,
		Args: []any{budgetID},
	}
}

// InsertPayee upserts a payee.
func InsertPayee(budgetID string, p core.Payee) Query {
	return Query{
		SQL: `REPLACE INTO Payees (budgetId, entityId, accountId, enabled, name, internalName,
		        autoFillSubCategoryId, isTombstone, deviceKnowledge)
		      VALUES (?,?,?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, p.EntityID, p.AccountID, boolToInt(p.Enabled), p.Name, p.InternalName,
			p.AutoFillSubCategoryID, boolToInt(p.IsTombstone), p.DeviceKnowledge,
		},
	}
}

// LoadPayees selects payees past the primary watermark.
func LoadPayees(budgetID string, since int64) Query {
	return Query{
		Name: ResultPayees,
		SQL:  `SELECT * FROM Payees WHERE budgetId = ? AND deviceKnowledge > ?`,
		Args: []any{budgetID, since},
	}
}

// InsertPayeeLocation upserts a payee location.
func InsertPayeeLocation(budgetID string, pl core.PayeeLocation) Query {
	return Query{
		SQL: `REPLACE INTO PayeeLocations (budgetId, entityId, payeeId, latitude, longitude,
		        isTombstone, deviceKnowledge)
		      VALUES (?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, pl.EntityID, pl.PayeeID, pl.Latitude, pl.Longitude,
			boolToInt(pl.IsTombstone), pl.DeviceKnowledge,
		},
	}
}

// LoadPayeeLocations selects payee locations past the primary watermark.
func LoadPayeeLocations(budgetID string, since int64) Query {
	return Query{
		Name: ResultPayeeLocations,
		SQL:  `SELECT * FROM PayeeLocations WHERE budgetId = ? AND deviceKnowledge > ?`,
		Args: []any{budgetID, since},
	}
}

// InsertPayeeRenameCondition upserts a payee rename condition.
func InsertPayeeRenameCondition(budgetID string, pr core.PayeeRenameCondition) Query {
	return Query{
		SQL: `REPLACE INTO PayeeRenameConditions (budgetId, entityId, payeeId, operator, operand,
		        isTombstone, deviceKnowledge)
		      VALUES (?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, pr.EntityID, pr.PayeeID, pr.Operator, pr.Operand,
			boolToInt(pr.IsTombstone), pr.DeviceKnowledge,
		},
	}
}

// LoadPayeeRenameConditions selects rename conditions past the primary
// watermark.
func LoadPayeeRenameConditions(budgetID string, since int64) Query {
	return Query{
		Name: ResultPayeeRenameConditions,
		SQL:  `SELECT * FROM PayeeRenameConditions WHERE budgetId = ? AND deviceKnowledge > ?`,
		Args: []any{budgetID, since},
	}
}

// InsertScheduledTransaction upserts a recurring rule including its projected
// occurrence list.
func InsertScheduledTransaction(budgetID string, st core.ScheduledTransaction) Query {
	return Query{
		SQL: `REPLACE INTO ScheduledTransactions (budgetId, entityId, accountId, payeeId,
		        subCategoryId, date, frequency, amount, memo, flag, upcomingInstances,
		        isTombstone, deviceKnowledge, deviceKnowledgeForCalculatedFields)
		      VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, st.EntityID, st.AccountID, st.PayeeID,
			st.SubCategoryID, st.Date.String(), string(st.Frequency), st.Amount.Cents,
			st.Memo, st.Flag, encodeDates(st.UpcomingInstances),
			boolToInt(st.IsTombstone), st.DeviceKnowledge, st.DeviceKnowledgeForCalculatedFields,
		},
	}
}

// LoadScheduledTransactions selects rules past either watermark.
func LoadScheduledTransactions(budgetID string, since, sinceCalc int64) Query {
	return Query{
		Name: ResultScheduledTransactions,
		SQL: `SELECT * FROM ScheduledTransactions
		      WHERE budgetId = ? AND (deviceKnowledge > ? OR deviceKnowledgeForCalculatedFields > ?)`,
		Args: []any{budgetID, since, sinceCalc},
	}
}

// AllScheduledTransactions selects every live rule.
func AllScheduledTransactions(budgetID string) Query {
	return Query{
		Name: ResultScheduledTransactions,
		SQL:  `SELECT * FROM ScheduledTransactions WHERE budgetId = ? AND isTombstone = 0`,
		Args: []any{budgetID},
	}
}

// ScheduledTransactionsByID selects an explicit set of rules.
func ScheduledTransactionsByID(budgetID string, ids []string) Query {
	args := []any{budgetID}
	for _, id := range ids {
		args = append(args, id)
	}
	return Query{
		Name: ResultScheduledTransactions,
		SQL: `SELECT * FROM ScheduledTransactions WHERE budgetId = ? AND entityId IN (` +
			placeholders(len(ids)) + `)`,
		Args: args,
	}
}

// InsertSetting upserts a budget-scoped key/value row.
func InsertSetting(budgetID string, s core.Setting) Query {
	return Query{
		SQL:  `REPLACE INTO Settings (budgetId, settingName, settingValue, deviceKnowledge) VALUES (?,?,?,?)`,
		Args: []any{budgetID, s.SettingName, s.SettingValue, s.DeviceKnowledge},
	}
}

// LoadSettings selects budget settings past the primary watermark.
func LoadSettings(budgetID string, since int64) Query {
	return Query{
		Name: ResultSettings,
		SQL:  `SELECT * FROM Settings WHERE budgetId = ? AND deviceKnowledge > ?`,
		Args: []any{budgetID, since},
	}
}

// InsertTransaction upserts a ledger entry.
func InsertTransaction(budgetID string, t core.Transaction) Query {
	return Query{
		SQL: `REPLACE INTO Transactions (budgetId, entityId, accountId, payeeId, subCategoryId,
		        date, amount, memo, checkNumber, flag, cleared, accepted,
		        scheduledTransactionId, transferAccountId, isTombstone,
		        cashAmount, creditAmount, deviceKnowledge, deviceKnowledgeForCalculatedFields)
		      VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		Args: []any{
			budgetID, t.EntityID, t.AccountID, t.PayeeID, t.SubCategoryID,
			t.Date.String(), t.Amount.Cents, t.Memo, t.CheckNumber, t.Flag, t.Cleared,
			boolToInt(t.Accepted), t.ScheduledTransactionID, t.TransferAccountID,
			boolToInt(t.IsTombstone), t.CashAmount.Cents, t.CreditAmount.Cents,
			t.DeviceKnowledge, t.DeviceKnowledgeForCalculatedFields,
		},
	}
}

// LoadTransactions selects ledger entries past either watermark.
func LoadTransactions(budgetID string, since, sinceCalc int64) Query {
	return Query{
		Name: ResultTransactions,
		SQL: `SELECT * FROM Transactions
		      WHERE budgetId = ? AND (deviceKnowledge > ? OR deviceKnowledgeForCalculatedFields > ?)`,
		Args: []any{budgetID, since, sinceCalc},
	}
}

func placeholders(n int) string {
	if n == 0 {
		return "''"
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func encodeDates(dates []core.Date) string {
	if len(dates) == 0 {
		return "[]"
	}
	b, err := json.Marshal(dates)
	if err != nil {
		return "[]"
	}
	return string(b)
}
