package engine

import (
	"context"
	"fmt"
	"time"

	"envelope/internal/core"
	"envelope/internal/knowledge"
	applog "envelope/internal/log"
	"envelope/internal/storage"
)

// SyncWithStore runs one sync round: it writes the caller-submitted
// change-set under one fresh primary stamp, recalculates everything the
// writes may have affected, reloads the combined delta, exports the merged
// change-set as a diff file and returns the delta to the caller.
//
// A diff-transport failure is returned together with the delta: the local
// write and recalculation are already durable, and the next round with
// changes re-exports them.
func (e *Engine) SyncWithStore(ctx context.Context, budgetID string, submitted core.ChangeSet) (*core.ChangeSet, error) {
	budget, err := e.findBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	bk, err := e.budgetKnowledge(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	accountIDs, err := e.writeSubmitted(ctx, budgetID, bk, &submitted)
	if err != nil {
		return nil, err
	}

	first, last, materialized, err := e.monthRange(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if materialized {
		if err := e.recalculate(ctx, budgetID, bk, accountIDs, first, last); err != nil {
			return nil, err
		}
	}

	if _, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.SaveBudgetKnowledge(budgetID, bk),
	}); err != nil {
		return nil, fmt.Errorf("save budget knowledge: %w", err)
	}

	delta, err := e.loadBudgetDelta(ctx, budgetID, bk)
	if err != nil {
		return nil, err
	}

	calculated := subtractSubmitted(*delta, submitted)
	merged := core.MergeForExport(submitted, calculated)

	path, diffErr := e.diff.WriteDiffFile(ctx, budget, merged)
	if diffErr != nil {
		e.logger.ErrorContext(ctx, "Diff export failed, local state is committed",
			applog.FieldOperation, applog.OpExport,
			applog.FieldBudgetID, budgetID,
			applog.FieldError, diffErr.Error())
		return delta, fmt.Errorf("export diff: %w", diffErr)
	}
	if path != "" {
		if err := e.broker.PublishDiffNotification(ctx, budgetID, path, bk.CurrentDeviceKnowledge); err != nil {
			e.logger.WarnContext(ctx, "Diff notification publish failed",
				applog.FieldBudgetID, budgetID,
				applog.FieldError, err.Error())
		}
	}

	e.logger.InfoContext(ctx, "Sync round completed",
		applog.FieldOperation, applog.OpSync,
		applog.FieldBudgetID, budgetID,
		applog.FieldKnowledge, bk.CurrentDeviceKnowledge,
		applog.FieldDiffFile, path)

	return delta, nil
}

// PerformScheduledTransactionCalculations re-projects every recurring rule
// and returns the resulting delta.
func (e *Engine) PerformScheduledTransactionCalculations(ctx context.Context, budgetID string) (*core.ChangeSet, error) {
	bk, err := e.budgetKnowledge(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if err := e.calc.RunScheduled(ctx, budgetID, bk, core.DateOf(time.Now())); err != nil {
		return nil, err
	}
	if _, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.SaveBudgetKnowledge(budgetID, bk),
	}); err != nil {
		return nil, fmt.Errorf("save budget knowledge: %w", err)
	}
	return e.loadBudgetDelta(ctx, budgetID, bk)
}

// GenerateUpcomingTransactionsNow materializes the next occurrence of the
// selected rules immediately, bypassing the lead-time window, and returns
// the resulting delta.
func (e *Engine) GenerateUpcomingTransactionsNow(ctx context.Context, budgetID string, ruleIDs []string) (*core.ChangeSet, error) {
	bk, err := e.budgetKnowledge(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if err := e.calc.GenerateNow(ctx, budgetID, bk, ruleIDs, core.DateOf(time.Now())); err != nil {
		return nil, err
	}
	if _, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.SaveBudgetKnowledge(budgetID, bk),
	}); err != nil {
		return nil, fmt.Errorf("save budget knowledge: %w", err)
	}
	return e.loadBudgetDelta(ctx, budgetID, bk)
}

// writeSubmitted persists the caller's change-set. All budget-scope rows of
// the batch share one fresh primary stamp, written together with the updated
// knowledge counters in the same transaction. Catalog-scope rows (budgets,
// global settings) get a catalog stamp instead. Returns the ids of accounts
// whose activity may have changed.
func (e *Engine) writeSubmitted(ctx context.Context, budgetID string, bk *knowledge.Budget, submitted *core.ChangeSet) ([]string, error) {
	if submitted.IsEmpty() {
		return nil, nil
	}

	var queries []storage.Query
	accountSet := make(map[string]bool)

	budgetScope := len(submitted.Accounts)+len(submitted.MasterCategories)+len(submitted.SubCategories)+
		len(submitted.MonthlyBudgets)+len(submitted.MonthlySubCategoryBudgets)+
		len(submitted.Payees)+len(submitted.PayeeLocations)+len(submitted.PayeeRenameConditions)+
		len(submitted.ScheduledTransactions)+len(submitted.Settings)+len(submitted.Transactions) > 0

	var stamp int64
	if budgetScope {
		stamp = bk.NextValue()
	}

	for i := range submitted.Accounts {
		submitted.Accounts[i].DeviceKnowledge = stamp
		accountSet[submitted.Accounts[i].EntityID] = true
		queries = append(queries, storage.InsertAccount(budgetID, submitted.Accounts[i]))
	}
	for i := range submitted.MasterCategories {
		submitted.MasterCategories[i].DeviceKnowledge = stamp
		queries = append(queries, storage.InsertMasterCategory(budgetID, submitted.MasterCategories[i]))
	}
	for i := range submitted.SubCategories {
		submitted.SubCategories[i].DeviceKnowledge = stamp
		queries = append(queries, storage.InsertSubCategory(budgetID, submitted.SubCategories[i]))
	}
	for i := range submitted.MonthlyBudgets {
		submitted.MonthlyBudgets[i].DeviceKnowledge = stamp
		queries = append(queries, storage.InsertMonthlyBudget(budgetID, submitted.MonthlyBudgets[i]))
	}
	for i := range submitted.MonthlySubCategoryBudgets {
		submitted.MonthlySubCategoryBudgets[i].DeviceKnowledge = stamp
		queries = append(queries, storage.InsertMonthlySubCategoryBudget(budgetID, submitted.MonthlySubCategoryBudgets[i]))
	}
	for i := range submitted.Payees {
		submitted.Payees[i].DeviceKnowledge = stamp
		queries = append(queries, storage.InsertPayee(budgetID, submitted.Payees[i]))
	}
	for i := range submitted.PayeeLocations {
		submitted.PayeeLocations[i].DeviceKnowledge = stamp
		queries = append(queries, storage.InsertPayeeLocation(budgetID, submitted.PayeeLocations[i]))
	}
	for i := range submitted.PayeeRenameConditions {
		submitted.PayeeRenameConditions[i].DeviceKnowledge = stamp
		queries = append(queries, storage.InsertPayeeRenameCondition(budgetID, submitted.PayeeRenameConditions[i]))
	}
	for i := range submitted.ScheduledTransactions {
		submitted.ScheduledTransactions[i].DeviceKnowledge = stamp
		queries = append(queries, storage.InsertScheduledTransaction(budgetID, submitted.ScheduledTransactions[i]))
	}
	for i := range submitted.Settings {
		submitted.Settings[i].DeviceKnowledge = stamp
		queries = append(queries, storage.InsertSetting(budgetID, submitted.Settings[i]))
	}
	for i := range submitted.Transactions {
		submitted.Transactions[i].DeviceKnowledge = stamp
		accountSet[submitted.Transactions[i].AccountID] = true
		if id := submitted.Transactions[i].TransferAccountID; id != "" {
			accountSet[id] = true
		}
		queries = append(queries, storage.InsertTransaction(budgetID, submitted.Transactions[i]))
	}

	if budgetScope {
		queries = append(queries, storage.SaveBudgetKnowledge(budgetID, bk))
	}

	if len(submitted.Budgets)+len(submitted.GlobalSettings) > 0 {
		catalogStamp := e.catalog.NextValue()
		for i := range submitted.Budgets {
			submitted.Budgets[i].DeviceKnowledge = catalogStamp
			queries = append(queries, storage.InsertBudget(submitted.Budgets[i]))
		}
		for i := range submitted.GlobalSettings {
			submitted.GlobalSettings[i].DeviceKnowledge = catalogStamp
			queries = append(queries, storage.InsertGlobalSetting(submitted.GlobalSettings[i]))
		}
		queries = append(queries, storage.SaveCatalogKnowledge(e.catalog))
	}

	if _, err := e.store.ExecuteBatch(ctx, queries); err != nil {
		return nil, fmt.Errorf("write submitted change-set: %w", err)
	}

	accountIDs := make([]string, 0, len(accountSet))
	for id := range accountSet {
		if id != "" {
			accountIDs = append(accountIDs, id)
		}
	}
	return accountIDs, nil
}

// recalculate runs the account and monthly budget calculators. A nil
// accountIDs recalculates every account.
func (e *Engine) recalculate(ctx context.Context, budgetID string, bk *knowledge.Budget, accountIDs []string, first, last core.Month) error {
	if accountIDs == nil {
		results, err := e.store.ExecuteBatch(ctx, []storage.Query{storage.AllAccounts(budgetID)})
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		for _, row := range results[storage.ResultAccounts] {
			accountIDs = append(accountIDs, row.Str("entityId"))
		}
	}

	if err := e.calc.RunAccounts(ctx, budgetID, bk, accountIDs, first, last); err != nil {
		return err
	}
	return e.calc.RunMonthlyBudgets(ctx, budgetID, bk)
}

// monthRange returns the materialized month range of a budget.
func (e *Engine) monthRange(ctx context.Context, budgetID string) (first, last core.Month, ok bool, err error) {
	results, err := e.store.ExecuteBatch(ctx, []storage.Query{storage.AllMonthlyBudgets(budgetID)})
	if err != nil {
		return core.Month{}, core.Month{}, false, fmt.Errorf("load month range: %w", err)
	}
	rows := results[storage.ResultMonthlyBudgets]
	if len(rows) == 0 {
		return core.Month{}, core.Month{}, false, nil
	}
	first = storage.MonthlyBudgetFromRow(rows[0]).Month
	last = storage.MonthlyBudgetFromRow(rows[len(rows)-1]).Month
	return first, last, true, nil
}

// subtractSubmitted removes the caller's own rows from a loaded delta,
// leaving only what the calculators produced.
func subtractSubmitted(delta, submitted core.ChangeSet) core.ChangeSet {
	return core.ChangeSet{
		GlobalSettings: exceptKeys(delta.GlobalSettings, submitted.GlobalSettings,
			func(s core.GlobalSetting) string { return s.SettingName }),
		Accounts: exceptKeys(delta.Accounts, submitted.Accounts,
			func(a core.Account) string { return a.EntityID }),
		AccountMonthlyCalculations: delta.AccountMonthlyCalculations,
		MasterCategories: exceptKeys(delta.MasterCategories, submitted.MasterCategories,
			func(m core.MasterCategory) string { return m.EntityID }),
		SubCategories: exceptKeys(delta.SubCategories, submitted.SubCategories,
			func(s core.SubCategory) string { return s.EntityID }),
		MonthlyBudgets: exceptKeys(delta.MonthlyBudgets, submitted.MonthlyBudgets,
			func(m core.MonthlyBudget) string { return m.EntityID }),
		MonthlySubCategoryBudgets: exceptKeys(delta.MonthlySubCategoryBudgets, submitted.MonthlySubCategoryBudgets,
			func(m core.MonthlySubCategoryBudget) string { return m.EntityID }),
		Payees: exceptKeys(delta.Payees, submitted.Payees,
			func(p core.Payee) string { return p.EntityID }),
		PayeeLocations: exceptKeys(delta.PayeeLocations, submitted.PayeeLocations,
			func(p core.PayeeLocation) string { return p.EntityID }),
		PayeeRenameConditions: exceptKeys(delta.PayeeRenameConditions, submitted.PayeeRenameConditions,
			func(p core.PayeeRenameCondition) string { return p.EntityID }),
		ScheduledTransactions: exceptKeys(delta.ScheduledTransactions, submitted.ScheduledTransactions,
			func(s core.ScheduledTransaction) string { return s.EntityID }),
		Settings: exceptKeys(delta.Settings, submitted.Settings,
			func(s core.Setting) string { return s.SettingName }),
		Transactions: exceptKeys(delta.Transactions, submitted.Transactions,
			func(t core.Transaction) string { return t.EntityID }),
	}
}

func exceptKeys[T any](rows, submitted []T, key func(T) string) []T {
	if len(rows) == 0 {
		return nil
	}
	skip := make(map[string]bool, len(submitted))
	for _, s := range submitted {
		skip[key(s)] = true
	}
	var out []T
	for _, r := range rows {
		if !skip[key(r)] {
			out = append(out, r)
		}
	}
	return out
}
