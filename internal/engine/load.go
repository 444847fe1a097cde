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

// LoadBudget opens a budget: it refreshes the recurring-transaction
// projections, bumps the budget's last-accessed time, and returns everything
// changed since the watermarks. On the first load of a session the
// watermarks are zero, so this is a full load.
func (e *Engine) LoadBudget(ctx context.Context, budgetID string) (*core.ChangeSet, error) {
	if _, err := e.findBudget(ctx, budgetID); err != nil {
		return nil, err
	}
	bk, err := e.budgetKnowledge(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	if err := e.calc.RunScheduled(ctx, budgetID, bk, core.DateOf(time.Now())); err != nil {
		return nil, err
	}

	if _, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.TouchBudgetLastAccessed(budgetID),
		storage.SaveBudgetKnowledge(budgetID, bk),
	}); err != nil {
		return nil, fmt.Errorf("touch budget: %w", err)
	}

	delta, err := e.loadBudgetDelta(ctx, budgetID, bk)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Budget loaded",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldBudgetID, budgetID,
		applog.FieldKnowledge, bk.CurrentDeviceKnowledge)

	return delta, nil
}

// LoadCatalog returns the budgets and global settings changed since the
// catalog watermark.
func (e *Engine) LoadCatalog(ctx context.Context) (*core.ChangeSet, error) {
	since := e.catalog.LastDeviceKnowledgeLoaded
	results, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.LoadBudgets(since),
		storage.LoadGlobalSettings(since),
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog delta: %w", err)
	}

	cs := &core.ChangeSet{}
	for _, row := range results[storage.ResultBudgets] {
		cs.Budgets = append(cs.Budgets, storage.BudgetFromRow(row))
	}
	for _, row := range results[storage.ResultGlobalSettings] {
		cs.GlobalSettings = append(cs.GlobalSettings, storage.GlobalSettingFromRow(row))
	}
	e.catalog.MarkLoaded()
	return cs, nil
}

// loadBudgetDelta returns every budget-scope entity whose relevant stamp
// exceeds the watermarks, then advances the watermarks. Tombstoned rows are
// included: deletions propagate like any other change.
func (e *Engine) loadBudgetDelta(ctx context.Context, budgetID string, bk *knowledge.Budget) (*core.ChangeSet, error) {
	since := bk.LastDeviceKnowledgeLoaded
	sinceCalc := bk.LastDeviceKnowledgeForCalculationsLoaded

	results, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.LoadAccounts(budgetID, since, sinceCalc),
		storage.LoadAccountMonthlyCalculations(budgetID, sinceCalc),
		storage.LoadMasterCategories(budgetID, since),
		storage.LoadSubCategories(budgetID, since),
		storage.LoadMonthlyBudgets(budgetID, since, sinceCalc),
		storage.LoadMonthlySubCategoryBudgets(budgetID, since, sinceCalc),
		storage.LoadPayees(budgetID, since),
		storage.LoadPayeeLocations(budgetID, since),
		storage.LoadPayeeRenameConditions(budgetID, since),
		storage.LoadScheduledTransactions(budgetID, since, sinceCalc),
		storage.LoadSettings(budgetID, since),
		storage.LoadTransactions(budgetID, since, sinceCalc),
	})
	if err != nil {
		return nil, fmt.Errorf("load budget delta: %w", err)
	}

	cs := &core.ChangeSet{}
	for _, row := range results[storage.ResultAccounts] {
		cs.Accounts = append(cs.Accounts, storage.AccountFromRow(row))
	}
	for _, row := range results[storage.ResultAccountMonthlyCalculations] {
		cs.AccountMonthlyCalculations = append(cs.AccountMonthlyCalculations, storage.AccountMonthlyCalculationFromRow(row))
	}
	for _, row := range results[storage.ResultMasterCategories] {
		cs.MasterCategories = append(cs.MasterCategories, storage.MasterCategoryFromRow(row))
	}
	for _, row := range results[storage.ResultSubCategories] {
		cs.SubCategories = append(cs.SubCategories, storage.SubCategoryFromRow(row))
	}
	for _, row := range results[storage.ResultMonthlyBudgets] {
		cs.MonthlyBudgets = append(cs.MonthlyBudgets, storage.MonthlyBudgetFromRow(row))
	}
	for _, row := range results[storage.ResultMonthlySubCategoryBudgets] {
		cs.MonthlySubCategoryBudgets = append(cs.MonthlySubCategoryBudgets, storage.MonthlySubCategoryBudgetFromRow(row))
	}
	for _, row := range results[storage.ResultPayees] {
		cs.Payees = append(cs.Payees, storage.PayeeFromRow(row))
	}
	for _, row := range results[storage.ResultPayeeLocations] {
		cs.PayeeLocations = append(cs.PayeeLocations, storage.PayeeLocationFromRow(row))
	}
	for _, row := range results[storage.ResultPayeeRenameConditions] {
		cs.PayeeRenameConditions = append(cs.PayeeRenameConditions, storage.PayeeRenameConditionFromRow(row))
	}
	for _, row := range results[storage.ResultScheduledTransactions] {
		cs.ScheduledTransactions = append(cs.ScheduledTransactions, storage.ScheduledTransactionFromRow(row))
	}
	for _, row := range results[storage.ResultSettings] {
		cs.Settings = append(cs.Settings, storage.SettingFromRow(row))
	}
	for _, row := range results[storage.ResultTransactions] {
		cs.Transactions = append(cs.Transactions, storage.TransactionFromRow(row))
	}

	bk.MarkLoaded()
	return cs, nil
}
