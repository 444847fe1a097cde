package engine

import (
	"context"
	"fmt"
	"time"

	"envelope/internal/core"
	applog "envelope/internal/log"
	"envelope/internal/storage"
)

// CreateNewBudget creates a catalog budget row plus the internal category
// structure every budget starts with: a hidden internal master category
// holding the "To be Budgeted" and income categories, and the monthly rows
// for the current month.
func (e *Engine) CreateNewBudget(ctx context.Context, name string) (core.Budget, error) {
	if name == "" {
		return core.Budget{}, core.ErrEmptyName
	}

	now := core.MonthOf(time.Now())
	budget := core.Budget{
		EntityID:       core.NewEntityID(),
		BudgetName:     name,
		DataFormat:     "2",
		LastAccessedOn: time.Now().UnixMilli(),
		FirstMonth:     now,
		LastMonth:      now,
	}

	budget.DeviceKnowledge = e.catalog.NextValue()
	if _, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.InsertBudget(budget),
		storage.SaveCatalogKnowledge(e.catalog),
	}); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	bk, err := e.budgetKnowledge(ctx, budget.EntityID)
	if err != nil {
		return core.Budget{}, err
	}

	stamp := bk.NextValue()
	master := core.MasterCategory{
		EntityID:        core.NewEntityID(),
		Name:            "Internal Master Category",
		InternalName:    core.InternalMasterCategory,
		IsHidden:        true,
		DeviceKnowledge: stamp,
	}
	toBeBudgeted := core.SubCategory{
		EntityID:         core.NewEntityID(),
		MasterCategoryID: master.EntityID,
		Name:             "To be Budgeted",
		InternalName:     core.InternalCategoryToBeBudgeted,
		DeviceKnowledge:  stamp,
	}
	income := core.SubCategory{
		EntityID:         core.NewEntityID(),
		MasterCategoryID: master.EntityID,
		Name:             "Income",
		InternalName:     core.InternalCategoryIncome,
		IsHidden:         true,
		SortableIndex:    1,
		DeviceKnowledge:  stamp,
	}

	queries := []storage.Query{
		storage.InsertMasterCategory(budget.EntityID, master),
		storage.InsertSubCategory(budget.EntityID, toBeBudgeted),
		storage.InsertSubCategory(budget.EntityID, income),
	}
	queries = append(queries, monthlyRowQueries(budget.EntityID, now, []core.SubCategory{toBeBudgeted}, stamp)...)
	queries = append(queries, storage.SaveBudgetKnowledge(budget.EntityID, bk))

	if _, err := e.store.ExecuteBatch(ctx, queries); err != nil {
		return core.Budget{}, fmt.Errorf("create budget categories: %w", err)
	}

	e.logger.InfoContext(ctx, "Created budget",
		applog.FieldBudgetID, budget.EntityID,
		applog.FieldMonth, now.String())

	return budget, nil
}

// EnsureMonthlyDataExists materializes MonthlyBudget and
// MonthlySubCategoryBudget rows for the given month, plus any gap months
// between it and the already materialized range so the balance carry-forward
// stays contiguous. It then recalculates and returns everything changed
// since the caller's watermarks.
func (e *Engine) EnsureMonthlyDataExists(ctx context.Context, budgetID string, month core.Month) (*core.ChangeSet, error) {
	budget, err := e.findBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	bk, err := e.budgetKnowledge(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	results, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.AllMonthlyBudgets(budgetID),
		storage.AllSubCategories(budgetID),
	})
	if err != nil {
		return nil, fmt.Errorf("load materialized months: %w", err)
	}

	have := make(map[core.Month]bool)
	first, last := month, month
	for _, row := range results[storage.ResultMonthlyBudgets] {
		mb := storage.MonthlyBudgetFromRow(row)
		have[mb.Month] = true
		if mb.Month.Before(first) {
			first = mb.Month
		}
		if mb.Month.After(last) {
			last = mb.Month
		}
	}

	var subCats []core.SubCategory
	for _, row := range results[storage.ResultSubCategories] {
		sc := storage.SubCategoryFromRow(row)
		if sc.IsTombstone || sc.InternalName == core.InternalCategoryIncome {
			continue
		}
		subCats = append(subCats, sc)
	}

	var missing []core.Month
	for m := first; !m.After(last); m = m.AddMonths(1) {
		if !have[m] {
			missing = append(missing, m)
		}
	}

	if len(missing) > 0 {
		stamp := bk.NextValue()
		var queries []storage.Query
		for _, m := range missing {
			queries = append(queries, monthlyRowQueries(budgetID, m, subCats, stamp)...)
		}
		queries = append(queries, storage.SaveBudgetKnowledge(budgetID, bk))

		if first.Before(budget.FirstMonth) || last.After(budget.LastMonth) {
			if first.Before(budget.FirstMonth) {
				budget.FirstMonth = first
			}
			if last.After(budget.LastMonth) {
				budget.LastMonth = last
			}
			budget.DeviceKnowledge = e.catalog.NextValue()
			queries = append(queries,
				storage.InsertBudget(budget),
				storage.SaveCatalogKnowledge(e.catalog))
		}

		if _, err := e.store.ExecuteBatch(ctx, queries); err != nil {
			return nil, fmt.Errorf("materialize months: %w", err)
		}

		e.logger.InfoContext(ctx, "Materialized monthly data",
			applog.FieldBudgetID, budgetID,
			applog.FieldMonth, month.String(),
			"months_created", len(missing))
	}

	if err := e.recalculate(ctx, budgetID, bk, nil, first, last); err != nil {
		return nil, err
	}

	return e.loadBudgetDelta(ctx, budgetID, bk)
}

// monthlyRowQueries builds the upserts materializing one month: the month's
// totals row and a zero-budgeted row per live subcategory, all with
// deterministic ids.
func monthlyRowQueries(budgetID string, month core.Month, subCats []core.SubCategory, stamp int64) []storage.Query {
	queries := []storage.Query{
		storage.InsertMonthlyBudget(budgetID, core.MonthlyBudget{
			EntityID:        core.MonthlyBudgetID(month, budgetID),
			Month:           month,
			DeviceKnowledge: stamp,
		}),
	}
	for _, sc := range subCats {
		queries = append(queries, storage.InsertMonthlySubCategoryBudget(budgetID, core.MonthlySubCategoryBudget{
			EntityID:        core.MonthlySubCategoryBudgetID(month, sc.EntityID),
			Month:           month,
			SubCategoryID:   sc.EntityID,
			DeviceKnowledge: stamp,
		}))
	}
	return queries
}
