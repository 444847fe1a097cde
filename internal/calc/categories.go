package calc

import (
	"context"
	"fmt"
	"log/slog"

	"envelope/internal/core"
	"envelope/internal/knowledge"
	"envelope/internal/storage"
)

type categoryActivity struct {
	cashOutflows   core.Money
	creditOutflows core.Money
	inflows        core.Money
}

// RunMonthlyBudgets recomputes every derived field of the monthly subcategory
// budget rows and the monthly budget totals, across all materialized months
// in ascending order. Months must be processed in order because each month's
// balance depends on the previous month's freshly recomputed balance. Rows
// whose derived values did not change are not rewritten.
func (r *Runner) RunMonthlyBudgets(ctx context.Context, budgetID string, bk *knowledge.Budget) error {
	results, err := r.store.ExecuteBatch(ctx, []storage.Query{
		storage.AllMonthlyBudgets(budgetID),
		storage.AllMonthlySubCategoryBudgets(budgetID),
		storage.AllSubCategories(budgetID),
		categoryActivityQuery(budgetID),
	})
	if err != nil {
		return fmt.Errorf("load monthly budget inputs: %w", err)
	}

	months := make([]core.Month, 0)
	monthRows := make(map[core.Month]core.MonthlyBudget)
	for _, row := range results[storage.ResultMonthlyBudgets] {
		mb := storage.MonthlyBudgetFromRow(row)
		months = append(months, mb.Month) // already in ascending month order
		monthRows[mb.Month] = mb
	}
	if len(months) == 0 {
		return nil
	}

	subCategories := make([]core.SubCategory, 0)
	var incomeSubCategoryID string
	for _, row := range results[storage.ResultSubCategories] {
		sc := storage.SubCategoryFromRow(row)
		if sc.IsTombstone {
			continue
		}
		if sc.InternalName == core.InternalCategoryIncome {
			incomeSubCategoryID = sc.EntityID
			continue
		}
		subCategories = append(subCategories, sc)
	}

	existing := make(map[string]core.MonthlySubCategoryBudget)
	for _, row := range results[storage.ResultMonthlySubCategoryBudgets] {
		mcb := storage.MonthlySubCategoryBudgetFromRow(row)
		existing[mcb.EntityID] = mcb
	}

	activity := make(map[core.Month]map[string]categoryActivity)
	for _, row := range results["activity"] {
		month, err := core.ParseMonth(row.Str("month"))
		if err != nil {
			continue
		}
		if activity[month] == nil {
			activity[month] = make(map[string]categoryActivity)
		}
		activity[month][row.Str("subCategoryId")] = categoryActivity{
			cashOutflows:   core.Money{Cents: row.Int("cashOutflows")},
			creditOutflows: core.Money{Cents: row.Int("creditOutflows")},
			inflows:        core.Money{Cents: row.Int("inflows")},
		}
	}

	stamp := bk.NextValueForCalculations()
	var writes []storage.Query

	// Per-month totals accumulated while walking each category series.
	type monthTotals struct {
		budgeted, cash, credit, balance, overSpent core.Money
	}
	totals := make(map[core.Month]*monthTotals)
	for _, m := range months {
		totals[m] = &monthTotals{}
	}

	for _, sc := range subCategories {
		var carry core.Money
		var cumBudgeted, cumSpent core.Money
		var prevBudgeted, prevSpent core.Money
		for i, month := range months {
			id := core.MonthlySubCategoryBudgetID(month, sc.EntityID)
			row, ok := existing[id]
			if !ok {
				row = core.MonthlySubCategoryBudget{
					EntityID:      id,
					Month:         month,
					SubCategoryID: sc.EntityID,
				}
			}

			act := activity[month][sc.EntityID]
			next := row
			next.CashOutflows = act.cashOutflows
			next.CreditOutflows = act.creditOutflows
			carry = carry.Add(row.Budgeted).Sub(act.cashOutflows).Sub(act.creditOutflows)
			next.Balance = carry

			spent := act.cashOutflows.Add(act.creditOutflows)
			cumBudgeted = cumBudgeted.Add(row.Budgeted)
			cumSpent = cumSpent.Add(spent)
			next.BudgetedPreviousMonth = prevBudgeted
			next.SpentPreviousMonth = prevSpent
			next.BudgetedAverage = core.Money{Cents: cumBudgeted.Cents / int64(i+1)}
			next.SpentAverage = core.Money{Cents: cumSpent.Cents / int64(i+1)}

			next.GoalTarget = sc.GoalTargetAmount
			next.GoalOverallFunded = cumBudgeted
			if under := sc.GoalTargetAmount.Sub(cumBudgeted); under.Cents > 0 {
				next.GoalUnderFunded = under
			} else {
				next.GoalUnderFunded = core.Money{}
			}

			prevBudgeted = row.Budgeted
			prevSpent = spent

			t := totals[month]
			t.budgeted = t.budgeted.Add(row.Budgeted)
			t.cash = t.cash.Add(act.cashOutflows)
			t.credit = t.credit.Add(act.creditOutflows)
			t.balance = t.balance.Add(carry)
			if carry.Cents < 0 {
				t.overSpent = t.overSpent.Add(carry)
			}

			if !ok || derivedSubCategoryFieldsDiffer(row, next) {
				next.DeviceKnowledgeForCalculatedFields = stamp
				writes = append(writes, storage.InsertMonthlySubCategoryBudget(budgetID, next))
			}
		}
	}

	var cumIncome, available core.Money
	for _, month := range months {
		income := activity[month][incomeSubCategoryID].inflows
		t := totals[month]

		mb := monthRows[month]
		next := mb
		next.PreviousIncome = cumIncome
		next.ImmediateIncome = income
		next.Budgeted = t.budgeted
		next.CashOutflows = t.cash
		next.CreditOutflows = t.credit
		next.Balance = t.balance
		next.OverSpent = t.overSpent
		available = available.Add(income).Sub(t.budgeted)
		next.AvailableToBudget = available
		cumIncome = cumIncome.Add(income)

		if derivedMonthlyBudgetFieldsDiffer(mb, next) {
			next.DeviceKnowledgeForCalculatedFields = stamp
			writes = append(writes, storage.InsertMonthlyBudget(budgetID, next))
		}
	}

	if len(writes) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Writing monthly budget calculations",
		"budget_id", budgetID,
		"rows", len(writes),
		"months", len(months))

	if _, err := r.store.ExecuteBatch(ctx, writes); err != nil {
		return fmt.Errorf("write monthly budget calculations: %w", err)
	}
	return nil
}

func derivedSubCategoryFieldsDiffer(a, b core.MonthlySubCategoryBudget) bool {
	return a.CashOutflows != b.CashOutflows ||
		a.CreditOutflows != b.CreditOutflows ||
		a.Balance != b.Balance ||
		a.BudgetedPreviousMonth != b.BudgetedPreviousMonth ||
		a.SpentPreviousMonth != b.SpentPreviousMonth ||
		a.BudgetedAverage != b.BudgetedAverage ||
		a.SpentAverage != b.SpentAverage ||
		a.GoalTarget != b.GoalTarget ||
		a.GoalOverallFunded != b.GoalOverallFunded ||
		a.GoalUnderFunded != b.GoalUnderFunded
}

func derivedMonthlyBudgetFieldsDiffer(a, b core.MonthlyBudget) bool {
	return a.PreviousIncome != b.PreviousIncome ||
		a.ImmediateIncome != b.ImmediateIncome ||
		a.Budgeted != b.Budgeted ||
		a.CashOutflows != b.CashOutflows ||
		a.CreditOutflows != b.CreditOutflows ||
		a.Balance != b.Balance ||
		a.OverSpent != b.OverSpent ||
		a.AvailableToBudget != b.AvailableToBudget
}

// categoryActivityQuery aggregates on-budget, non-transfer transaction
// activity by month and subcategory, split into cash and credit outflows plus
// inflows. Outflows are reported as positive magnitudes.
func categoryActivityQuery(budgetID string) storage.Query {
	return storage.Query{
		Name: "activity",
		SQL: fmt.Sprintf(`
SELECT substr(t.date, 1, 7) AS month, t.subCategoryId AS subCategoryId,
  COALESCE(SUM(CASE WHEN a.accountType NOT IN (%[1]s) AND t.amount < 0 THEN -t.amount ELSE 0 END), 0) AS cashOutflows,
  COALESCE(SUM(CASE WHEN a.accountType IN (%[1]s) AND t.amount < 0 THEN -t.amount ELSE 0 END), 0) AS creditOutflows,
  COALESCE(SUM(CASE WHEN t.amount > 0 THEN t.amount ELSE 0 END), 0) AS inflows
FROM Transactions t
INNER JOIN Accounts a ON a.entityId = t.accountId
WHERE t.budgetId = ? AND t.isTombstone = 0 AND t.transferAccountId = '' AND a.onBudget = 1
GROUP BY month, subCategoryId`, creditAccountTypes),
		Args: []any{budgetID},
	}
}
