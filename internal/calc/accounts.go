package calc

import (
	"context"
	"fmt"
	"log/slog"

	"envelope/internal/core"
	"envelope/internal/knowledge"
	"envelope/internal/storage"
)

// RunAccounts recomputes the derived transaction splits, the per-account
// monthly rollups, and the account totals for the given accounts over the
// month range, as one all-or-nothing batch. Rows whose recomputed values
// equal the stored ones are left untouched, so rerunning with unchanged
// inputs writes nothing and bumps no stamps on them.
func (r *Runner) RunAccounts(ctx context.Context, budgetID string, bk *knowledge.Budget,
	accountIDs []string, startMonth, endMonth core.Month) error {

	if len(accountIDs) == 0 {
		return nil
	}
	if endMonth.Before(startMonth) {
		startMonth, endMonth = endMonth, startMonth
	}

	slog.InfoContext(ctx, "Running account calculations",
		"budget_id", budgetID,
		"accounts", len(accountIDs),
		"start_month", startMonth.String(),
		"end_month", endMonth.String())

	stamp := bk.NextValueForCalculations()
	queries := []storage.Query{
		r.splitTransactionAmounts(budgetID, accountIDs, stamp),
		r.monthlyAccountRollups(budgetID, accountIDs, startMonth, endMonth, stamp),
		r.accountTotals(budgetID, accountIDs, stamp),
	}
	if _, err := r.store.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("account calculations: %w", err)
	}
	return nil
}

// splitTransactionAmounts refreshes the derived cash/credit amount split on
// transactions of the affected accounts. Only rows whose split actually
// changed are touched.
func (r *Runner) splitTransactionAmounts(budgetID string, accountIDs []string, stamp int64) storage.Query {
	args := []any{stamp, budgetID}
	for _, id := range accountIDs {
		args = append(args, id)
	}
	return storage.Query{
		SQL: fmt.Sprintf(`
UPDATE Transactions SET
  cashAmount = CASE WHEN (SELECT a.accountType FROM Accounts a WHERE a.entityId = Transactions.accountId)
                    IN (%[1]s) THEN 0 ELSE amount END,
  creditAmount = CASE WHEN (SELECT a.accountType FROM Accounts a WHERE a.entityId = Transactions.accountId)
                    IN (%[1]s) THEN amount ELSE 0 END,
  deviceKnowledgeForCalculatedFields = ?
WHERE budgetId = ? AND accountId IN (%[2]s)
  AND (cashAmount <> CASE WHEN (SELECT a.accountType FROM Accounts a WHERE a.entityId = Transactions.accountId)
                          IN (%[1]s) THEN 0 ELSE amount END
    OR creditAmount <> CASE WHEN (SELECT a.accountType FROM Accounts a WHERE a.entityId = Transactions.accountId)
                          IN (%[1]s) THEN amount ELSE 0 END)`,
			creditAccountTypes, idPlaceholders(len(accountIDs))),
		Args: args,
	}
}

// monthlyAccountRollups upserts AccountMonthlyCalculations rows keyed by the
// deterministic id mac/<YYYY-MM>/<accountId> for every month in the range.
func (r *Runner) monthlyAccountRollups(budgetID string, accountIDs []string,
	startMonth, endMonth core.Month, stamp int64) storage.Query {

	monthValues := ""
	var args []any
	for i := 0; i <= startMonth.MonthsApart(endMonth); i++ {
		if i > 0 {
			monthValues += ","
		}
		monthValues += "(?)"
		args = append(args, startMonth.AddMonths(i).String())
	}

	args = append(args, budgetID)
	for _, id := range accountIDs {
		args = append(args, id)
	}
	args = append(args, budgetID, budgetID, stamp)

	return storage.Query{
		SQL: fmt.Sprintf(`
WITH months(month) AS (VALUES %s),
agg AS (
  SELECT m.month AS month, a.entityId AS accountId,
    COALESCE(SUM(CASE WHEN t.cleared IN ('Cleared','Reconciled') THEN t.amount ELSE 0 END), 0) AS clearedBalance,
    COALESCE(SUM(CASE WHEN t.cleared = 'Uncleared' THEN t.amount ELSE 0 END), 0) AS unclearedBalance,
    COALESCE(SUM(CASE WHEN t.accepted = 0 AND t.cleared <> 'Reconciled' THEN 1 ELSE 0 END), 0) AS infoCount,
    COALESCE(SUM(CASE WHEN a.onBudget = 1 AND t.subCategoryId = '' AND t.transferAccountId = '' AND t.amount <> 0 THEN 1 ELSE 0 END), 0) AS warningCount,
    COALESCE(SUM(CASE WHEN t.transferAccountId <> '' AND t.subCategoryId <> '' THEN 1 ELSE 0 END), 0) AS errorCount
  FROM months m
  CROSS JOIN (SELECT entityId, onBudget FROM Accounts WHERE budgetId = ? AND entityId IN (%s)) a
  LEFT JOIN Transactions t
    ON t.budgetId = ? AND t.accountId = a.entityId AND t.isTombstone = 0 AND substr(t.date, 1, 7) = m.month
  GROUP BY m.month, a.entityId
)
REPLACE INTO AccountMonthlyCalculations
  (budgetId, entityId, month, accountId, clearedBalance, unclearedBalance,
   infoCount, warningCount, errorCount, isTombstone, deviceKnowledge)
SELECT ?, 'mac/' || g.month || '/' || g.accountId, g.month, g.accountId,
  g.clearedBalance, g.unclearedBalance, g.infoCount, g.warningCount, g.errorCount, 0, ?
FROM agg g
LEFT JOIN AccountMonthlyCalculations x ON x.entityId = 'mac/' || g.month || '/' || g.accountId
WHERE x.entityId IS NULL
   OR x.clearedBalance <> g.clearedBalance
   OR x.unclearedBalance <> g.unclearedBalance
   OR x.infoCount <> g.infoCount
   OR x.warningCount <> g.warningCount
   OR x.errorCount <> g.errorCount`,
			monthValues, idPlaceholders(len(accountIDs))),
		Args: args,
	}
}

// accountTotals aggregates the monthly rollups into each account's current
// derived balances and counts, preserving every user-entered column and the
// primary knowledge stamp.
func (r *Runner) accountTotals(budgetID string, accountIDs []string, stamp int64) storage.Query {
	args := []any{budgetID}
	for _, id := range accountIDs {
		args = append(args, id)
	}
	args = append(args, stamp)

	return storage.Query{
		SQL: fmt.Sprintf(`
WITH agg AS (
  SELECT accountId,
    SUM(clearedBalance) AS clearedBalance,
    SUM(unclearedBalance) AS unclearedBalance,
    SUM(infoCount) AS infoCount,
    SUM(warningCount) AS warningCount,
    SUM(errorCount) AS errorCount
  FROM AccountMonthlyCalculations
  WHERE budgetId = ? AND accountId IN (%s)
  GROUP BY accountId
)
REPLACE INTO Accounts
  (budgetId, entityId, accountType, accountName, onBudget, closed, note,
   lastReconciledDate, lastReconciledBalance, sortableIndex, isTombstone,
   clearedBalance, unclearedBalance, infoCount, warningCount, errorCount,
   deviceKnowledge, deviceKnowledgeForCalculatedFields)
SELECT a.budgetId, a.entityId, a.accountType, a.accountName, a.onBudget, a.closed, a.note,
  a.lastReconciledDate, a.lastReconciledBalance, a.sortableIndex, a.isTombstone,
  g.clearedBalance, g.unclearedBalance, g.infoCount, g.warningCount, g.errorCount,
  a.deviceKnowledge, ?
FROM agg g
INNER JOIN Accounts a ON a.entityId = g.accountId
WHERE a.clearedBalance <> g.clearedBalance
   OR a.unclearedBalance <> g.unclearedBalance
   OR a.infoCount <> g.infoCount
   OR a.warningCount <> g.warningCount
   OR a.errorCount <> g.errorCount`,
			idPlaceholders(len(accountIDs))),
		Args: args,
	}
}

func idPlaceholders(n int) string {
	if n == 0 {
		return "''"
	}
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += "?"
	}
	return s
}
