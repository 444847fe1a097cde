package calc

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"envelope/internal/core"
	"envelope/internal/knowledge"
	"envelope/internal/storage"
)

// UpcomingDates projects the next n occurrence dates of a recurring rule on
// or after today. The sequence is a pure function of the frequency, the
// anchor date and today: the same inputs always reproduce the same dates.
// Monthly and yearly occurrences keep the anchor's day of month, clamped to
// the end of shorter months.
func UpcomingDates(freq core.Frequency, anchor, today core.Date, n int) []core.Date {
	if n <= 0 {
		return nil
	}
	dates := make([]core.Date, 0, n)
	switch freq {
	case core.Daily:
		first := anchor
		if first.Before(today) {
			first = today
		}
		for i := 0; i < n; i++ {
			dates = append(dates, first.AddDays(i))
		}
	case core.Weekly:
		cur := anchor
		for cur.Before(today) {
			cur = cur.AddDays(7)
		}
		for i := 0; i < n; i++ {
			dates = append(dates, cur)
			cur = cur.AddDays(7)
		}
	case core.Monthly, core.Yearly:
		stride := 1
		if freq == core.Yearly {
			stride = 12
		}
		// Step from the original anchor every time so a day-31 anchor
		// lands on the 31st again whenever the month has one.
		k := 0
		if ahead := anchor.Month().MonthsApart(today.Month()); ahead > 0 {
			k = (ahead / stride) * stride
		}
		for anchor.AddMonthsClamped(k).Before(today) {
			k += stride
		}
		for i := 0; i < n; i++ {
			dates = append(dates, anchor.AddMonthsClamped(k+i*stride))
		}
	}
	return dates
}

// RunScheduled refreshes the projected occurrence list of every live
// recurring rule and materializes a transaction for each occurrence falling
// within the lead window ending LeadDays after today. Materialized
// occurrences advance the rule's anchor past them, so re-running with the
// same inputs creates nothing new.
func (r *Runner) RunScheduled(ctx context.Context, budgetID string, bk *knowledge.Budget, today core.Date) error {
	return r.projectRules(ctx, budgetID, bk, storage.AllScheduledTransactions(budgetID), today, today.AddDays(r.LeadDays))
}

// GenerateNow materializes the projected occurrences of the selected rules
// immediately, ignoring the lead window: up to ProjectionCount occurrences
// per rule within the next year. Used when the user asks to enter upcoming
// transactions ahead of schedule.
func (r *Runner) GenerateNow(ctx context.Context, budgetID string, bk *knowledge.Budget, ruleIDs []string, today core.Date) error {
	if len(ruleIDs) == 0 {
		return nil
	}
	return r.projectRules(ctx, budgetID, bk, storage.ScheduledTransactionsByID(budgetID, ruleIDs), today, today.AddDays(365))
}

func (r *Runner) projectRules(ctx context.Context, budgetID string, bk *knowledge.Budget, load storage.Query, today, horizon core.Date) error {
	results, err := r.store.ExecuteBatch(ctx, []storage.Query{load})
	if err != nil {
		return fmt.Errorf("load scheduled transactions: %w", err)
	}
	rows := results[storage.ResultScheduledTransactions]
	if len(rows) == 0 {
		return nil
	}

	calcStamp := bk.NextValueForCalculations()
	var primaryStamp int64
	var writes []storage.Query
	created := 0

	for _, row := range rows {
		rule := storage.ScheduledTransactionFromRow(row)
		if rule.IsTombstone || !rule.Frequency.Valid() {
			continue
		}

		anchor := rule.Date
		var due []core.Date
		for _, d := range UpcomingDates(rule.Frequency, anchor, today, r.ProjectionCount) {
			if d.After(horizon) {
				break
			}
			due = append(due, d)
		}

		next := rule
		if len(due) > 0 {
			if primaryStamp == 0 {
				primaryStamp = bk.NextValue()
			}
			for _, d := range due {
				writes = append(writes, storage.InsertTransaction(budgetID, core.Transaction{
					EntityID:               core.NewEntityID(),
					AccountID:              rule.AccountID,
					PayeeID:                rule.PayeeID,
					SubCategoryID:          rule.SubCategoryID,
					Date:                   d,
					Amount:                 rule.Amount,
					Memo:                   rule.Memo,
					Flag:                   rule.Flag,
					Cleared:                core.Uncleared,
					Accepted:               false,
					ScheduledTransactionID: rule.EntityID,
					DeviceKnowledge:        primaryStamp,
				}))
				created++
			}
			// Advance the anchor past everything materialized so the
			// next pass starts after it.
			next.Date = due[len(due)-1].AddDays(1)
			switch rule.Frequency {
			case core.Weekly:
				next.Date = due[len(due)-1].AddDays(7)
			case core.Monthly:
				next.Date = due[len(due)-1].AddMonthsClamped(1)
			case core.Yearly:
				next.Date = due[len(due)-1].AddMonthsClamped(12)
			}
			next.DeviceKnowledge = primaryStamp
		}

		next.UpcomingInstances = UpcomingDates(rule.Frequency, next.Date, today, r.ProjectionCount)
		if next.Date == rule.Date && slices.Equal(next.UpcomingInstances, rule.UpcomingInstances) {
			continue
		}
		next.DeviceKnowledgeForCalculatedFields = calcStamp
		writes = append(writes, storage.InsertScheduledTransaction(budgetID, next))
	}

	if len(writes) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Projected scheduled transactions",
		"budget_id", budgetID,
		"rules", len(rows),
		"transactions_created", created)

	if _, err := r.store.ExecuteBatch(ctx, writes); err != nil {
		return fmt.Errorf("write scheduled transaction projections: %w", err)
	}
	return nil
}
