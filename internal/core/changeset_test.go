package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChangeSet_IsEmpty(t *testing.T) {
	if !(ChangeSet{}).IsEmpty() {
		t.Error("zero ChangeSet should be empty")
	}

	c := ChangeSet{Payees: []Payee{{EntityID: "p1"}}}
	if c.IsEmpty() {
		t.Error("ChangeSet with a payee should not be empty")
	}
}

func TestMergeForExport(t *testing.T) {
	submitted := ChangeSet{
		Accounts:                  []Account{{EntityID: "a-sub"}},
		MonthlyBudgets:            []MonthlyBudget{{EntityID: "mb-sub"}},
		MonthlySubCategoryBudgets: []MonthlySubCategoryBudget{{EntityID: "mcb-sub"}},
		Transactions:              []Transaction{{EntityID: "t-sub"}},
		Payees:                    []Payee{{EntityID: "p-sub"}},
	}
	calculated := ChangeSet{
		Accounts:                   []Account{{EntityID: "a-calc"}},
		AccountMonthlyCalculations: []AccountMonthlyCalculation{{EntityID: "amc-calc"}},
		MonthlyBudgets:             []MonthlyBudget{{EntityID: "mb-calc"}},
		MonthlySubCategoryBudgets:  []MonthlySubCategoryBudget{{EntityID: "mcb-calc"}},
		Transactions:               []Transaction{{EntityID: "t-calc"}},
		ScheduledTransactions:      []ScheduledTransaction{{EntityID: "st-calc"}},
	}

	merged := MergeForExport(submitted, calculated)

	if len(merged.Accounts) != 1 || merged.Accounts[0].EntityID != "a-sub" {
		t.Errorf("Accounts should keep only the submitted side, got %v", merged.Accounts)
	}
	if len(merged.MonthlyBudgets) != 1 || merged.MonthlyBudgets[0].EntityID != "mb-sub" {
		t.Errorf("MonthlyBudgets should keep only the submitted side, got %v", merged.MonthlyBudgets)
	}
	if len(merged.MonthlySubCategoryBudgets) != 1 || merged.MonthlySubCategoryBudgets[0].EntityID != "mcb-sub" {
		t.Errorf("MonthlySubCategoryBudgets should keep only the submitted side, got %v", merged.MonthlySubCategoryBudgets)
	}
	if len(merged.Transactions) != 2 {
		t.Errorf("Transactions should concatenate both sides, got %v", merged.Transactions)
	}
	if len(merged.ScheduledTransactions) != 1 || merged.ScheduledTransactions[0].EntityID != "st-calc" {
		t.Errorf("calculated ScheduledTransactions should survive the merge, got %v", merged.ScheduledTransactions)
	}
	if len(merged.AccountMonthlyCalculations) != 0 {
		t.Error("account monthly calculations must never be merged for export")
	}
}

func TestChangeSet_ForExport_StripsDerivedFields(t *testing.T) {
	c := ChangeSet{
		Accounts: []Account{{
			EntityID:        "acc-1",
			AccountName:     "Checking",
			OnBudget:        true,
			ClearedBalance:  Money{Cents: 12345},
			InfoCount:       2,
			DeviceKnowledge: 7,
		}},
		MonthlyBudgets: []MonthlyBudget{{
			EntityID:          MonthlyBudgetID(MustParseMonth("2026-04"), "b-1"),
			Month:             MustParseMonth("2026-04"),
			Balance:           Money{Cents: 500},
			AvailableToBudget: Money{Cents: 900},
			DeviceKnowledge:   3,
		}},
		MonthlySubCategoryBudgets: []MonthlySubCategoryBudget{{
			EntityID:        MonthlySubCategoryBudgetID(MustParseMonth("2026-04"), "sc-1"),
			Month:           MustParseMonth("2026-04"),
			SubCategoryID:   "sc-1",
			Budgeted:        Money{Cents: 10000},
			Balance:         Money{Cents: 7000},
			SpentAverage:    Money{Cents: 3000},
			DeviceKnowledge: 3,
		}},
		ScheduledTransactions: []ScheduledTransaction{{
			EntityID:          "st-1",
			Date:              MustParseDate("2026-04-15"),
			Frequency:         Monthly,
			Amount:            Money{Cents: -4500},
			UpcomingInstances: []Date{MustParseDate("2026-04-15"), MustParseDate("2026-05-15")},
			DeviceKnowledge:   2,
		}},
		Transactions: []Transaction{{
			EntityID:        "t-1",
			AccountID:       "acc-1",
			Date:            MustParseDate("2026-04-02"),
			Amount:          Money{Cents: -4500},
			Cleared:         Uncleared,
			CashAmount:      Money{Cents: -4500},
			DeviceKnowledge: 7,

			DeviceKnowledgeForCalculatedFields: 9,
		}},
	}

	p := c.ForExport()

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	payload := string(data)

	for _, derived := range []string{
		"clearedBalance",
		"unclearedBalance",
		"infoCount",
		"balance",
		"availableToBudget",
		"spentAverage",
		"cashAmount",
		"creditAmount",
		"upcomingInstances",
		"deviceKnowledgeForCalculatedFields",
	} {
		if strings.Contains(payload, derived) {
			t.Errorf("export payload should not carry derived field %q:\n%s", derived, payload)
		}
	}

	// Identity and user-entered fields survive.
	if p.Accounts[0].AccountName != "Checking" {
		t.Errorf("AccountName = %q", p.Accounts[0].AccountName)
	}
	if p.MonthlySubCategoryBudgets[0].Budgeted.Cents != 10000 {
		t.Errorf("Budgeted = %d", p.MonthlySubCategoryBudgets[0].Budgeted.Cents)
	}
	if p.Transactions[0].DeviceKnowledge != 7 {
		t.Errorf("DeviceKnowledge = %d", p.Transactions[0].DeviceKnowledge)
	}
	if p.ScheduledTransactions[0].Frequency != Monthly {
		t.Errorf("Frequency = %q", p.ScheduledTransactions[0].Frequency)
	}
}

func TestDiffPayload_IsEmpty(t *testing.T) {
	if !(DiffPayload{}).IsEmpty() {
		t.Error("zero DiffPayload should be empty")
	}
	p := DiffPayload{Transactions: []TransactionDiff{{EntityID: "t"}}}
	if p.IsEmpty() {
		t.Error("DiffPayload with a transaction should not be empty")
	}
}
