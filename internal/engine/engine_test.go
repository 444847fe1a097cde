package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envelope/internal/config"
	"envelope/internal/core"
	applog "envelope/internal/log"
)

func newTestEngine(t *testing.T) (*Engine, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Environment:     config.EnvDevelopment,
		SQLiteDBPath:    filepath.Join(dir, "envelope.db"),
		DataDir:         dir,
		ProjectionCount: 5,
		LeadDays:        7,
	}
	e := New(cfg, applog.New(applog.DefaultConfig()), nil)
	require.NoError(t, e.Initialize(context.Background()))
	t.Cleanup(func() { e.Close() })
	return e, cfg
}

func TestEngine_Initialize_ResolvesDeviceID(t *testing.T) {
	e, cfg := newTestEngine(t)
	require.NotEmpty(t, e.DeviceID())

	// A second engine over the same store resolves the same identity.
	e2 := New(cfg, applog.New(applog.DefaultConfig()), nil)
	require.NoError(t, e.Close())
	require.NoError(t, e2.Initialize(context.Background()))
	defer e2.Close()
	assert.Equal(t, e.DeviceID(), e2.DeviceID())
}

func TestCreateNewBudget(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	budget, err := e.CreateNewBudget(ctx, "Household")
	require.NoError(t, err)
	require.NotEmpty(t, budget.EntityID)
	assert.Equal(t, "Household", budget.BudgetName)
	assert.Equal(t, core.MonthOf(time.Now()), budget.FirstMonth)

	delta, err := e.LoadBudget(ctx, budget.EntityID)
	require.NoError(t, err)

	require.Len(t, delta.MasterCategories, 1)
	assert.Equal(t, core.InternalMasterCategory, delta.MasterCategories[0].InternalName)
	assert.True(t, delta.MasterCategories[0].IsHidden)

	internals := make(map[string]core.SubCategory)
	for _, sc := range delta.SubCategories {
		internals[sc.InternalName] = sc
	}
	require.Contains(t, internals, core.InternalCategoryToBeBudgeted)
	require.Contains(t, internals, core.InternalCategoryIncome)
	assert.Equal(t, "To be Budgeted", internals[core.InternalCategoryToBeBudgeted].Name)
	assert.True(t, internals[core.InternalCategoryIncome].IsHidden)

	month := core.MonthOf(time.Now())
	require.Len(t, delta.MonthlyBudgets, 1)
	assert.Equal(t, core.MonthlyBudgetID(month, budget.EntityID), delta.MonthlyBudgets[0].EntityID)
	require.NotEmpty(t, delta.MonthlySubCategoryBudgets)
}

func TestCreateNewBudget_EmptyName(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.CreateNewBudget(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestSelectBudgetToOpen(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	created, err := e.SelectBudgetToOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, "My Budget", created.BudgetName)

	again, err := e.SelectBudgetToOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.EntityID, again.EntityID)
}

func TestLoadBudget_UnknownID(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.LoadBudget(context.Background(), "no-such-budget")
	assert.ErrorIs(t, err, core.ErrNoActiveBudget)
}

func TestSyncWithStore_RecalculatesAndExports(t *testing.T) {
	e, cfg := newTestEngine(t)
	ctx := context.Background()

	budget, err := e.CreateNewBudget(ctx, "Household")
	require.NoError(t, err)
	_, err = e.LoadBudget(ctx, budget.EntityID)
	require.NoError(t, err)

	month := core.MonthOf(time.Now())
	account := core.Account{
		EntityID:    core.NewEntityID(),
		AccountType: core.AccountTypeChecking,
		AccountName: "Checking",
		OnBudget:    true,
	}
	master := core.MasterCategory{EntityID: core.NewEntityID(), Name: "Everyday"}
	groceries := core.SubCategory{
		EntityID:         core.NewEntityID(),
		MasterCategoryID: master.EntityID,
		Name:             "Groceries",
	}
	tx := core.Transaction{
		EntityID:      core.NewEntityID(),
		AccountID:     account.EntityID,
		SubCategoryID: groceries.EntityID,
		Date:          month.FirstDay().AddDays(1),
		Amount:        core.Money{Cents: -2500},
		Cleared:       core.Uncleared,
	}

	delta, err := e.SyncWithStore(ctx, budget.EntityID, core.ChangeSet{
		Accounts:         []core.Account{account},
		MasterCategories: []core.MasterCategory{master},
		SubCategories:    []core.SubCategory{groceries},
		Transactions:     []core.Transaction{tx},
	})
	require.NoError(t, err)
	require.NotNil(t, delta)

	// The submitted rows come back in the delta with fresh stamps.
	require.Len(t, delta.Transactions, 1)
	assert.Equal(t, tx.EntityID, delta.Transactions[0].EntityID)
	assert.Greater(t, delta.Transactions[0].DeviceKnowledge, int64(0))
	assert.Equal(t, core.Money{Cents: -2500}, delta.Transactions[0].CashAmount)

	// The account calculator produced the monthly rollup for the account.
	var amc *core.AccountMonthlyCalculation
	for i := range delta.AccountMonthlyCalculations {
		if delta.AccountMonthlyCalculations[i].AccountID == account.EntityID {
			amc = &delta.AccountMonthlyCalculations[i]
		}
	}
	require.NotNil(t, amc, "delta should carry the account's monthly rollup")
	assert.Equal(t, core.AccountMonthlyCalculationID(month, account.EntityID), amc.EntityID)
	assert.Equal(t, core.Money{Cents: -2500}, amc.UnclearedBalance)

	// The budget calculator produced the category's month row.
	var mcb *core.MonthlySubCategoryBudget
	for i := range delta.MonthlySubCategoryBudgets {
		if delta.MonthlySubCategoryBudgets[i].SubCategoryID == groceries.EntityID {
			mcb = &delta.MonthlySubCategoryBudgets[i]
		}
	}
	require.NotNil(t, mcb, "delta should carry the category month row")
	assert.Equal(t, core.Money{Cents: 2500}, mcb.CashOutflows)
	assert.Equal(t, core.Money{Cents: -2500}, mcb.Balance)

	// One diff file was exported under the private root.
	diffDir := filepath.Join(cfg.DataDir, cfg.AppFolder(), "diffs", budget.EntityID)
	entries, err := os.ReadDir(diffDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSyncWithStore_SecondRoundIsQuiet(t *testing.T) {
	e, cfg := newTestEngine(t)
	ctx := context.Background()

	budget, err := e.CreateNewBudget(ctx, "Household")
	require.NoError(t, err)
	_, err = e.LoadBudget(ctx, budget.EntityID)
	require.NoError(t, err)

	account := core.Account{
		EntityID:    core.NewEntityID(),
		AccountType: core.AccountTypeChecking,
		AccountName: "Checking",
		OnBudget:    true,
	}
	_, err = e.SyncWithStore(ctx, budget.EntityID, core.ChangeSet{
		Accounts: []core.Account{account},
	})
	require.NoError(t, err)

	// Nothing new was submitted and nothing recalculates differently, so the
	// second round delivers an empty delta and writes no diff file.
	delta, err := e.SyncWithStore(ctx, budget.EntityID, core.ChangeSet{})
	require.NoError(t, err)
	assert.True(t, delta.IsEmpty(), "second round delta should be empty, got %+v", delta)

	diffDir := filepath.Join(cfg.DataDir, cfg.AppFolder(), "diffs", budget.EntityID)
	entries, err := os.ReadDir(diffDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "quiet round must not export a diff")
}

func TestSyncWithStore_TombstonePropagates(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	budget, err := e.CreateNewBudget(ctx, "Household")
	require.NoError(t, err)
	_, err = e.LoadBudget(ctx, budget.EntityID)
	require.NoError(t, err)

	payee := core.Payee{EntityID: core.NewEntityID(), Name: "Old Landlord", Enabled: true}
	_, err = e.SyncWithStore(ctx, budget.EntityID, core.ChangeSet{Payees: []core.Payee{payee}})
	require.NoError(t, err)

	payee.IsTombstone = true
	delta, err := e.SyncWithStore(ctx, budget.EntityID, core.ChangeSet{Payees: []core.Payee{payee}})
	require.NoError(t, err)

	require.Len(t, delta.Payees, 1)
	assert.True(t, delta.Payees[0].IsTombstone, "deletions propagate through the delta")
}

func TestEnsureMonthlyDataExists_FillsGaps(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	budget, err := e.CreateNewBudget(ctx, "Household")
	require.NoError(t, err)
	_, err = e.LoadBudget(ctx, budget.EntityID)
	require.NoError(t, err)

	target := core.MonthOf(time.Now()).AddMonths(2)
	delta, err := e.EnsureMonthlyDataExists(ctx, budget.EntityID, target)
	require.NoError(t, err)

	// The gap month and the target month were materialized.
	got := make(map[core.Month]bool)
	for _, mb := range delta.MonthlyBudgets {
		got[mb.Month] = true
	}
	assert.True(t, got[core.MonthOf(time.Now()).AddMonths(1)], "gap month missing")
	assert.True(t, got[target], "target month missing")

	// The budget's month range widened, stamped on the catalog track.
	updated, err := e.findBudget(ctx, budget.EntityID)
	require.NoError(t, err)
	assert.Equal(t, target, updated.LastMonth)
	assert.Greater(t, updated.DeviceKnowledge, budget.DeviceKnowledge)

	// Asking again for an already materialized month creates nothing new.
	delta, err = e.EnsureMonthlyDataExists(ctx, budget.EntityID, target)
	require.NoError(t, err)
	assert.Empty(t, delta.MonthlyBudgets)
}

func TestBudgetKnowledge_SeedsAboveEntityStamps(t *testing.T) {
	e, cfg := newTestEngine(t)
	ctx := context.Background()

	budget, err := e.CreateNewBudget(ctx, "Household")
	require.NoError(t, err)
	_, err = e.SyncWithStore(ctx, budget.EntityID, core.ChangeSet{
		Payees: []core.Payee{{EntityID: core.NewEntityID(), Name: "Grocer", Enabled: true}},
	})
	require.NoError(t, err)

	maxStamp := e.budgets[budget.EntityID].CurrentDeviceKnowledge
	require.NoError(t, e.Close())

	// A fresh engine over the same store must never reissue a used stamp,
	// even if the persisted counter row were stale.
	e2 := New(cfg, applog.New(applog.DefaultConfig()), nil)
	require.NoError(t, e2.Initialize(ctx))
	defer e2.Close()

	bk, err := e2.budgetKnowledge(ctx, budget.EntityID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bk.CurrentDeviceKnowledge, maxStamp)
	assert.Greater(t, bk.NextValue(), maxStamp)
}
