// Package engine is the persistence orchestrator. It sequences every
// caller-visible operation: opening the store, loading budgets, writing
// submitted change-sets, triggering recalculation, and exporting diffs.
// Callers serialize requests per budget; the engine never runs two
// overlapping operations on the same budget.
package engine

import (
	"context"
	"fmt"
	"sync"

	"envelope/internal/amqp"
	"envelope/internal/calc"
	"envelope/internal/config"
	"envelope/internal/core"
	"envelope/internal/diff"
	"envelope/internal/knowledge"
	applog "envelope/internal/log"
	"envelope/internal/storage"
)

// Engine owns the store, the knowledge trackers and the diff transport.
type Engine struct {
	cfg    *config.Config
	logger *applog.Logger

	store  *storage.Store
	calc   *calc.Runner
	diff   *diff.Writer
	broker *amqp.Client // nil when AMQP is not configured

	catalog  *knowledge.Catalog
	deviceID string

	mu      sync.Mutex
	budgets map[string]*knowledge.Budget
}

// New assembles an Engine. Call Initialize before any other operation.
// broker may be nil; diff notifications are then skipped.
func New(cfg *config.Config, logger *applog.Logger, broker *amqp.Client) *Engine {
	return &Engine{
		cfg:     cfg,
		logger:  logger.WithComponent(applog.ComponentEngine),
		broker:  broker,
		catalog: &knowledge.Catalog{},
		budgets: make(map[string]*knowledge.Budget),
	}
}

// Initialize opens or creates the store, runs schema migrations, loads the
// catalog knowledge, resolves the device identifier and prepares the diff
// folder tree. Device identity failure degrades to an empty identifier; it
// only affects sync labeling, never local operation.
func (e *Engine) Initialize(ctx context.Context) error {
	store, err := storage.Open(e.cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	e.store = store
	e.calc = calc.NewRunner(store)
	e.calc.ProjectionCount = e.cfg.ProjectionCount
	e.calc.LeadDays = e.cfg.LeadDays
	e.diff = diff.NewWriter(e.cfg, e.logger)

	if err := e.loadCatalogKnowledge(ctx); err != nil {
		e.store.Close()
		return err
	}

	e.deviceID = e.resolveDeviceID(ctx)

	if err := e.diff.Initialize(); err != nil {
		e.store.Close()
		return fmt.Errorf("initialize diff transport: %w", err)
	}

	e.logger.InfoContext(ctx, "Engine initialized",
		applog.FieldOperation, applog.OpInitialize,
		applog.FieldDeviceID, e.deviceID,
		applog.FieldKnowledge, e.catalog.CurrentDeviceKnowledge)

	return nil
}

// Close releases the store. The engine must not be used afterwards.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// DeviceID returns the resolved device identifier, possibly empty.
func (e *Engine) DeviceID() string { return e.deviceID }

// Store exposes the underlying store for the query bridge.
func (e *Engine) Store() *storage.Store { return e.store }

func (e *Engine) loadCatalogKnowledge(ctx context.Context) error {
	results, err := e.store.ExecuteBatch(ctx, []storage.Query{storage.LoadCatalogKnowledge()})
	if err != nil {
		return fmt.Errorf("load catalog knowledge: %w", err)
	}
	if rows := results[storage.ResultCatalogKnowledge]; len(rows) > 0 {
		e.catalog.CurrentDeviceKnowledge = rows[0].Int("currentDeviceKnowledge")
		e.catalog.DeviceKnowledgeOfServer = rows[0].Int("deviceKnowledgeOfServer")
		e.catalog.ServerKnowledgeOfDevice = rows[0].Int("serverKnowledgeOfDevice")
	}
	return nil
}

// budgetKnowledge returns the tracker for a budget, loading and seeding it on
// first use. The counter is seeded above the highest stamp found on any
// persisted entity, so a stale counter row can never reissue a stamp.
func (e *Engine) budgetKnowledge(ctx context.Context, budgetID string) (*knowledge.Budget, error) {
	e.mu.Lock()
	if bk, ok := e.budgets[budgetID]; ok {
		e.mu.Unlock()
		return bk, nil
	}
	e.mu.Unlock()

	results, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.LoadBudgetKnowledge(budgetID),
		storage.MaxBudgetEntityKnowledge(budgetID),
	})
	if err != nil {
		return nil, fmt.Errorf("load budget knowledge: %w", err)
	}

	bk := &knowledge.Budget{}
	if rows := results[storage.ResultBudgetKnowledge]; len(rows) > 0 {
		bk.CurrentDeviceKnowledge = rows[0].Int("currentDeviceKnowledge")
		bk.CurrentDeviceKnowledgeForCalculations = rows[0].Int("currentDeviceKnowledgeForCalculations")
		bk.DeviceKnowledgeOfServer = rows[0].Int("deviceKnowledgeOfServer")
		bk.ServerKnowledgeOfDevice = rows[0].Int("serverKnowledgeOfDevice")
	}
	if rows := results[storage.ResultBudgetKnowledgeFromEntities]; len(rows) > 0 {
		bk.SeedFromEntities(rows[0].Int("deviceKnowledge"))
	}

	e.mu.Lock()
	e.budgets[budgetID] = bk
	e.mu.Unlock()
	return bk, nil
}

// SelectBudgetToOpen returns the most recently accessed live budget, creating
// a default one when the catalog is empty.
func (e *Engine) SelectBudgetToOpen(ctx context.Context) (core.Budget, error) {
	results, err := e.store.ExecuteBatch(ctx, []storage.Query{storage.AllBudgets()})
	if err != nil {
		return core.Budget{}, fmt.Errorf("list budgets: %w", err)
	}

	var best core.Budget
	found := false
	for _, row := range results[storage.ResultBudgets] {
		b := storage.BudgetFromRow(row)
		if b.IsTombstone {
			continue
		}
		if !found || b.LastAccessedOn > best.LastAccessedOn {
			best = b
			found = true
		}
	}
	if found {
		return best, nil
	}

	e.logger.InfoContext(ctx, "No budget found, creating default budget")
	return e.CreateNewBudget(ctx, "My Budget")
}

func (e *Engine) findBudget(ctx context.Context, budgetID string) (core.Budget, error) {
	results, err := e.store.ExecuteBatch(ctx, []storage.Query{storage.FindBudgetByID(budgetID)})
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget: %w", err)
	}
	rows := results[storage.ResultBudgets]
	if len(rows) == 0 {
		return core.Budget{}, core.ErrNoActiveBudget
	}
	return storage.BudgetFromRow(rows[0]), nil
}
