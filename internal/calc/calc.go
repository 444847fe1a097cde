// Package calc is the recalculation engine. Each calculator recomputes one
// family of derived fields from the non-derived fields as of the same pass,
// writing through the batched query executor so a pass is atomic and
// read-your-writes consistent. Calculator-owned rows use deterministic ids
// derived from their grouping key, so every recomputation is an upsert and
// duplicate rows are structurally impossible.
package calc

import (
	"envelope/internal/storage"
)

// Runner bundles the calculators over one store.
type Runner struct {
	store *storage.Store

	// ProjectionCount is how many upcoming occurrence dates the recurring
	// projector keeps on each rule. LeadDays is how far ahead of "today" an
	// occurrence may be and still get an actual transaction created for it.
	ProjectionCount int
	LeadDays        int
}

// NewRunner returns a Runner over the given store.
func NewRunner(store *storage.Store) *Runner {
	return &Runner{
		store:           store,
		ProjectionCount: DefaultProjectionCount,
		LeadDays:        DefaultLeadDays,
	}
}

const (
	DefaultProjectionCount = 5
	DefaultLeadDays        = 7
)

const creditAccountTypes = `'CreditCard','LineOfCredit'`
