// Package knowledge tracks the monotonic device-knowledge counters that stamp
// every write batch, plus the watermarks recording what has already been
// delivered to the caller. User-entered fields and calculation-produced
// fields advance on independent tracks so that recalculation never
// manufactures spurious deltas on the primary track.
package knowledge

import "sync"

// Catalog holds the knowledge values for the cross-budget catalog scope.
type Catalog struct {
	mu sync.Mutex

	CurrentDeviceKnowledge  int64
	DeviceKnowledgeOfServer int64
	ServerKnowledgeOfDevice int64

	// Highest catalog knowledge already delivered to the caller.
	LastDeviceKnowledgeLoaded int64
}

// NextValue atomically increments and returns the catalog device knowledge.
// It must be called exactly once per logical write batch, not once per row,
// so that all rows written together share one stamp.
func (c *Catalog) NextValue() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentDeviceKnowledge++
	return c.CurrentDeviceKnowledge
}

// MarkLoaded advances the catalog watermark to the current counter.
func (c *Catalog) MarkLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastDeviceKnowledgeLoaded = c.CurrentDeviceKnowledge
}

// Budget holds the knowledge values for one budget scope. The calculation
// counter is incremented only by the calculation engine.
type Budget struct {
	mu sync.Mutex

	CurrentDeviceKnowledge                int64
	CurrentDeviceKnowledgeForCalculations int64
	DeviceKnowledgeOfServer               int64
	ServerKnowledgeOfDevice               int64

	// Watermarks: highest knowledge values already delivered to the caller,
	// per track.
	LastDeviceKnowledgeLoaded                int64
	LastDeviceKnowledgeForCalculationsLoaded int64
}

// NextValue atomically increments and returns the primary device knowledge.
// One call per write batch.
func (b *Budget) NextValue() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CurrentDeviceKnowledge++
	return b.CurrentDeviceKnowledge
}

// NextValueForCalculations atomically increments and returns the calculation
// device knowledge. One call per recalculation batch.
func (b *Budget) NextValueForCalculations() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CurrentDeviceKnowledgeForCalculations++
	return b.CurrentDeviceKnowledgeForCalculations
}

// MarkLoaded advances both watermarks to the current counters, recording
// that everything stamped so far has been delivered to the caller.
func (b *Budget) MarkLoaded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LastDeviceKnowledgeLoaded = b.CurrentDeviceKnowledge
	b.LastDeviceKnowledgeForCalculationsLoaded = b.CurrentDeviceKnowledgeForCalculations
}

// SeedFromEntities raises the primary counter to one above the maximum stamp
// already present among the budget's persisted entities. This survives a
// counter/storage mismatch after a non-graceful shutdown: entity stamps are
// authoritative, the persisted counter row may lag.
func (b *Budget) SeedFromEntities(maxEntityKnowledge int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if maxEntityKnowledge > 0 && maxEntityKnowledge >= b.CurrentDeviceKnowledge {
		b.CurrentDeviceKnowledge = maxEntityKnowledge + 1
	}
}
