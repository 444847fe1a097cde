package knowledge

import (
	"sync"
	"testing"
)

func TestBudget_NextValue_Monotonic(t *testing.T) {
	b := &Budget{}
	for want := int64(1); want <= 5; want++ {
		if got := b.NextValue(); got != want {
			t.Fatalf("NextValue = %d, want %d", got, want)
		}
	}
}

func TestBudget_TracksAreIndependent(t *testing.T) {
	b := &Budget{}

	b.NextValue()
	b.NextValue()
	if got := b.NextValueForCalculations(); got != 1 {
		t.Errorf("first calculation stamp = %d, want 1", got)
	}
	if got := b.NextValue(); got != 3 {
		t.Errorf("primary stamp after calculation = %d, want 3", got)
	}
	if got := b.NextValueForCalculations(); got != 2 {
		t.Errorf("second calculation stamp = %d, want 2", got)
	}
}

func TestBudget_NextValue_Concurrent(t *testing.T) {
	b := &Budget{}
	const goroutines = 50

	var wg sync.WaitGroup
	seen := make([]int64, goroutines)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = b.NextValue()
		}(i)
	}
	wg.Wait()

	unique := make(map[int64]bool, goroutines)
	for _, v := range seen {
		if unique[v] {
			t.Fatalf("stamp %d issued twice", v)
		}
		unique[v] = true
	}
	if b.CurrentDeviceKnowledge != goroutines {
		t.Errorf("counter = %d, want %d", b.CurrentDeviceKnowledge, goroutines)
	}
}

func TestBudget_SeedFromEntities(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		maxSeen int64
		want    int64
	}{
		{name: "counter behind entities", current: 3, maxSeen: 10, want: 11},
		{name: "counter equal to entities", current: 10, maxSeen: 10, want: 11},
		{name: "counter ahead of entities", current: 10, maxSeen: 4, want: 10},
		{name: "no entities yet", current: 5, maxSeen: 0, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Budget{CurrentDeviceKnowledge: tt.current}
			b.SeedFromEntities(tt.maxSeen)
			if b.CurrentDeviceKnowledge != tt.want {
				t.Errorf("counter = %d, want %d", b.CurrentDeviceKnowledge, tt.want)
			}
		})
	}
}

func TestBudget_MarkLoaded(t *testing.T) {
	b := &Budget{}
	b.NextValue()
	b.NextValue()
	b.NextValueForCalculations()

	b.MarkLoaded()

	if b.LastDeviceKnowledgeLoaded != 2 {
		t.Errorf("primary watermark = %d, want 2", b.LastDeviceKnowledgeLoaded)
	}
	if b.LastDeviceKnowledgeForCalculationsLoaded != 1 {
		t.Errorf("calculation watermark = %d, want 1", b.LastDeviceKnowledgeForCalculationsLoaded)
	}

	// Nothing new since the watermark: a reload would deliver an empty delta.
	b.NextValue()
	if b.LastDeviceKnowledgeLoaded != 2 {
		t.Error("watermark must not move without MarkLoaded")
	}
}

func TestCatalog_NextValueAndMarkLoaded(t *testing.T) {
	c := &Catalog{}
	if got := c.NextValue(); got != 1 {
		t.Errorf("NextValue = %d, want 1", got)
	}
	c.NextValue()
	c.MarkLoaded()
	if c.LastDeviceKnowledgeLoaded != 2 {
		t.Errorf("watermark = %d, want 2", c.LastDeviceKnowledgeLoaded)
	}
}
