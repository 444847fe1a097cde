package bridge

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	applog "envelope/internal/log"
	"envelope/internal/storage"
)

func testDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewDispatcher(store, applog.New(applog.DefaultConfig()))
}

func TestDispatcher_Execute(t *testing.T) {
	d := testDispatcher(t)
	ctx := context.Background()

	resp := d.Execute(ctx, Request{
		RequestID: "req-1",
		QueryList: []QueryDescriptor{
			{Query: "CREATE TABLE scratch (id TEXT, amount INTEGER)"},
			{Query: "INSERT INTO scratch (id, amount) VALUES (?, ?)", Arguments: []any{"a", int64(42)}},
			{Name: "rows", Query: "SELECT id, amount FROM scratch"},
		},
	})

	if resp.Err != nil {
		t.Fatalf("Execute: %v", resp.Err)
	}
	if resp.RequestID != "req-1" {
		t.Errorf("RequestID = %q", resp.RequestID)
	}
	rows := resp.Results["rows"]
	if len(rows) != 1 || rows[0].Str("id") != "a" || rows[0].Int("amount") != 42 {
		t.Errorf("rows = %v", rows)
	}
}

func TestDispatcher_Execute_FailureRollsBack(t *testing.T) {
	d := testDispatcher(t)
	ctx := context.Background()

	if resp := d.Execute(ctx, Request{
		RequestID: "setup",
		QueryList: []QueryDescriptor{{Query: "CREATE TABLE scratch (id TEXT)"}},
	}); resp.Err != nil {
		t.Fatalf("setup: %v", resp.Err)
	}

	resp := d.Execute(ctx, Request{
		RequestID: "bad",
		QueryList: []QueryDescriptor{
			{Query: "INSERT INTO scratch (id) VALUES ('x')"},
			{Query: "SELECT * FROM no_such_table"},
		},
	})
	if resp.Err == nil {
		t.Fatal("failing request must surface the error")
	}

	check := d.Execute(ctx, Request{
		RequestID: "check",
		QueryList: []QueryDescriptor{{Name: "rows", Query: "SELECT id FROM scratch"}},
	})
	if check.Err != nil {
		t.Fatalf("check: %v", check.Err)
	}
	if len(check.Results["rows"]) != 0 {
		t.Error("failed request must not persist anything")
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	d := testDispatcher(t)

	var mu sync.Mutex
	got := make(map[string]bool)
	for _, id := range []string{"r1", "r2", "r3"} {
		d.Dispatch(context.Background(), Request{
			RequestID: id,
			QueryList: []QueryDescriptor{{Name: "one", Query: "SELECT 1 AS n"}},
		}, func(resp Response) {
			mu.Lock()
			defer mu.Unlock()
			if resp.Err != nil {
				t.Errorf("%s: %v", resp.RequestID, resp.Err)
			}
			got[resp.RequestID] = true
		})
	}
	d.Wait()

	if len(got) != 3 {
		t.Errorf("delivered %d responses, want 3", len(got))
	}
}
