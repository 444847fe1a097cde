package diff

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"envelope/internal/config"
	"envelope/internal/core"
	applog "envelope/internal/log"
)

func testWriter(t *testing.T) (*Writer, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		Environment: config.EnvDevelopment,
		DataDir:     t.TempDir(),
		CloudDir:    t.TempDir(),
	}
	w := NewWriter(cfg, applog.New(applog.DefaultConfig()))
	if err := w.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return w, cfg
}

func TestWriter_WriteDiffFile(t *testing.T) {
	w, cfg := testWriter(t)
	w.now = func() time.Time { return time.UnixMilli(1756600000000) }

	budget := core.Budget{EntityID: "budget-1"}
	merged := core.ChangeSet{
		Transactions: []core.Transaction{{
			EntityID:        "t-1",
			AccountID:       "acc-1",
			Date:            core.MustParseDate("2026-08-30"),
			Amount:          core.Money{Cents: -1500},
			Cleared:         core.Uncleared,
			DeviceKnowledge: 4,
		}},
	}

	path, err := w.WriteDiffFile(context.Background(), budget, merged)
	if err != nil {
		t.Fatalf("WriteDiffFile: %v", err)
	}

	want := filepath.Join(cfg.DataDir, "EnvelopeDev", "diffs", "budget-1", "1756600000000.diff")
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	payload, err := ReadDiffFile(path)
	if err != nil {
		t.Fatalf("ReadDiffFile: %v", err)
	}
	if len(payload.Transactions) != 1 || payload.Transactions[0].EntityID != "t-1" {
		t.Errorf("payload transactions = %v", payload.Transactions)
	}

	if entries, _ := os.ReadDir(filepath.Dir(path)); len(entries) != 1 {
		t.Errorf("budget folder should hold exactly the published file, got %v", entries)
	}
}

func TestWriter_WriteDiffFile_CloudSyncedBudget(t *testing.T) {
	w, cfg := testWriter(t)

	budget := core.Budget{EntityID: "budget-2", IsCloudSynced: true}
	path, err := w.WriteDiffFile(context.Background(), budget, core.ChangeSet{
		Payees: []core.Payee{{EntityID: "p-1", Name: "Landlord"}},
	})
	if err != nil {
		t.Fatalf("WriteDiffFile: %v", err)
	}
	if !strings.HasPrefix(path, cfg.CloudDir) {
		t.Errorf("cloud-synced budget must write under the cloud root, got %s", path)
	}
}

func TestWriter_WriteDiffFile_EmptyPayload(t *testing.T) {
	w, cfg := testWriter(t)

	budget := core.Budget{EntityID: "budget-3"}

	// A change-set holding only never-exported rows strips down to nothing.
	merged := core.ChangeSet{
		AccountMonthlyCalculations: []core.AccountMonthlyCalculation{{EntityID: "amc-1"}},
	}
	// MergeForExport already drops these, but the writer guards on its own.
	merged = core.MergeForExport(core.ChangeSet{}, merged)

	path, err := w.WriteDiffFile(context.Background(), budget, merged)
	if err != nil {
		t.Fatalf("WriteDiffFile: %v", err)
	}
	if path != "" {
		t.Errorf("empty payload should write nothing, got %s", path)
	}

	dir := filepath.Join(cfg.DataDir, cfg.AppFolder(), "diffs", "budget-3")
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("empty payload should not create a budget folder")
	}
}

func TestWriter_ListDiffFiles(t *testing.T) {
	w, _ := testWriter(t)
	budget := core.Budget{EntityID: "budget-4"}

	if files, err := w.ListDiffFiles(budget); err != nil || files != nil {
		t.Fatalf("missing folder should list as empty, got %v, %v", files, err)
	}

	stamps := []int64{1756600000111, 1756600000222, 1756600000333}
	for _, s := range stamps {
		stamp := s
		w.now = func() time.Time { return time.UnixMilli(stamp) }
		if _, err := w.WriteDiffFile(context.Background(), budget, core.ChangeSet{
			Payees: []core.Payee{{EntityID: "p"}},
		}); err != nil {
			t.Fatalf("WriteDiffFile: %v", err)
		}
	}

	files, err := w.ListDiffFiles(budget)
	if err != nil {
		t.Fatalf("ListDiffFiles: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	for i, s := range stamps {
		if want := fmt.Sprintf("%d%s", s, FileExtension); filepath.Base(files[i]) != want {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want)
		}
	}
}
