// Package diff delivers change-sets to other devices through a shared
// folder. Each sync round that produced changes writes one JSON diff file
// under a per-budget folder; file names are the write timestamp in unix
// milliseconds, so lexicographic order is apply order. A cloud provider (or
// any folder-sync mechanism) moves the files between devices.
package diff

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"envelope/internal/config"
	"envelope/internal/core"
	applog "envelope/internal/log"
)

// FileExtension of diff files.
const FileExtension = ".diff"

// Writer serializes merged change-sets into the diff folder tree.
type Writer struct {
	cfg    *config.Config
	logger *applog.Logger

	// now is swappable for tests; file names must be time-ordered.
	now func() time.Time
}

// NewWriter returns a Writer over the configured folder roots.
func NewWriter(cfg *config.Config, logger *applog.Logger) *Writer {
	return &Writer{
		cfg:    cfg,
		logger: logger.WithComponent(applog.ComponentDiff),
		now:    time.Now,
	}
}

// Initialize creates the diff folder tree under every configured root.
// Called once at startup so later writes only create per-budget subfolders.
func (w *Writer) Initialize() error {
	roots := []string{w.cfg.DataDir}
	if w.cfg.CloudDir != "" {
		roots = append(roots, w.cfg.CloudDir)
	}
	for _, root := range roots {
		dir := filepath.Join(root, w.cfg.AppFolder(), "diffs")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create diff folder %s: %w", dir, err)
		}
	}
	return nil
}

// WriteDiffFile strips derived fields from the merged change-set and writes
// it as one JSON file under the budget's diff folder. Returns the path of
// the written file, or "" when the stripped payload is empty. The write goes
// through a temp file and rename so a folder-sync provider never observes a
// half-written diff.
func (w *Writer) WriteDiffFile(ctx context.Context, budget core.Budget, merged core.ChangeSet) (string, error) {
	payload := merged.ForExport()
	if payload.IsEmpty() {
		return "", nil
	}

	dir := filepath.Join(w.cfg.DiffRoot(budget.IsCloudSynced), w.cfg.AppFolder(), "diffs", budget.EntityID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create budget diff folder %s: %w", dir, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal diff payload: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d%s", w.now().UnixMilli(), FileExtension))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write diff file %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publish diff file %s: %w", path, err)
	}

	w.logger.InfoContext(ctx, "Diff file written",
		applog.FieldBudgetID, budget.EntityID,
		applog.FieldDiffFile, path,
		"bytes", len(data))

	return path, nil
}

// ReadDiffFile parses a diff file back into its payload form. Used by the
// worker that applies diffs arriving from other devices.
func ReadDiffFile(path string) (core.DiffPayload, error) {
	var payload core.DiffPayload
	data, err := os.ReadFile(path)
	if err != nil {
		return payload, fmt.Errorf("read diff file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse diff file %s: %w", path, err)
	}
	return payload, nil
}

// ListDiffFiles returns the diff files present for a budget in apply order.
func (w *Writer) ListDiffFiles(budget core.Budget) ([]string, error) {
	dir := filepath.Join(w.cfg.DiffRoot(budget.IsCloudSynced), w.cfg.AppFolder(), "diffs", budget.EntityID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list diff folder %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != FileExtension {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}
