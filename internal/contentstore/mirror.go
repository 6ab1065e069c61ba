package contentstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

// Mirror writes a local copy of every stored asset under baseDir.
type Mirror struct {
	baseDir string
	now     func() time.Time
}

// PruneReport summarises a Prune run.
type PruneReport struct {
	DeletedFiles int
	KeptFiles    int
}

// NewMirror creates a filesystem mirror rooted at baseDir. The directory is
// created lazily on first write.
func NewMirror(baseDir string) (*Mirror, error) {
	trimmed := strings.TrimSpace(baseDir)
	if trimmed == "" {
		return nil, fmt.Errorf("mirror directory is empty")
	}

	return &Mirror{
		baseDir: filepath.Clean(trimmed),
		now:     time.Now,
	}, nil
}

// Dir returns the mirror root.
func (m *Mirror) Dir() string {
	return m.baseDir
}

// Record writes d.Asset to the mirror. The file appears atomically: it is
// written to a temp file in the same directory and renamed into place.
func (m *Mirror) Record(ctx context.Context, d domain.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateFilename(d.Asset.Filename); err != nil {
		return err
	}

	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return fmt.Errorf("create mirror directory: %w", err)
	}

	tmp, err := os.CreateTemp(m.baseDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(d.Asset.Data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %q: %w", d.Asset.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %q: %w", d.Asset.Filename, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %q: %w", d.Asset.Filename, err)
	}

	if err := os.Rename(tmpName, filepath.Join(m.baseDir, d.Asset.Filename)); err != nil {
		cleanup()
		return fmt.Errorf("rename %q: %w", d.Asset.Filename, err)
	}
	return nil
}

// Prune removes mirrored files older than olderThan based on modification
// time. Temp files left by an interrupted write are pruned the same way.
func (m *Mirror) Prune(ctx context.Context, olderThan time.Duration) (PruneReport, error) {
	if err := ctx.Err(); err != nil {
		return PruneReport{}, err
	}
	if olderThan <= 0 {
		return PruneReport{}, fmt.Errorf("olderThan must be positive")
	}

	entries, err := os.ReadDir(m.baseDir)
	if os.IsNotExist(err) {
		return PruneReport{}, nil
	}
	if err != nil {
		return PruneReport{}, fmt.Errorf("read mirror directory: %w", err)
	}

	cutoff := m.now().Add(-olderThan)
	report := PruneReport{}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return report, fmt.Errorf("read mirror entry info %q: %w", entry.Name(), err)
		}
		if info.ModTime().After(cutoff) {
			report.KeptFiles++
			continue
		}

		if err := os.Remove(filepath.Join(m.baseDir, entry.Name())); err != nil {
			return report, fmt.Errorf("remove %q: %w", entry.Name(), err)
		}
		report.DeletedFiles++
	}

	return report, nil
}

// validateFilename rejects names that could escape the target directory.
func validateFilename(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("filename is empty")
	}
	if trimmed != name {
		return fmt.Errorf("filename %q has surrounding whitespace", name)
	}
	if trimmed == "." || trimmed == ".." {
		return fmt.Errorf("filename %q is invalid", name)
	}
	if strings.Contains(trimmed, "/") || strings.Contains(trimmed, `\`) {
		return fmt.Errorf("filename %q must not contain path separators", name)
	}
	if filepath.Clean(trimmed) != trimmed {
		return fmt.Errorf("filename %q is invalid", name)
	}
	return nil
}
