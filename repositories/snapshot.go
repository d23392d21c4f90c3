package repositories

import (
	"board-lab/domain"
	boarderrors "board-lab/errors"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// snapshotSuffix marks persisted whiteboard containers in the save directory.
const snapshotSuffix = ".wb.json"

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// SafeFileName replaces characters that are invalid in file names.
func SafeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// WhiteboardSnapshot is the at-rest representation of the whiteboard: the
// ordered action log plus who saved it and when. Replaying Actions in order
// from an empty canvas reproduces the board.
type WhiteboardSnapshot struct {
	Actions []domain.DrawingAction `json:"actions"`
	SavedAt time.Time              `json:"savedAt"`
	SavedBy string                 `json:"savedBy"`
}

// SnapshotRepository stores named whiteboard snapshots as sanitized-filename
// slots under a configured directory.
type SnapshotRepository struct {
	dir string
	log *slog.Logger
}

func NewSnapshotRepository(dir string, log *slog.Logger) (*SnapshotRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
	}
	return &SnapshotRepository{dir: dir, log: log}, nil
}

func (r *SnapshotRepository) path(name string) string {
	safe := SafeFileName(name)
	if !strings.HasSuffix(safe, snapshotSuffix) {
		safe += snapshotSuffix
	}
	return filepath.Join(r.dir, safe)
}

// Save writes the snapshot to its named slot. The write goes through a
// temporary file and a rename, so a failed save leaves any prior content
// of the slot untouched.
func (r *SnapshotRepository) Save(name string, snapshot WhiteboardSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %q: %w", name, err)
	}

	target := r.path(name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %q: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit snapshot %q: %w", name, err)
	}

	r.log.Info("Whiteboard saved", "slot", target, "actions", len(snapshot.Actions), "by", snapshot.SavedBy)
	return nil
}

// Load reads a named slot. A missing slot is ErrSnapshotNotFound, distinct
// from a hard I/O or decode failure.
func (r *SnapshotRepository) Load(name string) (WhiteboardSnapshot, error) {
	data, err := os.ReadFile(r.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return WhiteboardSnapshot{}, boarderrors.ErrSnapshotNotFound
		}
		return WhiteboardSnapshot{}, fmt.Errorf("failed to read snapshot %q: %w", name, err)
	}

	var snapshot WhiteboardSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return WhiteboardSnapshot{}, fmt.Errorf("failed to decode snapshot %q: %w", name, err)
	}
	return snapshot, nil
}

// List returns the slot names currently present, without the suffix.
func (r *SnapshotRepository) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if strings.HasSuffix(d.Name(), snapshotSuffix) {
			names = append(names, strings.TrimSuffix(d.Name(), snapshotSuffix))
		}
		return nil
	})
	return names, err
}
