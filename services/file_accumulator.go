package services

import (
	"board-lab/domain"
	boarderrors "board-lab/errors"
	"board-lab/repositories"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileAccumulator handles reassembly of files uploaded as indexed chunks.
// Every chunk's bytes are staged in a per-file, per-index temporary slot;
// chunks may arrive in any order. There is no abandonment timeout: an
// upload that never sends its last chunk simply leaves its staged parts
// behind.
type FileAccumulator struct {
	tempDir  string
	mu       sync.Mutex
	inflight map[string]*assemblyState
}

type assemblyState struct {
	total    int
	received map[int]struct{}
}

func NewFileAccumulator(tempDir string) (*FileAccumulator, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chunk staging directory %s: %w", tempDir, err)
	}
	return &FileAccumulator{
		tempDir:  tempDir,
		inflight: make(map[string]*assemblyState),
	}, nil
}

// chunkPath stages under a sanitized file id so an hostile id cannot
// escape the staging directory.
func (a *FileAccumulator) chunkPath(fileID string, index int) string {
	return filepath.Join(a.tempDir, fmt.Sprintf("%s_chunk_%d", repositories.SafeFileName(fileID), index))
}

// Stage writes one chunk's bytes to its slot and records its index.
func (a *FileAccumulator) Stage(chunk domain.FileChunk) error {
	if err := os.WriteFile(a.chunkPath(chunk.FileID, chunk.Index), chunk.Data, 0o644); err != nil {
		return fmt.Errorf("failed to stage chunk %d of %s: %w", chunk.Index, chunk.FileID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state, ok := a.inflight[chunk.FileID]
	if !ok {
		state = &assemblyState{total: chunk.Total, received: make(map[int]struct{})}
		a.inflight[chunk.FileID] = state
	}
	state.received[chunk.Index] = struct{}{}
	return nil
}

// Assemble reads every chunk index from 0 to total-1 in order and
// concatenates them byte for byte. Any missing intermediate chunk aborts
// the assembly; nothing is committed and the staged parts stay in place.
func (a *FileAccumulator) Assemble(fileID string, total int) ([]byte, error) {
	a.mu.Lock()
	_, known := a.inflight[fileID]
	a.mu.Unlock()
	if !known {
		return nil, boarderrors.ErrUnknownUpload
	}

	var buf bytes.Buffer
	for i := 0; i < total; i++ {
		data, err := os.ReadFile(a.chunkPath(fileID, i))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: chunk %d of %s", boarderrors.ErrMissingChunk, i, fileID)
			}
			return nil, fmt.Errorf("failed to read chunk %d of %s: %w", i, fileID, err)
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// Cleanup deletes the staged parts and forgets the in-flight state.
func (a *FileAccumulator) Cleanup(fileID string, total int) {
	for i := 0; i < total; i++ {
		_ = os.Remove(a.chunkPath(fileID, i))
	}

	a.mu.Lock()
	delete(a.inflight, fileID)
	a.mu.Unlock()
}

// Pending counts uploads currently waiting for their last chunk.
func (a *FileAccumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inflight)
}
