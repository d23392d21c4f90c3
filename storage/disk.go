// Package storage holds the on-disk blob store for shared file payloads.
package storage

import (
	"board-lab/repositories"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BlobInfo describes one payload found in the storage directory.
type BlobInfo struct {
	FileID    string
	Extension string
	Size      int64
	ModTime   time.Time
}

// BlobStore persists file payloads as id-plus-extension-named blobs under a
// configured directory, separate from the metadata index.
type BlobStore struct {
	dir string
}

func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &BlobStore{dir: dir}, nil
}

// blobName sanitizes both parts so a hostile id or extension cannot
// escape the storage directory. Chunked uploads carry client-supplied ids.
func blobName(fileID, extension string) string {
	if extension == "" {
		return repositories.SafeFileName(fileID)
	}
	return repositories.SafeFileName(fileID) + "." + repositories.SafeFileName(extension)
}

func (s *BlobStore) path(fileID, extension string) string {
	return filepath.Join(s.dir, blobName(fileID, extension))
}

func (s *BlobStore) Write(fileID, extension string, data []byte) error {
	return os.WriteFile(s.path(fileID, extension), data, 0o644)
}

// Read returns the payload bytes. Checking os.IsNotExist on the error
// distinguishes a vanished blob from a hard I/O failure.
func (s *BlobStore) Read(fileID, extension string) ([]byte, error) {
	return os.ReadFile(s.path(fileID, extension))
}

func (s *BlobStore) Exists(fileID, extension string) bool {
	_, err := os.Stat(s.path(fileID, extension))
	return err == nil
}

// Delete removes the blob. Deleting a missing blob is a no-op.
func (s *BlobStore) Delete(fileID, extension string) error {
	err := os.Remove(s.path(fileID, extension))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List scans the storage directory, skipping subdirectories (the chunk
// staging area lives in one). Used to rebuild the metadata index at startup.
func (s *BlobStore) List() ([]BlobInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var blobs []BlobInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		name := entry.Name()
		blob := BlobInfo{FileID: name, Size: info.Size(), ModTime: info.ModTime()}
		if idx := strings.LastIndexByte(name, '.'); idx > 0 {
			blob.FileID = name[:idx]
			blob.Extension = name[idx+1:]
		}
		blobs = append(blobs, blob)
	}
	return blobs, nil
}
