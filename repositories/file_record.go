package repositories

import (
	"board-lab/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// FileKeyPrefix namespaces file metadata inside the shared Badger store.
const FileKeyPrefix = "file:"

type IFileRepository interface {
	Store(record domain.FileRecord) error
	Get(fileID string) (*domain.FileRecord, error)
	Delete(fileID string) error
	All() ([]domain.FileRecord, error)
}

// FileRepository is the durable metadata index of the shared file registry.
// It holds records only; payload bytes live in the blob store. At startup
// the file owner reconciles this index against the blob directory.
type FileRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewFileRepository(db *badger.DB, log *slog.Logger) FileRepository {
	return FileRepository{db: db, log: log}
}

func fileKey(fileID string) []byte {
	return []byte(FileKeyPrefix + fileID)
}

func (r FileRepository) Store(record domain.FileRecord) error {
	bytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", record.FileID, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fileKey(record.FileID), bytes)
	})
}

// Get returns nil without error when the id is unknown: absence is a
// result, not a failure.
func (r FileRepository) Get(fileID string) (*domain.FileRecord, error) {
	var record *domain.FileRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(fileID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(value []byte) error {
			var decoded domain.FileRecord
			if err := json.Unmarshal(value, &decoded); err != nil {
				return err
			}
			record = &decoded
			return nil
		})
	})
	return record, err
}

func (r FileRepository) Delete(fileID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fileKey(fileID))
	})
}

// All scans the file prefix and returns every stored record.
func (r FileRepository) All() ([]domain.FileRecord, error) {
	var records []domain.FileRecord
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(FileKeyPrefix)
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var record domain.FileRecord
				if err := json.Unmarshal(value, &record); err != nil {
					key := string(it.Item().Key())
					r.log.Warn("Skipping undecodable file record",
						"id", strings.TrimPrefix(key, FileKeyPrefix), "err", err)
					return nil
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, err
}
