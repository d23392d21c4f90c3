// Viewer prints the file registry index of a running (or stopped) server
// in read-only mode, without moving any payload bytes.
package main

import (
	"board-lab/domain"
	"board-lab/repositories"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	Colours        bool   `envconfig:"VIEWER_COLOURS" default:"true"`
}

func main() {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	records, err := scanRecords(db)
	if err != nil {
		log.Fatalf("Failed to scan file index: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File ID", "Name", "Type", "Size", "Uploader", "Uploaded At"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	var total int64
	for _, record := range records {
		total += record.FileSize
		table.Append([]string{
			record.FileID,
			record.FileName,
			record.FileType,
			domain.FormatFileSize(record.FileSize),
			record.UploaderName,
			record.UploadedAt.Format(time.RFC822),
		})
	}

	summary := fmt.Sprintf("%d shared files, %s total", len(records), domain.FormatFileSize(total))
	if cfg.Colours {
		color.Green.Println(summary)
	} else {
		fmt.Println(summary)
	}
	table.Render()
}

func scanRecords(db *badger.DB) ([]domain.FileRecord, error) {
	var records []domain.FileRecord
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(repositories.FileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var record domain.FileRecord
				if err := json.Unmarshal(v, &record); err != nil {
					fmt.Printf("Error decoding key %s: %v\n", string(item.Key()), err)
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
