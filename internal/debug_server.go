package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"board-lab/domain"
	"board-lab/repositories"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

// InspectRow is one rendered entry of the inspect page.
type InspectRow struct {
	Key      string
	Name     string
	Type     string
	Size     string
	Uploader string
	Uploaded string
}

type RowMapper func(key string, val []byte) InspectRow

// StatsProvider returns the owners' current counters for the dashboard
// header. The same shape feeds the health monitoring worker.
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// InspectHandler renders the records under a Badger key prefix plus the
// owners' counters. Read-only; it never mutates the store.
func InspectHandler(db *badger.DB, mapper RowMapper, statsProvider StatsProvider) http.HandlerFunc {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	if mapper == nil {
		mapper = FileRecordMapper
	}

	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = repositories.FileKeyPrefix
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	}
}

// StartDebugServer serves the inspect page on its own port, separate from
// the participant-facing surface.
func StartDebugServer(log *slog.Logger, db *badger.DB, port int, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	mux.HandleFunc("/inspect", InspectHandler(db, mapper, statsProvider))

	address := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info("Debug server listening", "url", fmt.Sprintf("http://localhost:%d/inspect", port))
	go func() {
		if err := http.ListenAndServe(address, mux); err != nil {
			log.Error("Debug server stopped", "err", err)
		}
	}()
}

// FileRecordMapper decodes one file index entry. Undecodable values still
// render as a raw row instead of hiding the key.
func FileRecordMapper(key string, val []byte) InspectRow {
	var record domain.FileRecord
	if err := json.Unmarshal(val, &record); err != nil {
		return InspectRow{
			Key:      key,
			Name:     "RAW",
			Type:     "-",
			Size:     strconv.Itoa(len(val)) + " bytes",
			Uploader: "-",
			Uploaded: "--:--:--",
		}
	}

	return InspectRow{
		Key:      key,
		Name:     record.FileName,
		Type:     record.ContentType,
		Size:     domain.FormatFileSize(record.FileSize),
		Uploader: record.UploaderName,
		Uploaded: record.UploadedAt.Format(time.RFC822),
	}
}
