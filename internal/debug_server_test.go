package internal

import (
	"board-lab/domain"
	"board-lab/repositories"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestInspectHandler_Renders_Records_And_Stats(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	records := repositories.NewFileRepository(db, slog.Default())
	req.NoError(records.Store(domain.FileRecord{
		FileID:       "abc",
		FileName:     "notes.txt",
		FileType:     "txt",
		ContentType:  "text/plain; charset=utf-8",
		FileSize:     42,
		UploaderID:   "alice",
		UploaderName: "Alice",
		UploadedAt:   time.Now().UTC(),
	}))

	stats := func() map[string]any {
		return map[string]any{"files": 1, "board_actions": 7}
	}
	handler := InspectHandler(db, FileRecordMapper, stats)

	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest("GET", "/inspect", nil))

	resp := recorder.Result()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)

	page := string(body)
	req.Contains(page, "notes.txt")
	req.Contains(page, "text/plain")
	req.Contains(page, "Alice")
	req.Contains(page, "board_actions")
	req.Contains(page, repositories.FileKeyPrefix+"abc")
}

func TestInspectHandler_Undecodable_Value_Still_Renders(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	req.NoError(db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(repositories.FileKeyPrefix+"broken"), []byte("not json"))
	}))

	recorder := httptest.NewRecorder()
	InspectHandler(db, nil, nil)(recorder, httptest.NewRequest("GET", "/inspect", nil))

	resp := recorder.Result()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)

	page := string(body)
	req.Contains(page, "broken")
	req.Contains(page, "RAW")
}
