package services

import (
	"board-lab/contract"
	"board-lab/domain"
	"board-lab/domain/event"
	boarderrors "board-lab/errors"
	"board-lab/repositories"
	"board-lab/storage"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// FileService owns the shared file registry: a durable metadata index plus
// a disk blob store for the payload bytes. Listing and metadata operations
// never move bytes. File-shared broadcasts carry metadata only.
type FileService struct {
	mu          sync.Mutex
	log         *slog.Logger
	registry    contract.IBroadcaster
	records     repositories.IFileRepository
	blobs       *storage.BlobStore
	accumulator *FileAccumulator
	maxFileSize int64
}

func NewFileService(
	log *slog.Logger,
	registry contract.IBroadcaster,
	records repositories.IFileRepository,
	blobs *storage.BlobStore,
	accumulator *FileAccumulator,
	maxFileSize int64,
) (*FileService, error) {
	s := &FileService{
		log:         log,
		registry:    registry,
		records:     records,
		blobs:       blobs,
		accumulator: accumulator,
		maxFileSize: maxFileSize,
	}
	if err := s.reconcile(); err != nil {
		return nil, err
	}
	return s, nil
}

// reconcile aligns the metadata index with the blob directory at startup:
// records whose payload vanished are dropped, orphan blobs get a synthesized
// record attributed to the system user.
func (s *FileService) reconcile() error {
	blobs, err := s.blobs.List()
	if err != nil {
		return fmt.Errorf("failed to scan blob directory: %w", err)
	}
	records, err := s.records.All()
	if err != nil {
		return fmt.Errorf("failed to read file index: %w", err)
	}

	indexed := make(map[string]domain.FileRecord, len(records))
	for _, record := range records {
		indexed[record.FileID] = record
	}

	onDisk := make(map[string]struct{}, len(blobs))
	adopted := 0
	for _, blob := range blobs {
		onDisk[blob.FileID] = struct{}{}
		if _, ok := indexed[blob.FileID]; ok {
			continue
		}
		record := domain.FileRecord{
			FileID:       blob.FileID,
			FileName:     blob.FileID + "." + blob.Extension,
			FileType:     blob.Extension,
			FileSize:     blob.Size,
			UploaderID:   domain.SystemUserID,
			UploaderName: domain.SystemUsername,
			UploadedAt:   blob.ModTime,
		}
		if err := s.records.Store(record); err != nil {
			return err
		}
		adopted++
	}

	dropped := 0
	for id := range indexed {
		if _, ok := onDisk[id]; !ok {
			if err := s.records.Delete(id); err != nil {
				return err
			}
			dropped++
		}
	}

	s.log.Info("File index reconciled",
		"files", len(onDisk), "adopted_blobs", adopted, "dropped_records", dropped)
	return nil
}

// Upload validates the payload, persists the bytes under the file id and
// stores the metadata record. "Too large" and "disallowed type" are
// distinct rejections, both applied before anything is written.
func (s *FileService) Upload(record domain.FileRecord, data []byte) (string, error) {
	if err := validate.Struct(record); err != nil {
		return "", fmt.Errorf("invalid file record: %w", err)
	}
	size := int64(len(data))
	if size <= 0 || size > s.maxFileSize {
		return "", fmt.Errorf("%w: %s (max %s)", boarderrors.ErrFileTooLarge,
			domain.FormatFileSize(size), domain.FormatFileSize(s.maxFileSize))
	}

	extension := record.FileType
	if extension == "" {
		extension = domain.FileExtension(record.FileName)
	}
	if !domain.ExtensionAllowed(extension) {
		return "", fmt.Errorf("%w: %q", boarderrors.ErrTypeNotAllowed, extension)
	}

	if record.FileID == "" {
		record.FileID = uuid.NewString()
	}
	record.FileType = extension
	record.FileSize = size
	record.ContentType = mimetype.Detect(data).String()
	if record.UploadedAt.IsZero() {
		record.UploadedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.Write(record.FileID, extension, data); err != nil {
		return "", fmt.Errorf("failed to save file %s: %w", record.FileName, err)
	}
	if err := s.records.Store(record); err != nil {
		_ = s.blobs.Delete(record.FileID, extension)
		return "", fmt.Errorf("failed to index file %s: %w", record.FileName, err)
	}

	s.log.Info("File uploaded",
		"name", record.FileName,
		"size", domain.FormatFileSize(size),
		"content_type", record.ContentType,
		"by", record.UploaderName)
	return record.FileID, nil
}

// Download returns metadata plus bytes. An unknown id, or a record whose
// backing bytes are gone, yields (nil, nil, nil): absence is a result, not
// a failure.
func (s *FileService) Download(fileID string) (*domain.FileRecord, []byte, error) {
	record, err := s.records.Get(fileID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, nil
	}

	data, err := s.blobs.Read(record.FileID, record.FileType)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("File bytes missing from blob store", "id", fileID)
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	return record, data, nil
}

// Share broadcasts the file's metadata to every registered participant.
func (s *FileService) Share(fileID, uploaderID string) error {
	if fileID == "" || uploaderID == "" {
		return boarderrors.ErrEmptyUserID
	}
	record, err := s.records.Get(fileID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %s", boarderrors.ErrFileNotFound, fileID)
	}

	s.log.Info("File shared", "name", record.FileName, "by", record.UploaderName)
	s.registry.Broadcast(event.FileShared{File: *record})
	return nil
}

// Delete removes metadata and bytes. Only the original uploader may delete;
// any other requester is rejected without a state change or broadcast.
func (s *FileService) Delete(fileID, requesterID string) error {
	if fileID == "" || requesterID == "" {
		return boarderrors.ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.records.Get(fileID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %s", boarderrors.ErrFileNotFound, fileID)
	}
	if record.UploaderID != requesterID {
		return boarderrors.ErrPermissionDenied
	}

	if err := s.records.Delete(fileID); err != nil {
		return err
	}
	if err := s.blobs.Delete(record.FileID, record.FileType); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", fileID, err)
	}

	s.log.Info("File deleted", "name", record.FileName, "by", requesterID)
	s.registry.Broadcast(event.FileDeleted{FileID: fileID, By: requesterID})
	return nil
}

// UploadChunk stages one chunk. When the chunk flagged last arrives, the
// staged parts are reassembled in index order and committed through the
// normal upload path, and the staging slots are cleared. A missing
// intermediate chunk makes reassembly a hard failure committing nothing.
func (s *FileService) UploadChunk(chunk domain.FileChunk) error {
	if err := validate.Struct(chunk); err != nil {
		return fmt.Errorf("invalid file chunk: %w", err)
	}

	if err := s.accumulator.Stage(chunk); err != nil {
		return err
	}
	s.log.Debug("Chunk staged",
		"file", chunk.FileName, "index", chunk.Index, "total", chunk.Total)

	if !chunk.Last {
		return nil
	}

	data, err := s.accumulator.Assemble(chunk.FileID, chunk.Total)
	if err != nil {
		return fmt.Errorf("failed to assemble %s: %w", chunk.FileName, err)
	}

	record := domain.FileRecord{
		FileID:       chunk.FileID,
		FileName:     chunk.FileName,
		FileType:     chunk.FileType,
		UploaderID:   chunk.UploaderID,
		UploaderName: chunk.UploaderName,
	}
	if _, err := s.Upload(record, data); err != nil {
		return err
	}

	s.accumulator.Cleanup(chunk.FileID, chunk.Total)
	s.log.Info("Chunked file assembled", "name", chunk.FileName, "chunks", chunk.Total)
	return nil
}

// SharedFiles lists every stored record, metadata only.
func (s *FileService) SharedFiles() ([]domain.FileRecord, error) {
	return s.records.All()
}

// MaxFileSize exposes the configured cap so transports can bound request
// bodies before buffering them.
func (s *FileService) MaxFileSize() int64 {
	return s.maxFileSize
}

func (s *FileService) Exists(fileID string) bool {
	record, err := s.records.Get(fileID)
	return err == nil && record != nil
}

func (s *FileService) Metadata(fileID string) (*domain.FileRecord, error) {
	return s.records.Get(fileID)
}

// Register binds a participant's notification handle and sends it the
// entire current listing, one file-shared event per record, before any
// future broadcasts reach it.
func (s *FileService) Register(participantID string, sink contract.EventSink) error {
	if participantID == "" {
		return boarderrors.ErrEmptyUserID
	}

	records, err := s.records.All()
	if err != nil {
		return err
	}

	s.registry.Register(participantID, sink)
	for _, record := range records {
		if err := s.registry.Send(participantID, event.FileShared{File: record}); err != nil {
			s.log.Warn("Failed to send file listing to new participant",
				"participant", participantID, "error", err)
			s.registry.Unregister(participantID)
			return err
		}
	}

	s.log.Info("Participant registered for file updates",
		"participant", participantID, "total", s.registry.Count())
	return nil
}

func (s *FileService) Unregister(participantID string) {
	s.registry.Unregister(participantID)
}

func (s *FileService) ClientCount() int {
	return s.registry.Count()
}

func (s *FileService) Stats() map[string]any {
	stats := map[string]any{
		"file_participants": s.registry.Count(),
		"pending_uploads":   s.accumulator.Pending(),
	}
	if records, err := s.records.All(); err == nil {
		var total int64
		for _, record := range records {
			total += record.FileSize
		}
		stats["files"] = len(records)
		stats["files_size"] = domain.FormatFileSize(total)
	}
	return stats
}

// Shutdown notifies every participant and drops the registry.
func (s *FileService) Shutdown() {
	s.registry.Broadcast(event.ServerNotification{Text: "File server is shutting down..."})
	s.registry.Close()
	s.log.Info("File owner stopped")
}
