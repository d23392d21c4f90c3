package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrNilAction        = fmt.Errorf("drawing action cannot be nil")
	ErrEmptyUserID      = fmt.Errorf("user id cannot be empty")
	ErrEmptyName        = fmt.Errorf("name cannot be empty")
	ErrSnapshotNotFound = fmt.Errorf("whiteboard snapshot not found")
	ErrFileNotFound     = fmt.Errorf("file not found")
	ErrFileTooLarge     = fmt.Errorf("file size exceeds the maximum allowed size")
	ErrTypeNotAllowed   = fmt.Errorf("file type not allowed")
	ErrPermissionDenied = fmt.Errorf("only the uploader can delete this file")
	ErrMissingChunk     = fmt.Errorf("missing chunk at reassembly")
	ErrUnknownUpload    = fmt.Errorf("no in-flight upload for this file id")
)
