package domain

import (
	"fmt"
	"strings"
	"time"
)

// ChunkSize is the transfer unit used when a payload is split for upload.
const ChunkSize = 64 * 1024

// FileRecord is the metadata of one shared file. The byte payload lives in
// the blob store under FileID; listing and lookups never move bytes.
type FileRecord struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName" validate:"required"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`

	// ContentType is detected from the payload bytes at upload time; the
	// extension only decides admission, this records what was actually sent.
	ContentType  string    `json:"contentType,omitempty"`
	UploaderID   string    `json:"uploaderId" validate:"required"`
	UploaderName string    `json:"uploaderName"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// FileChunk is one indexed part of an in-flight chunked upload.
// Indexes run from 0 to Total-1; the chunk flagged Last triggers reassembly.
type FileChunk struct {
	FileID       string `json:"fileId" validate:"required"`
	FileName     string `json:"fileName" validate:"required"`
	FileType     string `json:"fileType"`
	UploaderID   string `json:"uploaderId" validate:"required"`
	UploaderName string `json:"uploaderName"`
	Index        int    `json:"index" validate:"gte=0"`
	Total        int    `json:"total" validate:"gt=0"`
	Last         bool   `json:"last"`
	Data         []byte `json:"data"`
}

// FileExtension extracts the lowercase extension without the leading dot.
func FileExtension(fileName string) string {
	idx := strings.LastIndexByte(fileName, '.')
	if idx < 0 || idx == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}

var allowedExtensions = map[string]struct{}{
	"txt": {}, "pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {},
	"ppt": {}, "pptx": {},
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "bmp": {},
	"mp3": {}, "wav": {}, "mp4": {}, "avi": {},
	"zip": {}, "rar": {}, "7z": {},
}

// ExtensionAllowed reports whether the extension is on the sharing allow-list.
func ExtensionAllowed(extension string) bool {
	_, ok := allowedExtensions[strings.ToLower(extension)]
	return ok
}

// FormatFileSize renders a byte count for log lines and notifications.
func FormatFileSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	case bytes < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(1024*1024*1024))
	}
}
