package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageFile   MessageKind = "file-notice"
	MessageSystem MessageKind = "system"
	MessageAudio  MessageKind = "audio-notice"
)

// SystemUser authors every system-kind message.
const (
	SystemUserID   = "system"
	SystemUsername = "System"
)

// ChatMessage is an immutable entry of the chat log. Messages are never
// edited or removed; only the whole log can be reset.
type ChatMessage struct {
	ID       uuid.UUID   `json:"id"`
	Kind     MessageKind `json:"kind"`
	UserID   string      `json:"userId" validate:"required"`
	Username string      `json:"username" validate:"required"`
	Content  string      `json:"content"`
	At       time.Time   `json:"at"`

	// Set only when Kind == MessageFile.
	FileName string `json:"fileName,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

func NewChatMessage(userID, username, content string) ChatMessage {
	return ChatMessage{
		ID:       uuid.New(),
		Kind:     MessageText,
		UserID:   userID,
		Username: username,
		Content:  content,
		At:       time.Now().UTC(),
	}
}

func NewFileNotice(userID, username, fileName, fileURL string, fileSize int64) ChatMessage {
	return ChatMessage{
		ID:       uuid.New(),
		Kind:     MessageFile,
		UserID:   userID,
		Username: username,
		Content:  fileName,
		At:       time.Now().UTC(),
		FileName: fileName,
		FileURL:  fileURL,
		FileSize: fileSize,
	}
}

func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{
		ID:       uuid.New(),
		Kind:     MessageSystem,
		UserID:   SystemUserID,
		Username: SystemUsername,
		Content:  content,
		At:       time.Now().UTC(),
	}
}
