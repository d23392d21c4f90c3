// Package event defines the notifications pushed to registered participants.
// Events are immutable values; producing them never blocks on delivery.
package event

import "board-lab/domain"

// DomainEvent is implemented by every notification the owners broadcast.
// Kind returns the wire name used by the notification surfaces.
type DomainEvent interface {
	Kind() string
}

type ActionAdded struct {
	Action domain.DrawingAction `json:"action"`
}

func (ActionAdded) Kind() string { return "action-added" }

type WhiteboardCleared struct {
	By string `json:"by"`
}

func (WhiteboardCleared) Kind() string { return "whiteboard-cleared" }

type UndoPerformed struct {
	By string `json:"by"`
}

func (UndoPerformed) Kind() string { return "undo-performed" }

type MessageReceived struct {
	Message domain.ChatMessage `json:"message"`
}

func (MessageReceived) Kind() string { return "message-received" }

// UserListUpdated is always a full snapshot of the chat participant set,
// never a delta. Missing one makes the next one self-correcting.
type UserListUpdated struct {
	Users []domain.Participant `json:"users"`
}

func (UserListUpdated) Kind() string { return "user-list-updated" }

type UserJoined struct {
	User domain.Participant `json:"user"`
}

func (UserJoined) Kind() string { return "user-joined" }

type UserLeft struct {
	User domain.Participant `json:"user"`
}

func (UserLeft) Kind() string { return "user-left" }

type TypingChanged struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Typing   bool   `json:"typing"`
}

func (TypingChanged) Kind() string { return "typing-changed" }

// FileShared carries metadata only, never the payload bytes.
type FileShared struct {
	File domain.FileRecord `json:"file"`
}

func (FileShared) Kind() string { return "file-shared" }

type FileDeleted struct {
	FileID string `json:"fileId"`
	By     string `json:"by"`
}

func (FileDeleted) Kind() string { return "file-deleted" }

type ServerNotification struct {
	Text string `json:"text"`
}

func (ServerNotification) Kind() string { return "server-notification" }

type ServerError struct {
	Text string `json:"text"`
}

func (ServerError) Kind() string { return "server-error" }
