package services

import (
	"board-lab/contract"
	"board-lab/domain"
	"board-lab/domain/event"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ChatService owns the append-only message log and the chat participant
// set. Messages are never edited or removed; only the whole log can be
// reset. User-presence broadcasts are always a full snapshot of the
// participant set, never a delta, so a missed update cannot compound into
// drift.
type ChatService struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry contract.IBroadcaster
	messages []domain.ChatMessage
	users    map[string]domain.Participant
}

func NewChatService(log *slog.Logger, registry contract.IBroadcaster) *ChatService {
	return &ChatService{
		log:      log,
		registry: registry,
		users:    make(map[string]domain.Participant),
	}
}

// Send appends the message to the log unconditionally and broadcasts it to
// every registered participant, the author included.
func (s *ChatService) Send(message domain.ChatMessage) error {
	if err := validate.Struct(message); err != nil {
		return fmt.Errorf("invalid chat message: %w", err)
	}
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.Kind == "" {
		message.Kind = domain.MessageText
	}
	if message.At.IsZero() {
		message.At = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, message)
	s.log.Debug("Message received", "kind", message.Kind, "from", message.Username)
	s.registry.Broadcast(event.MessageReceived{Message: message})
	return nil
}

// History returns the most recent limit messages in chronological order, or
// the whole log when limit is zero, negative, or larger than the log.
func (s *ChatService) History(limit int) []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if limit > 0 && limit < len(s.messages) {
		start = len(s.messages) - limit
	}
	return append([]domain.ChatMessage(nil), s.messages[start:]...)
}

// Join registers the participant and its notification handle, then resyncs
// everyone with the full user list.
func (s *ChatService) Join(participant domain.Participant, sink contract.EventSink) error {
	if err := validate.Struct(participant); err != nil {
		return fmt.Errorf("invalid participant: %w", err)
	}
	participant.Online = true
	participant.Touch()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[participant.ID] = participant
	s.registry.Register(participant.ID, sink)
	s.log.Info("User joined chat", "user", participant.Username, "total", len(s.users))

	s.registry.Broadcast(event.UserJoined{User: participant})
	s.registry.Broadcast(event.UserListUpdated{Users: s.userListLocked()})
	return nil
}

// Leave unregisters the participant. Leaving twice, or leaving without
// having joined, is a no-op.
func (s *ChatService) Leave(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, known := s.users[participantID]
	delete(s.users, participantID)
	s.registry.Unregister(participantID)

	if !known {
		return
	}
	s.log.Info("User left chat", "user", participant.Username, "total", len(s.users))
	s.registry.Broadcast(event.UserLeft{User: participant})
	s.registry.Broadcast(event.UserListUpdated{Users: s.userListLocked()})
}

// OnlineUsers returns a snapshot of the current participant set.
func (s *ChatService) OnlineUsers() []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userListLocked()
}

// UpdateStatus replaces the stored record only when that id is already
// registered, then triggers the same full resync as join/leave.
func (s *ChatService) UpdateStatus(participantID string, updated domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.users[participantID]; !known {
		return
	}
	updated.ID = participantID
	updated.Touch()
	s.users[participantID] = updated

	s.log.Debug("User status updated", "user", updated.Username)
	s.registry.Broadcast(event.UserListUpdated{Users: s.userListLocked()})
}

// NotifyTyping tells every other participant about the typing state. The
// author is excluded so the indicator never echoes back. Ephemeral: nothing
// is logged or persisted.
func (s *ChatService) NotifyTyping(participantID, username string, typing bool) {
	s.registry.BroadcastExcept(event.TypingChanged{
		UserID:   participantID,
		Username: username,
		Typing:   typing,
	}, participantID)
}

func (s *ChatService) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// BroadcastSystemMessage pushes a system-kind message through the normal
// send path so it lands in the log like any other message.
func (s *ChatService) BroadcastSystemMessage(text string) error {
	return s.Send(domain.NewSystemMessage(text))
}

// Reset clears the log and the participant set, then resyncs the remaining
// handles with an empty user list.
func (s *ChatService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.users = make(map[string]domain.Participant)
	s.registry.Broadcast(event.UserListUpdated{Users: nil})
	s.log.Info("Chat reset completed")
}

func (s *ChatService) ClientCount() int {
	return s.registry.Count()
}

func (s *ChatService) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"chat_messages": len(s.messages),
		"chat_users":    len(s.users),
	}
}

// Shutdown announces the stop through a system message and drops the registry.
func (s *ChatService) Shutdown() {
	if err := s.BroadcastSystemMessage("Server is shutting down..."); err != nil {
		s.log.Error("Failed to broadcast shutdown message", "error", err)
	}
	s.registry.Close()
	s.log.Info("Chat owner stopped")
}

// userListLocked builds the snapshot sent in user-list-updated events.
// Callers hold s.mu.
func (s *ChatService) userListLocked() []domain.Participant {
	users := lo.Values(s.users)
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}
