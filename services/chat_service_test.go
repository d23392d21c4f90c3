package services

import (
	"board-lab/domain"
	"board-lab/domain/event"
	"board-lab/runtime"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newChatTestService(t *testing.T) *ChatService {
	t.Helper()
	log := slog.Default()
	registry := runtime.NewRegistry(log, "chat", 128, 1*time.Second)
	t.Cleanup(registry.Close)
	return NewChatService(log, registry)
}

func TestChatService_Send_Appends_And_Broadcasts_To_Author_Too(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)
	alice := newRecordingSink()
	req.NoError(service.Join(domain.NewParticipant("alice", "Alice"), alice))

	// Joining produced a user-joined and a user-list-updated event
	req.Equal("user-joined", alice.next(t).Kind())
	req.Equal("user-list-updated", alice.next(t).Kind())

	// When the author sends a message
	req.NoError(service.Send(domain.NewChatMessage("alice", "Alice", "hello")))

	// Then it is logged and echoed back to the author as well
	req.Equal(1, service.MessageCount())
	received, ok := alice.next(t).(event.MessageReceived)
	req.True(ok)
	req.Equal("hello", received.Message.Content)
	req.Equal("alice", received.Message.UserID)
}

func TestChatService_Send_Fills_In_Defaults(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)

	// Given a bare message without id, kind, or timestamp
	req.NoError(service.Send(domain.ChatMessage{UserID: "alice", Username: "Alice", Content: "hi"}))

	history := service.History(0)
	req.Len(history, 1)
	req.NotEqual(uuid.Nil, history[0].ID)
	req.Equal(domain.MessageText, history[0].Kind)
	req.False(history[0].At.IsZero())
}

func TestChatService_Send_Rejects_Anonymous_Messages(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)

	req.Error(service.Send(domain.ChatMessage{Content: "who said that"}))
	req.Equal(0, service.MessageCount())
}

func TestChatService_History_Returns_The_Most_Recent_Messages(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)

	req.NoError(service.Send(domain.NewChatMessage("alice", "Alice", "one")))
	req.NoError(service.Send(domain.NewChatMessage("bob", "Bob", "two")))
	req.NoError(service.Send(domain.NewChatMessage("alice", "Alice", "three")))

	// Limited history keeps chronological order and takes from the tail
	limited := service.History(2)
	req.Len(limited, 2)
	req.Equal("two", limited[0].Content)
	req.Equal("three", limited[1].Content)

	// Zero, negative, or oversized limits return everything
	req.Len(service.History(0), 3)
	req.Len(service.History(-1), 3)
	req.Len(service.History(50), 3)
}

func TestChatService_Join_Resyncs_Everyone_With_The_Full_User_List(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)
	alice := newRecordingSink()
	bob := newRecordingSink()

	req.NoError(service.Join(domain.NewParticipant("alice", "Alice"), alice))
	req.Equal("user-joined", alice.next(t).Kind())
	req.Equal("user-list-updated", alice.next(t).Kind())

	// When a second participant joins
	req.NoError(service.Join(domain.NewParticipant("bob", "Bob"), bob))

	// Then the existing participant gets the join plus a full snapshot
	joined, ok := alice.next(t).(event.UserJoined)
	req.True(ok)
	req.Equal("bob", joined.User.ID)

	listed, ok := alice.next(t).(event.UserListUpdated)
	req.True(ok)
	req.Len(listed.Users, 2)
	req.Equal("alice", listed.Users[0].ID)
	req.Equal("bob", listed.Users[1].ID)

	users := service.OnlineUsers()
	req.Len(users, 2)
	req.True(users[0].Online)
}

func TestChatService_Leave_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)
	alice := newRecordingSink()

	req.NoError(service.Join(domain.NewParticipant("alice", "Alice"), alice))
	req.NoError(service.Join(domain.NewParticipant("bob", "Bob"), newRecordingSink()))

	service.Leave("bob")
	service.Leave("bob")
	service.Leave("never-joined")

	req.Len(service.OnlineUsers(), 1)
	req.Equal(1, service.ClientCount())
}

func TestChatService_NotifyTyping_Never_Echoes_To_The_Author(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)
	alice := newRecordingSink()
	bob := newRecordingSink()

	req.NoError(service.Join(domain.NewParticipant("alice", "Alice"), alice))
	req.Equal("user-joined", alice.next(t).Kind())
	req.Equal("user-list-updated", alice.next(t).Kind())
	req.NoError(service.Join(domain.NewParticipant("bob", "Bob"), bob))
	req.Equal("user-joined", alice.next(t).Kind())
	req.Equal("user-list-updated", alice.next(t).Kind())
	req.Equal("user-joined", bob.next(t).Kind())
	req.Equal("user-list-updated", bob.next(t).Kind())

	// When alice starts typing
	service.NotifyTyping("alice", "Alice", true)
	req.NoError(service.BroadcastSystemMessage("checkpoint"))

	// Then bob sees the indicator
	typing, ok := bob.next(t).(event.TypingChanged)
	req.True(ok)
	req.Equal("alice", typing.UserID)
	req.True(typing.Typing)
	req.Equal("message-received", bob.next(t).Kind())

	// And alice only sees the checkpoint message, never her own indicator
	req.Equal("message-received", alice.next(t).Kind())

	// Nothing was persisted for the indicator
	req.Equal(1, service.MessageCount())
}

func TestChatService_UpdateStatus_Only_Touches_Known_Participants(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)
	req.NoError(service.Join(domain.NewParticipant("alice", "Alice"), newRecordingSink()))

	// Updating a registered participant sticks
	updated := domain.NewParticipant("alice", "Alice")
	updated.Muted = true
	updated.AudioEnabled = true
	service.UpdateStatus("alice", updated)

	users := service.OnlineUsers()
	req.Len(users, 1)
	req.True(users[0].Muted)
	req.True(users[0].AudioEnabled)

	// Updating an unknown id never creates a participant
	service.UpdateStatus("ghost", domain.NewParticipant("ghost", "Ghost"))
	req.Len(service.OnlineUsers(), 1)
}

func TestChatService_Reset_Clears_Log_And_Participants(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)

	req.NoError(service.Join(domain.NewParticipant("alice", "Alice"), newRecordingSink()))
	req.NoError(service.Send(domain.NewChatMessage("alice", "Alice", "hello")))

	service.Reset()

	req.Equal(0, service.MessageCount())
	req.Empty(service.OnlineUsers())
}

func TestChatService_BroadcastSystemMessage_Lands_In_The_Log(t *testing.T) {
	req := require.New(t)
	service := newChatTestService(t)

	req.NoError(service.BroadcastSystemMessage("maintenance at noon"))

	history := service.History(0)
	req.Len(history, 1)
	req.Equal(domain.MessageSystem, history[0].Kind)
	req.Equal(domain.SystemUserID, history[0].UserID)
	req.Equal("maintenance at noon", history[0].Content)
}
