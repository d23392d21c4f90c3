package services

import (
	"board-lab/contract"
	"board-lab/domain"
	"board-lab/domain/event"
	boarderrors "board-lab/errors"
	"board-lab/repositories"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WhiteboardService owns the single authoritative drawing log.
//
// The log is an ordered, capacity-bounded sequence of immutable actions;
// its order is the visual stacking order, so replaying it from empty
// reproduces the canvas. Mutations serialize on the owner's lock and
// broadcasts are enqueued while the lock is held, which keeps the delivery
// order identical to the log order.
type WhiteboardService struct {
	mu         sync.Mutex
	log        *slog.Logger
	registry   contract.IBroadcaster
	snapshots  *repositories.SnapshotRepository
	actions    []domain.DrawingAction
	maxActions int
}

func NewWhiteboardService(
	log *slog.Logger,
	registry contract.IBroadcaster,
	snapshots *repositories.SnapshotRepository,
	maxActions int,
) *WhiteboardService {
	return &WhiteboardService{
		log:        log,
		registry:   registry,
		snapshots:  snapshots,
		maxActions: maxActions,
	}
}

// AddAction validates the action, stamps a server timestamp if the caller
// omitted one, appends it to the log and broadcasts it to every registered
// participant. The author replays it too, keeping client and server logs
// pixel-identical. Exceeding capacity evicts the oldest entry rather than
// rejecting the mutation.
func (s *WhiteboardService) AddAction(action *domain.DrawingAction) error {
	if action == nil {
		return boarderrors.ErrNilAction
	}
	if err := validate.Struct(action); err != nil {
		return fmt.Errorf("invalid drawing action: %w", err)
	}
	if action.At.IsZero() {
		action.At = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = append(s.actions, *action)
	if len(s.actions) > s.maxActions {
		s.actions = s.actions[1:]
	}

	s.log.Debug("Drawing action added", "kind", action.Kind, "by", action.UserID)
	s.registry.Broadcast(event.ActionAdded{Action: *action})
	return nil
}

// Clear empties the log. Destructive: no undo of a clear is possible.
func (s *WhiteboardService) Clear(userID string) error {
	if userID == "" {
		return boarderrors.ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = nil
	s.log.Info("Whiteboard cleared", "by", userID)
	s.registry.Broadcast(event.WhiteboardCleared{By: userID})
	return nil
}

// UndoLast removes exactly the most recently appended action, whoever drew
// it. On an empty log it is a silent no-op that still broadcasts the undo
// event so every client stays in step.
func (s *WhiteboardService) UndoLast(userID string) error {
	if userID == "" {
		return boarderrors.ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.actions); n > 0 {
		removed := s.actions[n-1]
		s.actions = s.actions[:n-1]
		s.log.Info("Undo performed", "by", userID, "removed", removed.Kind)
	}
	s.registry.Broadcast(event.UndoPerformed{By: userID})
	return nil
}

// Actions returns a snapshot copy of the current log, used to seed a newly
// joining participant.
func (s *WhiteboardService) Actions() []domain.DrawingAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]domain.DrawingAction, len(s.actions))
	copy(snapshot, s.actions)
	return snapshot
}

// Register binds a participant's notification handle and replays the current
// log to it, one action-added event per entry. A participant that cannot
// take the replay is evicted immediately.
func (s *WhiteboardService) Register(participantID string, sink contract.EventSink) error {
	if participantID == "" {
		return boarderrors.ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.Register(participantID, sink)
	for _, action := range s.actions {
		if err := s.registry.Send(participantID, event.ActionAdded{Action: action}); err != nil {
			s.log.Warn("Failed to replay board state to new participant",
				"participant", participantID, "error", err)
			s.registry.Unregister(participantID)
			return err
		}
	}

	s.log.Info("Participant registered for whiteboard updates",
		"participant", participantID, "total", s.registry.Count())
	return nil
}

func (s *WhiteboardService) Unregister(participantID string) {
	s.registry.Unregister(participantID)
}

// Save serializes the whole log plus a save timestamp and the saving
// participant into the named slot. An I/O failure is reported to the caller
// and leaves both the in-memory log and any prior slot content untouched.
func (s *WhiteboardService) Save(name, userID string) error {
	if name == "" {
		return boarderrors.ErrEmptyName
	}
	if userID == "" {
		return boarderrors.ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := repositories.WhiteboardSnapshot{
		Actions: append([]domain.DrawingAction(nil), s.actions...),
		SavedAt: time.Now().UTC(),
		SavedBy: userID,
	}
	if err := s.snapshots.Save(name, snapshot); err != nil {
		s.log.Error("Failed to save whiteboard", "slot", name, "error", err)
		return err
	}

	s.registry.Broadcast(event.ServerNotification{
		Text: fmt.Sprintf("Whiteboard saved as '%s' by %s", name, userID),
	})
	return nil
}

// Load replaces the in-memory log wholesale with the named snapshot, then
// rebuilds every remote canvas incrementally: one cleared event followed by
// one action-added event per loaded action, then a notification. Loading a
// nonexistent name fails without mutating state.
func (s *WhiteboardService) Load(name, userID string) error {
	if name == "" {
		return boarderrors.ErrEmptyName
	}
	if userID == "" {
		return boarderrors.ErrEmptyUserID
	}

	snapshot, err := s.snapshots.Load(name)
	if err != nil {
		s.log.Error("Failed to load whiteboard", "slot", name, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = append([]domain.DrawingAction(nil), snapshot.Actions...)
	s.log.Info("Whiteboard loaded", "slot", name, "by", userID, "actions", len(s.actions))

	s.registry.Broadcast(event.WhiteboardCleared{By: userID})
	for _, action := range s.actions {
		s.registry.Broadcast(event.ActionAdded{Action: action})
	}
	s.registry.Broadcast(event.ServerNotification{
		Text: fmt.Sprintf("Whiteboard '%s' loaded by %s", name, userID),
	})
	return nil
}

func (s *WhiteboardService) ClientCount() int {
	return s.registry.Count()
}

func (s *WhiteboardService) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"board_actions":      len(s.actions),
		"board_participants": s.registry.Count(),
	}
}

// Shutdown notifies every participant and drops the registry.
func (s *WhiteboardService) Shutdown() {
	s.registry.Broadcast(event.ServerNotification{Text: "Server is shutting down..."})
	s.registry.Close()
	s.log.Info("Whiteboard owner stopped")
}
