package services

import (
	"board-lab/domain"
	"board-lab/domain/event"
	boarderrors "board-lab/errors"
	"board-lab/repositories"
	"board-lab/runtime"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events chan event.DomainEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(chan event.DomainEvent, 128)}
}

func (s *recordingSink) Consume(ctx context.Context, e event.DomainEvent) error {
	s.events <- e
	return nil
}

func (s *recordingSink) next(t *testing.T) event.DomainEvent {
	t.Helper()
	select {
	case e := <-s.events:
		return e
	case <-time.After(1 * time.Second):
		t.Fatal("No event delivered at time")
		return nil
	}
}

func newBoardService(t *testing.T, maxActions int) *WhiteboardService {
	t.Helper()
	log := slog.Default()
	snapshots, err := repositories.NewSnapshotRepository(t.TempDir(), log)
	require.NoError(t, err)
	registry := runtime.NewRegistry(log, "board", 128, 1*time.Second)
	t.Cleanup(registry.Close)
	return NewWhiteboardService(log, registry, snapshots, maxActions)
}

func lineAction(userID string, x int) domain.DrawingAction {
	return domain.NewDrawingAction(
		domain.ActionLine,
		[]domain.Point{{X: x, Y: 0}, {X: x, Y: 10}},
		domain.Color{R: 255},
		2,
		userID,
	)
}

func TestWhiteboardService_AddAction_Appends_And_Broadcasts_In_Order(t *testing.T) {
	req := require.New(t)
	service := newBoardService(t, 100)
	sink := newRecordingSink()
	req.NoError(service.Register("alice", sink))

	// When three actions are added
	first := lineAction("alice", 1)
	second := lineAction("alice", 2)
	third := lineAction("bob", 3)
	req.NoError(service.AddAction(&first))
	req.NoError(service.AddAction(&second))
	req.NoError(service.AddAction(&third))

	// Then the log holds them in submission order
	actions := service.Actions()
	req.Len(actions, 3)
	req.Equal(first, actions[0])
	req.Equal(second, actions[1])
	req.Equal(third, actions[2])

	// And the author replays them in the same order
	req.Equal(event.ActionAdded{Action: first}, sink.next(t))
	req.Equal(event.ActionAdded{Action: second}, sink.next(t))
	req.Equal(event.ActionAdded{Action: third}, sink.next(t))
}

func TestWhiteboardService_AddAction_Over_Capacity_Evicts_The_Oldest(t *testing.T) {
	req := require.New(t)
	service := newBoardService(t, 3)

	for i := 1; i <= 4; i++ {
		action := lineAction("alice", i)
		req.NoError(service.AddAction(&action))
	}

	// Then the first action is gone and order is preserved
	actions := service.Actions()
	req.Len(actions, 3)
	req.Equal(2, actions[0].Points[0].X)
	req.Equal(4, actions[2].Points[0].X)
}

func TestWhiteboardService_AddAction_Rejects_Invalid_Input(t *testing.T) {
	req := require.New(t)
	service := newBoardService(t, 10)

	req.ErrorIs(service.AddAction(nil), boarderrors.ErrNilAction)

	// Missing points
	invalid := domain.DrawingAction{Kind: domain.ActionLine, StrokeWidth: 1, UserID: "alice"}
	req.Error(service.AddAction(&invalid))

	// Unknown kind
	invalid = lineAction("alice", 1)
	invalid.Kind = "scribble"
	req.Error(service.AddAction(&invalid))

	req.Empty(service.Actions())
}

func TestWhiteboardService_UndoLast_Removes_The_Most_Recent_Action(t *testing.T) {
	req := require.New(t)
	service := newBoardService(t, 10)

	first := lineAction("alice", 1)
	second := lineAction("bob", 2)
	req.NoError(service.AddAction(&first))
	req.NoError(service.AddAction(&second))

	// When anyone undoes, whoever drew last loses their action
	req.NoError(service.UndoLast("alice"))

	actions := service.Actions()
	req.Len(actions, 1)
	req.Equal(first, actions[0])
}

func TestWhiteboardService_UndoLast_On_Empty_Board_Still_Broadcasts(t *testing.T) {
	req := require.New(t)
	service := newBoardService(t, 10)
	sink := newRecordingSink()
	req.NoError(service.Register("alice", sink))

	// When undo hits an empty board
	req.NoError(service.UndoLast("alice"))

	// Then the log stays empty but every client still hears about it
	req.Empty(service.Actions())
	req.Equal(event.UndoPerformed{By: "alice"}, sink.next(t))
}

func TestWhiteboardService_Clear_Empties_The_Board(t *testing.T) {
	req := require.New(t)
	service := newBoardService(t, 10)
	sink := newRecordingSink()
	req.NoError(service.Register("alice", sink))

	action := lineAction("alice", 1)
	req.NoError(service.AddAction(&action))
	req.NoError(service.Clear("bob"))

	req.Empty(service.Actions())
	req.Equal("action-added", sink.next(t).Kind())
	req.Equal(event.WhiteboardCleared{By: "bob"}, sink.next(t))

	req.ErrorIs(service.Clear(""), boarderrors.ErrEmptyUserID)
}

func TestWhiteboardService_Register_Replays_The_Current_Log(t *testing.T) {
	req := require.New(t)
	service := newBoardService(t, 10)

	first := lineAction("alice", 1)
	second := lineAction("alice", 2)
	req.NoError(service.AddAction(&first))
	req.NoError(service.AddAction(&second))

	// When a participant joins late
	sink := newRecordingSink()
	req.NoError(service.Register("bob", sink))

	// Then it receives the whole log, one action at a time, in order
	req.Equal(event.ActionAdded{Action: first}, sink.next(t))
	req.Equal(event.ActionAdded{Action: second}, sink.next(t))
	req.Equal(1, service.ClientCount())
}

func TestWhiteboardService_Save_And_Load_Round_Trip(t *testing.T) {
	req := require.New(t)
	service := newBoardService(t, 10)

	first := lineAction("alice", 1)
	second := lineAction("bob", 2)
	req.NoError(service.AddAction(&first))
	req.NoError(service.AddAction(&second))

	// Given a saved board that is then cleared
	req.NoError(service.Save("standup", "alice"))
	req.NoError(service.Clear("alice"))
	req.Empty(service.Actions())

	// When a late participant watches the load
	sink := newRecordingSink()
	req.NoError(service.Register("carol", sink))
	req.NoError(service.Load("standup", "bob"))

	// Then the log is restored
	actions := service.Actions()
	req.Len(actions, 2)
	req.Equal(first, actions[0])
	req.Equal(second, actions[1])

	// And the remote canvas is rebuilt incrementally
	req.Equal(event.WhiteboardCleared{By: "bob"}, sink.next(t))
	req.Equal(event.ActionAdded{Action: first}, sink.next(t))
	req.Equal(event.ActionAdded{Action: second}, sink.next(t))
	req.Equal("server-notification", sink.next(t).Kind())
}

func TestWhiteboardService_Load_Unknown_Slot_Leaves_State_Untouched(t *testing.T) {
	req := require.New(t)
	service := newBoardService(t, 10)

	action := lineAction("alice", 1)
	req.NoError(service.AddAction(&action))

	err := service.Load("never-saved", "alice")
	req.ErrorIs(err, boarderrors.ErrSnapshotNotFound)
	req.Len(service.Actions(), 1)
}
