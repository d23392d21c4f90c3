//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"board-lab/domain/event"
	"context"
	"reflect"
)

// EventSink is the notification handle bound to one registered participant.
// A returned error means the participant is unreachable and gets evicted.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// IBroadcaster is one owner's participant registry plus its fan-out path.
// Each of the three state owners keeps an independent one: a participant
// attached to chat is not automatically visible to the whiteboard.
type IBroadcaster interface {
	Register(participantID string, sink EventSink)
	Unregister(participantID string)
	Broadcast(e event.DomainEvent)
	BroadcastExcept(e event.DomainEvent, excludeID string)
	Send(participantID string, e event.DomainEvent) error
	Count() int
	Close()
}
