// Package runtime handles participant registration, event fan-out, and
// worker supervision. It orchestrates delivery without containing business
// logic or domain rules.
package runtime

import (
	"board-lab/contract"
	"board-lab/domain/event"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Registry is one owner's participant directory and its fan-out path.
//
// Every registered participant gets a bounded delivery queue serviced by a
// dedicated pump goroutine, so a slow or stalled participant can throttle
// only itself: broadcasting is a non-blocking enqueue pass, and whoever
// cannot keep up is evicted after the pass completes. Per-owner delivery
// order is preserved because owners enqueue from within their own mutation
// path.
//
// Deliveries are best-effort, at-most-once per broadcast. The registry never
// synthesizes a "participant left" event on eviction; callers that need to
// announce departures do so explicitly.
type Registry struct {
	mu        sync.RWMutex
	log       *slog.Logger
	owner     string
	queueSize int
	timeout   time.Duration
	sessions  map[string]*delivery
}

type delivery struct {
	participantID string
	sink          contract.EventSink
	queue         chan event.DomainEvent
	done          chan struct{}
	stopOnce      sync.Once
	failed        atomic.Bool
}

func (d *delivery) stop() {
	d.stopOnce.Do(func() { close(d.done) })
}

func NewRegistry(log *slog.Logger, owner string, queueSize int, timeout time.Duration) *Registry {
	return &Registry{
		log:       log,
		owner:     owner,
		queueSize: queueSize,
		timeout:   timeout,
		sessions:  make(map[string]*delivery),
	}
}

// Register stores or replaces the notification handle for a participant.
// Replacing stops the previous pump so a reconnect never leaks a goroutine.
func (r *Registry) Register(participantID string, sink contract.EventSink) {
	d := &delivery{
		participantID: participantID,
		sink:          sink,
		queue:         make(chan event.DomainEvent, r.queueSize),
		done:          make(chan struct{}),
	}

	r.mu.Lock()
	if prev, ok := r.sessions[participantID]; ok {
		prev.stop()
	}
	r.sessions[participantID] = d
	r.mu.Unlock()

	go r.pump(d)
	r.log.Debug("Participant registered", "owner", r.owner, "participant", participantID)
}

// Unregister removes a participant unconditionally. Unknown ids are a no-op.
func (r *Registry) Unregister(participantID string) {
	r.mu.Lock()
	d, ok := r.sessions[participantID]
	if ok {
		delete(r.sessions, participantID)
	}
	r.mu.Unlock()

	if ok {
		d.stop()
		r.log.Debug("Participant unregistered", "owner", r.owner, "participant", participantID)
	}
}

// Broadcast delivers the event to every registered participant.
func (r *Registry) Broadcast(e event.DomainEvent) {
	r.BroadcastExcept(e, "")
}

// BroadcastExcept delivers the event to every registered participant except
// excludeID. Participants whose queue is already full are collected and
// evicted only after the full enqueue pass, so one of them never blocks
// delivery to the rest.
func (r *Registry) BroadcastExcept(e event.DomainEvent, excludeID string) {
	r.mu.RLock()
	targets := make([]*delivery, 0, len(r.sessions))
	for id, d := range r.sessions {
		if id != excludeID {
			targets = append(targets, d)
		}
	}
	r.mu.RUnlock()

	var stalled []*delivery
	for _, d := range targets {
		if d.failed.Load() {
			continue
		}
		select {
		case d.queue <- e:
		default:
			stalled = append(stalled, d)
		}
	}

	for _, d := range stalled {
		r.log.Warn("Participant cannot keep up, evicting",
			"owner", r.owner, "participant", d.participantID, "event", e.Kind())
		r.drop(d)
	}
}

// Send enqueues an event for a single participant, used for the initial
// state replay right after registration. A full queue that does not drain
// within the delivery timeout evicts the participant.
func (r *Registry) Send(participantID string, e event.DomainEvent) error {
	r.mu.RLock()
	d, ok := r.sessions[participantID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("participant %s is not registered", participantID)
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case d.queue <- e:
		return nil
	case <-d.done:
		return fmt.Errorf("participant %s is gone", participantID)
	case <-timer.C:
		r.drop(d)
		return fmt.Errorf("participant %s did not drain its queue in %s", participantID, r.timeout)
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops every pump and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	for id, d := range r.sessions {
		d.stop()
		delete(r.sessions, id)
	}
	r.mu.Unlock()
}

// pump drains one participant's queue sequentially. A delivery failure marks
// the participant unreachable and removes it; the fault never reaches the
// mutating caller or the other participants.
func (r *Registry) pump(d *delivery) {
	for {
		select {
		case <-d.done:
			return
		case e := <-d.queue:
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			err := d.sink.Consume(ctx, e)
			cancel()
			if err != nil {
				r.log.Warn("Participant unreachable, evicting",
					"owner", r.owner, "participant", d.participantID, "error", err)
				r.drop(d)
				return
			}
		}
	}
}

// drop removes exactly this delivery. A newer registration under the same
// id stays untouched.
func (r *Registry) drop(d *delivery) {
	d.failed.Store(true)
	d.stop()
	r.mu.Lock()
	if current, ok := r.sessions[d.participantID]; ok && current == d {
		delete(r.sessions, d.participantID)
	}
	r.mu.Unlock()
}
