package core

import (
	"log/slog"
	"sync"

	"github.com/orrn/ticketspool/internal/pkg/clock"
)

type StatusListener func(Status)

type subscription struct {
	id       uint64
	listener StatusListener
}

// StatusObserver fans status snapshots out to subscribers. Delivery is
// synchronous and follows registration order. Listeners must not call Update.
type StatusObserver struct {
	clock  clock.Clock
	logger *slog.Logger

	mu        sync.Mutex
	status    Status
	listeners []subscription
	nextID    uint64

	// deliverMu keeps snapshots reaching listeners in the order they were made.
	deliverMu sync.Mutex
}

func NewStatusObserver(clk clock.Clock, logger *slog.Logger) *StatusObserver {
	return &StatusObserver{
		clock:  clk,
		logger: logger.With("component", "status_observer"),
	}
}

// Subscribe registers listener and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (o *StatusObserver) Subscribe(listener StatusListener) func() {
	o.mu.Lock()
	o.nextID++
	id := o.nextID
	o.listeners = append(o.listeners, subscription{id: id, listener: listener})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, sub := range o.listeners {
				if sub.id == id {
					o.listeners = append(o.listeners[:i:i], o.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (o *StatusObserver) Current() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Update applies mutate to the shared status and delivers the resulting
// snapshot to every listener registered at that moment.
func (o *StatusObserver) Update(event StatusEvent, mutate func(*Status)) {
	o.deliverMu.Lock()
	defer o.deliverMu.Unlock()

	o.mu.Lock()
	next := o.status
	next.JobID = ""
	if mutate != nil {
		mutate(&next)
	}
	next.Event = event
	next.UpdatedAt = o.clock.Now()
	o.status = next
	listeners := make([]subscription, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, sub := range listeners {
		o.deliver(sub, next)
	}
}

func (o *StatusObserver) deliver(sub subscription, status Status) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("status listener panicked", "listener", sub.id, "event", status.Event, "panic", r)
		}
	}()
	sub.listener(status)
}
