package core

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/orrn/ticketspool/internal/db"
)

var testNow = time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleOrder() Order {
	return Order{
		ID: "ord-000abc123",
		Items: []OrderItem{
			{ID: "1", Name: "Burger", Quantity: 2, Price: 12.5},
			{ID: "2", Name: "Fries", Quantity: 1, Price: 6, Notes: "no salt"},
		},
		Total:       31,
		Status:      OrderStatusPreparing,
		Type:        OrderTypeDineIn,
		TableNumber: "7",
		CreatedAt:   testNow.Add(-5 * time.Minute),
	}
}

type staticConfig struct {
	mu  sync.Mutex
	cfg PrinterConfig
}

func (s *staticConfig) Get() PrinterConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *staticConfig) set(cfg PrinterConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]string)}
}

func (f *fakeSettings) GetSetting(_ context.Context, key string) (*db.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &db.Setting{Key: key, Value: v}, nil
}

func (f *fakeSettings) SetSetting(_ context.Context, key, value string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

// eventLog records every snapshot an observer delivers.
type eventLog struct {
	mu     sync.Mutex
	events []Status
}

func watch(o *StatusObserver) *eventLog {
	l := &eventLog{}
	o.Subscribe(func(s Status) {
		l.mu.Lock()
		l.events = append(l.events, s)
		l.mu.Unlock()
	})
	return l
}

func (l *eventLog) all() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Status(nil), l.events...)
}

func (l *eventLog) names() []StatusEvent {
	var names []StatusEvent
	for _, s := range l.all() {
		names = append(names, s.Event)
	}
	return names
}

func (l *eventLog) last(event StatusEvent) (Status, bool) {
	events := l.all()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Event == event {
			return events[i], true
		}
	}
	return Status{}, false
}

var errBoom = errors.New("boom")
