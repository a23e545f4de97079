package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orrn/ticketspool/internal/pkg/clock"
)

func TestStatusObserver_DeliversInRegistrationOrder(t *testing.T) {
	o := NewStatusObserver(clock.NewMockClock(testNow), testLogger())

	var calls []string
	o.Subscribe(func(Status) { calls = append(calls, "first") })
	o.Subscribe(func(Status) { calls = append(calls, "second") })
	o.Subscribe(func(Status) { calls = append(calls, "third") })

	o.Update(EventConnected, nil)
	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestStatusObserver_Snapshot(t *testing.T) {
	clk := clock.NewMockClock(testNow)
	o := NewStatusObserver(clk, testLogger())
	events := watch(o)

	o.Update(EventConnected, func(s *Status) {
		s.Connected = true
		s.Ready = true
	})
	clk.Add(time.Second)
	o.Update(EventJobQueued, func(s *Status) { s.JobID = "job-1" })
	clk.Add(time.Second)
	o.Update(EventQueueCleared, nil)

	got := events.all()
	assert.Len(t, got, 3)
	assert.Equal(t, Status{Event: EventJobQueued, Connected: true, Ready: true, JobID: "job-1", UpdatedAt: testNow.Add(time.Second)}, got[1])
	assert.Equal(t, Status{Event: EventQueueCleared, Connected: true, Ready: true, UpdatedAt: testNow.Add(2 * time.Second)}, got[2])
	assert.Equal(t, got[2], o.Current())
}

func TestStatusObserver_Unsubscribe(t *testing.T) {
	o := NewStatusObserver(clock.NewMockClock(testNow), testLogger())

	var kept, removed int
	o.Subscribe(func(Status) { kept++ })
	unsubscribe := o.Subscribe(func(Status) { removed++ })

	o.Update(EventConnected, nil)
	unsubscribe()
	unsubscribe()
	o.Update(EventDisconnected, nil)

	assert.Equal(t, 2, kept)
	assert.Equal(t, 1, removed)
}

func TestStatusObserver_PanickingListenerDoesNotStopOthers(t *testing.T) {
	o := NewStatusObserver(clock.NewMockClock(testNow), testLogger())

	var got []StatusEvent
	o.Subscribe(func(Status) { panic("listener bug") })
	o.Subscribe(func(s Status) { got = append(got, s.Event) })

	assert.NotPanics(t, func() {
		o.Update(EventConnected, nil)
		o.Update(EventDisconnected, nil)
	})
	assert.Equal(t, []StatusEvent{EventConnected, EventDisconnected}, got)
}
