package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/ticketspool/internal/config"
	"github.com/orrn/ticketspool/internal/core"
	"github.com/orrn/ticketspool/internal/pkg/clock"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type receiver struct {
	mu       sync.Mutex
	payloads []WebhookPayload
	headers  []http.Header
}

func (r *receiver) handler(status func(n int) int) http.HandlerFunc {
	var calls int32
	return func(w http.ResponseWriter, req *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		var p WebhookPayload
		_ = json.NewDecoder(req.Body).Decode(&p)

		r.mu.Lock()
		r.payloads = append(r.payloads, p)
		r.headers = append(r.headers, req.Header.Clone())
		r.mu.Unlock()

		w.WriteHeader(status(n))
	}
}

func (r *receiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func ok(int) int { return http.StatusOK }

func newSender(t *testing.T, endpoints ...config.WebhookEndpoint) *WebhookSender {
	t.Helper()
	s := NewWebhookSender(endpoints, WebhookConfig{
		RetryCount: 3,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	}, testLogger())
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestWebhookSender_DeliversSignedPayload(t *testing.T) {
	rcv := &receiver{}
	srv := httptest.NewServer(rcv.handler(ok))
	defer srv.Close()

	s := newSender(t, config.WebhookEndpoint{URL: srv.URL, Secret: "s3cret"})
	status := core.Status{Event: core.EventJobFailed, JobID: "job-1", Error: "paper out", UpdatedAt: testNow}
	s.Notify(status)

	require.Eventually(t, func() bool { return rcv.count() == 1 }, time.Second, 5*time.Millisecond)

	rcv.mu.Lock()
	defer rcv.mu.Unlock()
	got := rcv.payloads[0]
	assert.Equal(t, "job_failed", got.Event)
	assert.Equal(t, "job-1", got.Data.JobID)
	assert.True(t, got.Timestamp.Equal(testNow))

	data, err := json.Marshal(status)
	require.NoError(t, err)
	want := signPayload(data, "s3cret")
	assert.Equal(t, want, got.Signature)
	assert.Equal(t, want, rcv.headers[0].Get("X-Webhook-Signature"))
	assert.Equal(t, "job_failed", rcv.headers[0].Get("X-Webhook-Event"))
}

func TestWebhookSender_FiltersEvents(t *testing.T) {
	failures := &receiver{}
	failSrv := httptest.NewServer(failures.handler(ok))
	defer failSrv.Close()
	everything := &receiver{}
	allSrv := httptest.NewServer(everything.handler(ok))
	defer allSrv.Close()

	s := newSender(t,
		config.WebhookEndpoint{URL: failSrv.URL, Events: []string{"job_failed"}},
		config.WebhookEndpoint{URL: allSrv.URL, Events: []string{"*"}},
	)
	s.Notify(core.Status{Event: core.EventJobQueued})
	s.Notify(core.Status{Event: core.EventJobFailed})

	require.Eventually(t, func() bool { return everything.count() == 2 && failures.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "job_failed", failures.payloads[0].Event)
}

func TestWebhookSender_RetriesServerErrors(t *testing.T) {
	rcv := &receiver{}
	srv := httptest.NewServer(rcv.handler(func(n int) int {
		if n < 3 {
			return http.StatusBadGateway
		}
		return http.StatusOK
	}))
	defer srv.Close()

	s := newSender(t, config.WebhookEndpoint{URL: srv.URL})
	s.Notify(core.Status{Event: core.EventDisconnected})

	require.Eventually(t, func() bool { return rcv.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return rcv.count() > 3 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestWebhookSender_DoesNotRetryClientErrors(t *testing.T) {
	rcv := &receiver{}
	srv := httptest.NewServer(rcv.handler(func(int) int { return http.StatusUnauthorized }))
	defer srv.Close()

	s := newSender(t, config.WebhookEndpoint{URL: srv.URL})
	s.Notify(core.Status{Event: core.EventDisconnected})

	require.Eventually(t, func() bool { return rcv.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return rcv.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestWebhookSender_AttachForwardsObserverUpdates(t *testing.T) {
	rcv := &receiver{}
	srv := httptest.NewServer(rcv.handler(ok))
	defer srv.Close()

	s := newSender(t, config.WebhookEndpoint{URL: srv.URL})
	observer := core.NewStatusObserver(clock.NewMockClock(testNow), testLogger())
	detach := s.Attach(observer)

	observer.Update(core.EventConnected, func(st *core.Status) { st.Connected = true })
	require.Eventually(t, func() bool { return rcv.count() == 1 }, time.Second, 5*time.Millisecond)

	detach()
	observer.Update(core.EventDisconnected, nil)
	assert.Never(t, func() bool { return rcv.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	rcv.mu.Lock()
	defer rcv.mu.Unlock()
	assert.True(t, rcv.payloads[0].Data.Connected)
}

func TestSubscribed(t *testing.T) {
	assert.True(t, subscribed(config.WebhookEndpoint{}, "job_failed"))
	assert.True(t, subscribed(config.WebhookEndpoint{Events: []string{"*"}}, "connected"))
	assert.True(t, subscribed(config.WebhookEndpoint{Events: []string{"connected", "job_failed"}}, "job_failed"))
	assert.False(t, subscribed(config.WebhookEndpoint{Events: []string{"connected"}}, "job_failed"))
}
