package core

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/orrn/ticketspool/internal/pkg/clock"
)

// NativeDocument is an HTML receipt waiting for the browser to print it.
type NativeDocument struct {
	ID        string    `json:"id"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"createdAt"`
}

type nativeRequest struct {
	doc  NativeDocument
	done chan error
}

// NativeTransport hands HTML receipts to the browser UI. The UI polls
// Pending, opens each document, runs the print dialog and reports the
// outcome through Complete. Send blocks until then.
type NativeTransport struct {
	clock   clock.Clock
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*nativeRequest
}

// NewNativeTransport creates the hand-off. A zero timeout waits for the
// browser indefinitely.
func NewNativeTransport(clk clock.Clock, logger *slog.Logger, timeout time.Duration) *NativeTransport {
	return &NativeTransport{
		clock:   clk,
		logger:  logger.With("component", "native_transport"),
		timeout: timeout,
		pending: make(map[string]*nativeRequest),
	}
}

func (t *NativeTransport) Send(ctx context.Context, payload Payload) error {
	req := &nativeRequest{
		doc: NativeDocument{
			ID:        uuid.NewString(),
			HTML:      string(payload.Data),
			CreatedAt: t.clock.Now(),
		},
		done: make(chan error, 1),
	}

	t.mu.Lock()
	t.pending[req.doc.ID] = req
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, req.doc.ID)
		t.mu.Unlock()
	}()

	var timeout <-chan time.Time
	if t.timeout > 0 {
		timer := time.NewTimer(t.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-req.done:
		if err != nil {
			return deliveryError(err, "browser print")
		}
		return nil
	case <-ctx.Done():
		return deliveryError(ctx.Err(), "browser print")
	case <-timeout:
		t.logger.Warn("browser did not confirm print", "document", req.doc.ID, "timeout", t.timeout)
		return deliveryError(errors.Newf("no confirmation within %s", t.timeout), "browser print")
	}
}

// Pending lists documents waiting to be printed, oldest first.
func (t *NativeTransport) Pending() []NativeDocument {
	t.mu.Lock()
	docs := make([]NativeDocument, 0, len(t.pending))
	for _, req := range t.pending {
		docs = append(docs, req.doc)
	}
	t.mu.Unlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs
}

// Complete records the browser's outcome for document id. An empty failure
// means the print dialog finished.
func (t *NativeTransport) Complete(id, failure string) error {
	t.mu.Lock()
	req, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()

	if !ok {
		return ErrDocumentNotFound
	}
	if failure != "" {
		req.done <- errors.New(failure)
	} else {
		req.done <- nil
	}
	return nil
}
