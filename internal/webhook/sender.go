package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/orrn/ticketspool/internal/config"
	"github.com/orrn/ticketspool/internal/core"
)

type WebhookPayload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      core.Status `json:"data"`
	Signature string      `json:"signature,omitempty"`
}

type WebhookConfig struct {
	RetryCount  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	WorkerCount int
	QueueSize   int
}

type webhookTask struct {
	endpoint config.WebhookEndpoint
	payload  *WebhookPayload
	attempt  int
}

// errClient marks 4xx responses, which are not retried.
var errClient = errors.New("webhook rejected by receiver")

// WebhookSender forwards printer status changes to the configured HTTP
// endpoints. Deliveries run on background workers.
type WebhookSender struct {
	endpoints   []config.WebhookEndpoint
	httpClient  *http.Client
	logger      *slog.Logger
	retryCount  int
	retryDelay  time.Duration
	workerCount int
	queue       chan *webhookTask
	stopCh      chan struct{}
	wg          sync.WaitGroup
	stopOnce    sync.Once
}

func NewWebhookSender(endpoints []config.WebhookEndpoint, cfg WebhookConfig, logger *slog.Logger) *WebhookSender {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	return &WebhookSender{
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:      logger.With("component", "webhook"),
		retryCount:  cfg.RetryCount,
		retryDelay:  cfg.RetryDelay,
		workerCount: cfg.WorkerCount,
		queue:       make(chan *webhookTask, cfg.QueueSize),
		stopCh:      make(chan struct{}),
	}
}

func (s *WebhookSender) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *WebhookSender) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// Attach subscribes the sender to observer and returns the unsubscribe func.
func (s *WebhookSender) Attach(observer *core.StatusObserver) func() {
	return observer.Subscribe(s.Notify)
}

// Notify queues status for every endpoint subscribed to its event. It never
// blocks; when the queue is full the delivery is dropped and logged.
func (s *WebhookSender) Notify(status core.Status) {
	for _, ep := range s.endpoints {
		if !subscribed(ep, string(status.Event)) {
			continue
		}

		task := &webhookTask{
			endpoint: ep,
			payload: &WebhookPayload{
				Event:     string(status.Event),
				Timestamp: status.UpdatedAt,
				Data:      status,
			},
		}

		select {
		case s.queue <- task:
		default:
			s.logger.Warn("webhook queue full, dropping delivery", "url", ep.URL, "event", status.Event)
		}
	}
}

func subscribed(ep config.WebhookEndpoint, event string) bool {
	if len(ep.Events) == 0 {
		return true
	}
	for _, e := range ep.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

func (s *WebhookSender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case task := <-s.queue:
			if err := s.sendWithRetry(task); err != nil {
				s.logger.Warn("webhook delivery failed",
					"worker", id,
					"url", task.endpoint.URL,
					"event", task.payload.Event,
					"attempts", task.attempt,
					"error", err)
			}
		}
	}
}

func (s *WebhookSender) sendWithRetry(task *webhookTask) error {
	var lastErr error
	for task.attempt < s.retryCount {
		task.attempt++

		err := s.sendRequest(task.endpoint, task.payload)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, errClient) {
			return err
		}

		if task.attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(task.attempt-1))
			s.logger.Debug("retrying webhook", "url", task.endpoint.URL, "attempt", task.attempt, "backoff", backoff, "error", err)

			select {
			case <-s.stopCh:
				return errors.New("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}

	return errors.Wrap(lastErr, "max retries exceeded")
}

func (s *WebhookSender) sendRequest(ep config.WebhookEndpoint, payload *WebhookPayload) error {
	dataBytes, err := json.Marshal(payload.Data)
	if err != nil {
		return errors.Wrap(err, "marshal data")
	}

	if ep.Secret != "" {
		payload.Signature = signPayload(dataBytes, ep.Secret)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", payload.Event)
	if payload.Signature != "" {
		req.Header.Set("X-Webhook-Signature", payload.Signature)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("http error: %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return errors.Mark(fmt.Errorf("http error: %d", resp.StatusCode), errClient)
	}
	return nil
}

func signPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
