package db

import (
	"time"
)

// PrintJob is the history row written when a job leaves the queue.
type PrintJob struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	Kind         string    `json:"kind"`
	Transport    string    `json:"transport"`
	Status       string    `json:"status"`
	RetryCount   int       `json:"retry_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

type JobFilter struct {
	Status  string
	OrderID string
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

type PrintCounter struct {
	Date      time.Time `json:"date"`
	Completed int64     `json:"completed"`
	Failed    int64     `json:"failed"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Encrypted bool      `json:"encrypted"`
	UpdatedAt time.Time `json:"updated_at"`
}
