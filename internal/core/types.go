package core

import (
	"time"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeTakeout  OrderType = "takeout"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
)

type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Notes    string  `json:"notes,omitempty"`
	Category string  `json:"category,omitempty"`
}

// Order is the shape the order management app posts when a receipt is needed.
type Order struct {
	ID              string      `json:"id"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	Status          OrderStatus `json:"status"`
	Type            OrderType   `json:"type"`
	CustomerName    string      `json:"customerName,omitempty"`
	CustomerAddress string      `json:"customerAddress,omitempty"`
	CustomerPhone   string      `json:"customerPhone,omitempty"`
	TableNumber     string      `json:"tableNumber,omitempty"`
	EstimatedTime   int         `json:"estimatedTime,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt,omitempty"`
}

type ReceiptKind string

const (
	KitchenTicket   ReceiptKind = "kitchen-ticket"
	CustomerReceipt ReceiptKind = "customer-receipt"
)

func (k ReceiptKind) Valid() bool {
	switch k {
	case KitchenTicket, CustomerReceipt:
		return true
	}
	return false
}

type Transport string

const (
	TransportSerial Transport = "serial"
	TransportNative Transport = "native-browser"
)

type Vendor string

const (
	VendorEpson Vendor = "epson"
	VendorStar  Vendor = "star"
)

type CharacterSet string

const (
	CharsetPC437 CharacterSet = "pc437"
	CharsetPC850 CharacterSet = "pc850"
	CharsetPC860 CharacterSet = "pc860"
)

type PrinterConfig struct {
	Transport    Transport    `json:"transport"`
	Vendor       Vendor       `json:"vendor,omitempty"`
	Width        int          `json:"width"`
	Device       string       `json:"device,omitempty"`
	BaudRate     int          `json:"baudRate,omitempty"`
	CharacterSet CharacterSet `json:"characterSet,omitempty"`
}

// Payload is what a transport delivers. The queue never looks inside Data.
type Payload struct {
	Transport   Transport `json:"transport"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"-"`
}

func (p Payload) clone() Payload {
	p.Data = append([]byte(nil), p.Data...)
	return p
}

type JobState string

const (
	JobPending   JobState = "pending"
	JobSending   JobState = "sending"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

type Job struct {
	ID            string
	Kind          ReceiptKind
	OrderID       string
	Payload       Payload
	CreatedAt     time.Time
	State         JobState
	RetryCount    int
	LastError     string
	NextAttemptAt time.Time
}

type QueueStatus struct {
	Jobs         []Job
	IsProcessing bool
}

type ConnState string

const (
	StateDisconnected  ConnState = "disconnected"
	StateConnecting    ConnState = "connecting"
	StateConnected     ConnState = "connected"
	StateDisconnecting ConnState = "disconnecting"
)

type ConnectionState struct {
	State     ConnState `json:"state"`
	Connected bool      `json:"connected"`
	Ready     bool      `json:"ready"`
	Device    string    `json:"device,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

type StatusEvent string

const (
	EventConnected        StatusEvent = "connected"
	EventDisconnected     StatusEvent = "disconnected"
	EventConnectionFailed StatusEvent = "connection_failed"
	EventJobQueued        StatusEvent = "job_queued"
	EventJobCompleted     StatusEvent = "job_completed"
	EventJobRetrying      StatusEvent = "job_retrying"
	EventJobFailed        StatusEvent = "job_failed"
	EventQueueCleared     StatusEvent = "queue_cleared"
)

// Status is the snapshot handed to every observer listener.
type Status struct {
	Event     StatusEvent `json:"event"`
	Connected bool        `json:"connected"`
	Ready     bool        `json:"ready"`
	Error     string      `json:"error,omitempty"`
	JobID     string      `json:"jobId,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
