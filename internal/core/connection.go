package core

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.bug.st/serial"
)

const defaultConnectTimeout = 10 * time.Second

// Port is the part of an open serial device the manager uses.
type Port interface {
	io.Writer
	io.Closer
}

type PortOpener func(device string, baudRate int) (Port, error)

type PortLister func() ([]string, error)

// OpenSerialPort opens device as 8N1 at baudRate.
func OpenSerialPort(device string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(device, mode)
}

func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

type ConnectionOptions struct {
	Open           PortOpener
	List           PortLister
	ConnectTimeout time.Duration
}

// ConnectionManager owns the serial printer handle. Only the print queue
// writes through it.
type ConnectionManager struct {
	configs  ConfigSource
	observer *StatusObserver
	logger   *slog.Logger
	open     PortOpener
	list     PortLister
	timeout  time.Duration

	// opMu serializes connect, disconnect and send.
	opMu sync.Mutex

	mu        sync.RWMutex
	state     ConnState
	ready     bool
	device    string
	lastError string
	port      Port
}

func NewConnectionManager(configs ConfigSource, observer *StatusObserver, logger *slog.Logger, opts ConnectionOptions) *ConnectionManager {
	if opts.Open == nil {
		opts.Open = OpenSerialPort
	}
	if opts.List == nil {
		opts.List = ListSerialPorts
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	return &ConnectionManager{
		configs:  configs,
		observer: observer,
		logger:   logger.With("component", "connection"),
		open:     opts.Open,
		list:     opts.List,
		timeout:  opts.ConnectTimeout,
		state:    StateDisconnected,
	}
}

func (m *ConnectionManager) State() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot()
}

func (m *ConnectionManager) snapshot() ConnectionState {
	return ConnectionState{
		State:     m.state,
		Connected: m.state == StateConnected,
		Ready:     m.ready,
		Device:    m.device,
		LastError: m.lastError,
	}
}

func (m *ConnectionManager) Ports() ([]string, error) {
	ports, err := m.list()
	if err != nil {
		return nil, connectionError(err, "list serial ports")
	}
	return ports, nil
}

// Connect opens the configured serial device. Calling it while connected
// returns the current state without touching the device.
func (m *ConnectionManager) Connect(ctx context.Context) (ConnectionState, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if st := m.State(); st.Connected {
		return st, nil
	}

	cfg := m.configs.Get()
	if cfg.Transport != TransportSerial {
		return m.State(), errors.Mark(
			errors.Newf("transport %q does not use a device connection", cfg.Transport), ErrConnection)
	}

	m.setState(StateConnecting)

	device := cfg.Device
	if device == "" {
		ports, err := m.list()
		if err == nil && len(ports) == 0 {
			err = ErrNoSerialPort
		}
		if err != nil {
			return m.fail(connectionError(err, "detect serial port"))
		}
		device = ports[0]
	}

	port, err := m.openWithTimeout(ctx, device, cfg.BaudRate)
	if err != nil {
		return m.fail(connectionError(err, "open %s", device))
	}

	m.mu.Lock()
	m.port = port
	m.device = device
	m.state = StateConnected
	m.ready = true
	m.lastError = ""
	m.mu.Unlock()

	m.logger.Info("printer connected", "device", device, "baud_rate", cfg.BaudRate)
	m.observer.Update(EventConnected, func(s *Status) {
		s.Connected = true
		s.Ready = true
		s.Error = ""
	})
	return m.State(), nil
}

func (m *ConnectionManager) openWithTimeout(ctx context.Context, device string, baudRate int) (Port, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type result struct {
		port Port
		err  error
	}
	done := make(chan result, 1)
	go func() {
		port, err := m.open(device, baudRate)
		done <- result{port, err}
	}()

	select {
	case res := <-done:
		return res.port, res.err
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil {
				_ = res.port.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (m *ConnectionManager) fail(err error) (ConnectionState, error) {
	m.mu.Lock()
	m.port = nil
	m.state = StateDisconnected
	m.ready = false
	m.lastError = err.Error()
	m.mu.Unlock()

	m.logger.Warn("printer connection failed", "error", err)
	m.observer.Update(EventConnectionFailed, func(s *Status) {
		s.Connected = false
		s.Ready = false
		s.Error = err.Error()
	})
	return m.State(), err
}

// Disconnect closes the device if one is open. Close failures are logged
// and the manager always ends up disconnected.
func (m *ConnectionManager) Disconnect(ctx context.Context) ConnectionState {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	port := m.port
	if port == nil && m.state == StateDisconnected {
		m.mu.Unlock()
		return m.State()
	}
	m.state = StateDisconnecting
	m.mu.Unlock()

	if port != nil {
		if err := port.Close(); err != nil {
			m.logger.Warn("error closing printer port", "device", m.device, "error", err)
		}
	}

	m.mu.Lock()
	m.port = nil
	m.state = StateDisconnected
	m.ready = false
	m.mu.Unlock()

	m.logger.Info("printer disconnected")
	m.observer.Update(EventDisconnected, func(s *Status) {
		s.Connected = false
		s.Ready = false
	})
	return m.State()
}

// Send writes payload bytes to the open device. A failed write drops the
// connection so the operator sees it and can reconnect.
func (m *ConnectionManager) Send(ctx context.Context, payload Payload) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return deliveryError(err, "send cancelled")
	}

	m.mu.RLock()
	port, state := m.port, m.state
	m.mu.RUnlock()
	if port == nil || state != StateConnected {
		return deliveryError(ErrNotConnected, "send to printer")
	}

	if _, err := port.Write(payload.Data); err != nil {
		_ = port.Close()
		m.fail(connectionError(err, "write to %s", m.device))
		return deliveryError(err, "write to printer")
	}
	return nil
}

func (m *ConnectionManager) setState(state ConnState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}
