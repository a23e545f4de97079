package core

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error kinds. Every error leaving this package is marked with one of them so
// callers can branch with errors.Is regardless of how deeply it was wrapped.
var (
	ErrConfig     = errors.New("invalid printer configuration")
	ErrConnection = errors.New("printer connection error")
	ErrRender     = errors.New("receipt render error")
	ErrDelivery   = errors.New("print delivery error")
)

var (
	ErrQueueStopped     = errors.New("print queue stopped")
	ErrNotConnected     = errors.New("printer not connected")
	ErrNoSerialPort     = errors.New("no serial port found")
	ErrDocumentNotFound = errors.New("native print document not found")
)

// ConfigError names the printer configuration field that was rejected.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// RenderError names the order field that made rendering impossible.
type RenderError struct {
	Field  string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("order %s: %s", e.Field, e.Reason)
}

func newConfigError(field, reason string) error {
	return errors.Mark(&ConfigError{Field: field, Reason: reason}, ErrConfig)
}

func newRenderError(field, reason string) error {
	return errors.Mark(&RenderError{Field: field, Reason: reason}, ErrRender)
}

func connectionError(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrConnection)
}

func deliveryError(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrDelivery)
}
