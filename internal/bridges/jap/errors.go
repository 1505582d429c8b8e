package jap

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
)

// ErrInvariantViolation is returned by the dispatcher when it is handed an
// address or value that validation should already have rejected. It
// indicates a programming error, never a device fault.
var ErrInvariantViolation = errors.New("jap: invariant violation")

// TransportError reports that an HTTP exchange with a device could not
// complete: connection refused, timeout, unreachable host.
type TransportError struct {
	Address  netip.Addr
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("jap: %s %s: transport: %v", e.Address, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the exchange was cut off by the request deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ProtocolError reports an HTTP status of 400 or above from a device.
type ProtocolError struct {
	Address    netip.Addr
	Endpoint   string
	StatusCode int
	Body       string // truncated response body
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("jap: %s %s: status %d", e.Address, e.Endpoint, e.StatusCode)
}

// ParseError reports a response body that is not the expected
// {"data": ...} envelope or whose value has the wrong type.
type ParseError struct {
	Endpoint string
	Body     string // truncated response body
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("jap: %s: parse response: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errMissingData  = errors.New(`missing "data" field`)
	errNotInteger   = errors.New("data is not an integer")
	errNotString    = errors.New("data is not a string")
	errTrailingData = errors.New("unexpected data after envelope")
	errOutOfRange   = errors.New("value outside configured bounds")
)
