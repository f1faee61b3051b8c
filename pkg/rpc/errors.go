package rpc

import (
	"errors"
	"fmt"
	"time"
)

// ErrClientClosed indicates a call was attempted on a closed client.
var ErrClientClosed = errors.New("rpc: client closed")

// TransportError indicates the underlying stream closed or broke.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FramingError indicates a malformed or incomplete frame line.
type FramingError struct {
	Line string
	Err  error
}

func (e *FramingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rpc: bad frame: %v", e.Err)
	}
	return "rpc: bad frame"
}

func (e *FramingError) Unwrap() error { return e.Err }

// TimeoutError indicates no matching response arrived within the deadline.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rpc: %s timed out after %s", e.Method, e.Timeout)
}

// RemoteError carries an error object returned by the daemon.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rpc: remote error %d: %s", e.Code, e.Message)
}

// ProtocolMismatchError reports a response whose id matched no pending call.
type ProtocolMismatchError struct {
	ID int64
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("rpc: response for unknown id %d", e.ID)
}
