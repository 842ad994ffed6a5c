// internal/link/errors.go
package link

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	// ErrFraming: payload rejected before it reached the wire.
	ErrFraming = errors.New("framing error")

	// ErrChecksum: inbound message failed CRC validation.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrMalformed: inbound line could not be parsed.
	ErrMalformed = errors.New("malformed message")

	// ErrTransport: bus or serial I/O failed.
	ErrTransport = errors.New("transport error")

	// ErrNotEstablished: no handshake response inside the establishment window.
	ErrNotEstablished = errors.New("connection not established")
)

// Error carries the operation and kind of a link failure.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("link: %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("link: %s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
