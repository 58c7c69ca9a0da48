package irc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors returned synchronously by Send. Nothing is queued when one of them is returned.
var (
	// ErrArgumentCountExceeded is returned when a message carries more than MaxArgs positional arguments.
	ErrArgumentCountExceeded = errors.New("too many arguments")
	// ErrArgumentFormatInvalid is returned when a positional argument contains a space.
	ErrArgumentFormatInvalid = errors.New("argument contains a space")
	// ErrMessageTooLong is returned when the encoded wire line exceeds MaxLineBytes.
	ErrMessageTooLong = errors.New("message too long")
	// ErrEncoding is returned when a line cannot be represented in the current encoding.
	ErrEncoding = errors.New("encoding failed")
)

// Errors describing connection state.
var (
	// ErrConnectionClosed is returned when operating on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("connection already started")
	// ErrConnectionFault matches every FaultError via errors.Is.
	ErrConnectionFault = errors.New("connection fault")
	// ErrLineTooLong is returned when an inbound line grows past the configured limit.
	ErrLineTooLong = errors.New("inbound line too long")
	// ErrMalformedMessage is returned by Split for lines without a command.
	ErrMalformedMessage = errors.New("malformed message")
)

// Errors returned by flood control configuration.
var (
	// ErrInvalidWaitCoefficient is returned when the inputs of the delay curve
	// are out of range or yield non-finite coefficients.
	ErrInvalidWaitCoefficient = errors.New("invalid wait coefficient")
	// ErrUnknownFloodMode is returned by NewFloodPolicy for an unrecognised mode.
	ErrUnknownFloodMode = errors.New("unknown flood control mode")
	// ErrPolicyNotQuadratic is returned by SetWaitCoefficient when the connection
	// paces with a policy other than QuadraticPolicy.
	ErrPolicyNotQuadratic = errors.New("flood policy is not quadratic")
)

// FaultError is a socket level failure captured by a worker or by Dial.
// A FaultError is terminal for the connection that produced it.
type FaultError struct {
	Op  string // "dial", "read" or "write"
	Err error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FaultError) Unwrap() error { return e.Err }

// Is reports ErrConnectionFault as a match so callers don't need errors.As.
func (e *FaultError) Is(target error) bool {
	return target == ErrConnectionFault
}

func newFault(op string, err error) *FaultError {
	return &FaultError{Op: op, Err: err}
}
