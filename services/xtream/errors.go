package xtream

import (
	"errors"
	"fmt"
)

// TransportError means no usable response was received: timeout, DNS failure,
// connection refused, or a non-2xx status.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure for %s: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means a response was received but did not parse into the
// expected shape. Callers treat it as an empty result but log it apart from
// transport failures.
type DecodeError struct {
	Action string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failure for %s: %v", e.Action, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
