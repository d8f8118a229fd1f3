package mpesa

import (
	"errors"
	"fmt"
)

// Client input errors. These are never retried and never reach the
// gateway; initiation fails before any network call is made.
var (
	ErrMissingFields = errors.New("phone number, amount, and order ID are required")
	ErrInvalidPhone  = errors.New("invalid phone number format, use 254XXXXXXXXX (e.g. 254712345678)")
	ErrInvalidAmount = errors.New("amount must be at least 1 KES")
)

// ErrorKind classifies upstream gateway failures.
type ErrorKind int

const (
	// KindAuth means the credential exchange against the OAuth endpoint
	// failed; nothing was cached.
	KindAuth ErrorKind = iota
	// KindRejected means the gateway accepted the request transport but
	// declined it, with a caller-facing description.
	KindRejected
	// KindUnreachable covers transport failures and unexpected upstream
	// responses.
	KindUnreachable
)

// GatewayError is an upstream failure with the provider-supplied
// description where one was available.
type GatewayError struct {
	Kind        ErrorKind
	Description string
	Err         error
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("mpesa gateway: %s", e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("mpesa gateway: %v", e.Err)
	}
	return "mpesa gateway error"
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// AsGatewayError unwraps err into a *GatewayError when it is one.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
