package goveeapi

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a vendor API failure for the setup flow
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindUnauthorized
	KindRateLimited
	KindConnection
	KindBadResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate-limited"
	case KindConnection:
		return "connection"
	case KindBadResponse:
		return "bad-response"
	}
	return "other"
}

// Error is a classified vendor API error.  Code is the HTTP or
// vendor status code when one was received.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("govee api: %s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("govee api: %s: %s", e.Kind, e.Message)
}

// KindOf extracts the error kind from err, unwrapping as needed.
// Anything that is not a classified API error is KindOther.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindOther
}
