package errors

import "fmt"

var (
	ErrTokenMissing        = fmt.Errorf("authentication token required")
	ErrTokenInvalid        = fmt.Errorf("invalid authentication token")
	ErrTokenExpired        = fmt.Errorf("authentication token expired")
	ErrSessionClosed       = fmt.Errorf("session already disconnected")
	ErrUpstreamUnavailable = fmt.Errorf("upstream gateway unavailable")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)
