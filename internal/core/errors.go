package core

import (
	"context"
	"errors"
)

var (
	// ErrProtect means the control socket could not be excluded from the tunnel.
	ErrProtect = errors.New("cannot protect control socket")

	// ErrTransport covers socket level failures while preparing an attempt.
	ErrTransport = errors.New("control socket failure")

	// ErrConfiguration means the OS rejected the interface parameters.
	ErrConfiguration = errors.New("interface configuration rejected")

	// ErrAppNotFound is returned by a resolver for an unknown application.
	ErrAppNotFound = errors.New("application not found")

	// ErrForeground means the lifecycle shell refused to enter the foreground.
	ErrForeground = errors.New("cannot enter foreground")

	// ErrEstablishTimeout means an attempt exceeded the configured timeout.
	ErrEstablishTimeout = errors.New("interface establishment timed out")

	// ErrDestroyed is returned by Start after Destroy.
	ErrDestroyed = errors.New("supervisor destroyed")

	errCancelled = errors.New("attempt superseded")
)

// FailureKind maps an attempt error to a stable label for logs and metrics.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errCancelled), errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrProtect):
		return "protect"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrEstablishTimeout):
		return "timeout"
	case errors.Is(err, ErrForeground):
		return "foreground"
	default:
		return "unknown"
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, errCancelled) || errors.Is(err, context.Canceled)
}
