package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errCancelled, "cancelled"},
		{context.Canceled, "cancelled"},
		{fmt.Errorf("wrapped: %w", ErrProtect), "protect"},
		{fmt.Errorf("%w: connect: refused", ErrTransport), "transport"},
		{fmt.Errorf("%w: invalid argument", ErrConfiguration), "configuration"},
		{fmt.Errorf("%w after 30s", ErrEstablishTimeout), "timeout"},
		{ErrForeground, "foreground"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureKind(tt.err), "%v", tt.err)
	}
}
