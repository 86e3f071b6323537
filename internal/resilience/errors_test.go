package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped with fmt", fmt.Errorf("status: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"wrapped with eris", eris.Wrap(NewTransientError(errors.New("bad gateway"), 502), "previewapi: status"), true},
		{"plain", errors.New("invalid url"), false},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"net non-timeout", &net.DNSError{Err: "no such host"}, false},
		{"message pattern", errors.New("TLS handshake timeout"), true},
		{"unexpected eof", errors.New("decode: unexpected EOF"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	transient := []int{408, 425, 429, 500, 502, 503, 504}
	for _, code := range transient {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 402, 404, 422, 501} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestTransientError_UnwrapAndStatus(t *testing.T) {
	inner := errors.New("service unavailable")
	err := eris.Wrap(NewTransientError(inner, 503), "submit")

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, 503, StatusCode(err))
	assert.Equal(t, 0, StatusCode(inner))
	assert.Equal(t, "service unavailable", NewTransientError(inner, 0).Error())
}
