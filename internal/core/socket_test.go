package core

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderedSocket records the order of calls made on it.
type orderedSocket struct {
	calls      []string
	connectErr error
}

func (s *orderedSocket) Fd() int {
	s.calls = append(s.calls, "fd")
	return 42
}

func (s *orderedSocket) Connect(peer netip.AddrPort) error {
	s.calls = append(s.calls, "connect")
	return s.connectErr
}

func (s *orderedSocket) SetNonblock() error {
	s.calls = append(s.calls, "nonblock")
	return nil
}

func (s *orderedSocket) Close() error {
	s.calls = append(s.calls, "close")
	return nil
}

type protectRecorder struct {
	*fakeFacility
	sock *orderedSocket
	ok   bool
}

func (p *protectRecorder) Protect(fd int) bool {
	p.sock.calls = append(p.sock.calls, "protect")
	return p.ok
}

func TestOpenControlSocketOrder(t *testing.T) {
	sock := &orderedSocket{}
	facility := &protectRecorder{fakeFacility: newFakeFacility(), sock: sock, ok: true}

	got, err := openControlSocket(func() (ControlSocket, error) { return sock, nil }, facility)
	require.NoError(t, err)
	assert.Same(t, sock, got)
	assert.Equal(t, []string{"fd", "protect", "connect", "nonblock"}, sock.calls)
}

func TestOpenControlSocketFailures(t *testing.T) {
	t.Run("protect", func(t *testing.T) {
		sock := &orderedSocket{}
		facility := &protectRecorder{fakeFacility: newFakeFacility(), sock: sock}

		_, err := openControlSocket(func() (ControlSocket, error) { return sock, nil }, facility)
		assert.ErrorIs(t, err, ErrProtect)
		assert.Equal(t, []string{"fd", "protect", "close"}, sock.calls)
	})

	t.Run("connect", func(t *testing.T) {
		sock := &orderedSocket{connectErr: errors.New("network unreachable")}
		facility := &protectRecorder{fakeFacility: newFakeFacility(), sock: sock, ok: true}

		_, err := openControlSocket(func() (ControlSocket, error) { return sock, nil }, facility)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Equal(t, []string{"fd", "protect", "connect", "close"}, sock.calls)
	})

	t.Run("open", func(t *testing.T) {
		_, err := openControlSocket(func() (ControlSocket, error) {
			return nil, errors.New("too many open files")
		}, newFakeFacility())
		assert.ErrorIs(t, err, ErrTransport)
	})
}
