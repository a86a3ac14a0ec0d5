//go:build linux

package core

import (
	"net/netip"
	"sync"

	"golang.org/x/sys/unix"
)

type udpSocket struct {
	mu sync.Mutex
	fd int
}

// OpenUDPSocket opens an IPv4 datagram socket for use as a control socket.
func OpenUDPSocket() (ControlSocket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, err
	}
	return &udpSocket{fd: fd}, nil
}

func (s *udpSocket) Fd() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd
}

func (s *udpSocket) Connect(peer netip.AddrPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unix.Connect(s.fd, &unix.SockaddrInet4{Addr: peer.Addr().As4(), Port: int(peer.Port())})
}

func (s *udpSocket) SetNonblock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unix.SetNonblock(s.fd, true)
}

func (s *udpSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
