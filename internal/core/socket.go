package core

import (
	"fmt"
	"net/netip"
)

// placeholderPeer is the loopback address the control socket is connected
// to. No datagram is ever sent to it.
var placeholderPeer = netip.AddrPortFrom(netip.AddrFrom4([4]byte{127, 0, 0, 1}), 9)

// ControlSocket is the throwaway datagram socket an attempt holds while it
// asks the OS for an interface.
type ControlSocket interface {
	Fd() int
	Connect(peer netip.AddrPort) error
	SetNonblock() error
	Close() error
}

// SocketFactory opens an unconnected datagram socket.
type SocketFactory func() (ControlSocket, error)

// openControlSocket opens, protects, connects and unblocks a control socket
// in that order. The socket must be protected before it is connected or its
// own traffic could be routed back into the interface being built.
func openControlSocket(open SocketFactory, facility Facility) (ControlSocket, error) {
	sock, err := open()
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrTransport, err)
	}

	if !facility.Protect(sock.Fd()) {
		sock.Close()
		return nil, ErrProtect
	}

	if err := sock.Connect(placeholderPeer); err != nil {
		sock.Close()
		return nil, fmt.Errorf("%w: connect %s: %v", ErrTransport, placeholderPeer, err)
	}

	if err := sock.SetNonblock(); err != nil {
		sock.Close()
		return nil, fmt.Errorf("%w: set nonblocking: %v", ErrTransport, err)
	}

	return sock, nil
}
