// Package connmon lists the sockets owned by blocked applications so a
// user can see whether anything still gets through.
package connmon

import (
	"fmt"
	"net/netip"
)

// ConnState represents the state of a TCP connection.
type ConnState int

const (
	StateEstablished ConnState = 1
	StateSynSent     ConnState = 2
	StateSynReceived ConnState = 3
	StateFinWait1    ConnState = 4
	StateFinWait2    ConnState = 5
	StateTimeWait    ConnState = 6
	StateClose       ConnState = 7
	StateCloseWait   ConnState = 8
	StateLastAck     ConnState = 9
	StateListen      ConnState = 10
	StateClosing     ConnState = 11
)

// String returns a human-readable name for the connection state.
func (s ConnState) String() string {
	switch s {
	case StateEstablished:
		return "ESTABLISHED"
	case StateSynSent:
		return "SYN_SENT"
	case StateSynReceived:
		return "SYN_RECV"
	case StateFinWait1:
		return "FIN_WAIT1"
	case StateFinWait2:
		return "FIN_WAIT2"
	case StateTimeWait:
		return "TIME_WAIT"
	case StateClose:
		return "CLOSE"
	case StateCloseWait:
		return "CLOSE_WAIT"
	case StateLastAck:
		return "LAST_ACK"
	case StateListen:
		return "LISTEN"
	case StateClosing:
		return "CLOSING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Connection represents one socket from the kernel tables.
type Connection struct {
	Protocol   string // "TCP", "TCP6", "UDP" or "UDP6"
	LocalAddr  netip.AddrPort
	RemoteAddr netip.AddrPort
	State      ConnState // only meaningful for TCP
	UID        uint32
}

// Key returns a unique key for this connection.
func (c *Connection) Key() string {
	return fmt.Sprintf("%s|%s|%s", c.Protocol, c.LocalAddr, c.RemoteAddr)
}

// String renders the connection as one line.
func (c *Connection) String() string {
	return fmt.Sprintf("%-4s uid=%-6d %-45s -> %-45s %s", c.Protocol, c.UID, c.LocalAddr, c.RemoteAddr, c.State)
}

// OwnedBy returns the connections whose uid is in uids.
func OwnedBy(conns []Connection, uids []uint32) []Connection {
	want := make(map[uint32]struct{}, len(uids))
	for _, uid := range uids {
		want[uid] = struct{}{}
	}

	var out []Connection
	for _, c := range conns {
		if _, ok := want[c.UID]; ok {
			out = append(out, c)
		}
	}
	return out
}
