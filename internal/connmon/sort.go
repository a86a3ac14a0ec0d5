package connmon

import (
	"cmp"
	"slices"
)

// SortByOwner groups connections by uid so each blocked app's sockets are
// listed together. Within a uid, live TCP states come first.
func SortByOwner(conns []Connection) {
	slices.SortStableFunc(conns, func(a, b Connection) int {
		if c := cmp.Compare(a.UID, b.UID); c != 0 {
			return c
		}
		if c := cmp.Compare(stateRank(a), stateRank(b)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.LocalAddr.Port(), b.LocalAddr.Port()); c != 0 {
			return c
		}
		return cmp.Compare(a.RemoteAddr.Port(), b.RemoteAddr.Port())
	})
}

// stateRank orders sockets by how likely they are to carry traffic. UDP
// sockets carry no state and sort with the open TCP ones.
func stateRank(c Connection) int {
	if c.Protocol == "UDP" || c.Protocol == "UDP6" {
		return 1
	}
	switch c.State {
	case StateEstablished:
		return 0
	case StateSynSent, StateSynReceived:
		return 2
	case StateListen:
		return 3
	case StateCloseWait, StateFinWait1, StateFinWait2, StateLastAck, StateClosing:
		return 4
	default:
		return 5
	}
}
