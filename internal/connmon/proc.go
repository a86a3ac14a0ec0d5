package connmon

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"
)

// parseProc reads one of the /proc/net/{tcp,udp}[6] tables. Listening and
// unconnected sockets are skipped.
func parseProc(r io.Reader, protocol string) ([]Connection, error) {
	var conns []Connection
	scanner := bufio.NewScanner(r)
	scanner.Scan() // header

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}

		local, err := parseHexAddrPort(fields[1])
		if err != nil {
			continue
		}
		remote, err := parseHexAddrPort(fields[2])
		if err != nil {
			continue
		}

		stateVal, _ := strconv.ParseUint(fields[3], 16, 32)
		state := ConnState(stateVal)
		if state == StateListen || remote.Port() == 0 {
			continue
		}

		uid, err := strconv.ParseUint(fields[7], 10, 32)
		if err != nil {
			continue
		}

		conns = append(conns, Connection{
			Protocol:   protocol,
			LocalAddr:  local,
			RemoteAddr: remote,
			State:      state,
			UID:        uint32(uid),
		})
	}

	return conns, scanner.Err()
}

// parseHexAddrPort decodes "0100007F:0035". The kernel prints each 32-bit
// word of the address in host (little-endian) order.
func parseHexAddrPort(s string) (netip.AddrPort, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return netip.AddrPort{}, fmt.Errorf("invalid format: %s", s)
	}

	raw, err := hex.DecodeString(parts[0])
	if err != nil || (len(raw) != 4 && len(raw) != 16) {
		return netip.AddrPort{}, fmt.Errorf("invalid ip: %s", parts[0])
	}
	for i := 0; i < len(raw); i += 4 {
		raw[i], raw[i+1], raw[i+2], raw[i+3] = raw[i+3], raw[i+2], raw[i+1], raw[i]
	}
	ip, _ := netip.AddrFromSlice(raw)

	port, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid port: %s", parts[1])
	}

	return netip.AddrPortFrom(ip.Unmap(), uint16(port)), nil
}
