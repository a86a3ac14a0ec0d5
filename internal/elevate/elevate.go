// Package elevate checks for and acquires the privileges needed to create
// interfaces and policy rules.
package elevate

import "fmt"

// Require returns an error unless the process may configure the network.
func Require() error {
	if IsPrivileged() {
		return nil
	}
	return fmt.Errorf("CAP_NET_ADMIN is required; run as root or grant the capability")
}
