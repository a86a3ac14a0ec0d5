//go:build linux

package elevate

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// IsPrivileged reports whether the process runs as root or holds
// CAP_NET_ADMIN in its effective set.
func IsPrivileged() bool {
	if os.Geteuid() == 0 {
		return true
	}
	return hasCapability(unix.CAP_NET_ADMIN)
}

func hasCapability(capability int) bool {
	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return false
	}
	return data[capability/32].Effective&(1<<(uint(capability)%32)) != 0
}

// RunAsAdmin re-launches the current executable with root privileges,
// trying pkexec first and sudo second. It only returns on failure.
func RunAsAdmin() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := append([]string{exe}, os.Args[1:]...)

	if path, err := exec.LookPath("pkexec"); err == nil {
		cmd := exec.Command(path, args...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err == nil {
			os.Exit(0)
		} else {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				os.Exit(exitErr.ExitCode())
			}
		}
	}

	sudoPath, err := exec.LookPath("sudo")
	if err != nil {
		return fmt.Errorf("neither pkexec nor sudo found; please run as root")
	}

	return unix.Exec(sudoPath, append([]string{"sudo"}, args...), os.Environ())
}
