//go:build !unix

package logger

import "os"

func redirectStderr(f *os.File) {
	os.Stderr = f
}
