//go:build unix
// +build unix

package backend

import "golang.org/x/sys/unix"

// isClosedErr reports whether err is the kind of kernel-register failure
// that should be tolerated silently: unregistering a descriptor the
// kernel (or the OS) has already torn down.
func isClosedErr(err error) bool {
	return err == unix.ENOENT || err == unix.EBADF
}
