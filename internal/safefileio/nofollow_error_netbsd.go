//go:build netbsd

package safefileio

import (
	"errors"
	"os"
	"syscall"
)

// isNoFollowError checks if the error indicates we tried to open a symlink.
// NetBSD reports EFTYPE for O_NOFOLLOW violations instead of ELOOP.
func isNoFollowError(err error) bool {
	var e *os.PathError
	if !errors.As(err, &e) {
		return false
	}
	return errors.Is(e.Err, syscall.EFTYPE) || errors.Is(e.Err, syscall.ELOOP)
}
