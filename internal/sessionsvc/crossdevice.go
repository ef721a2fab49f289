package sessionsvc

import (
	"errors"
	"syscall"
)

// isCrossDevice reports whether err is the rename failure a kernel returns
// when src and dst straddle different filesystems (EXDEV), the one case
// where a plain os.Rename can never succeed and a copy is required instead.
func isCrossDevice(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.EXDEV
}
