package kerrors

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// Linux kernel error codes answered by the driver
const (
	ENOENT int64 = int64(unix.ENOENT) // No such file or directory
	EEXIST int64 = int64(unix.EEXIST) // File exists
	EINVAL int64 = int64(unix.EINVAL) // Invalid argument
	EFBIG  int64 = int64(unix.EFBIG)  // File too large
	ENOSPC int64 = int64(unix.ENOSPC) // No space left on device
	EIO    int64 = int64(unix.EIO)    // I/O error

	EINVAL_NEG int64 = -EINVAL // Invalid argument (negative)
	EIO_NEG    int64 = -EIO    // I/O error (negative)
)

// Coder is implemented by errors that carry a kernel error code.
type Coder interface {
	GetCode() int64
}

// Code returns the positive kernel error code carried by err. Errors
// without a code are reported as EIO.
func Code(err error) int64 {
	if err == nil {
		return 0
	}
	var c Coder
	if errors.As(err, &c) {
		return c.GetCode()
	}
	return EIO
}

// NegCode is Code negated, the form returned to the kernel module.
func NegCode(err error) int64 {
	return -Code(err)
}

// ToErrno converts err for bridges that answer with syscall.Errno.
func ToErrno(err error) syscall.Errno {
	return syscall.Errno(Code(err))
}
