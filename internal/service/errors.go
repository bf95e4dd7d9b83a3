package service

import (
	"errors"
	"fmt"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/pkg/kerrors"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/repository"
)

type ServiceError struct {
	Code    int64
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) GetCode() int64 {
	return e.Code
}

var (
	ErrNotFound        = &ServiceError{Code: kerrors.ENOENT, Message: "no such file or directory"}
	ErrOutOfSpace      = &ServiceError{Code: kerrors.ENOSPC, Message: "no space left in file store"}
	ErrTooLarge        = &ServiceError{Code: kerrors.EFBIG, Message: "file too large"}
	ErrAlreadyExists   = &ServiceError{Code: kerrors.EEXIST, Message: "file exists"}
	ErrInvalidArgument = &ServiceError{Code: kerrors.EINVAL, Message: "invalid argument"}
)

// fromRepository translates a storage error into the matching service
// error. Unknown errors are wrapped with op.
func fromRepository(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrOutOfSpace):
		return ErrOutOfSpace
	case errors.Is(err, repository.ErrTooLarge):
		return ErrTooLarge
	case errors.Is(err, repository.ErrNegative):
		return ErrInvalidArgument
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
