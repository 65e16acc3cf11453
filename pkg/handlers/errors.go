package handlers

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/elee1766/gozfs/pkg/zfs"
)

// connectError maps the validation family to CodeInvalidArgument. zfs
// failures and everything else are CodeInternal.
func connectError(err error) *connect.Error {
	var (
		verr *zfs.ValidationError
		perr *zfs.UnknownPropertyError
		oerr *zfs.InvalidOptionCombinationError
		herr *zfs.HeterogeneousTargetError
		nerr *zfs.UnresolvableNameError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &perr), errors.As(err, &oerr),
		errors.As(err, &herr), errors.As(err, &nerr):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
