package models

import "errors"

var (
	ErrInvalidIdentifier   = errors.New("invalid party identifier")
	ErrDuplicateMessage    = errors.New("duplicate message id")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUpstreamSendFailure = errors.New("provider rejected the send")
	ErrStorageFailure      = errors.New("media storage unavailable")
	ErrUserNotFound        = errors.New("user not found")
)
