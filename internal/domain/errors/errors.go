package errors

import "errors"

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrItemUnavailable    = errors.New("item unavailable")
	ErrKeyLoad            = errors.New("key load failed")
	ErrSigning            = errors.New("signing failed")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrUnknownGateway     = errors.New("unknown gateway")
)
