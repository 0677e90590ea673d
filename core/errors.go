package core

import "errors"

var (
	ErrClientClosed  = errors.New("client closed")
	ErrSendFailed    = errors.New("send failed")
	ErrInvalidConfig = errors.New("invalid config")
	ErrNilHandlers   = errors.New("handler set cannot be nil")
)
