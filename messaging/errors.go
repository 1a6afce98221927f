package messaging

import "errors"

var (
	ErrClosed         = errors.New("messaging: transport closed")
	ErrTerminated     = errors.New("messaging: context terminated")
	ErrNotInitialized = errors.New("messaging: client not initialized")
)
