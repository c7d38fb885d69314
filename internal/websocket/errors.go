// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrSessionExpired = errors.New("session has expired")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
)
