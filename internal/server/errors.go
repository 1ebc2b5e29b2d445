package server

import "errors"

var (
	// ErrAuthResolution marks a user_id cookie that is present but cannot be
	// trusted. Callers treat it as "no user yet".
	ErrAuthResolution = errors.New("auth resolution failed")
	ErrGameNotFound   = errors.New("game not found")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNotSubscribed  = errors.New("not subscribed")
)

const (
	codeInvalidPayload = "invalid_payload"
	codeGameNotFound   = "game_not_found"
	codeNotSubscribed  = "not_subscribed"
	codeUnknownCommand = "unknown_command"
	codeInternal       = "internal"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		return codeInvalidPayload
	case errors.Is(err, ErrGameNotFound):
		return codeGameNotFound
	case errors.Is(err, ErrNotSubscribed):
		return codeNotSubscribed
	default:
		return codeInternal
	}
}
