package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrAlreadyEnded = errors.New("session already ended")
	ErrUnauthorized = errors.New("unauthorized")
)
