package models

import "errors"

// Domain errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidCode     = errors.New("invalid invite code")
	ErrAlreadyExists   = errors.New("already exists")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
)
