package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized access")
	ErrForbidden             = errors.New("forbidden")
	ErrConflict              = errors.New("resource already exists")
	ErrInvalidInput          = errors.New("invalid input")
	ErrEmptyBody             = errors.New("message body must not be empty")
	ErrDuplicateRelationship = errors.New("relationship already exists")
	ErrRateLimited           = errors.New("rate limit exceeded")
)
