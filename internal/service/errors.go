// Package service provides business logic for the support platform.
package service

import (
	"errors"
)

var (
	// ErrNotFound means the referenced document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the principal lacks the relationship required to
	// act on the document.
	ErrForbidden = errors.New("forbidden")

	// ErrContentViolation means the safety gate rejected the message. The
	// request is terminal and nothing was persisted.
	ErrContentViolation = errors.New("content violation")

	// ErrInvalidInput means a request failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
