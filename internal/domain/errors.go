package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("version conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// Error kinds as they appear in the command error envelope.
const (
	KindNotFound          = "NotFound"
	KindInvalidTransition = "InvalidTransition"
	KindInvalidQuantity   = "InvalidQuantity"
	KindValidation        = "ValidationError"
	KindConflict          = "Conflict"
	KindUnauthorized      = "Unauthorized"
	KindForbidden         = "Forbidden"
	KindInternal          = "Internal"
)

func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrInvalidQuantity):
		return KindInvalidQuantity
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindInternal
	}
}

func NotFoundError(entity string, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

func invalidTransition(entity string, id string, from string, op string) error {
	return fmt.Errorf("%w: cannot %s %s %s in status %s", ErrInvalidTransition, op, entity, id, from)
}
