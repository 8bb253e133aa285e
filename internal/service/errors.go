package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/google/uuid"
)

// Классы ошибок сервиса. Callers classify with errors.Is; the wrapped
// message is safe to show to the client.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrTransient    = repository.ErrTransient
)

// IsDomainError reports whether err belongs to the service taxonomy, as
// opposed to an unexpected failure that must not leak to the client.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrUnauthorized, ErrForbidden, ErrNotFound,
		ErrInvalidState, ErrConflict, ErrTransient,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// parseID проверяет формат идентификатора и возвращает каноническую форму
func parseID(kind, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid %s id", ErrInvalidInput, kind)
	}
	return id.String(), nil
}

func requireCaller(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user", ErrUnauthorized)
	}
	return nil
}
