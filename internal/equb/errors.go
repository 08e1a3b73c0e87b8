package equb

import (
	"errors"
	"fmt"

	"github.com/mmynk/equb/internal/storage"
)

// Error kinds returned by the engine. Test with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidState        = errors.New("invalid state")
	ErrInvalidConfig       = errors.New("invalid equb configuration")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// translate maps storage sentinels onto engine error kinds.
func translate(err error, what string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s: %w", ErrNotFound, what, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %s: %w", ErrConcurrencyConflict, what, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
