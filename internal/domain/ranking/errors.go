package ranking

import (
	"errors"
	"fmt"

	"github.com/okian/ladder/internal/adapters/repository"
)

// Error kinds returned by the engine. Callers match them with errors.Is.
var (
	// ErrValidation marks an ingestion input that was rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a query whose target has no aggregate, member or event.
	ErrNotFound = errors.New("not found")
	// ErrStore wraps a failure of the backing store.
	ErrStore = errors.New("store failure")
	// ErrState marks an operation the current namespace does not allow,
	// such as clearing alltime.
	ErrState = errors.New("invalid state")
	// ErrCorruptValue marks a stored number or reference that does not parse.
	ErrCorruptValue = errors.New("corrupt stored value")
	ErrInvalidRange = errors.New("invalid rank range")
	ErrInvalidLimit = errors.New("invalid limit")
)

// storeErr classifies an error returned by the store. Missing keys become
// ErrNotFound; everything else is wrapped under ErrStore.
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
