package embers

import (
	"context"
	"errors"

	"github.com/xraph/embers/types"
)

// Sentinel errors for common failure scenarios. Expected gameplay outcomes
// such as insufficient funds are reported as false results, not errors.
var (
	// Run errors
	ErrRunActive    = errors.New("embers: a run is in progress")
	ErrRunNotActive = errors.New("embers: no run in progress")

	// Lookup errors
	ErrUnknownUpgrade     = errors.New("embers: unknown upgrade")
	ErrUnknownAchievement = errors.New("embers: unknown achievement")
	ErrUnknownSkin        = errors.New("embers: unknown skin")
	ErrUnknownModifier    = errors.New("embers: unknown modifier")

	// Configuration errors
	ErrInvalidConfig  = errors.New("embers: invalid config")
	ErrInvalidCatalog = types.ErrInvalidCatalog

	// Store errors
	ErrStoreClosed = errors.New("embers: store is closed")
)

// ValidationError is re-exported from the types package.
type ValidationError = types.ValidationError

// MultiError is re-exported from the types package.
type MultiError = types.MultiError

// IsNotFound returns true if the error names an id missing from a catalog.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownUpgrade) ||
		errors.Is(err, ErrUnknownAchievement) ||
		errors.Is(err, ErrUnknownSkin) ||
		errors.Is(err, ErrUnknownModifier)
}

// IsRetryable returns true if the same call may succeed later without any
// change to its arguments.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRunActive) ||
		errors.Is(err, context.DeadlineExceeded)
}
