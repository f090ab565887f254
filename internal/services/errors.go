package services

import (
	"errors"
	"fmt"

	"github.com/stylara/outfit-engine/pkg/models"
)

// Error taxonomy for the composition engine. Only ErrInsufficientWardrobe
// surfaces to the caller as an error; everything else degrades into a
// returned OutfitResult with diagnostics.
var (
	// ErrInsufficientWardrobe means the wardrobe is below the minimum viable
	// item count. Surfaced, never retried internally.
	ErrInsufficientWardrobe = errors.New("wardrobe below minimum viable item count")

	// ErrTierExhausted is logged when every formality tier fell through;
	// generation proceeds with the best available pool.
	ErrTierExhausted = errors.New("formality tiers exhausted")

	// ErrPostHocValidation marks a failed coherence check; one bounded
	// relaxed regeneration runs before accepting the best attempt.
	ErrPostHocValidation = errors.New("outfit failed post-hoc coherence checks")
)

// InvariantBreachError reports a gate bypass caught by the final safety
// check. It must never occur in correct code; when it does, the offending
// items are dropped and the defect is logged at error severity.
type InvariantBreachError struct {
	Category models.Category
	ItemIDs  []string
}

func (e *InvariantBreachError) Error() string {
	return fmt.Sprintf("invariant breach: category %s, offending items %v", e.Category, e.ItemIDs)
}
