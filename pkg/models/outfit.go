package models

import (
	"time"

	"github.com/google/uuid"
)

// DimensionScores holds the six independent per-item scores, each bounded to
// [-1, +2] before weighting.
type DimensionScores struct {
	BodyType      float64 `json:"body_type"`
	StyleProfile  float64 `json:"style_profile"`
	Weather       float64 `json:"weather"`
	UserFeedback  float64 `json:"user_feedback"`
	Compatibility float64 `json:"compatibility"`
	Diversity     float64 `json:"diversity"`
}

// ScoredItem pairs an Item with its dimension scores and the weighted
// composite. Recomputed every request, never persisted.
type ScoredItem struct {
	Item       Item            `json:"item"`
	Dimensions DimensionScores `json:"dimensions"`
	Composite  float64         `json:"composite"`
}

// OutfitDiagnostics is the observability metadata attached to every result.
// It is informational, not authoritative state.
type OutfitDiagnostics struct {
	TierUsed          int                           `json:"tier_used,omitempty"` // 0 when tier filter skipped
	TierFallbackDepth int                           `json:"tier_fallback_depth"`
	TierExhausted     bool                          `json:"tier_exhausted"`
	FallbackPath      []string                      `json:"fallback_path,omitempty"`
	MissingCategories []Category                    `json:"missing_categories,omitempty"`
	RepairFilled      []Category                    `json:"repair_filled,omitempty"`
	DroppedItems      int                           `json:"dropped_items"` // final safety check removals; must stay 0
	PostHocRetried    bool                          `json:"post_hoc_retried"`
	PostHocPenalty    bool                          `json:"post_hoc_penalty"`
	CacheHit          bool                          `json:"cache_hit"`
	ScoreBreakdown    map[uuid.UUID]DimensionScores `json:"score_breakdown,omitempty"`
	Explanations      map[uuid.UUID]string          `json:"explanations,omitempty"`
	CandidatePoolSize int                           `json:"candidate_pool_size"`
	TargetItemCount   int                           `json:"target_item_count"`
}

// OutfitResult is the single synchronous output of one generation request.
// Constructed once and never mutated after return.
type OutfitResult struct {
	UserID      uuid.UUID         `json:"user_id"`
	Items       []Item            `json:"items"`
	Confidence  float64           `json:"confidence"` // 0..1
	Strategy    string            `json:"strategy"`
	Incomplete  bool              `json:"incomplete"`
	Diagnostics OutfitDiagnostics `json:"diagnostics"`
	GeneratedAt time.Time         `json:"generated_at"`
	Latency     time.Duration     `json:"-"`
}

// Has reports whether the result contains at least one item of the category.
func (r *OutfitResult) Has(cat Category) bool {
	for _, it := range r.Items {
		if it.Category == cat {
			return true
		}
	}
	return false
}

// Count returns the number of items of the given category in the result.
func (r *OutfitResult) Count(cat Category) int {
	n := 0
	for _, it := range r.Items {
		if it.Category == cat {
			n++
		}
	}
	return n
}

// GenerateOutfitRequest is the API request body for outfit generation.
type GenerateOutfitRequest struct {
	Occasion            string           `json:"occasion" validate:"required,min=1,max=64"`
	Style               string           `json:"style,omitempty" validate:"omitempty,max=64"`
	Mood                string           `json:"mood,omitempty" validate:"omitempty,max=64"`
	Weather             *WeatherSnapshot `json:"weather,omitempty"`
	IncludeExplanations bool             `json:"include_explanations"`
	Fresh               bool             `json:"fresh"` // bypass the short result cache
	TimeoutMs           int              `json:"timeout_ms,omitempty" validate:"omitempty,min=50,max=10000"`
}

// GenerateOutfitResponse wraps the result for the HTTP surface.
type GenerateOutfitResponse struct {
	Result      *OutfitResult `json:"result"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// OutfitFeedbackRequest records what the user did with a generated outfit.
type OutfitFeedbackRequest struct {
	ItemIDs      []uuid.UUID `json:"item_ids" validate:"required,min=1,max=12"`
	FeedbackType string      `json:"feedback_type" validate:"required,oneof=worn liked disliked skipped"`
	Occasion     string      `json:"occasion,omitempty" validate:"omitempty,max=64"`
	Style        string      `json:"style,omitempty" validate:"omitempty,max=64"`
}
