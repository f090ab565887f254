package models

import (
	"time"

	"github.com/google/uuid"
)

// WeatherSnapshot is the weather input supplied by the caller (retrieval from
// a weather API is an external collaborator's job).
type WeatherSnapshot struct {
	TemperatureC float64 `json:"temperature_c"`
	Condition    string  `json:"condition"` // clear, rain, snow, wind, ...
}

// UserProfile carries the body/style profile used for scoring. It is supplied
// up front and read-only for the duration of a request.
type UserProfile struct {
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	BodyType       string     `json:"body_type,omitempty" db:"body_type"` // hourglass, pear, apple, rectangle, athletic
	DominantStyles []string   `json:"dominant_styles,omitempty" db:"dominant_styles"`
	GenderTarget   string     `json:"gender_target,omitempty" db:"gender_target"`
	GenerationRuns int        `json:"generation_runs" db:"generation_runs"`
	LastGeneration *time.Time `json:"last_generation,omitempty" db:"last_generation"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// GenerationContext is the immutable per-request bundle every engine stage
// reads from. It is assembled once by the orchestrator and never mutated
// during generation; mutable selection state lives in CategoryState instead.
type GenerationContext struct {
	UserID       uuid.UUID               `json:"user_id"`
	Occasion     string                  `json:"occasion"`
	Style        string                  `json:"style,omitempty"`
	Mood         string                  `json:"mood,omitempty"`
	Weather      WeatherSnapshot         `json:"weather"`
	Profile      UserProfile             `json:"profile"`
	Wardrobe     []Item                  `json:"-"`
	RecentlyUsed map[uuid.UUID]time.Time `json:"-"` // rolling usage window
	UsageCounts  map[uuid.UUID]int       `json:"-"` // uses within the window
	RequestedAt  time.Time               `json:"requested_at"`
}

// IsRecentlyUsed reports whether the item was used within the rolling window.
func (gc *GenerationContext) IsRecentlyUsed(itemID uuid.UUID) bool {
	_, ok := gc.RecentlyUsed[itemID]
	return ok
}
