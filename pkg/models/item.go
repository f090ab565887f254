package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is the closed set of canonical wardrobe categories. Every item is
// assigned exactly one; the invariant gate reasons only in these terms.
type Category string

const (
	CategoryDress     Category = "dress"
	CategoryTops      Category = "tops"
	CategoryBottoms   Category = "bottoms"
	CategoryShoes     Category = "shoes"
	CategoryOuterwear Category = "outerwear"
	CategoryAccessory Category = "accessory"
)

// AllCategories lists every canonical category in classifier priority order.
var AllCategories = []Category{
	CategoryDress,
	CategoryTops,
	CategoryBottoms,
	CategoryShoes,
	CategoryOuterwear,
	CategoryAccessory,
}

// Valid reports whether c is one of the canonical categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDress, CategoryTops, CategoryBottoms,
		CategoryShoes, CategoryOuterwear, CategoryAccessory:
		return true
	}
	return false
}

// ItemAttributes is the structured metadata block extracted for each wardrobe
// piece. CoreCategory, when present, is an upstream classification hint and
// takes precedence over keyword matching.
type ItemAttributes struct {
	CoreCategory   string  `json:"core_category,omitempty" db:"core_category"`
	Material       string  `json:"material,omitempty" db:"material"`
	Pattern        string  `json:"pattern,omitempty" db:"pattern"`
	Fit            string  `json:"fit,omitempty" db:"fit"`
	Color          string  `json:"color,omitempty" db:"color"`
	FormalityLevel int     `json:"formality_level" db:"formality_level"` // 1 (athleisure) .. 5 (black tie)
	SleeveLength   string  `json:"sleeve_length,omitempty" db:"sleeve_length"`
	WarmthFactor   int     `json:"warmth_factor" db:"warmth_factor"` // 1 (sheer) .. 5 (heavy)
	LayerLevel     int     `json:"layer_level" db:"layer_level"`     // 0 base, 1 mid, 2 outer
	GenderTarget   string  `json:"gender_target,omitempty" db:"gender_target"`
	TempRangeMinC  float64 `json:"temp_range_min_c" db:"temp_range_min_c"`
	TempRangeMaxC  float64 `json:"temp_range_max_c" db:"temp_range_max_c"`
}

// Item is a single wardrobe piece. Within one generation request it is
// read-only: the engine derives Category once and never mutates usage stats
// itself; wear stats are updated by the feedback path after the caller
// confirms an outfit.
type Item struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	UserID       uuid.UUID      `json:"user_id" db:"user_id"`
	Name         string         `json:"name" db:"name" validate:"required,min=1,max=255"`
	Type         string         `json:"type" db:"type" validate:"required"` // free text, classification fallback
	Category     Category       `json:"category" db:"category"`             // derived, never user-set
	StyleTags    []string       `json:"style_tags,omitempty" db:"style_tags"`
	OccasionTags []string       `json:"occasion_tags,omitempty" db:"occasion_tags"`
	SeasonTags   []string       `json:"season_tags,omitempty" db:"season_tags"`
	Attributes   ItemAttributes `json:"attributes" db:"attributes"`
	WearCount    int            `json:"wear_count" db:"wear_count"`
	LastWornAt   *time.Time     `json:"last_worn_at,omitempty" db:"last_worn_at"`
	Favorite     bool           `json:"favorite" db:"favorite"`
	Active       bool           `json:"active" db:"active"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// HasStyleTag reports whether the item carries the given style tag.
func (i *Item) HasStyleTag(tag string) bool {
	for _, t := range i.StyleTags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasOccasionTag reports whether the item carries the given occasion tag.
func (i *Item) HasOccasionTag(tag string) bool {
	for _, t := range i.OccasionTags {
		if t == tag {
			return true
		}
	}
	return false
}
