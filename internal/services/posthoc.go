package services

import (
	"fmt"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

// PostHocChecker runs whole-outfit coherence checks that per-item scoring
// cannot see: too many competing prints, or a known clashing color pair. A
// failure triggers at most one relaxed regeneration; both attempts failing
// means the better attempt ships with a confidence penalty.
type PostHocChecker struct {
	cfg *config.PostHocConfig
}

func NewPostHocChecker(cfg *config.PostHocConfig) *PostHocChecker {
	return &PostHocChecker{cfg: cfg}
}

// Check returns the list of coherence issues, empty when the outfit passes.
func (p *PostHocChecker) Check(items []models.Item) []string {
	var issues []string

	patterned := 0
	for _, item := range items {
		if isStrongPattern(item.Attributes.Pattern) {
			patterned++
		}
	}
	if patterned > p.cfg.MaxPatternedItems {
		issues = append(issues, fmt.Sprintf("pattern overload: %d strong prints (max %d)", patterned, p.cfg.MaxPatternedItems))
	}

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i].Attributes.Color, items[j].Attributes.Color
			if colorsClash(a, b) {
				issues = append(issues, fmt.Sprintf("color clash: %s with %s", a, b))
			}
		}
	}

	return issues
}
