package services

import (
	"strings"
	"time"

	"github.com/stylara/outfit-engine/pkg/models"
)

// The dimension functions in this file are pure: they read only the immutable
// GenerationContext and the candidate item, which is what makes parallel
// scoring safe.

// bodyTypeFitAffinity maps body type -> fit -> score contribution.
var bodyTypeFitAffinity = map[string]map[string]float64{
	"hourglass": {
		"fitted":   1.0,
		"tailored": 0.8,
		"wrap":     0.9,
		"relaxed":  0.2,
		"oversize": -0.3,
	},
	"pear": {
		"a-line":   1.0,
		"fitted":   0.4,
		"tailored": 0.6,
		"relaxed":  0.5,
		"oversize": 0.0,
	},
	"apple": {
		"empire":   1.0,
		"relaxed":  0.7,
		"tailored": 0.5,
		"fitted":   -0.2,
		"oversize": 0.3,
	},
	"rectangle": {
		"layered":  0.8,
		"fitted":   0.6,
		"tailored": 0.7,
		"relaxed":  0.4,
		"oversize": 0.2,
	},
	"athletic": {
		"fitted":   0.8,
		"tailored": 0.7,
		"relaxed":  0.6,
		"oversize": 0.3,
	},
}

// scoreBodyType rates how well the item's cut flatters the profile's body
// type. Unknown body types or fits score neutral rather than negative so
// incomplete profiles don't suppress whole wardrobes.
func scoreBodyType(gc *models.GenerationContext, item *models.Item) float64 {
	bodyType := strings.ToLower(gc.Profile.BodyType)
	if bodyType == "" {
		return 0
	}

	affinities, ok := bodyTypeFitAffinity[bodyType]
	if !ok {
		return 0
	}

	fit := strings.ToLower(item.Attributes.Fit)
	if fit == "" {
		return 0.1 // slight benefit of the doubt for untagged items
	}

	if score, ok := affinities[fit]; ok {
		return score
	}
	return 0
}

// moodAdjustments shifts style scoring by the requested mood.
var moodAdjustments = map[string]struct {
	boostTags   []string
	penaltyTags []string
}{
	"confident":   {boostTags: []string{"bold", "statement", "structured"}, penaltyTags: []string{"plain"}},
	"relaxed":     {boostTags: []string{"soft", "cozy", "loose"}, penaltyTags: []string{"structured", "stiff"}},
	"playful":     {boostTags: []string{"colorful", "print", "fun"}, penaltyTags: []string{"severe"}},
	"elegant":     {boostTags: []string{"minimal", "classic", "refined"}, penaltyTags: []string{"loud", "graphic"}},
	"adventurous": {boostTags: []string{"edgy", "statement", "experimental"}, penaltyTags: []string{"basic"}},
}

// scoreStyleProfile combines the request's style against item style tags with
// the profile's dominant styles and the mood adjustment table.
func scoreStyleProfile(gc *models.GenerationContext, item *models.Item) float64 {
	score := 0.0

	style := strings.ToLower(strings.TrimSpace(gc.Style))
	if style != "" {
		if item.HasStyleTag(style) {
			score += 1.0
		} else {
			// Partial credit for shared style family words ("academia",
			// "minimal", ...).
			for _, tag := range item.StyleTags {
				if sharesStyleWord(style, strings.ToLower(tag)) {
					score += 0.4
					break
				}
			}
		}
	}

	for _, dominant := range gc.Profile.DominantStyles {
		if item.HasStyleTag(strings.ToLower(dominant)) {
			score += 0.3
			break
		}
	}

	occasion := normalizeOccasion(gc.Occasion)
	if item.HasOccasionTag(occasion) {
		score += 0.5
	}

	if adj, ok := moodAdjustments[strings.ToLower(gc.Mood)]; ok {
		for _, tag := range adj.boostTags {
			if item.HasStyleTag(tag) {
				score += 0.2
				break
			}
		}
		for _, tag := range adj.penaltyTags {
			if item.HasStyleTag(tag) {
				score -= 0.2
				break
			}
		}
	}

	// Gender target mismatch is a hard minus, not a hard filter; unisex and
	// untagged items stay neutral.
	if gt := item.Attributes.GenderTarget; gt != "" && gt != "unisex" &&
		gc.Profile.GenderTarget != "" && gt != gc.Profile.GenderTarget {
		score -= 1.0
	}

	return score
}

func sharesStyleWord(a, b string) bool {
	for _, wa := range strings.Fields(a) {
		if len(wa) < 4 {
			continue
		}
		if strings.Contains(b, wa) {
			return true
		}
	}
	return false
}

// scoreWeather rates temperature-range compatibility and condition fit.
func scoreWeather(gc *models.GenerationContext, item *models.Item) float64 {
	temp := gc.Weather.TemperatureC
	attrs := item.Attributes
	score := 0.0

	if attrs.TempRangeMinC != 0 || attrs.TempRangeMaxC != 0 {
		switch {
		case temp >= attrs.TempRangeMinC && temp <= attrs.TempRangeMaxC:
			score += 1.0
		case temp < attrs.TempRangeMinC-10 || temp > attrs.TempRangeMaxC+10:
			score -= 1.0
		default:
			score -= 0.3 // within 10 degrees of the comfort band
		}
	}

	// Warmth factor vs temperature: heavy knits in summer and sheer layers
	// in frost both lose points.
	switch {
	case temp <= 5 && attrs.WarmthFactor >= 4:
		score += 0.6
	case temp <= 5 && attrs.WarmthFactor <= 1 && attrs.WarmthFactor > 0:
		score -= 0.6
	case temp >= 28 && attrs.WarmthFactor >= 4:
		score -= 0.8
	case temp >= 28 && attrs.WarmthFactor <= 2 && attrs.WarmthFactor > 0:
		score += 0.4
	}

	condition := strings.ToLower(gc.Weather.Condition)
	material := strings.ToLower(attrs.Material)
	switch {
	case strings.Contains(condition, "rain"):
		if item.Category == models.CategoryOuterwear || strings.Contains(strings.ToLower(item.Type), "boot") {
			score += 0.4
		}
		if material == "suede" || material == "silk" {
			score -= 0.5
		}
	case strings.Contains(condition, "snow"):
		if attrs.WarmthFactor >= 4 || item.Category == models.CategoryOuterwear {
			score += 0.5
		}
		if strings.Contains(strings.ToLower(item.Type), "sandal") {
			score -= 1.0
		}
	case strings.Contains(condition, "wind"):
		if item.Category == models.CategoryOuterwear {
			score += 0.2
		}
	}

	return score
}

// scoreUserFeedback folds explicit preference signals into the score:
// favorites get a strong boost, well-worn items a moderate one (they were
// chosen repeatedly for a reason), and abandoned items drift down. Repetition
// control is the diversity dimension's job, not this one's.
func scoreUserFeedback(gc *models.GenerationContext, item *models.Item) float64 {
	score := 0.0

	if item.Favorite {
		score += 1.0
	}

	switch {
	case item.WearCount >= 10:
		score += 0.5
	case item.WearCount >= 3:
		score += 0.3
	case item.WearCount == 0:
		score -= 0.1 // unproven, not disliked
	}

	if item.LastWornAt != nil {
		monthsSince := gc.RequestedAt.Sub(*item.LastWornAt) / (30 * 24 * time.Hour)
		if monthsSince >= 6 && item.WearCount > 0 {
			score -= 0.3 // owned but avoided
		}
	}

	return score
}
