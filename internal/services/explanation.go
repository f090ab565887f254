package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stylara/outfit-engine/pkg/models"
)

// ExplanationBuilder turns dimension scores into one short human-readable
// sentence per item, led by whichever dimension contributed most.
type ExplanationBuilder struct{}

func NewExplanationBuilder() *ExplanationBuilder {
	return &ExplanationBuilder{}
}

// Explain builds per-item explanations for a final selection.
func (b *ExplanationBuilder) Explain(gc *models.GenerationContext, selected []models.ScoredItem) map[uuid.UUID]string {
	explanations := make(map[uuid.UUID]string, len(selected))
	for _, sc := range selected {
		explanations[sc.Item.ID] = b.explainOne(gc, &sc)
	}
	return explanations
}

func (b *ExplanationBuilder) explainOne(gc *models.GenerationContext, sc *models.ScoredItem) string {
	dim, score := dominantDimension(sc.Dimensions)
	if score <= 0 {
		return fmt.Sprintf("Completes the outfit for %s.", strings.ToLower(gc.Occasion))
	}

	switch dim {
	case "body_type":
		return fmt.Sprintf("The %s cut flatters your %s shape.",
			orDefault(sc.Item.Attributes.Fit, "relaxed"), gc.Profile.BodyType)
	case "style_profile":
		if gc.Style != "" {
			return fmt.Sprintf("Matches your %s style for %s.", gc.Style, strings.ToLower(gc.Occasion))
		}
		return fmt.Sprintf("Fits your usual style for %s.", strings.ToLower(gc.Occasion))
	case "weather":
		return fmt.Sprintf("Comfortable at %.0f°C %s.",
			gc.Weather.TemperatureC, orDefault(strings.ToLower(gc.Weather.Condition), "weather"))
	case "user_feedback":
		if sc.Item.Favorite {
			return "One of your favorites."
		}
		return "You reach for this one often."
	case "compatibility":
		return "Pairs well with the rest of the outfit."
	case "diversity":
		return "You haven't worn this in a while."
	}
	return fmt.Sprintf("A solid pick for %s.", strings.ToLower(gc.Occasion))
}

func dominantDimension(d models.DimensionScores) (string, float64) {
	best, score := "style_profile", d.StyleProfile
	for _, candidate := range []struct {
		name  string
		score float64
	}{
		{"body_type", d.BodyType},
		{"weather", d.Weather},
		{"user_feedback", d.UserFeedback},
		{"compatibility", d.Compatibility},
		{"diversity", d.Diversity},
	} {
		if candidate.score > score {
			best, score = candidate.name, candidate.score
		}
	}
	return best, score
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
