package services

import (
	"strings"

	"github.com/stylara/outfit-engine/pkg/models"
)

// The compatibility dimension is itself a weighted sub-composite of
// layer/pattern/fit/formality/color sub-checks against the request context,
// plus an optional co-wear affinity bonus from the graph store.
const (
	subWeightLayer     = 0.20
	subWeightPattern   = 0.20
	subWeightFit       = 0.20
	subWeightFormality = 0.20
	subWeightColor     = 0.20
)

// occasionFormalityTargets gives the formality level an occasion aims for.
var occasionFormalityTargets = map[string]int{
	"interview":   4,
	"business":    4,
	"formal":      5,
	"wedding":     4,
	"funeral":     4,
	"date_night":  3,
	"dinner":      3,
	"conference":  3,
	"casual":      2,
	"brunch":      2,
	"errands":     1,
	"gym":         1,
	"athletic":    1,
	"loungewear":  1,
	"lounge":      1,
	"sleep":       1,
	"travel":      2,
	"date":        3,
	"party":       3,
	"festival":    2,
	"picnic":      2,
	"school":      2,
	"work":        3,
	"weekend":     2,
	"night_out":   3,
	"graduation":  4,
	"church":      3,
	"volunteer":   2,
	"housework":   1,
	"hiking":      1,
	"beach":       1,
	"ski":         2,
	"holiday":     3,
	"anniversary": 3,
}

// strongPatterns are prints that fight each other in one outfit.
var strongPatterns = map[string]bool{
	"leopard":    true,
	"zebra":      true,
	"plaid":      true,
	"tartan":     true,
	"houndstooth": true,
	"floral":     true,
	"paisley":    true,
	"geometric":  true,
	"graphic":    true,
	"stripe":     true,
	"striped":    true,
	"polka dot":  true,
	"camo":       true,
}

// clashingColorPairs are combinations the post-hoc check also flags.
var clashingColorPairs = map[[2]string]bool{
	{"red", "pink"}:     true,
	{"red", "orange"}:   true,
	{"green", "orange"}: true,
	{"purple", "yellow"}: true,
	{"brown", "black"}:  true,
	{"navy", "black"}:   true,
}

// neutralColors pair with anything.
var neutralColors = map[string]bool{
	"black": true, "white": true, "grey": true, "gray": true,
	"beige": true, "cream": true, "tan": true, "denim": true,
}

// scoreCompatibility rates how well the item slots into an outfit for this
// context. Relaxed mode zeroes the pattern and color sub-checks for the one
// bounded post-hoc regeneration attempt.
func scoreCompatibility(gc *models.GenerationContext, item *models.Item, affinityBonus float64, relaxed bool) float64 {
	attrs := item.Attributes

	layer := scoreLayerCheck(gc, item)
	fit := scoreFitCheck(item)
	formality := scoreFormalityCheck(gc, attrs.FormalityLevel)

	pattern := 0.0
	color := 0.0
	if !relaxed {
		pattern = scorePatternCheck(attrs.Pattern)
		color = scoreColorCheck(attrs.Color)
	}

	score := layer*subWeightLayer +
		pattern*subWeightPattern +
		fit*subWeightFit +
		formality*subWeightFormality +
		color*subWeightColor

	// Affinity bonus is bounded so graph noise cannot dominate the static
	// checks.
	if affinityBonus > 0.5 {
		affinityBonus = 0.5
	}
	return score + affinityBonus
}

func scoreLayerCheck(gc *models.GenerationContext, item *models.Item) float64 {
	layer := item.Attributes.LayerLevel
	temp := gc.Weather.TemperatureC

	switch {
	case layer == 2 && temp >= 26:
		return -1.0 // outer layer in heat
	case layer == 2 && temp <= 12:
		return 1.0
	case layer == 1 && temp <= 18:
		return 0.5
	case layer == 0:
		return 0.5 // base layers always compose
	}
	return 0
}

func scorePatternCheck(pattern string) float64 {
	p := strings.ToLower(pattern)
	switch {
	case p == "" || p == "solid" || p == "plain":
		return 1.0 // solids compose with everything
	case strongPatterns[p]:
		return -0.3
	}
	return 0.3
}

func scoreFitCheck(item *models.Item) float64 {
	fit := strings.ToLower(item.Attributes.Fit)
	switch fit {
	case "":
		return 0
	case "oversize", "oversized":
		// Balances against fitted pieces; mild positive on its own.
		return 0.2
	case "fitted", "tailored", "a-line", "wrap", "empire", "relaxed", "layered":
		return 0.5
	}
	return 0.1
}

func scoreFormalityCheck(gc *models.GenerationContext, level int) float64 {
	if level == 0 {
		return 0
	}
	target, ok := occasionFormalityTargets[normalizeOccasion(gc.Occasion)]
	if !ok {
		target = 2
	}

	gap := level - target
	if gap < 0 {
		gap = -gap
	}
	switch gap {
	case 0:
		return 1.0
	case 1:
		return 0.4
	case 2:
		return -0.4
	default:
		return -1.0
	}
}

func scoreColorCheck(color string) float64 {
	c := strings.ToLower(color)
	switch {
	case c == "":
		return 0
	case neutralColors[c]:
		return 0.8
	}
	return 0.3
}

// colorsClash reports whether two colors form a known clashing pair, in
// either order. Used by the post-hoc coherence check.
func colorsClash(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" || a == b {
		return false
	}
	return clashingColorPairs[[2]string{a, b}] || clashingColorPairs[[2]string{b, a}]
}

// isStrongPattern reports whether the pattern counts toward pattern overload.
func isStrongPattern(pattern string) bool {
	return strongPatterns[strings.ToLower(pattern)]
}
