package services

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

// FormalityTier is one bracket in the ordered fallback sequence. An item
// matches a tier when its formality level falls in the tier's range or its
// tags/type hit the tier's keyword signature.
type FormalityTier struct {
	Level        int
	Name         string
	MinFormality int
	MaxFormality int
	Keywords     []string
}

// defaultTiers is the declarative tier table, strictest first. One generic
// fallback loop consumes it; there are no per-occasion branches.
var defaultTiers = []FormalityTier{
	{
		Level:        1,
		Name:         "strict_formal",
		MinFormality: 4,
		MaxFormality: 5,
		Keywords:     []string{"formal", "suit", "blazer", "oxford", "dress shirt", "slacks", "gown", "heels"},
	},
	{
		Level:        2,
		Name:         "smart_casual",
		MinFormality: 3,
		MaxFormality: 5,
		Keywords:     []string{"smart", "chino", "blouse", "loafer", "cardigan", "polo", "midi", "button"},
	},
	{
		Level:        3,
		Name:         "creative_casual",
		MinFormality: 2,
		MaxFormality: 4,
		Keywords:     []string{"casual", "denim", "knit", "sneaker", "print", "layer"},
	},
	{
		Level:        4,
		Name:         "relaxed",
		MinFormality: 1,
		MaxFormality: 3,
		Keywords:     []string{"relaxed", "tee", "jogger", "hoodie", "comfy"},
	},
}

// occasionRoute declares where an occasion starts in the tier order and how
// far it may fall back. StyleOverrides shift the primary tier for specific
// requested styles.
type occasionRoute struct {
	Primary        int
	Fallbacks      []int
	StyleOverrides map[string]int
}

// formalityRoutes covers the formality-sensitive occasions. Anything absent
// skips tier filtering entirely and passes the full wardrobe through.
var formalityRoutes = map[string]occasionRoute{
	"interview": {
		Primary:   1,
		Fallbacks: []int{2, 3},
		StyleOverrides: map[string]int{
			"light academia": 2,
			"dark academia":  2,
			"creative":       2,
		},
	},
	"business": {
		Primary:   1,
		Fallbacks: []int{2},
	},
	"formal": {
		Primary:   1,
		Fallbacks: []int{2},
	},
	"wedding": {
		Primary:   1,
		Fallbacks: []int{2, 3},
	},
	"funeral": {
		Primary:   1,
		Fallbacks: []int{2},
	},
	"date_night": {
		Primary:   2,
		Fallbacks: []int{3},
	},
	"dinner": {
		Primary:   2,
		Fallbacks: []int{3, 4},
	},
	"conference": {
		Primary:   2,
		Fallbacks: []int{1, 3},
	},
}

// TierFilterResult reports what the filter did, for result diagnostics.
type TierFilterResult struct {
	Pool          []models.Item
	TierUsed      int // 0 when the occasion is not formality-sensitive
	FallbackDepth int
	Exhausted     bool
	Skipped       bool
}

// FormalityTierFilter progressively narrows a wardrobe through ordered
// formality tiers until a minimally sufficient pool is found. It never
// returns zero candidates: on exhaustion the full wardrobe passes through.
type FormalityTierFilter struct {
	tiers  []FormalityTier
	routes map[string]occasionRoute
	config *config.TiersConfig
	logger *logrus.Logger
}

func NewFormalityTierFilter(cfg *config.TiersConfig, logger *logrus.Logger) *FormalityTierFilter {
	return &FormalityTierFilter{
		tiers:  defaultTiers,
		routes: formalityRoutes,
		config: cfg,
		logger: logger,
	}
}

// Filter applies the occasion's tier route to the wardrobe snapshot.
func (f *FormalityTierFilter) Filter(gc *models.GenerationContext, wardrobe []models.Item) TierFilterResult {
	route, sensitive := f.routes[normalizeOccasion(gc.Occasion)]
	if !sensitive {
		return TierFilterResult{Pool: wardrobe, Skipped: true}
	}

	primary := route.Primary
	if override, ok := route.StyleOverrides[strings.ToLower(strings.TrimSpace(gc.Style))]; ok {
		primary = override
	}

	order := append([]int{primary}, route.Fallbacks...)

	for depth, level := range order {
		tier := f.tierByLevel(level)
		if tier == nil {
			continue
		}

		pool := f.filterToTier(wardrobe, tier)
		if f.sufficient(gc, pool) {
			f.logger.WithFields(logrus.Fields{
				"occasion":       gc.Occasion,
				"tier":           tier.Level,
				"fallback_depth": depth,
				"pool_size":      len(pool),
			}).Debug("Tier filter resolved")

			return TierFilterResult{
				Pool:          pool,
				TierUsed:      tier.Level,
				FallbackDepth: depth,
			}
		}

		f.logger.WithFields(logrus.Fields{
			"occasion":  gc.Occasion,
			"tier":      tier.Level,
			"pool_size": len(pool),
		}).Debug("Tier pool insufficient, falling back")
	}

	// TierExhausted: non-fatal. Return the best available pool unfiltered
	// further so downstream always has candidates.
	last := order[len(order)-1]
	f.logger.WithFields(logrus.Fields{
		"occasion": gc.Occasion,
		"tiers":    order,
	}).Warn("Formality tiers exhausted, proceeding with full wardrobe")

	return TierFilterResult{
		Pool:          wardrobe,
		TierUsed:      last,
		FallbackDepth: len(order) - 1,
		Exhausted:     true,
	}
}

func (f *FormalityTierFilter) tierByLevel(level int) *FormalityTier {
	for i := range f.tiers {
		if f.tiers[i].Level == level {
			return &f.tiers[i]
		}
	}
	return nil
}

func (f *FormalityTierFilter) filterToTier(wardrobe []models.Item, tier *FormalityTier) []models.Item {
	var pool []models.Item
	for _, item := range wardrobe {
		if f.matchesTier(&item, tier) {
			pool = append(pool, item)
		}
	}
	return pool
}

func (f *FormalityTierFilter) matchesTier(item *models.Item, tier *FormalityTier) bool {
	// Shoes and accessories with no formality metadata ride along so tight
	// tiers don't strip essential categories outright.
	lvl := item.Attributes.FormalityLevel
	if lvl >= tier.MinFormality && lvl <= tier.MaxFormality {
		return true
	}

	haystack := strings.ToLower(item.Type + " " + item.Name + " " + strings.Join(item.StyleTags, " ") + " " + strings.Join(item.OccasionTags, " "))
	for _, kw := range tier.Keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}

	if lvl == 0 && (item.Category == models.CategoryShoes || item.Category == models.CategoryAccessory) {
		return true
	}

	return false
}

// sufficient checks the tier's minimum pool requirements: enough items
// overall, enough not recently used, and coverage of more than one category
// so an outfit is actually formable.
func (f *FormalityTierFilter) sufficient(gc *models.GenerationContext, pool []models.Item) bool {
	if len(pool) < f.config.MinItems {
		return false
	}

	fresh := 0
	categories := make(map[models.Category]bool)
	for _, item := range pool {
		if !gc.IsRecentlyUsed(item.ID) {
			fresh++
		}
		categories[item.Category] = true
	}

	if fresh < f.config.MinItemsNotRecentlyUsed {
		return false
	}

	return len(categories) >= 2
}

func normalizeOccasion(occasion string) string {
	s := strings.ToLower(strings.TrimSpace(occasion))
	return strings.ReplaceAll(s, " ", "_")
}
