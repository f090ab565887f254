package services

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

func testSelectionConfig() *config.SelectionConfig {
	return &config.SelectionConfig{
		MinWardrobeItems:   3,
		BasicPathThreshold: 8,
		TargetCountMin:     3,
		TargetCountMax:     6,
		LoungeCountMin:     2,
		LoungeCountMax:     4,
		MaxAccessories:     1,
		TieBreakJitter:     0.02,
	}
}

func testSelectionEngine() *SelectionEngine {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewSelectionEngine(testGate(1), testClassifier(), testSelectionConfig(), logger)
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// scoredWardrobe builds ScoredItems with fixed composites far enough apart
// that the tie-break jitter cannot reorder them.
func scoredWardrobe(entries []struct {
	typ       string
	cat       models.Category
	composite float64
}) ([]models.Item, []models.ScoredItem) {
	items := make([]models.Item, len(entries))
	scored := make([]models.ScoredItem, len(entries))
	for i, e := range entries {
		items[i] = models.Item{ID: uuid.New(), Type: e.typ, Category: e.cat}
		scored[i] = models.ScoredItem{Item: items[i], Composite: e.composite}
	}
	return items, scored
}

func categoriesOf(items []models.Item) map[models.Category]int {
	counts := make(map[models.Category]int)
	for _, item := range items {
		counts[item.Category]++
	}
	return counts
}

func TestSelectionEngine_DressLeadsWhenItScoresBest(t *testing.T) {
	engine := testSelectionEngine()

	wardrobe, scored := scoredWardrobe([]struct {
		typ       string
		cat       models.Category
		composite float64
	}{
		{"silk dress", models.CategoryDress, 0.95},
		{"blouse", models.CategoryTops, 0.70},
		{"jeans", models.CategoryBottoms, 0.60},
		{"heels", models.CategoryShoes, 0.55},
		{"flats", models.CategoryShoes, 0.40},
		{"cardigan", models.CategoryOuterwear, 0.35},
		{"tee", models.CategoryTops, 0.30},
		{"skirt", models.CategoryBottoms, 0.25},
		{"belt", models.CategoryAccessory, 0.20},
		{"scarf", models.CategoryAccessory, 0.15},
	})

	gc := &models.GenerationContext{Occasion: "date_night", Wardrobe: wardrobe}
	result := engine.Select(gc, scored, testRNG())

	counts := categoriesOf(result.Items)
	require.Equal(t, 1, counts[models.CategoryDress], "best-scoring dress leads the outfit")
	assert.Zero(t, counts[models.CategoryTops], "dress excludes tops")
	assert.Zero(t, counts[models.CategoryBottoms], "dress excludes bottoms")
	assert.Equal(t, 1, counts[models.CategoryShoes])
	assert.Empty(t, engine.gate.Validate(result.Items))
}

func TestSelectionEngine_SeparatesWhenDressScoresLow(t *testing.T) {
	engine := testSelectionEngine()

	wardrobe, scored := scoredWardrobe([]struct {
		typ       string
		cat       models.Category
		composite float64
	}{
		{"blouse", models.CategoryTops, 0.90},
		{"slacks", models.CategoryBottoms, 0.85},
		{"loafers", models.CategoryShoes, 0.80},
		{"old gown", models.CategoryDress, 0.10},
		{"cardigan", models.CategoryOuterwear, 0.50},
		{"tee", models.CategoryTops, 0.45},
		{"skirt", models.CategoryBottoms, 0.40},
		{"sneakers", models.CategoryShoes, 0.35},
		{"belt", models.CategoryAccessory, 0.30},
		{"watch", models.CategoryAccessory, 0.25},
	})

	gc := &models.GenerationContext{Occasion: "work", Wardrobe: wardrobe}
	result := engine.Select(gc, scored, testRNG())

	counts := categoriesOf(result.Items)
	assert.Zero(t, counts[models.CategoryDress])
	assert.Equal(t, 1, counts[models.CategoryTops])
	assert.Equal(t, 1, counts[models.CategoryBottoms])
	assert.Equal(t, 1, counts[models.CategoryShoes])
	assert.Empty(t, engine.gate.Validate(result.Items))
}

func TestSelectionEngine_BasicPathFillsRequiredOnly(t *testing.T) {
	engine := testSelectionEngine()

	// Six items sits above the emergency cutoff and at or below the basic
	// threshold, so the simplified path runs: required categories, no fillers.
	wardrobe, scored := scoredWardrobe([]struct {
		typ       string
		cat       models.Category
		composite float64
	}{
		{"tee", models.CategoryTops, 0.80},
		{"jeans", models.CategoryBottoms, 0.70},
		{"sneakers", models.CategoryShoes, 0.60},
		{"hoodie", models.CategoryOuterwear, 0.50},
		{"cap", models.CategoryAccessory, 0.40},
		{"tank top", models.CategoryTops, 0.30},
	})

	gc := &models.GenerationContext{Occasion: "casual", Wardrobe: wardrobe}
	result := engine.Select(gc, scored, testRNG())

	assert.Contains(t, result.FallbackPath, "basic_selection")
	counts := categoriesOf(result.Items)
	assert.Equal(t, 1, counts[models.CategoryTops])
	assert.Equal(t, 1, counts[models.CategoryBottoms])
	assert.Equal(t, 1, counts[models.CategoryShoes])
	assert.Zero(t, counts[models.CategoryOuterwear], "basic path skips preferred categories")
	assert.Zero(t, counts[models.CategoryAccessory])
}

func TestSelectionEngine_EmergencyPathTakesWhatTheGateAllows(t *testing.T) {
	engine := testSelectionEngine()

	wardrobe, scored := scoredWardrobe([]struct {
		typ       string
		cat       models.Category
		composite float64
	}{
		{"sundress", models.CategoryDress, 0.90},
		{"tee", models.CategoryTops, 0.80},
		{"sandals", models.CategoryShoes, 0.70},
		{"tote", models.CategoryAccessory, 0.60},
	})

	gc := &models.GenerationContext{Occasion: "casual", Wardrobe: wardrobe}
	result := engine.Select(gc, scored, testRNG())

	assert.Contains(t, result.FallbackPath, "emergency_selection")
	counts := categoriesOf(result.Items)
	assert.Equal(t, 1, counts[models.CategoryDress])
	assert.Zero(t, counts[models.CategoryTops], "gate still blocks tops alongside the dress")
	assert.Empty(t, engine.gate.Validate(result.Items))
}

func TestSelectionEngine_TargetCountRanges(t *testing.T) {
	engine := testSelectionEngine()

	for seed := uint64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed+1))

		def := engine.targetCount(&models.GenerationContext{Occasion: "casual"}, rng)
		assert.GreaterOrEqual(t, def, 3)
		assert.LessOrEqual(t, def, 6)

		lounge := engine.targetCount(&models.GenerationContext{Occasion: "loungewear"}, rng)
		assert.GreaterOrEqual(t, lounge, 2)
		assert.LessOrEqual(t, lounge, 4)
	}
}

func TestSelectionEngine_ColdWeatherLayeringPass(t *testing.T) {
	engine := testSelectionEngine()

	wardrobe, scored := scoredWardrobe([]struct {
		typ       string
		cat       models.Category
		composite float64
	}{
		{"sweater", models.CategoryTops, 0.90},
		{"jeans", models.CategoryBottoms, 0.85},
		{"boots", models.CategoryShoes, 0.80},
		{"tee", models.CategoryTops, 0.50},
		{"skirt", models.CategoryBottoms, 0.45},
		{"flats", models.CategoryShoes, 0.40},
		{"beanie", models.CategoryAccessory, 0.35},
		{"scarf", models.CategoryAccessory, 0.30},
		{"gloves", models.CategoryAccessory, 0.25},
		{"wool coat", models.CategoryOuterwear, 0.05},
	})

	gc := &models.GenerationContext{
		Occasion: "errands",
		Weather:  models.WeatherSnapshot{TemperatureC: 2, Condition: "snow"},
		Wardrobe: wardrobe,
	}
	result := engine.Select(gc, scored, testRNG())

	counts := categoriesOf(result.Items)
	assert.Equal(t, 1, counts[models.CategoryOuterwear],
		"layering pass pulls outerwear in even when it scores last")
}

func TestResolveEssentials(t *testing.T) {
	t.Run("default occasions require tops bottoms shoes", func(t *testing.T) {
		essentials := ResolveEssentials(&models.GenerationContext{Occasion: "casual"}, nil)
		assert.ElementsMatch(t,
			[]models.Category{models.CategoryTops, models.CategoryBottoms, models.CategoryShoes},
			essentials.Required)
	})

	t.Run("a selected dress rewrites the requirement set", func(t *testing.T) {
		selected := []models.Item{{Type: "gown", Category: models.CategoryDress}}
		essentials := ResolveEssentials(&models.GenerationContext{Occasion: "casual"}, selected)
		assert.ElementsMatch(t,
			[]models.Category{models.CategoryDress, models.CategoryShoes},
			essentials.Required)
		assert.False(t, essentials.RequiredHas(models.CategoryTops))
	})

	t.Run("lounge relaxes bottoms to preferred", func(t *testing.T) {
		essentials := ResolveEssentials(&models.GenerationContext{Occasion: "loungewear"}, nil)
		assert.ElementsMatch(t,
			[]models.Category{models.CategoryTops, models.CategoryShoes},
			essentials.Required)
		assert.ElementsMatch(t,
			[]models.Category{models.CategoryBottoms},
			essentials.Preferred)
	})

	t.Run("athletic has no preferred categories", func(t *testing.T) {
		essentials := ResolveEssentials(&models.GenerationContext{Occasion: "gym"}, nil)
		assert.Empty(t, essentials.Preferred)
	})
}
