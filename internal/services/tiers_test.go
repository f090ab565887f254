package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

func testTierFilter() *FormalityTierFilter {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewFormalityTierFilter(&config.TiersConfig{
		MinItems:                6,
		MinItemsNotRecentlyUsed: 3,
	}, logger)
}

func formalItem(typ string, cat models.Category, formality int) models.Item {
	return models.Item{
		ID:       uuid.New(),
		Type:     typ,
		Category: cat,
		Attributes: models.ItemAttributes{
			FormalityLevel: formality,
		},
	}
}

// formalWardrobe has enough level-4/5 pieces to satisfy the strictest tier.
func formalWardrobe() []models.Item {
	return []models.Item{
		formalItem("dress shirt", models.CategoryTops, 4),
		formalItem("blazer", models.CategoryOuterwear, 4),
		formalItem("slacks", models.CategoryBottoms, 4),
		formalItem("oxfords", models.CategoryShoes, 5),
		formalItem("gown", models.CategoryDress, 5),
		formalItem("silk tie", models.CategoryAccessory, 4),
		formalItem("heels", models.CategoryShoes, 4),
	}
}

// smartCasualWardrobe sits at formality 3: below strict formal, inside tier 2.
func smartCasualWardrobe() []models.Item {
	return []models.Item{
		formalItem("chinos", models.CategoryBottoms, 3),
		formalItem("knit polo", models.CategoryTops, 3),
		formalItem("loafers", models.CategoryShoes, 3),
		formalItem("cardigan", models.CategoryOuterwear, 3),
		formalItem("midi skirt", models.CategoryBottoms, 3),
		formalItem("silk blouse", models.CategoryTops, 3),
		formalItem("leather belt", models.CategoryAccessory, 3),
	}
}

func TestFormalityTierFilter_InterviewUsesStrictFormal(t *testing.T) {
	filter := testTierFilter()
	gc := &models.GenerationContext{Occasion: "interview"}

	result := filter.Filter(gc, formalWardrobe())

	assert.Equal(t, 1, result.TierUsed)
	assert.Equal(t, 0, result.FallbackDepth)
	assert.False(t, result.Exhausted)
	assert.NotEmpty(t, result.Pool)
}

func TestFormalityTierFilter_StyleOverrideShiftsTier(t *testing.T) {
	filter := testTierFilter()

	// A light academia interview starts at smart casual rather than strict
	// formal, so a smart-casual wardrobe resolves at depth zero.
	gc := &models.GenerationContext{Occasion: "interview", Style: "light academia"}
	result := filter.Filter(gc, smartCasualWardrobe())

	assert.Equal(t, 2, result.TierUsed)
	assert.Equal(t, 0, result.FallbackDepth)
	assert.False(t, result.Exhausted)
}

func TestFormalityTierFilter_FallsBackWhenPrimaryInsufficient(t *testing.T) {
	filter := testTierFilter()

	// Without the override the same wardrobe cannot satisfy strict formal
	// and must fall back to the smart casual tier.
	gc := &models.GenerationContext{Occasion: "interview"}
	result := filter.Filter(gc, smartCasualWardrobe())

	assert.Equal(t, 2, result.TierUsed)
	assert.Equal(t, 1, result.FallbackDepth)
	assert.False(t, result.Exhausted)
}

func TestFormalityTierFilter_ExhaustionNeverReturnsEmpty(t *testing.T) {
	filter := testTierFilter()

	wardrobe := []models.Item{
		formalItem("graphic tee", models.CategoryTops, 1),
		formalItem("joggers", models.CategoryBottoms, 1),
		formalItem("flip flops", models.CategoryShoes, 1),
	}

	gc := &models.GenerationContext{Occasion: "wedding"}
	result := filter.Filter(gc, wardrobe)

	assert.True(t, result.Exhausted)
	assert.Len(t, result.Pool, len(wardrobe), "exhaustion passes the full wardrobe through")
}

func TestFormalityTierFilter_NonSensitiveOccasionSkips(t *testing.T) {
	filter := testTierFilter()

	wardrobe := smartCasualWardrobe()
	gc := &models.GenerationContext{Occasion: "brunch"}
	result := filter.Filter(gc, wardrobe)

	assert.True(t, result.Skipped)
	assert.Equal(t, 0, result.TierUsed)
	assert.Len(t, result.Pool, len(wardrobe))
}

func TestFormalityTierFilter_RecentUsageCountsAgainstSufficiency(t *testing.T) {
	filter := testTierFilter()
	wardrobe := formalWardrobe()

	// Five of seven formal pieces served recently leaves only two fresh,
	// below the freshness floor, so the strict tier is insufficient.
	recent := make(map[uuid.UUID]time.Time)
	for _, item := range wardrobe[:5] {
		recent[item.ID] = time.Now()
	}

	gc := &models.GenerationContext{Occasion: "interview", RecentlyUsed: recent}
	result := filter.Filter(gc, wardrobe)

	assert.NotEqual(t, 0, result.TierUsed)
	assert.Greater(t, result.FallbackDepth+boolToInt(result.Exhausted), 0)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
