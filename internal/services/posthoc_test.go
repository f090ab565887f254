package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

func testPostHoc() *PostHocChecker {
	return NewPostHocChecker(&config.PostHocConfig{
		MaxPatternedItems: 2,
		ConfidencePenalty: 0.1,
	})
}

func patternedItem(typ, pattern, color string) models.Item {
	return models.Item{
		Type: typ,
		Attributes: models.ItemAttributes{
			Pattern: pattern,
			Color:   color,
		},
	}
}

func TestPostHocChecker_CleanOutfitPasses(t *testing.T) {
	checker := testPostHoc()

	items := []models.Item{
		patternedItem("tee", "solid", "white"),
		patternedItem("jeans", "", "denim"),
		patternedItem("sneakers", "", "white"),
	}

	assert.Empty(t, checker.Check(items))
}

func TestPostHocChecker_PatternOverload(t *testing.T) {
	checker := testPostHoc()

	t.Run("two strong prints are tolerated", func(t *testing.T) {
		items := []models.Item{
			patternedItem("blouse", "leopard", "tan"),
			patternedItem("skirt", "floral", "cream"),
			patternedItem("flats", "solid", "black"),
		}
		assert.Empty(t, checker.Check(items))
	})

	t.Run("three strong prints overload", func(t *testing.T) {
		items := []models.Item{
			patternedItem("blouse", "leopard", "tan"),
			patternedItem("skirt", "floral", "cream"),
			patternedItem("scarf", "plaid", "beige"),
		}
		issues := checker.Check(items)
		assert.Len(t, issues, 1)
		assert.Contains(t, issues[0], "pattern overload")
	})
}

func TestPostHocChecker_ColorClash(t *testing.T) {
	checker := testPostHoc()

	items := []models.Item{
		patternedItem("sweater", "solid", "red"),
		patternedItem("skirt", "solid", "pink"),
		patternedItem("boots", "solid", "black"),
	}

	issues := checker.Check(items)
	assert.Len(t, issues, 1)
	assert.Contains(t, issues[0], "color clash")
}

func TestPostHocChecker_ReportsEveryClashingPair(t *testing.T) {
	checker := testPostHoc()

	items := []models.Item{
		patternedItem("jacket", "solid", "navy"),
		patternedItem("trousers", "solid", "black"),
		patternedItem("loafers", "solid", "brown"),
	}

	// navy/black and brown/black both clash; navy/brown does not.
	issues := checker.Check(items)
	assert.Len(t, issues, 2)
}
