package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

// stubWardrobe serves a fixed wardrobe without a database.
type stubWardrobe struct {
	items   []models.Item
	profile *models.UserProfile
}

func (s *stubWardrobe) LoadSnapshot(_ context.Context, _ uuid.UUID) ([]models.Item, error) {
	// Copy so ClassifyAll in one generation cannot leak into the next.
	out := make([]models.Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *stubWardrobe) LoadProfile(_ context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	if s.profile != nil {
		return s.profile, nil
	}
	return &models.UserProfile{UserID: userID}, nil
}

func testEngineConfig() *config.EngineConfig {
	return &config.EngineConfig{
		Weights:   *testWeights(),
		Diversity: *testDiversityConfig(),
		Selection: *testSelectionConfig(),
		Tiers: config.TiersConfig{
			MinItems:                6,
			MinItemsNotRecentlyUsed: 3,
		},
		PostHoc: config.PostHocConfig{
			MaxPatternedItems: 2,
			ConfidencePenalty: 0.1,
		},
		TimeoutMs: 1500,
	}
}

func testOrchestrator(wardrobe []models.Item) *OutfitOrchestrator {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return testOrchestratorWithLogger(wardrobe, logger)
}

func testOrchestratorWithLogger(wardrobe []models.Item, logger *logrus.Logger) *OutfitOrchestrator {
	cfg := testEngineConfig()
	classifier := NewCategoryClassifier(logger)
	gate := NewInvariantGate(classifier, cfg.Selection.MaxAccessories)
	tierFilter := NewFormalityTierFilter(&cfg.Tiers, logger)
	scorer := NewMultiDimensionalScorer(&cfg.Weights, &cfg.Diversity, nil, logger)
	selection := NewSelectionEngine(gate, classifier, &cfg.Selection, logger)
	repair := NewCompletenessRepair(gate, classifier, scorer, logger)
	postHoc := NewPostHocChecker(&cfg.PostHoc)
	history := NewMemoryDiversityHistory(&cfg.Diversity)

	return NewOutfitOrchestrator(
		cfg,
		classifier, tierFilter, scorer, selection, repair, gate, postHoc,
		history, &stubWardrobe{items: wardrobe}, NewExplanationBuilder(), nil,
		nil, nil, logger,
	)
}

func wardrobeItem(typ string) models.Item {
	return models.Item{ID: uuid.New(), Type: typ, Name: typ}
}

func fullCasualWardrobe() []models.Item {
	return []models.Item{
		wardrobeItem("tee"),
		wardrobeItem("oxford shirt"),
		wardrobeItem("sweater"),
		wardrobeItem("jeans"),
		wardrobeItem("chinos"),
		wardrobeItem("midi skirt"),
		wardrobeItem("sneakers"),
		wardrobeItem("loafers"),
		wardrobeItem("denim jacket"),
		wardrobeItem("belt"),
	}
}

func TestOutfitOrchestrator_GenerateValidOutfit(t *testing.T) {
	orch := testOrchestrator(fullCasualWardrobe())

	result, err := orch.Generate(context.Background(), uuid.New(), &models.GenerateOutfitRequest{
		Occasion: "casual",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Has(models.CategoryTops))
	assert.True(t, result.Has(models.CategoryBottoms))
	assert.True(t, result.Has(models.CategoryShoes))
	assert.False(t, result.Incomplete)
	assert.Empty(t, orch.gate.Validate(result.Items), "returned outfit satisfies every invariant")
	assert.Zero(t, result.Diagnostics.DroppedItems)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	assert.Equal(t, "primary_selection", result.Strategy)
}

func TestOutfitOrchestrator_InsufficientWardrobe(t *testing.T) {
	orch := testOrchestrator([]models.Item{
		wardrobeItem("tee"),
		wardrobeItem("jeans"),
	})

	result, err := orch.Generate(context.Background(), uuid.New(), &models.GenerateOutfitRequest{
		Occasion: "casual",
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInsufficientWardrobe)
}

func TestOutfitOrchestrator_IncompleteWithoutShoes(t *testing.T) {
	orch := testOrchestrator([]models.Item{
		wardrobeItem("tee"),
		wardrobeItem("sweater"),
		wardrobeItem("jeans"),
		wardrobeItem("chinos"),
		wardrobeItem("hoodie"),
	})

	result, err := orch.Generate(context.Background(), uuid.New(), &models.GenerateOutfitRequest{
		Occasion: "casual",
	})
	require.NoError(t, err, "a shoeless wardrobe degrades, it does not fail")
	require.NotNil(t, result)

	assert.True(t, result.Incomplete)
	assert.Contains(t, result.Diagnostics.MissingCategories, models.CategoryShoes)
	assert.NotEmpty(t, result.Items)
	assert.Less(t, result.Confidence, 1.0)
}

func TestOutfitOrchestrator_DeadlineProducesMinimalOutfit(t *testing.T) {
	orch := testOrchestrator(fullCasualWardrobe())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orch.Generate(ctx, uuid.New(), &models.GenerateOutfitRequest{
		Occasion: "casual",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "timeout_minimal", result.Strategy)
	assert.NotEmpty(t, result.Items, "deadline path still returns essentials")
	assert.Empty(t, orch.gate.Validate(result.Items))
	assert.InDelta(t, 0.3, result.Confidence, 1e-9)
}

func TestOutfitOrchestrator_PostHocRetryAndPenalty(t *testing.T) {
	// Every candidate in every category carries a strong print, so both the
	// strict and the relaxed attempt overload and the penalty applies.
	leopardTop := wardrobeItem("blouse")
	leopardTop.Attributes.Pattern = "leopard"
	floralBottom := wardrobeItem("midi skirt")
	floralBottom.Attributes.Pattern = "floral"
	plaidShoes := wardrobeItem("sneakers")
	plaidShoes.Attributes.Pattern = "plaid"
	zebraTop := wardrobeItem("tee")
	zebraTop.Attributes.Pattern = "zebra"
	camoBottom := wardrobeItem("jeans")
	camoBottom.Attributes.Pattern = "camo"
	paisleyShoes := wardrobeItem("boots")
	paisleyShoes.Attributes.Pattern = "paisley"

	orch := testOrchestrator([]models.Item{
		leopardTop, floralBottom, plaidShoes, zebraTop, camoBottom, paisleyShoes,
	})

	result, err := orch.Generate(context.Background(), uuid.New(), &models.GenerateOutfitRequest{
		Occasion: "casual",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Diagnostics.PostHocRetried)
	assert.True(t, result.Diagnostics.PostHocPenalty)
	assert.NotEmpty(t, result.Items, "incoherent is still better than empty")
}

func TestOutfitOrchestrator_ExplanationsOnRequest(t *testing.T) {
	orch := testOrchestrator(fullCasualWardrobe())

	result, err := orch.Generate(context.Background(), uuid.New(), &models.GenerateOutfitRequest{
		Occasion:            "casual",
		IncludeExplanations: true,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Diagnostics.Explanations)
	for _, item := range result.Items {
		assert.NotEmpty(t, result.Diagnostics.Explanations[item.ID])
	}
}

func TestOutfitOrchestrator_GenerationRecordsHistory(t *testing.T) {
	history := NewMemoryDiversityHistory(testDiversityConfig())
	orch := testOrchestrator(fullCasualWardrobe())
	orch.history = history

	userID := uuid.New()
	result, err := orch.Generate(context.Background(), userID, &models.GenerateOutfitRequest{
		Occasion: "casual",
	})
	require.NoError(t, err)

	counts, err := history.UsageCounts(context.Background(), userID.String())
	require.NoError(t, err)
	assert.Len(t, counts, len(result.Items), "every served item lands in the diversity history")
}

func TestOutfitOrchestrator_RepeatedGenerationsRotateTops(t *testing.T) {
	wardrobe := []models.Item{
		wardrobeItem("tee"),
		wardrobeItem("oxford shirt"),
		wardrobeItem("sweater"),
		wardrobeItem("blouse"),
		wardrobeItem("tank top"),
		wardrobeItem("jeans"),
		wardrobeItem("chinos"),
		wardrobeItem("midi skirt"),
		wardrobeItem("slacks"),
		wardrobeItem("joggers"),
		wardrobeItem("sneakers"),
		wardrobeItem("loafers"),
		wardrobeItem("boots"),
		wardrobeItem("heels"),
		wardrobeItem("sandals"),
		wardrobeItem("denim jacket"),
		wardrobeItem("cardigan"),
		wardrobeItem("blazer"),
		wardrobeItem("belt"),
		wardrobeItem("watch"),
	}

	// One orchestrator, one history: each generation records usage, so the
	// diversity dimension has to keep rotating through the tops.
	orch := testOrchestrator(wardrobe)
	userID := uuid.New()

	const runs = 10
	topAppearances := make(map[uuid.UUID]int)
	for i := 0; i < runs; i++ {
		result, err := orch.Generate(context.Background(), userID, &models.GenerateOutfitRequest{
			Occasion: "casual",
		})
		require.NoError(t, err)
		for _, item := range result.Items {
			if item.Category == models.CategoryTops {
				topAppearances[item.ID]++
			}
		}
	}

	for id, count := range topAppearances {
		assert.LessOrEqualf(t, count, 4,
			"top %s served %d of %d generations; history should push repeats down", id, count, runs)
	}
}

func TestResultCacheKey_WeatherBucket(t *testing.T) {
	userID := uuid.New()
	req := func(temp float64, condition string) *models.GenerateOutfitRequest {
		return &models.GenerateOutfitRequest{
			Occasion: "casual",
			Weather:  &models.WeatherSnapshot{TemperatureC: temp, Condition: condition},
		}
	}

	t.Run("temperature band changes miss the cache", func(t *testing.T) {
		assert.NotEqual(t,
			resultCacheKey(userID, req(8, "clear")),
			resultCacheKey(userID, req(22, "clear")))
	})

	t.Run("condition changes miss the cache", func(t *testing.T) {
		assert.NotEqual(t,
			resultCacheKey(userID, req(18, "clear")),
			resultCacheKey(userID, req(18, "rain")))
	})

	t.Run("jitter inside one band hits the cache", func(t *testing.T) {
		assert.Equal(t,
			resultCacheKey(userID, req(16, "clear")),
			resultCacheKey(userID, req(19, "clear")))
	})

	t.Run("absent weather is its own bucket", func(t *testing.T) {
		bare := &models.GenerateOutfitRequest{Occasion: "casual"}
		assert.NotEqual(t, resultCacheKey(userID, bare), resultCacheKey(userID, req(18, "clear")))
	})
}
