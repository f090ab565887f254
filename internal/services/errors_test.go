package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylara/outfit-engine/pkg/models"
)

func loggedError(hook *test.Hook, target error) bool {
	for _, entry := range hook.AllEntries() {
		if err, ok := entry.Data[logrus.ErrorKey].(error); ok && errors.Is(err, target) {
			return true
		}
	}
	return false
}

func TestGenerate_LogsTierExhaustion(t *testing.T) {
	// Nothing here survives the wedding route's tiers: every garment is
	// loungewear, and the rode-along shoes and accessories alone never form
	// a sufficient pool.
	logger, hook := test.NewNullLogger()
	orch := testOrchestratorWithLogger([]models.Item{
		wardrobeItem("tee"),
		wardrobeItem("tank top"),
		wardrobeItem("joggers"),
		wardrobeItem("hoodie"),
		wardrobeItem("sneakers"),
		wardrobeItem("sandals"),
		wardrobeItem("belt"),
		wardrobeItem("watch"),
	}, logger)

	result, err := orch.Generate(context.Background(), uuid.New(), &models.GenerateOutfitRequest{
		Occasion: "wedding",
	})
	require.NoError(t, err, "tier exhaustion degrades, it does not fail")
	require.NotNil(t, result)

	assert.True(t, result.Diagnostics.TierExhausted)
	assert.True(t, loggedError(hook, ErrTierExhausted),
		"exhausting every formality tier must be logged with its sentinel")
}

func TestGenerate_LogsPersistentCoherenceFailure(t *testing.T) {
	// All-patterned wardrobe: strict and relaxed attempts both overload,
	// so the persistent-failure sentinel must land in the log.
	logger, hook := test.NewNullLogger()
	items := []models.Item{
		wardrobeItem("blouse"),
		wardrobeItem("midi skirt"),
		wardrobeItem("sneakers"),
		wardrobeItem("tee"),
		wardrobeItem("jeans"),
		wardrobeItem("boots"),
	}
	patterns := []string{"leopard", "floral", "plaid", "zebra", "camo", "paisley"}
	for i := range items {
		items[i].Attributes.Pattern = patterns[i]
	}

	orch := testOrchestratorWithLogger(items, logger)
	result, err := orch.Generate(context.Background(), uuid.New(), &models.GenerateOutfitRequest{
		Occasion: "casual",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Diagnostics.PostHocPenalty)
	assert.True(t, loggedError(hook, ErrPostHocValidation),
		"issues surviving the relaxed retry must be logged with their sentinel")
}
