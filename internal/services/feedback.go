package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/pkg/models"
)

// FeedbackStore is the write side of wardrobe usage state.
type FeedbackStore interface {
	RecordWear(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, wornAt time.Time) error
	SetFavorite(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, favorite bool) error
}

// FeedbackService applies outfit feedback to the stores the scorer reads
// from next time: wear counts and favorites in PostgreSQL, co-wear edges in
// the affinity graph.
type FeedbackService struct {
	store    FeedbackStore
	wardrobe WardrobeProvider
	affinity *AffinityGraph // optional
	metrics  *EngineMetrics
	logger   *logrus.Logger
}

func NewFeedbackService(
	store FeedbackStore,
	wardrobe WardrobeProvider,
	affinity *AffinityGraph,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *FeedbackService {
	return &FeedbackService{
		store:    store,
		wardrobe: wardrobe,
		affinity: affinity,
		metrics:  metrics,
		logger:   logger,
	}
}

// Process applies one feedback event.
func (f *FeedbackService) Process(ctx context.Context, userID uuid.UUID, req *models.OutfitFeedbackRequest) error {
	now := time.Now().UTC()

	switch req.FeedbackType {
	case "worn":
		if err := f.store.RecordWear(ctx, userID, req.ItemIDs, now); err != nil {
			return fmt.Errorf("failed to apply worn feedback: %w", err)
		}
		f.reinforceAffinity(ctx, userID, req)
	case "liked":
		if err := f.store.SetFavorite(ctx, userID, req.ItemIDs, true); err != nil {
			return fmt.Errorf("failed to apply liked feedback: %w", err)
		}
		f.reinforceAffinity(ctx, userID, req)
	case "disliked":
		if err := f.store.SetFavorite(ctx, userID, req.ItemIDs, false); err != nil {
			return fmt.Errorf("failed to apply disliked feedback: %w", err)
		}
	case "skipped":
		// Recorded for metrics only; the diversity history already covers
		// served-but-unworn items.
	default:
		return fmt.Errorf("unknown feedback type %q", req.FeedbackType)
	}

	f.metrics.RecordFeedback(req.FeedbackType)
	f.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"type":    req.FeedbackType,
		"items":   len(req.ItemIDs),
	}).Info("Feedback applied")

	return nil
}

// reinforceAffinity strengthens occasion->category edges for positive
// feedback. Best effort; the graph is an enrichment.
func (f *FeedbackService) reinforceAffinity(ctx context.Context, userID uuid.UUID, req *models.OutfitFeedbackRequest) {
	if f.affinity == nil || req.Occasion == "" {
		return
	}

	wardrobe, err := f.wardrobe.LoadSnapshot(ctx, userID)
	if err != nil {
		f.logger.WithError(err).Debug("Skipping affinity reinforcement, wardrobe unavailable")
		return
	}

	byID := make(map[uuid.UUID]models.Category, len(wardrobe))
	for _, item := range wardrobe {
		byID[item.ID] = item.Category
	}

	seen := make(map[models.Category]bool)
	var categories []models.Category
	for _, id := range req.ItemIDs {
		if cat, ok := byID[id]; ok && !seen[cat] {
			seen[cat] = true
			categories = append(categories, cat)
		}
	}

	if err := f.affinity.RecordCoWear(ctx, req.Occasion, categories); err != nil {
		f.logger.WithError(err).Debug("Affinity reinforcement failed")
	}
}
