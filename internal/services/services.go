package services

import (
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/internal/database"
	"github.com/stylara/outfit-engine/internal/messaging"
	"github.com/stylara/outfit-engine/internal/store"
)

type Services struct {
	Auth      *AuthService
	Health    *HealthService
	RateLimit *RateLimitService

	Classifier   *CategoryClassifier
	Gate         *InvariantGate
	TierFilter   *FormalityTierFilter
	Scorer       *MultiDimensionalScorer
	Selection    *SelectionEngine
	Repair       *CompletenessRepair
	PostHoc      *PostHocChecker
	History      DiversityHistory
	Affinity     *AffinityGraph
	Explainer    *ExplanationBuilder
	Feedback     *FeedbackService
	Metrics      *EngineMetrics
	Orchestrator *OutfitOrchestrator

	Wardrobe  *store.WardrobeStore
	Publisher *messaging.KafkaPublisher
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	authService := NewAuthService(cfg, logger, db.Redis)
	healthService := NewHealthService(cfg, logger, db)
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis)

	metrics := NewEngineMetrics()
	wardrobeStore := store.NewWardrobeStore(db.PG, logger)

	classifier := NewCategoryClassifier(logger)
	gate := NewInvariantGate(classifier, cfg.Engine.Selection.MaxAccessories)
	tierFilter := NewFormalityTierFilter(&cfg.Engine.Tiers, logger)

	affinity := NewAffinityGraph(db.Neo4j, logger)
	scorer := NewMultiDimensionalScorer(&cfg.Engine.Weights, &cfg.Engine.Diversity, affinity, logger)
	selection := NewSelectionEngine(gate, classifier, &cfg.Engine.Selection, logger)
	repair := NewCompletenessRepair(gate, classifier, scorer, logger)
	postHoc := NewPostHocChecker(&cfg.Engine.PostHoc)

	history := NewRedisDiversityHistory(db.Redis, &cfg.Engine.Diversity, logger)
	explainer := NewExplanationBuilder()

	// A nil concrete publisher must stay a nil interface value, or the
	// orchestrator's nil check passes and publishing panics.
	var publisher OutfitEventPublisher
	kafkaPublisher := messaging.NewKafkaPublisher(cfg, logger)
	if kafkaPublisher != nil {
		publisher = kafkaPublisher
	}

	orchestrator := NewOutfitOrchestrator(
		&cfg.Engine,
		classifier, tierFilter, scorer, selection, repair, gate, postHoc,
		history, wardrobeStore, explainer, publisher,
		db.Redis, metrics, logger,
	)

	feedback := NewFeedbackService(wardrobeStore, wardrobeStore, affinity, metrics, logger)

	return &Services{
		Auth:      authService,
		Health:    healthService,
		RateLimit: rateLimitService,

		Classifier:   classifier,
		Gate:         gate,
		TierFilter:   tierFilter,
		Scorer:       scorer,
		Selection:    selection,
		Repair:       repair,
		PostHoc:      postHoc,
		History:      history,
		Affinity:     affinity,
		Explainer:    explainer,
		Feedback:     feedback,
		Metrics:      metrics,
		Orchestrator: orchestrator,

		Wardrobe:  wardrobeStore,
		Publisher: kafkaPublisher,
	}, nil
}
