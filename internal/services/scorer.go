package services

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

// Dimension score bounds, applied before weighting.
const (
	dimensionMin = -1.0
	dimensionMax = 2.0
)

// MultiDimensionalScorer computes the six per-item dimension scores and the
// weighted composite. Each dimension is a pure function of the immutable
// GenerationContext, so items are scored in parallel; nothing here touches
// shared mutable state during fan-out.
type MultiDimensionalScorer struct {
	weights  *config.WeightsConfig
	divCfg   *config.DiversityConfig
	affinity *AffinityGraph // optional, nil-safe
	logger   *logrus.Logger
}

func NewMultiDimensionalScorer(
	weights *config.WeightsConfig,
	divCfg *config.DiversityConfig,
	affinity *AffinityGraph,
	logger *logrus.Logger,
) *MultiDimensionalScorer {
	return &MultiDimensionalScorer{
		weights:  weights,
		divCfg:   divCfg,
		affinity: affinity,
		logger:   logger,
	}
}

// ScoreOptions tweaks a scoring run. Relaxed scoring drops the pattern/color
// sub-checks, used for the single post-hoc regeneration attempt.
type ScoreOptions struct {
	Relaxed bool
}

// ScoreItems fans dimension scoring out across a bounded worker pool and
// joins before composite aggregation. Order of the result matches the pool.
func (s *MultiDimensionalScorer) ScoreItems(
	ctx context.Context,
	gc *models.GenerationContext,
	pool []models.Item,
	opts ScoreOptions,
) []models.ScoredItem {
	if len(pool) == 0 {
		return nil
	}

	// Affinity pairs are fetched once up front; workers only read the map.
	affinityBonus := s.lookupAffinity(ctx, gc, pool)

	scored := make([]models.ScoredItem, len(pool))

	workers := runtime.NumCPU()
	if workers > len(pool) {
		workers = len(pool)
	}
	if workers < 1 {
		workers = 1
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				scored[i] = s.scoreOne(gc, &pool[i], affinityBonus[pool[i].Category], opts)
			}
		}()
	}

	for i := range pool {
		select {
		case indexes <- i:
		case <-ctx.Done():
			// Deadline hit mid-scoring: stop feeding; already-scored entries
			// keep their values, the rest stay zero-valued and sort last.
			close(indexes)
			wg.Wait()
			return scored
		}
	}
	close(indexes)
	wg.Wait()

	s.logSpread(gc, scored)
	return scored
}

// ScoreItem scores a single item, used by the repair pass.
func (s *MultiDimensionalScorer) ScoreItem(
	ctx context.Context,
	gc *models.GenerationContext,
	item *models.Item,
	opts ScoreOptions,
) models.ScoredItem {
	bonus := s.lookupAffinity(ctx, gc, []models.Item{*item})
	return s.scoreOne(gc, item, bonus[item.Category], opts)
}

func (s *MultiDimensionalScorer) scoreOne(
	gc *models.GenerationContext,
	item *models.Item,
	affinityBonus float64,
	opts ScoreOptions,
) models.ScoredItem {
	dims := models.DimensionScores{
		BodyType:      clampDimension(scoreBodyType(gc, item)),
		StyleProfile:  clampDimension(scoreStyleProfile(gc, item)),
		Weather:       clampDimension(scoreWeather(gc, item)),
		UserFeedback:  clampDimension(scoreUserFeedback(gc, item)),
		Compatibility: clampDimension(scoreCompatibility(gc, item, affinityBonus, opts.Relaxed)),
		Diversity:     clampDimension(s.scoreDiversity(gc, item)),
	}

	composite := dims.BodyType*s.weights.BodyType +
		dims.StyleProfile*s.weights.StyleProfile +
		dims.Weather*s.weights.Weather +
		dims.UserFeedback*s.weights.UserFeedback +
		dims.Compatibility*s.weights.Compatibility +
		dims.Diversity*s.weights.Diversity

	return models.ScoredItem{Item: *item, Dimensions: dims, Composite: composite}
}

// scoreDiversity boosts items unused within the rolling window and penalizes
// repeats past the threshold. The weight on this dimension must stay above
// config.MinDiversityWeight or the boost drowns in base score spread.
func (s *MultiDimensionalScorer) scoreDiversity(gc *models.GenerationContext, item *models.Item) float64 {
	uses := gc.UsageCounts[item.ID]
	if uses == 0 && !gc.IsRecentlyUsed(item.ID) {
		return s.divCfg.UnusedBoost
	}

	if uses <= s.divCfg.PenaltyThreshold {
		// Inside the tolerated band: mild linear drop-off from neutral.
		return -0.2 * float64(uses)
	}

	over := float64(uses - s.divCfg.PenaltyThreshold)
	penalty := 0.4 * over
	if penalty > s.divCfg.MaxPenalty {
		penalty = s.divCfg.MaxPenalty
	}
	return -penalty
}

func (s *MultiDimensionalScorer) lookupAffinity(
	ctx context.Context,
	gc *models.GenerationContext,
	pool []models.Item,
) map[models.Category]float64 {
	if s.affinity == nil {
		return nil
	}
	bonus, err := s.affinity.CategoryAffinity(ctx, gc.Occasion, gc.Style)
	if err != nil {
		s.logger.WithError(err).Debug("Affinity graph unavailable, using static compatibility only")
		return nil
	}
	return bonus
}

// logSpread records composite distribution stats; a near-zero stddev with a
// high diversity weight usually means the history store is empty.
func (s *MultiDimensionalScorer) logSpread(gc *models.GenerationContext, scored []models.ScoredItem) {
	if len(scored) < 2 {
		return
	}
	composites := make([]float64, len(scored))
	for i, sc := range scored {
		composites[i] = sc.Composite
	}
	mean, std := stat.MeanStdDev(composites, nil)
	s.logger.WithFields(logrus.Fields{
		"user_id":    gc.UserID,
		"pool_size":  len(scored),
		"mean":       mean,
		"stddev":     std,
		"div_weight": s.weights.Diversity,
	}).Debug("Composite score spread")
}

func clampDimension(v float64) float64 {
	return math.Max(dimensionMin, math.Min(dimensionMax, v))
}
