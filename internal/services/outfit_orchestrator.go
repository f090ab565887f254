package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

// WardrobeProvider supplies the wardrobe snapshot and profile for a request.
type WardrobeProvider interface {
	LoadSnapshot(ctx context.Context, userID uuid.UUID) ([]models.Item, error)
	LoadProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

// OutfitEventPublisher emits generation events to the message bus.
type OutfitEventPublisher interface {
	PublishOutfitGenerated(ctx context.Context, result *models.OutfitResult, occasion string) error
}

// OutfitOrchestrator runs the full generation pipeline: classify, tier
// filter, parallel scoring, greedy selection, completeness repair, the final
// invariant safety check, and post-hoc coherence checks with one bounded
// relaxed retry.
type OutfitOrchestrator struct {
	cfg        *config.EngineConfig
	classifier *CategoryClassifier
	tierFilter *FormalityTierFilter
	scorer     *MultiDimensionalScorer
	selection  *SelectionEngine
	repair     *CompletenessRepair
	gate       *InvariantGate
	postHoc    *PostHocChecker
	history    DiversityHistory
	wardrobe   WardrobeProvider
	explainer  *ExplanationBuilder
	publisher  OutfitEventPublisher // optional
	cache      *redis.Client        // optional result cache
	metrics    *EngineMetrics       // nil-safe
	logger     *logrus.Logger
}

func NewOutfitOrchestrator(
	cfg *config.EngineConfig,
	classifier *CategoryClassifier,
	tierFilter *FormalityTierFilter,
	scorer *MultiDimensionalScorer,
	selection *SelectionEngine,
	repair *CompletenessRepair,
	gate *InvariantGate,
	postHoc *PostHocChecker,
	history DiversityHistory,
	wardrobe WardrobeProvider,
	explainer *ExplanationBuilder,
	publisher OutfitEventPublisher,
	cache *redis.Client,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *OutfitOrchestrator {
	return &OutfitOrchestrator{
		cfg:        cfg,
		classifier: classifier,
		tierFilter: tierFilter,
		scorer:     scorer,
		selection:  selection,
		repair:     repair,
		gate:       gate,
		postHoc:    postHoc,
		history:    history,
		wardrobe:   wardrobe,
		explainer:  explainer,
		publisher:  publisher,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// Generate produces one outfit for the user and request. It degrades rather
// than fails: the only error surfaced for a well-formed request is
// ErrInsufficientWardrobe (plus infrastructure errors loading the wardrobe).
func (o *OutfitOrchestrator) Generate(
	ctx context.Context,
	userID uuid.UUID,
	req *models.GenerateOutfitRequest,
) (*models.OutfitResult, error) {
	start := time.Now()

	if !req.Fresh {
		if cached := o.cachedResult(ctx, userID, req); cached != nil {
			o.metrics.RecordCacheHit()
			return cached, nil
		}
	}

	timeout := time.Duration(o.cfg.TimeoutMs) * time.Millisecond
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	gc, err := o.buildContext(genCtx, userID, req)
	if err != nil {
		return nil, err
	}

	tierResult := o.tierFilter.Filter(gc, gc.Wardrobe)
	if tierResult.Exhausted {
		o.metrics.RecordTierExhausted()
		o.logger.WithError(ErrTierExhausted).WithFields(logrus.Fields{
			"user_id":  userID,
			"occasion": req.Occasion,
		}).Warn("Proceeding with unfiltered wardrobe")
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	attempt := o.runAttempt(genCtx, gc, tierResult.Pool, rng, ScoreOptions{})
	attempt.applyTierDiagnostics(tierResult)

	// One bounded relaxed retry when whole-outfit coherence fails. Relaxed
	// scoring drops the pattern/color sub-checks that caused the failure.
	if len(attempt.issues) > 0 && !attempt.timedOut {
		o.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"issues":  attempt.issues,
		}).Info("Post-hoc coherence failed, retrying relaxed")

		retry := o.runAttempt(genCtx, gc, tierResult.Pool, rng, ScoreOptions{Relaxed: true})
		retry.applyTierDiagnostics(tierResult)
		o.metrics.RecordPostHocRetry()

		// The retry flag belongs to whichever attempt ships: the retry ran
		// either way, and diagnostics must say so.
		attempt = pickBetterAttempt(attempt, retry)
		attempt.result.Diagnostics.PostHocRetried = true
		if len(attempt.issues) > 0 {
			attempt.result.Confidence -= o.cfg.PostHoc.ConfidencePenalty
			attempt.result.Diagnostics.PostHocPenalty = true
			o.logger.WithError(ErrPostHocValidation).WithFields(logrus.Fields{
				"user_id": userID,
				"issues":  attempt.issues,
			}).Warn("Coherence issues persist after relaxed retry")
		}
	}

	result := attempt.result
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	result.Latency = time.Since(start)

	if req.IncludeExplanations && o.explainer != nil {
		result.Diagnostics.Explanations = o.explainer.Explain(gc, attempt.scoredSelected(result.Items))
	}

	o.finalize(userID, req, result)

	o.metrics.ObserveGeneration(result.Strategy, result.Incomplete, result.Latency)
	o.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"occasion":   req.Occasion,
		"items":      len(result.Items),
		"strategy":   result.Strategy,
		"confidence": result.Confidence,
		"incomplete": result.Incomplete,
		"latency_ms": result.Latency.Milliseconds(),
	}).Info("Outfit generated")

	return result, nil
}

// attempt bundles one pipeline pass with what the retry decision needs.
type attempt struct {
	result   *models.OutfitResult
	scored   []models.ScoredItem
	issues   []string
	timedOut bool
}

func (a *attempt) applyTierDiagnostics(tr TierFilterResult) {
	d := &a.result.Diagnostics
	d.TierUsed = tr.TierUsed
	d.TierFallbackDepth = tr.FallbackDepth
	d.TierExhausted = tr.Exhausted
}

// scoredSelected maps final items back to their scored entries for
// explanation building. Items added by repair have no scored entry and are
// explained from the item alone.
func (a *attempt) scoredSelected(items []models.Item) []models.ScoredItem {
	byID := make(map[uuid.UUID]models.ScoredItem, len(a.scored))
	for _, sc := range a.scored {
		byID[sc.Item.ID] = sc
	}
	out := make([]models.ScoredItem, 0, len(items))
	for _, item := range items {
		if sc, ok := byID[item.ID]; ok {
			out = append(out, sc)
		} else {
			out = append(out, models.ScoredItem{Item: item})
		}
	}
	return out
}

// runAttempt is score -> select -> repair -> safety check -> coherence check.
func (o *OutfitOrchestrator) runAttempt(
	ctx context.Context,
	gc *models.GenerationContext,
	pool []models.Item,
	rng *rand.Rand,
	opts ScoreOptions,
) attempt {
	scored := o.scorer.ScoreItems(ctx, gc, pool, opts)

	if ctx.Err() != nil {
		return o.timeoutAttempt(gc, scored, opts)
	}

	sel := o.selection.Select(gc, scored, rng)
	repaired := o.repair.Repair(ctx, gc, sel.Items, sel.State, opts)

	items, dropped := o.enforceInvariants(gc.UserID, repaired.Items)

	result := &models.OutfitResult{
		UserID:      gc.UserID,
		Items:       items,
		Strategy:    sel.FallbackPath[0],
		Incomplete:  len(repaired.MissingCategories) > 0,
		GeneratedAt: time.Now().UTC(),
		Diagnostics: models.OutfitDiagnostics{
			FallbackPath:      sel.FallbackPath,
			MissingCategories: repaired.MissingCategories,
			RepairFilled:      repaired.Filled,
			DroppedItems:      dropped,
			ScoreBreakdown:    breakdownFor(scored, items),
			CandidatePoolSize: len(pool),
			TargetItemCount:   sel.TargetCount,
		},
	}

	issues := o.postHoc.Check(items)
	result.Confidence = o.confidence(result, sel, issues)

	return attempt{result: result, scored: scored, issues: issues}
}

// timeoutAttempt is the deadline escape hatch: skip selection entirely and
// let the repair pass assemble a minimal outfit of essential categories from
// whatever scores completed.
func (o *OutfitOrchestrator) timeoutAttempt(gc *models.GenerationContext, scored []models.ScoredItem, opts ScoreOptions) attempt {
	o.metrics.RecordTimeout()
	o.logger.WithField("user_id", gc.UserID).Warn("Generation deadline hit, assembling minimal outfit")

	// Detached short context: the request deadline is already gone, repair
	// only does in-memory work plus at most one affinity lookup.
	repairCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	repaired := o.repair.Repair(repairCtx, gc, nil, nil, opts)
	items, dropped := o.enforceInvariants(gc.UserID, repaired.Items)

	result := &models.OutfitResult{
		UserID:      gc.UserID,
		Items:       items,
		Strategy:    "timeout_minimal",
		Incomplete:  len(repaired.MissingCategories) > 0,
		Confidence:  0.3,
		GeneratedAt: time.Now().UTC(),
		Diagnostics: models.OutfitDiagnostics{
			FallbackPath:      []string{"timeout_minimal"},
			MissingCategories: repaired.MissingCategories,
			RepairFilled:      repaired.Filled,
			DroppedItems:      dropped,
			CandidatePoolSize: len(scored),
			TargetItemCount:   len(repaired.Items),
		},
	}

	return attempt{result: result, scored: scored, timedOut: true}
}

// enforceInvariants replays the final set through the gate and drops any
// offender. A non-zero drop count is a pipeline defect, logged loudly.
func (o *OutfitOrchestrator) enforceInvariants(userID uuid.UUID, items []models.Item) ([]models.Item, int) {
	offenders := o.gate.Validate(items)
	if len(offenders) == 0 {
		return items, 0
	}

	breach := &InvariantBreachError{}
	drop := make(map[int]bool, len(offenders))
	for _, idx := range offenders {
		drop[idx] = true
		breach.Category = items[idx].Category
		breach.ItemIDs = append(breach.ItemIDs, items[idx].ID.String())
	}

	kept := make([]models.Item, 0, len(items)-len(offenders))
	for i, item := range items {
		if !drop[i] {
			kept = append(kept, item)
		}
	}

	o.metrics.RecordInvariantDrop(len(offenders))
	o.logger.WithError(breach).WithField("user_id", userID).Error("Final safety check dropped items")
	return kept, len(offenders)
}

// confidence folds the degradation signals into one 0..1 score.
func (o *OutfitOrchestrator) confidence(result *models.OutfitResult, sel SelectionResult, issues []string) float64 {
	c := 1.0

	c -= 0.15 * float64(len(result.Diagnostics.MissingCategories))
	c -= 0.05 * float64(result.Diagnostics.TierFallbackDepth)
	if result.Diagnostics.TierExhausted {
		c -= 0.2
	}
	switch result.Strategy {
	case "emergency_selection":
		c -= 0.25
	case "basic_selection":
		c -= 0.1
	}
	c -= 0.05 * float64(len(issues))
	c -= 0.1 * float64(result.Diagnostics.DroppedItems)

	if c < 0 {
		return 0
	}
	return c
}

func pickBetterAttempt(first, second attempt) attempt {
	if len(second.issues) < len(first.issues) {
		return second
	}
	if len(second.issues) == len(first.issues) && second.result.Confidence > first.result.Confidence {
		return second
	}
	return first
}

func breakdownFor(scored []models.ScoredItem, items []models.Item) map[uuid.UUID]models.DimensionScores {
	byID := make(map[uuid.UUID]models.DimensionScores, len(scored))
	for _, sc := range scored {
		byID[sc.Item.ID] = sc.Dimensions
	}
	breakdown := make(map[uuid.UUID]models.DimensionScores, len(items))
	for _, item := range items {
		if dims, ok := byID[item.ID]; ok {
			breakdown[item.ID] = dims
		}
	}
	return breakdown
}

// buildContext loads the wardrobe and history and assembles the immutable
// per-request context. History store failures degrade to empty maps.
func (o *OutfitOrchestrator) buildContext(
	ctx context.Context,
	userID uuid.UUID,
	req *models.GenerateOutfitRequest,
) (*models.GenerationContext, error) {
	wardrobe, err := o.wardrobe.LoadSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wardrobe: %w", err)
	}
	if len(wardrobe) < o.cfg.Selection.MinWardrobeItems {
		return nil, fmt.Errorf("%w: %d items, need %d",
			ErrInsufficientWardrobe, len(wardrobe), o.cfg.Selection.MinWardrobeItems)
	}

	o.classifier.ClassifyAll(wardrobe)

	profile, err := o.wardrobe.LoadProfile(ctx, userID)
	if err != nil {
		o.logger.WithError(err).WithField("user_id", userID).Warn("Profile unavailable, scoring without it")
		profile = &models.UserProfile{UserID: userID}
	}

	gc := &models.GenerationContext{
		UserID:      userID,
		Occasion:    req.Occasion,
		Style:       req.Style,
		Mood:        req.Mood,
		Profile:     *profile,
		Wardrobe:    wardrobe,
		RequestedAt: time.Now().UTC(),
	}
	if req.Weather != nil {
		gc.Weather = *req.Weather
	}

	if recent, err := o.history.RecentlyUsed(ctx, userID.String()); err == nil {
		gc.RecentlyUsed = recent
	} else {
		o.logger.WithError(err).Debug("Recent-usage read failed, diversity degraded")
	}
	if counts, err := o.history.UsageCounts(ctx, userID.String()); err == nil {
		gc.UsageCounts = counts
	} else {
		o.logger.WithError(err).Debug("Usage-count read failed, diversity degraded")
	}

	return gc, nil
}

// finalize records history, publishes the event, and caches the result. All
// best-effort against a detached context: the outfit is already decided.
func (o *OutfitOrchestrator) finalize(userID uuid.UUID, req *models.GenerateOutfitRequest, result *models.OutfitResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	itemIDs := make([]uuid.UUID, len(result.Items))
	for i, item := range result.Items {
		itemIDs[i] = item.ID
	}
	if err := o.history.RecordUsage(ctx, userID.String(), itemIDs, result.GeneratedAt); err != nil {
		o.logger.WithError(err).Warn("Failed to record usage history")
	}

	if o.publisher != nil {
		if err := o.publisher.PublishOutfitGenerated(ctx, result, req.Occasion); err != nil {
			o.logger.WithError(err).Warn("Failed to publish generation event")
		}
	}

	o.storeResult(ctx, userID, req, result)
}

func resultCacheKey(userID uuid.UUID, req *models.GenerateOutfitRequest) string {
	return fmt.Sprintf("outfit:result:%s:%s:%s:%s:%s",
		userID, normalizeOccasion(req.Occasion), req.Style, req.Mood, weatherBucket(req.Weather))
}

// weatherBucket quantizes weather into 5-degree bands plus the condition, so
// a meaningful weather change misses the cache while sensor jitter does not.
func weatherBucket(w *models.WeatherSnapshot) string {
	if w == nil {
		return "any"
	}
	band := int(math.Floor(w.TemperatureC/5)) * 5
	condition := strings.ToLower(strings.TrimSpace(w.Condition))
	if condition == "" {
		condition = "any"
	}
	return fmt.Sprintf("%d:%s", band, condition)
}

func (o *OutfitOrchestrator) cachedResult(ctx context.Context, userID uuid.UUID, req *models.GenerateOutfitRequest) *models.OutfitResult {
	if o.cache == nil || o.cfg.Caching.ResultTTL <= 0 {
		return nil
	}

	raw, err := o.cache.Get(ctx, resultCacheKey(userID, req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			o.logger.WithError(err).Debug("Result cache read failed")
		}
		return nil
	}

	var result models.OutfitResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	result.Diagnostics.CacheHit = true
	return &result
}

func (o *OutfitOrchestrator) storeResult(ctx context.Context, userID uuid.UUID, req *models.GenerateOutfitRequest, result *models.OutfitResult) {
	if o.cache == nil || o.cfg.Caching.ResultTTL <= 0 {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := o.cache.Set(ctx, resultCacheKey(userID, req), raw, o.cfg.Caching.ResultTTL).Err(); err != nil {
		o.logger.WithError(err).Debug("Result cache write failed")
	}
}
