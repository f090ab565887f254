package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/pkg/models"
)

// RepairResult reports what the completeness pass changed.
type RepairResult struct {
	Items             []models.Item
	Filled            []models.Category
	MissingCategories []models.Category
}

// CompletenessRepair runs once after all selection phases, directly before
// the result is returned. It re-derives the essential-category sets against
// the final selection (a dress may have arrived late) and searches the
// entire original wardrobe — not the tier-filtered pool — for gate-passing
// fills. A required category with zero eligible items anywhere marks the
// outfit incomplete instead of failing the request.
type CompletenessRepair struct {
	gate       *InvariantGate
	classifier *CategoryClassifier
	scorer     *MultiDimensionalScorer
	logger     *logrus.Logger
}

func NewCompletenessRepair(
	gate *InvariantGate,
	classifier *CategoryClassifier,
	scorer *MultiDimensionalScorer,
	logger *logrus.Logger,
) *CompletenessRepair {
	return &CompletenessRepair{
		gate:       gate,
		classifier: classifier,
		scorer:     scorer,
		logger:     logger,
	}
}

// Repair fills missing required categories first, then preferred ones.
func (r *CompletenessRepair) Repair(
	ctx context.Context,
	gc *models.GenerationContext,
	selected []models.Item,
	state *CategoryState,
	opts ScoreOptions,
) RepairResult {
	result := RepairResult{Items: selected}
	if state == nil {
		state = rebuildState(r.classifier, selected)
	}

	essentials := ResolveEssentials(gc, result.Items)

	for _, cat := range essentials.Required {
		if state.Filled(cat) {
			continue
		}
		if r.fill(ctx, gc, cat, state, &result, opts) {
			// A filled dress slot rewrites the requirement set mid-pass.
			essentials = ResolveEssentials(gc, result.Items)
			continue
		}
		result.MissingCategories = append(result.MissingCategories, cat)
	}

	for _, cat := range essentials.Preferred {
		if state.Filled(cat) {
			continue
		}
		r.fill(ctx, gc, cat, state, &result, opts)
	}

	if len(result.MissingCategories) > 0 {
		r.logger.WithFields(logrus.Fields{
			"user_id": gc.UserID,
			"missing": result.MissingCategories,
		}).Info("Outfit incomplete after repair pass")
	}

	return result
}

// fill searches the whole wardrobe for the best gate-passing,
// occasion-appropriate item of the category.
func (r *CompletenessRepair) fill(
	ctx context.Context,
	gc *models.GenerationContext,
	cat models.Category,
	state *CategoryState,
	result *RepairResult,
	opts ScoreOptions,
) bool {
	var best *models.Item
	bestScore := dimensionMin - 1

	for i := range gc.Wardrobe {
		item := &gc.Wardrobe[i]
		if item.Category != cat {
			continue
		}
		if !occasionAppropriate(gc, item) {
			continue
		}
		if ok, _ := r.gate.CanAdd(cat, state, result.Items, item); !ok {
			continue
		}
		scored := r.scorer.ScoreItem(ctx, gc, item, opts)
		if scored.Composite > bestScore {
			bestScore = scored.Composite
			best = item
		}
	}

	if best == nil {
		return false
	}

	state.MarkAdded(cat, r.classifier.IsShirt(best))
	result.Items = append(result.Items, *best)
	result.Filled = append(result.Filled, cat)

	r.logger.WithFields(logrus.Fields{
		"user_id":  gc.UserID,
		"category": cat,
		"item_id":  best.ID,
	}).Debug("Repair pass filled category")

	return true
}

// occasionAppropriate is the hard filter repair applies: tier scoring is
// bypassed here, but obviously wrong pieces (ballgown at the gym) stay out.
func occasionAppropriate(gc *models.GenerationContext, item *models.Item) bool {
	lvl := item.Attributes.FormalityLevel
	if lvl == 0 {
		return true
	}

	switch occasionClass(gc.Occasion) {
	case "athletic", "lounge":
		return lvl <= 2
	}

	target, ok := occasionFormalityTargets[normalizeOccasion(gc.Occasion)]
	if !ok {
		return true
	}
	gap := lvl - target
	if gap < 0 {
		gap = -gap
	}
	return gap <= 2
}

// rebuildState reconstructs a CategoryState from an existing selection, used
// when repair runs against a selection it did not build (timeout path).
func rebuildState(classifier *CategoryClassifier, selected []models.Item) *CategoryState {
	state := NewCategoryState()
	for i := range selected {
		state.MarkAdded(selected[i].Category, classifier.IsShirt(&selected[i]))
	}
	return state
}
