package services

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

// EssentialCategories is the dynamic requirement set for a context, derived
// from the occasion and from what has already been selected (a dress changes
// the rules). Recomputed by the repair pass against the final selection.
type EssentialCategories struct {
	Required  []models.Category
	Preferred []models.Category
}

// RequiredHas reports whether cat is in the required set.
func (e EssentialCategories) RequiredHas(cat models.Category) bool {
	for _, c := range e.Required {
		if c == cat {
			return true
		}
	}
	return false
}

// SelectionResult carries the chosen items plus the state needed by repair.
type SelectionResult struct {
	Items        []models.Item
	State        *CategoryState
	FallbackPath []string
	TargetCount  int
}

// SelectionEngine greedily assembles an outfit from scored candidates. Every
// insertion on every path — primary, layering, basic, emergency — goes
// through the invariant gate; no path appends directly.
type SelectionEngine struct {
	gate       *InvariantGate
	classifier *CategoryClassifier
	config     *config.SelectionConfig
	logger     *logrus.Logger
}

func NewSelectionEngine(
	gate *InvariantGate,
	classifier *CategoryClassifier,
	cfg *config.SelectionConfig,
	logger *logrus.Logger,
) *SelectionEngine {
	return &SelectionEngine{
		gate:       gate,
		classifier: classifier,
		config:     cfg,
		logger:     logger,
	}
}

// ResolveEssentials computes the context-aware required/preferred sets.
func ResolveEssentials(gc *models.GenerationContext, selected []models.Item) EssentialCategories {
	for _, item := range selected {
		if item.Category == models.CategoryDress {
			return EssentialCategories{
				Required:  []models.Category{models.CategoryDress, models.CategoryShoes},
				Preferred: []models.Category{models.CategoryOuterwear},
			}
		}
	}

	switch occasionClass(gc.Occasion) {
	case "athletic":
		return EssentialCategories{
			Required: []models.Category{models.CategoryTops, models.CategoryBottoms, models.CategoryShoes},
		}
	case "lounge":
		return EssentialCategories{
			Required:  []models.Category{models.CategoryTops, models.CategoryShoes},
			Preferred: []models.Category{models.CategoryBottoms},
		}
	default:
		return EssentialCategories{
			Required:  []models.Category{models.CategoryTops, models.CategoryBottoms, models.CategoryShoes},
			Preferred: []models.Category{models.CategoryOuterwear, models.CategoryAccessory},
		}
	}
}

func occasionClass(occasion string) string {
	switch normalizeOccasion(occasion) {
	case "gym", "athletic", "workout", "running", "sport", "sports", "yoga", "hiking":
		return "athletic"
	case "loungewear", "lounge", "sleep", "home", "housework":
		return "lounge"
	}
	return "default"
}

// Select runs the selection pipeline over scored candidates. The wardrobe
// size decides the path: full greedy, the simplified basic path for small
// wardrobes, or the emergency path for near-empty ones.
func (e *SelectionEngine) Select(
	gc *models.GenerationContext,
	scored []models.ScoredItem,
	rng *rand.Rand,
) SelectionResult {
	result := SelectionResult{State: NewCategoryState()}
	result.TargetCount = e.targetCount(gc, rng)

	ordered := e.orderByPerturbedScore(scored, rng)

	switch {
	case len(gc.Wardrobe) <= e.config.MinWardrobeItems+1:
		result.FallbackPath = append(result.FallbackPath, "emergency_selection")
		e.emergencyPass(gc, ordered, &result)
	case len(gc.Wardrobe) <= e.config.BasicPathThreshold:
		result.FallbackPath = append(result.FallbackPath, "basic_selection")
		e.basicPass(gc, ordered, &result)
	default:
		result.FallbackPath = append(result.FallbackPath, "primary_selection")
		e.primaryPass(gc, ordered, &result)
		e.layeringPass(gc, ordered, &result)
		e.fillerPass(gc, ordered, &result)
	}

	e.logger.WithFields(logrus.Fields{
		"user_id":  gc.UserID,
		"selected": len(result.Items),
		"target":   result.TargetCount,
		"path":     strings.Join(result.FallbackPath, ","),
	}).Debug("Selection complete")

	return result
}

// primaryPass fills required categories with the best gate-passing candidate
// per category, then continues greedily through the ordering.
func (e *SelectionEngine) primaryPass(gc *models.GenerationContext, ordered []models.ScoredItem, result *SelectionResult) {
	essentials := ResolveEssentials(gc, result.Items)

	// A dress near the top of the ordering rewrites the requirement set, so
	// consider it first: if the best dress outscores the best top and best
	// bottom, lead with the dress.
	if best := e.bestOfCategory(ordered, models.CategoryDress); best != nil {
		topScore := e.bestScoreOf(ordered, models.CategoryTops)
		bottomScore := e.bestScoreOf(ordered, models.CategoryBottoms)
		if best.Composite > topScore && best.Composite > bottomScore {
			e.tryAdd(result, &best.Item)
			essentials = ResolveEssentials(gc, result.Items)
		}
	}

	for _, required := range essentials.Required {
		if result.State.Filled(required) {
			continue
		}
		if best := e.bestAllowed(ordered, required, result); best != nil {
			e.tryAdd(result, best)
		}
	}

	// Greedy fill toward the target count.
	for i := range ordered {
		if len(result.Items) >= result.TargetCount {
			break
		}
		e.tryAdd(result, &ordered[i].Item)
	}
}

// layeringPass adds outerwear when the weather calls for it and the greedy
// fill did not already provide a layer.
func (e *SelectionEngine) layeringPass(gc *models.GenerationContext, ordered []models.ScoredItem, result *SelectionResult) {
	if gc.Weather.TemperatureC > 15 || result.State.Filled(models.CategoryOuterwear) {
		return
	}
	if best := e.bestAllowed(ordered, models.CategoryOuterwear, result); best != nil {
		if e.tryAdd(result, best) {
			result.FallbackPath = append(result.FallbackPath, "layering_pass")
		}
	}
}

// fillerPass tops the outfit up with preferred categories when the target
// count has room left.
func (e *SelectionEngine) fillerPass(gc *models.GenerationContext, ordered []models.ScoredItem, result *SelectionResult) {
	if len(result.Items) >= result.TargetCount {
		return
	}
	essentials := ResolveEssentials(gc, result.Items)
	added := false
	for _, preferred := range essentials.Preferred {
		if len(result.Items) >= result.TargetCount {
			break
		}
		if best := e.bestAllowed(ordered, preferred, result); best != nil {
			if e.tryAdd(result, best) {
				added = true
			}
		}
	}
	if added {
		result.FallbackPath = append(result.FallbackPath, "filler_pass")
	}
}

// basicPass is the simplified path for degenerate wardrobes: required
// categories only, best candidate each, no layering or fillers.
func (e *SelectionEngine) basicPass(gc *models.GenerationContext, ordered []models.ScoredItem, result *SelectionResult) {
	essentials := ResolveEssentials(gc, result.Items)
	for _, required := range essentials.Required {
		if best := e.bestAllowed(ordered, required, result); best != nil {
			e.tryAdd(result, best)
			// A dress admitted as the first piece changes the rules.
			essentials = ResolveEssentials(gc, result.Items)
		}
	}
}

// emergencyPass takes whatever the gate allows, in score order, for
// extremely sparse wardrobes. Invariants still hold: the gate decides.
func (e *SelectionEngine) emergencyPass(gc *models.GenerationContext, ordered []models.ScoredItem, result *SelectionResult) {
	for i := range ordered {
		if len(result.Items) >= result.TargetCount {
			break
		}
		e.tryAdd(result, &ordered[i].Item)
	}
}

// tryAdd is the only append site in the engine: gate first, then mutate.
func (e *SelectionEngine) tryAdd(result *SelectionResult, item *models.Item) bool {
	ok, reason := e.gate.CanAdd(item.Category, result.State, result.Items, item)
	if !ok {
		e.logger.WithFields(logrus.Fields{
			"item_id":  item.ID,
			"category": item.Category,
			"reason":   reason,
		}).Debug("Gate rejected candidate")
		return false
	}
	result.State.MarkAdded(item.Category, e.classifier.IsShirt(item))
	result.Items = append(result.Items, *item)
	return true
}

func (e *SelectionEngine) bestAllowed(ordered []models.ScoredItem, cat models.Category, result *SelectionResult) *models.Item {
	for i := range ordered {
		if ordered[i].Item.Category != cat {
			continue
		}
		if ok, _ := e.gate.CanAdd(cat, result.State, result.Items, &ordered[i].Item); ok {
			return &ordered[i].Item
		}
	}
	return nil
}

func (e *SelectionEngine) bestOfCategory(ordered []models.ScoredItem, cat models.Category) *models.ScoredItem {
	for i := range ordered {
		if ordered[i].Item.Category == cat {
			return &ordered[i]
		}
	}
	return nil
}

func (e *SelectionEngine) bestScoreOf(ordered []models.ScoredItem, cat models.Category) float64 {
	if best := e.bestOfCategory(ordered, cat); best != nil {
		return best.Composite
	}
	return dimensionMin - 1
}

// orderByPerturbedScore sorts candidates by composite descending with a small
// bounded random perturbation, so repeated requests against unchanged state
// do not always return the identical top item.
func (e *SelectionEngine) orderByPerturbedScore(scored []models.ScoredItem, rng *rand.Rand) []models.ScoredItem {
	type keyed struct {
		item models.ScoredItem
		key  float64
	}

	jitter := e.config.TieBreakJitter
	keyedItems := make([]keyed, len(scored))
	for i, sc := range scored {
		keyedItems[i] = keyed{item: sc, key: sc.Composite + (rng.Float64()*2-1)*jitter}
	}

	sort.SliceStable(keyedItems, func(i, j int) bool {
		return keyedItems[i].key > keyedItems[j].key
	})

	ordered := make([]models.ScoredItem, len(keyedItems))
	for i, k := range keyedItems {
		ordered[i] = k.item
	}
	return ordered
}

func (e *SelectionEngine) targetCount(gc *models.GenerationContext, rng *rand.Rand) int {
	lo, hi := e.config.TargetCountMin, e.config.TargetCountMax
	if occasionClass(gc.Occasion) == "lounge" {
		lo, hi = e.config.LoungeCountMin, e.config.LoungeCountMax
	}
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
