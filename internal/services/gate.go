package services

import (
	"fmt"

	"github.com/stylara/outfit-engine/pkg/models"
)

// CategoryState is the mutable per-request accumulator tracking what the
// outfit already contains. It is threaded explicitly through selection and
// repair; nothing else mutates it.
type CategoryState struct {
	counts     map[models.Category]int
	shirtCount int
}

func NewCategoryState() *CategoryState {
	return &CategoryState{counts: make(map[models.Category]int)}
}

// Count returns how many items of cat have been admitted.
func (s *CategoryState) Count(cat models.Category) int {
	return s.counts[cat]
}

// Filled reports whether at least one item of cat has been admitted.
func (s *CategoryState) Filled(cat models.Category) bool {
	return s.counts[cat] > 0
}

// MarkAdded records an admitted item. Callers must only invoke this after a
// positive gate decision for the same item.
func (s *CategoryState) MarkAdded(cat models.Category, isShirt bool) {
	s.counts[cat]++
	if isShirt {
		s.shirtCount++
	}
}

// InvariantGate is the single place category-coexistence invariants are
// encoded. Every insertion path — primary selection, layering, fillers,
// emergency paths and the repair pass — must consult CanAdd before appending
// an item. Extending the invariant set means editing this type only.
type InvariantGate struct {
	classifier *CategoryClassifier

	// maxPerCategory bounds repeats per category; zero means limit 1.
	maxPerCategory map[models.Category]int
}

func NewInvariantGate(classifier *CategoryClassifier, maxAccessories int) *InvariantGate {
	if maxAccessories < 1 {
		maxAccessories = 1
	}
	return &InvariantGate{
		classifier: classifier,
		maxPerCategory: map[models.Category]int{
			models.CategoryAccessory: maxAccessories,
		},
	}
}

// CanAdd decides whether an item of the given category may join the outfit
// given items already chosen. Pure: no hidden state, no mutation.
//
// Invariants enforced:
//  1. at most one dress
//  2. dress excludes tops and bottoms, bidirectionally
//  3. at most one shirt among tops
//  4. per-category maximum counts
func (g *InvariantGate) CanAdd(
	category models.Category,
	state *CategoryState,
	selected []models.Item,
	candidate *models.Item,
) (bool, string) {
	if !category.Valid() {
		return false, fmt.Sprintf("category %q is not canonical", category)
	}

	max := g.maxPerCategory[category]
	if max == 0 {
		max = 1
	}
	if state.Count(category) >= max {
		return false, fmt.Sprintf("category %s already at maximum (%d)", category, max)
	}

	switch category {
	case models.CategoryDress:
		if state.Filled(models.CategoryDress) {
			return false, "outfit already contains a dress"
		}
		if state.Filled(models.CategoryTops) {
			return false, "dress cannot join an outfit with a top"
		}
		if state.Filled(models.CategoryBottoms) {
			return false, "dress cannot join an outfit with bottoms"
		}
	case models.CategoryTops:
		if state.Filled(models.CategoryDress) {
			return false, "top cannot join an outfit with a dress"
		}
		if candidate != nil && g.classifier.IsShirt(candidate) && state.shirtCount >= 1 {
			return false, "outfit already contains a shirt"
		}
	case models.CategoryBottoms:
		if state.Filled(models.CategoryDress) {
			return false, "bottoms cannot join an outfit with a dress"
		}
	}

	return true, ""
}

// Validate re-checks a finished outfit by replaying every item through the
// gate. It returns the indexes of items that could not have been legally
// admitted. A non-empty result means some path bypassed the gate — a defect,
// handled by dropping the offenders rather than returning an invalid outfit.
func (g *InvariantGate) Validate(items []models.Item) []int {
	state := NewCategoryState()
	var offenders []int
	var kept []models.Item

	for i := range items {
		item := items[i]
		ok, _ := g.CanAdd(item.Category, state, kept, &item)
		if !ok {
			offenders = append(offenders, i)
			continue
		}
		state.MarkAdded(item.Category, g.classifier.IsShirt(&item))
		kept = append(kept, item)
	}

	return offenders
}
