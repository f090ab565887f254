package services

import (
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/stylara/outfit-engine/pkg/models"
)

// CategoryClassifier maps raw wardrobe items onto the closed canonical
// category set. Classification is deterministic and idempotent: the same
// item data always yields the same category.
//
// Resolution order:
//  1. explicit core-category hint in structured attributes
//  2. exact match of the normalized type string against the canonical table
//  3. ordered keyword search over type then name, priority
//     dress > tops > bottoms > shoes > outerwear > accessory
type CategoryClassifier struct {
	folder cases.Caser
	logger *logrus.Logger
}

func NewCategoryClassifier(logger *logrus.Logger) *CategoryClassifier {
	return &CategoryClassifier{
		folder: cases.Fold(),
		logger: logger,
	}
}

// coreCategoryHints maps upstream extraction hints to canonical categories.
var coreCategoryHints = map[string]models.Category{
	"dress":     models.CategoryDress,
	"dresses":   models.CategoryDress,
	"top":       models.CategoryTops,
	"tops":      models.CategoryTops,
	"bottom":    models.CategoryBottoms,
	"bottoms":   models.CategoryBottoms,
	"shoes":     models.CategoryShoes,
	"footwear":  models.CategoryShoes,
	"outerwear": models.CategoryOuterwear,
	"jacket":    models.CategoryOuterwear,
	"accessory": models.CategoryAccessory,
	"jewelry":   models.CategoryAccessory,
}

// exactTypeTable resolves common normalized type strings directly.
var exactTypeTable = map[string]models.Category{
	"dress":        models.CategoryDress,
	"sundress":     models.CategoryDress,
	"maxi dress":   models.CategoryDress,
	"midi dress":   models.CategoryDress,
	"gown":         models.CategoryDress,
	"jumpsuit":     models.CategoryDress,
	"t shirt":      models.CategoryTops,
	"tee":          models.CategoryTops,
	"shirt":        models.CategoryTops,
	"blouse":       models.CategoryTops,
	"sweater":      models.CategoryTops,
	"hoodie":       models.CategoryTops,
	"tank top":     models.CategoryTops,
	"polo":         models.CategoryTops,
	"turtleneck":   models.CategoryTops,
	"jeans":        models.CategoryBottoms,
	"trousers":     models.CategoryBottoms,
	"pants":        models.CategoryBottoms,
	"chinos":       models.CategoryBottoms,
	"shorts":       models.CategoryBottoms,
	"skirt":        models.CategoryBottoms,
	"leggings":     models.CategoryBottoms,
	"joggers":      models.CategoryBottoms,
	"sneakers":     models.CategoryShoes,
	"boots":        models.CategoryShoes,
	"heels":        models.CategoryShoes,
	"loafers":      models.CategoryShoes,
	"sandals":      models.CategoryShoes,
	"oxfords":      models.CategoryShoes,
	"flats":        models.CategoryShoes,
	"coat":         models.CategoryOuterwear,
	"jacket":       models.CategoryOuterwear,
	"blazer":       models.CategoryOuterwear,
	"parka":        models.CategoryOuterwear,
	"trench coat":  models.CategoryOuterwear,
	"cardigan":     models.CategoryOuterwear,
	"belt":         models.CategoryAccessory,
	"scarf":        models.CategoryAccessory,
	"hat":          models.CategoryAccessory,
	"bag":          models.CategoryAccessory,
	"watch":        models.CategoryAccessory,
	"necklace":     models.CategoryAccessory,
	"sunglasses":   models.CategoryAccessory,
	"tie":          models.CategoryAccessory,
	"pocket watch": models.CategoryAccessory,
}

// categoryKeywords is the ordered fallback search. Order matters: "pencil
// dress" must resolve to dress before "pencil skirt" logic sees it, and
// "denim shorts" must never land in tops.
var categoryKeywords = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryDress, []string{"dress", "gown", "frock", "jumpsuit", "romper"}},
	{models.CategoryTops, []string{"shirt", "blouse", "tee", "sweater", "hoodie", "tank", "polo", "camisole", "pullover", "turtleneck", "top"}},
	{models.CategoryBottoms, []string{"jeans", "trouser", "pant", "short", "skirt", "legging", "jogger", "chino", "culotte"}},
	{models.CategoryShoes, []string{"sneaker", "boot", "heel", "loafer", "sandal", "oxford", "flat", "shoe", "mule", "espadrille"}},
	{models.CategoryOuterwear, []string{"coat", "jacket", "blazer", "parka", "cardigan", "windbreaker", "vest", "anorak"}},
	{models.CategoryAccessory, []string{"belt", "scarf", "hat", "bag", "watch", "necklace", "bracelet", "earring", "glove", "sunglass", "tie", "beanie"}},
}

// shirtKeywords sub-classifies tops; the invariant gate allows at most one
// shirt per outfit.
var shirtKeywords = []string{"shirt", "blouse", "button down", "button up", "oxford shirt"}

// Classify returns the canonical category for an item. It never returns an
// unknown category: when nothing matches, the item lands in accessory, which
// keeps it inside the invariant system instead of bypassing it.
func (c *CategoryClassifier) Classify(item *models.Item) models.Category {
	if hint := c.normalize(item.Attributes.CoreCategory); hint != "" {
		if cat, ok := coreCategoryHints[hint]; ok {
			return cat
		}
	}

	typ := c.normalize(item.Type)
	if cat, ok := exactTypeTable[typ]; ok {
		return cat
	}

	name := c.normalize(item.Name)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(typ, kw) || strings.Contains(name, kw) {
				return entry.category
			}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"item_id": item.ID,
		"type":    item.Type,
	}).Debug("No category match, defaulting to accessory")

	return models.CategoryAccessory
}

// ClassifyAll assigns categories across a wardrobe snapshot in place and
// returns the same slice for chaining.
func (c *CategoryClassifier) ClassifyAll(items []models.Item) []models.Item {
	for i := range items {
		items[i].Category = c.Classify(&items[i])
	}
	return items
}

// IsShirt reports whether a tops item is a shirt in the sub-classification
// sense used by the invariant gate.
func (c *CategoryClassifier) IsShirt(item *models.Item) bool {
	if item.Category != models.CategoryTops {
		return false
	}
	typ := c.normalize(item.Type)
	name := c.normalize(item.Name)
	for _, kw := range shirtKeywords {
		if strings.Contains(typ, kw) || strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// normalize fold-cases and strips separators so "T_Shirt", "t-shirt" and
// "T Shirt" all compare equal.
func (c *CategoryClassifier) normalize(s string) string {
	s = c.folder.String(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ", "/", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
