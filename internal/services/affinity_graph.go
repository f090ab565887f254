package services

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/pkg/models"
)

// AffinityGraph answers "which categories co-wear well for this occasion and
// style" from the graph store. The graph is populated out-of-band from worn
// outfit feedback; here it is read-only. A nil *AffinityGraph is valid and
// the scorer treats it as "no affinity data".
type AffinityGraph struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewAffinityGraph(driver neo4j.DriverWithContext, logger *logrus.Logger) *AffinityGraph {
	if driver == nil {
		return nil
	}
	return &AffinityGraph{driver: driver, logger: logger}
}

// CategoryAffinity returns a per-category bonus in [0, 1] derived from how
// often items of that category appear in positively-rated outfits for the
// occasion/style pair. Missing pairs simply have no entry.
func (g *AffinityGraph) CategoryAffinity(ctx context.Context, occasion, style string) (map[models.Category]float64, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `
			MATCH (o:Occasion {name: $occasion})-[r:FAVORS]->(c:Category)
			WHERE $style = '' OR EXISTS {
				MATCH (s:Style {name: $style})-[:FAVORS]->(c)
			}
			RETURN c.name AS category, r.weight AS weight
		`, map[string]any{
			"occasion": normalizeOccasion(occasion),
			"style":    style,
		})
		if err != nil {
			return nil, err
		}

		bonus := make(map[models.Category]float64)
		for records.Next(ctx) {
			rec := records.Record()
			name, _ := rec.Get("category")
			weight, _ := rec.Get("weight")

			cat := models.Category(name.(string))
			if !cat.Valid() {
				continue
			}
			w, ok := weight.(float64)
			if !ok {
				continue
			}
			if w < 0 {
				w = 0
			}
			if w > 1 {
				w = 1
			}
			bonus[cat] = w
		}
		return bonus, records.Err()
	})
	if err != nil {
		return nil, err
	}

	return result.(map[models.Category]float64), nil
}

// RecordCoWear reinforces occasion->category edges after positive feedback.
func (g *AffinityGraph) RecordCoWear(ctx context.Context, occasion string, categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Weight saturates toward 1.0 so a single prolific user cannot pin
		// the bonus at maximum.
		_, err := tx.Run(ctx, `
			MERGE (o:Occasion {name: $occasion})
			WITH o
			UNWIND $categories AS catName
			MERGE (c:Category {name: catName})
			MERGE (o)-[r:FAVORS]->(c)
			ON CREATE SET r.weight = 0.1
			ON MATCH SET r.weight = r.weight + (1.0 - r.weight) * 0.05
		`, map[string]any{
			"occasion":   normalizeOccasion(occasion),
			"categories": names,
		})
		return nil, err
	})
	if err != nil {
		g.logger.WithError(err).Warn("Failed to record co-wear affinity")
	}
	return err
}
