package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/pkg/models"
)

// DatabaseQuerier is the subset of pgxpool.Pool the store needs; pgxmock
// satisfies it in tests.
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// WardrobeStore reads wardrobe snapshots and profiles, and applies feedback
// writes (wear counts, favorites).
type WardrobeStore struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewWardrobeStore(db DatabaseQuerier, logger *logrus.Logger) *WardrobeStore {
	return &WardrobeStore{db: db, logger: logger}
}

// LoadSnapshot returns the user's full wardrobe. Category is recomputed by
// the classifier after load; the stored core_category is only a hint.
func (s *WardrobeStore) LoadSnapshot(ctx context.Context, userID uuid.UUID) ([]models.Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, type, core_category, material, pattern, fit, color,
		       formality_level, sleeve_length, warmth_factor, layer_level,
		       gender_target, temp_range_min_c, temp_range_max_c,
		       style_tags, occasion_tags, wear_count, last_worn_at, favorite
		FROM wardrobe_items
		WHERE user_id = $1 AND archived_at IS NULL
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wardrobe: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		a := &item.Attributes
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Type, &a.CoreCategory, &a.Material,
			&a.Pattern, &a.Fit, &a.Color, &a.FormalityLevel, &a.SleeveLength,
			&a.WarmthFactor, &a.LayerLevel, &a.GenderTarget,
			&a.TempRangeMinC, &a.TempRangeMaxC,
			&item.StyleTags, &item.OccasionTags,
			&item.WearCount, &item.LastWornAt, &item.Favorite,
		); err != nil {
			return nil, fmt.Errorf("failed to scan wardrobe item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wardrobe rows: %w", err)
	}

	return items, nil
}

// LoadProfile returns the user's scoring profile, or a zero-value profile
// when none has been saved yet.
func (s *WardrobeStore) LoadProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	profile := &models.UserProfile{UserID: userID}

	err := s.db.QueryRow(ctx, `
		SELECT body_type, dominant_styles, gender_target,
		       generation_runs, last_generation, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1`, userID).Scan(
		&profile.BodyType, &profile.DominantStyles, &profile.GenderTarget,
		&profile.GenerationRuns, &profile.LastGeneration,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, nil
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	return profile, nil
}

// RecordWear bumps wear counts for items the user confirmed wearing.
func (s *WardrobeStore) RecordWear(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, wornAt time.Time) error {
	if len(itemIDs) == 0 {
		return nil
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE wardrobe_items
		SET wear_count = wear_count + 1, last_worn_at = $3, updated_at = NOW()
		WHERE user_id = $1 AND id = ANY($2)`, userID, itemIDs, wornAt)
	if err != nil {
		return fmt.Errorf("failed to record wear: %w", err)
	}

	if int(tag.RowsAffected()) != len(itemIDs) {
		s.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"expected": len(itemIDs),
			"updated":  tag.RowsAffected(),
		}).Warn("Wear update touched fewer items than reported")
	}
	return nil
}

// SetFavorite flags or unflags items as favorites.
func (s *WardrobeStore) SetFavorite(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, favorite bool) error {
	if len(itemIDs) == 0 {
		return nil
	}

	if _, err := s.db.Exec(ctx, `
		UPDATE wardrobe_items
		SET favorite = $3, updated_at = NOW()
		WHERE user_id = $1 AND id = ANY($2)`, userID, itemIDs, favorite); err != nil {
		return fmt.Errorf("failed to update favorites: %w", err)
	}
	return nil
}

// BumpGenerationRun increments the profile's generation counter, creating
// the profile row on first use.
func (s *WardrobeStore) BumpGenerationRun(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if _, err := s.db.Exec(ctx, `
		INSERT INTO user_profiles (user_id, generation_runs, last_generation, created_at, updated_at)
		VALUES ($1, 1, $2, NOW(), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET generation_runs = user_profiles.generation_runs + 1,
		              last_generation = $2, updated_at = NOW()`, userID, at); err != nil {
		return fmt.Errorf("failed to bump generation run: %w", err)
	}
	return nil
}
