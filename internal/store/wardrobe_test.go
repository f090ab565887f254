package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) (*WardrobeStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewWardrobeStore(mock, logger), mock
}

var snapshotColumns = []string{
	"id", "name", "type", "core_category", "material", "pattern", "fit", "color",
	"formality_level", "sleeve_length", "warmth_factor", "layer_level",
	"gender_target", "temp_range_min_c", "temp_range_max_c",
	"style_tags", "occasion_tags", "wear_count", "last_worn_at", "favorite",
}

func TestWardrobeStore_LoadSnapshot(t *testing.T) {
	store, mock := testStore(t)
	userID := uuid.New()
	itemID := uuid.New()
	worn := time.Now().Add(-48 * time.Hour)

	rows := pgxmock.NewRows(snapshotColumns).
		AddRow(itemID, "blue oxford", "oxford shirt", "tops", "cotton", "solid", "tailored", "blue",
			3, "long", 2, 1, "unisex", 10.0, 24.0,
			[]string{"classic"}, []string{"work"}, 4, &worn, true)

	mock.ExpectQuery("SELECT (.+) FROM wardrobe_items").
		WithArgs(userID).
		WillReturnRows(rows)

	items, err := store.LoadSnapshot(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, itemID, item.ID)
	assert.Equal(t, "oxford shirt", item.Type)
	assert.Equal(t, "tops", item.Attributes.CoreCategory)
	assert.Equal(t, 3, item.Attributes.FormalityLevel)
	assert.Equal(t, 4, item.WearCount)
	assert.True(t, item.Favorite)
	require.NotNil(t, item.LastWornAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWardrobeStore_LoadSnapshotEmpty(t *testing.T) {
	store, mock := testStore(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM wardrobe_items").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(snapshotColumns))

	items, err := store.LoadSnapshot(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWardrobeStore_LoadSnapshotQueryError(t *testing.T) {
	store, mock := testStore(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM wardrobe_items").
		WithArgs(userID).
		WillReturnError(errors.New("connection refused"))

	items, err := store.LoadSnapshot(context.Background(), userID)
	assert.Error(t, err)
	assert.Nil(t, items)
}

func TestWardrobeStore_LoadProfile(t *testing.T) {
	store, mock := testStore(t)
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"body_type", "dominant_styles", "gender_target",
		"generation_runs", "last_generation", "created_at", "updated_at",
	}).AddRow("pear", []string{"minimal", "classic"}, "female", 12, &now, now, now)

	mock.ExpectQuery("SELECT (.+) FROM user_profiles").
		WithArgs(userID).
		WillReturnRows(rows)

	profile, err := store.LoadProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, profile.UserID)
	assert.Equal(t, "pear", profile.BodyType)
	assert.Equal(t, []string{"minimal", "classic"}, profile.DominantStyles)
	assert.Equal(t, 12, profile.GenerationRuns)
}

func TestWardrobeStore_LoadProfileMissingReturnsZeroProfile(t *testing.T) {
	store, mock := testStore(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM user_profiles").
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	profile, err := store.LoadProfile(context.Background(), userID)
	require.NoError(t, err, "a missing profile is not an error")
	assert.Equal(t, userID, profile.UserID)
	assert.Empty(t, profile.BodyType)
	assert.Zero(t, profile.GenerationRuns)
}

func TestWardrobeStore_RecordWear(t *testing.T) {
	store, mock := testStore(t)
	userID := uuid.New()
	itemIDs := []uuid.UUID{uuid.New(), uuid.New()}
	wornAt := time.Now()

	mock.ExpectExec("UPDATE wardrobe_items").
		WithArgs(userID, itemIDs, wornAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	err := store.RecordWear(context.Background(), userID, itemIDs, wornAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWardrobeStore_RecordWearNoItems(t *testing.T) {
	store, mock := testStore(t)

	// No expectation registered: an empty batch must not touch the database.
	err := store.RecordWear(context.Background(), uuid.New(), nil, time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWardrobeStore_SetFavorite(t *testing.T) {
	store, mock := testStore(t)
	userID := uuid.New()
	itemIDs := []uuid.UUID{uuid.New()}

	mock.ExpectExec("UPDATE wardrobe_items").
		WithArgs(userID, itemIDs, true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.SetFavorite(context.Background(), userID, itemIDs, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWardrobeStore_BumpGenerationRun(t *testing.T) {
	store, mock := testStore(t)
	userID := uuid.New()
	at := time.Now()

	mock.ExpectExec("INSERT INTO user_profiles").
		WithArgs(userID, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.BumpGenerationRun(context.Background(), userID, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
