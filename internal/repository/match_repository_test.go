package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&db.Owner{}, &db.Dog{}, &db.Match{}, &db.Message{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestCanonicalPair(t *testing.T) {
	lo, hi := repository.CanonicalPair(7, 3)
	assert.Equal(t, uint64(3), lo)
	assert.Equal(t, uint64(7), hi)

	lo, hi = repository.CanonicalPair(3, 7)
	assert.Equal(t, uint64(3), lo)
	assert.Equal(t, uint64(7), hi)
}

// TestFindOrCreateOneRowPerPair: both orderings of the same unordered pair
// resolve to the same canonical row.
func TestFindOrCreateOneRowPerPair(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m1, err := repo.FindOrCreate(ctx, 9, 4, 9)
	require.NoError(t, err)
	m2, err := repo.FindOrCreate(ctx, 4, 9, 4)
	require.NoError(t, err)

	assert.Equal(t, m1.ID, m2.ID)
	assert.Equal(t, uint64(4), m1.DogAID)
	assert.Equal(t, uint64(9), m1.DogBID)
	assert.Equal(t, db.ActionUndecided, m1.DogAAction)
	assert.Equal(t, db.ActionUndecided, m1.DogBAction)

	var count int64
	dbase.Model(&db.Match{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUpdateWithLockAppliesMutation(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m, err := repo.FindOrCreate(ctx, 1, 2, 1)
	require.NoError(t, err)

	updated, err := repo.UpdateWithLock(ctx, m.ID, func(m *db.Match) error {
		m.DogAAction = db.ActionLike
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, db.ActionLike, updated.DogAAction)

	reread, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ActionLike, reread.DogAAction)
}

func TestUpdateWithLockRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m, err := repo.FindOrCreate(ctx, 1, 2, 1)
	require.NoError(t, err)

	_, err = repo.UpdateWithLock(ctx, m.ID, func(m *db.Match) error {
		m.DogAAction = db.ActionLike
		return assert.AnError
	})
	require.Error(t, err)

	reread, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ActionUndecided, reread.DogAAction)
}

func TestListForDogFilters(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	seed := []db.Match{
		{DogAID: 1, DogBID: 2, InitiatorDogID: 1, DogAAction: db.ActionLike, DogBAction: db.ActionLike, Status: db.StatusMatched},
		{DogAID: 1, DogBID: 3, InitiatorDogID: 1, DogAAction: db.ActionLike, DogBAction: db.ActionUndecided, Status: db.StatusPending},
		{DogAID: 1, DogBID: 4, InitiatorDogID: 4, DogAAction: db.ActionLike, DogBAction: db.ActionLike, Status: db.StatusMatched, Archived: true},
		{DogAID: 5, DogBID: 6, InitiatorDogID: 5, DogAAction: db.ActionLike, DogBAction: db.ActionLike, Status: db.StatusMatched},
	}
	require.NoError(t, dbase.Create(&seed).Error)

	all, err := repo.ListForDog(ctx, 1, nil, false)
	require.NoError(t, err)
	assert.Len(t, all, 2) // archived hidden, foreign pair excluded

	matched := db.StatusMatched
	onlyMatched, err := repo.ListForDog(ctx, 1, &matched, false)
	require.NoError(t, err)
	assert.Len(t, onlyMatched, 1)

	withArchived, err := repo.ListForDog(ctx, 1, &matched, true)
	require.NoError(t, err)
	assert.Len(t, withArchived, 2)
}

func TestListAwaiting(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	seed := []db.Match{
		// dog 1 must answer: dog 2 acted, dog 1 undecided
		{DogAID: 1, DogBID: 2, InitiatorDogID: 2, DogAAction: db.ActionUndecided, DogBAction: db.ActionLike, Status: db.StatusPending},
		// dog 1 already acted on dog 3
		{DogAID: 1, DogBID: 3, InitiatorDogID: 1, DogAAction: db.ActionLike, DogBAction: db.ActionUndecided, Status: db.StatusPending},
		// fully decided pair never shows up
		{DogAID: 1, DogBID: 4, InitiatorDogID: 1, DogAAction: db.ActionLike, DogBAction: db.ActionLike, Status: db.StatusMatched},
	}
	require.NoError(t, dbase.Create(&seed).Error)

	awaiting, err := repo.ListAwaiting(ctx, 1)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, uint64(2), awaiting[0].DogBID)

	awaiting, err = repo.ListAwaiting(ctx, 3)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, uint64(1), awaiting[0].DogAID)
}

func TestExpireStaleRepo(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	old := time.Now().UTC().Add(-48 * time.Hour)
	seed := []db.Match{
		{DogAID: 1, DogBID: 2, InitiatorDogID: 1, Status: db.StatusPending, CreatedAt: old},
		{DogAID: 1, DogBID: 3, InitiatorDogID: 1, Status: db.StatusPending}, // fresh
		{DogAID: 1, DogBID: 4, InitiatorDogID: 1, Status: db.StatusMatched, CreatedAt: old},
	}
	require.NoError(t, dbase.Create(&seed).Error)

	n, err := repo.ExpireStale(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var statuses []db.Status
	require.NoError(t, dbase.Model(&db.Match{}).Order("id").Pluck("status", &statuses).Error)
	assert.Equal(t, []db.Status{db.StatusExpired, db.StatusPending, db.StatusMatched}, statuses)
}

func TestLikeCounts(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	seed := []db.Match{
		{DogAID: 1, DogBID: 2, InitiatorDogID: 1, DogAAction: db.ActionLike, DogBAction: db.ActionLike, Status: db.StatusMatched},
		{DogAID: 1, DogBID: 3, InitiatorDogID: 1, DogAAction: db.ActionSuperLike, DogBAction: db.ActionUndecided, Status: db.StatusPending},
		{DogAID: 1, DogBID: 4, InitiatorDogID: 4, DogAAction: db.ActionPass, DogBAction: db.ActionLike, Status: db.StatusDeclined},
	}
	require.NoError(t, dbase.Create(&seed).Error)

	given, err := repo.CountLikesGiven(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), given) // like + superlike, the pass does not count

	received, err := repo.CountLikesReceived(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), received) // from dogs 2 and 4
}
