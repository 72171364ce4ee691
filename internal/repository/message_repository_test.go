package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/repository"
)

func seedMatch(t *testing.T, repo *repository.MatchRepository) *db.Match {
	t.Helper()
	m, err := repo.FindOrCreate(context.Background(), 1, 2, 1)
	require.NoError(t, err)
	return m
}

// TestCreateBumpsMatchAggregates: inserting a message maintains the
// match's message_count and last_message_at in the same transaction.
func TestCreateBumpsMatchAggregates(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matches := repository.NewMatchRepository(dbase)
	messages := repository.NewMessageRepository(dbase)
	m := seedMatch(t, matches)

	msg := &db.Message{
		ID:          uuid.NewString(),
		MatchID:     m.ID,
		SenderDogID: 1,
		Body:        "woof",
		Type:        db.MessageTypeText,
	}
	require.NoError(t, messages.Create(ctx, msg))

	reread, err := matches.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reread.MessageCount)
	require.NotNil(t, reread.LastMessageAt)
	assert.WithinDuration(t, msg.CreatedAt, *reread.LastMessageAt, time.Second)

	second := &db.Message{
		ID:          uuid.NewString(),
		MatchID:     m.ID,
		SenderDogID: 2,
		Body:        "woof back",
		Type:        db.MessageTypeText,
	}
	require.NoError(t, messages.Create(ctx, second))

	reread, err = matches.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reread.MessageCount)
}

func TestListByMatchPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matches := repository.NewMatchRepository(dbase)
	messages := repository.NewMessageRepository(dbase)
	m := seedMatch(t, matches)

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		msg := &db.Message{
			ID:          uuid.NewString(),
			MatchID:     m.ID,
			SenderDogID: 1,
			Body:        fmt.Sprintf("message %d", i),
			Type:        db.MessageTypeText,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, messages.Create(ctx, msg))
	}

	page1, token, err := messages.ListByMatch(ctx, m.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, token)
	assert.Equal(t, "message 4", page1[0].Body)
	assert.Equal(t, "message 3", page1[1].Body)

	page2, token, err := messages.ListByMatch(ctx, m.ID, token, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.NotNil(t, token)
	assert.Equal(t, "message 2", page2[0].Body)
	assert.Equal(t, "message 1", page2[1].Body)

	page3, token, err := messages.ListByMatch(ctx, m.ID, token, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "message 0", page3[0].Body)
	assert.Nil(t, token)
}

func TestListByMatchRejectsBadToken(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	messages := repository.NewMessageRepository(dbase)

	bad := "not-base64!!"
	_, _, err := messages.ListByMatch(ctx, 1, &bad, 10)
	assert.Error(t, err)
}

func TestMarkReadAndEditAndDelete(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matches := repository.NewMatchRepository(dbase)
	messages := repository.NewMessageRepository(dbase)
	m := seedMatch(t, matches)

	msg := &db.Message{
		ID:          uuid.NewString(),
		MatchID:     m.ID,
		SenderDogID: 1,
		Body:        "original",
		Type:        db.MessageTypeText,
	}
	require.NoError(t, messages.Create(ctx, msg))

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, messages.MarkRead(ctx, msg.ID, now))
	require.NoError(t, messages.UpdateBody(ctx, msg.ID, "edited", now))

	reread, err := messages.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, reread.Read)
	assert.True(t, reread.Edited)
	assert.Equal(t, "edited", reread.Body)
	assert.Equal(t, "edited", reread.DisplayBody())

	require.NoError(t, messages.SoftDelete(ctx, msg.ID, 2))
	reread, err = messages.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, reread.Deleted)
	require.NotNil(t, reread.DeletedByDogID)
	assert.Equal(t, uint64(2), *reread.DeletedByDogID)
	assert.Equal(t, "edited", reread.Body) // body kept in storage
	assert.Equal(t, db.DeletedBody, reread.DisplayBody())
}
