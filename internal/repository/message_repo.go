package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/utils/pagination"
)

// MessageRepository provides data access methods for chat messages.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create persists a message and bumps the owning match's aggregates
// (message_count, last_message_at) in the same transaction, so a crash
// never leaves a stored message unaccounted for. The aggregates remain a
// display cache; the messages table stays the source of truth.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&db.Match{}).
			Where("id = ?", msg.MatchID).
			Updates(map[string]interface{}{
				"message_count":   gorm.Expr("message_count + 1"),
				"last_message_at": msg.CreatedAt,
			}).Error
	})
}

// FindByID fetches one message.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*db.Message, error) {
	var msg db.Message
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByMatch returns a match's messages newest-first with cursor-based
// pagination. The cursor is (created_at, id), stable under concurrent sends.
func (r *MessageRepository) ListByMatch(
	ctx context.Context,
	matchID uint64,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	var messages []db.Message

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.MessageID != "" && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.MessageID,
		)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(messages) > limit {
		last := messages[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			MessageID:   last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		messages = messages[:limit]
	}

	return messages, nextToken, nil
}

// MarkRead sets the read flag and timestamp.
func (r *MessageRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"read": true, "read_at": at}).Error
}

// UpdateBody rewrites a message body and stamps the edit flag.
// Window and type checks are the dispatch layer's job.
func (r *MessageRepository) UpdateBody(ctx context.Context, id, body string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"body": body, "edited": true, "edited_at": at}).Error
}

// SoftDelete flags a message deleted, recording who deleted it. The row
// (and original body) stays in storage; display goes through the tombstone.
func (r *MessageRepository) SoftDelete(ctx context.Context, id string, byDogID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted": true, "deleted_by_dog_id": byDogID}).Error
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
