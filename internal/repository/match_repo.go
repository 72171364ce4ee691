package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
)

// positiveActions is the SQL-side set of slot values that count toward
// mutuality and like statistics.
var positiveActions = []db.Action{db.ActionLike, db.ActionSuperLike}

// MatchRepository provides data access methods for the Match model.
// It encapsulates all queries on the pairwise relationship rows.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CanonicalPair orders an unordered dog pair lower-id-first, which is how
// every match row is stored. One unordered pair therefore maps to exactly
// one row regardless of who acted first.
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// FindByPair returns the match row for an unordered pair, canonicalizing
// order before the lookup.
func (r *MatchRepository) FindByPair(ctx context.Context, dogA, dogB uint64) (*db.Match, error) {
	lo, hi := CanonicalPair(dogA, dogB)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("dog_a_id = ? AND dog_b_id = ?", lo, hi).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindOrCreate returns the row for an unordered pair, creating it with both
// slots undecided when absent.
//
// The insert uses ON CONFLICT DO NOTHING against the unique pair index, so
// two first-contact attempts racing from both sides converge on one row:
// the loser of the race simply re-reads the winner's row.
func (r *MatchRepository) FindOrCreate(ctx context.Context, dogA, dogB, initiatorDogID uint64) (*db.Match, error) {
	lo, hi := CanonicalPair(dogA, dogB)

	m, err := r.FindByPair(ctx, lo, hi)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := db.Match{
		DogAID:         lo,
		DogBID:         hi,
		InitiatorDogID: initiatorDogID,
		DogAAction:     db.ActionUndecided,
		DogBAction:     db.ActionUndecided,
		Status:         db.StatusPending,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dog_a_id"}, {Name: "dog_b_id"}},
			DoNothing: true,
		}).
		Create(&fresh).Error; err != nil {
		return nil, err
	}

	return r.FindByPair(ctx, lo, hi)
}

// FindByID fetches a match by its surface identifier.
func (r *MatchRepository) FindByID(ctx context.Context, id uint64) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateWithLock runs fn against the row for id inside a transaction,
// holding a row lock where the dialect supports it, and persists the
// mutated row. This is the serialization point for action-slot writes:
// the read-modify-write of the two slots plus the derived status is atomic.
func (r *MatchRepository) UpdateWithLock(ctx context.Context, id uint64, fn func(m *db.Match) error) (*db.Match, error) {
	var out db.Match
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&db.Match{})
		// SQLite (tests) serializes writers itself and rejects FOR UPDATE
		if tx.Dialector.Name() == "mysql" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("id = ?", id).First(&out).Error; err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetArchived flips the archive flag without touching status or the slots.
func (r *MatchRepository) SetArchived(ctx context.Context, id uint64, archived bool, byDogID *uint64) (*db.Match, error) {
	return r.UpdateWithLock(ctx, id, func(m *db.Match) error {
		m.Archived = archived
		m.ArchivedByDogID = byDogID
		return nil
	})
}

// ListForDog returns every match a dog participates in, optionally filtered
// by status, archived ones hidden unless requested. Newest activity first.
func (r *MatchRepository) ListForDog(ctx context.Context, dogID uint64, status *db.Status, includeArchived bool) ([]db.Match, error) {
	query := r.db.WithContext(ctx).
		Where("dog_a_id = ? OR dog_b_id = ?", dogID, dogID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}

	var matches []db.Match
	err := query.
		Order("last_message_at DESC, updated_at DESC").
		Find(&matches).Error
	return matches, err
}

// ListAwaiting returns pending matches where the other side has acted but
// the given dog has not: the "respond to these" inbox.
func (r *MatchRepository) ListAwaiting(ctx context.Context, dogID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("status = ?", db.StatusPending).
		Where(
			"(dog_a_id = ? AND dog_a_action = ? AND dog_b_action <> ?) OR (dog_b_id = ? AND dog_b_action = ? AND dog_a_action <> ?)",
			dogID, db.ActionUndecided, db.ActionUndecided,
			dogID, db.ActionUndecided, db.ActionUndecided,
		).
		Order("created_at DESC").
		Find(&matches).Error
	return matches, err
}

// ExpireStale marks every match still pending past the deadline as expired.
// One bulk UPDATE; the transition is one-way so re-running is harmless.
func (r *MatchRepository) ExpireStale(ctx context.Context, deadline time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("status = ? AND created_at < ?", db.StatusPending, deadline).
		Update("status", db.StatusExpired)
	return res.RowsAffected, res.Error
}

// CountByStatusForDog counts a dog's matches in the given status.
func (r *MatchRepository) CountByStatusForDog(ctx context.Context, dogID uint64, status db.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("status = ?", status).
		Where("dog_a_id = ? OR dog_b_id = ?", dogID, dogID).
		Count(&count).Error
	return count, err
}

// CountLikesGiven counts rows where the dog's own slot is a positive action.
func (r *MatchRepository) CountLikesGiven(ctx context.Context, dogID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where(
			"(dog_a_id = ? AND dog_a_action IN ?) OR (dog_b_id = ? AND dog_b_action IN ?)",
			dogID, positiveActions, dogID, positiveActions,
		).
		Count(&count).Error
	return count, err
}

// CountLikesReceived counts rows where the counterpart's slot is positive
// toward the dog.
func (r *MatchRepository) CountLikesReceived(ctx context.Context, dogID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where(
			"(dog_a_id = ? AND dog_b_action IN ?) OR (dog_b_id = ? AND dog_a_action IN ?)",
			dogID, positiveActions, dogID, positiveActions,
		).
		Count(&count).Error
	return count, err
}
