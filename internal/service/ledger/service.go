package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/app"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
	svcErr "github.com/pacheco20222/DogMatch-backend-sub000/internal/errors"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/repository"
)

// pairStripes sizes the striped lock table guarding pair-level
// read-modify-write sequences.
const pairStripes = 64

// Service owns the match ledger: the pairwise state machine between two
// dogs, plus the aggregate queries built on it. It has no network
// awareness; dispatch and the HTTP layer sit on top.
type Service struct {
	appCtx  *app.AppContext
	matches *repository.MatchRepository
	dogs    *repository.DogRepository

	// locks serializes find-or-create + slot writes per canonical pair so
	// two dogs acting on each other at the same instant cannot race to
	// duplicate rows or double-apply an action.
	locks [pairStripes]sync.Mutex
}

// NewService creates the ledger service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		matches: repository.NewMatchRepository(appCtx.DB),
		dogs:    repository.NewDogRepository(appCtx.DB),
	}
}

func (s *Service) pairLock(a, b uint64) *sync.Mutex {
	lo, hi := repository.CanonicalPair(a, b)
	return &s.locks[(lo*31+hi)%pairStripes]
}

// RecordAction records actorDogID's swipe on targetDogID, creating the
// match row on first contact. Returns the updated match and whether this
// action completed a mutual match.
//
// Constraints:
//   - action must be like, superlike or pass;
//   - a dog cannot act on itself, and the two dogs must belong to
//     different owners;
//   - at most one action per dog per match: a decided slot fails with
//     ErrAlreadyActed and mutates nothing;
//   - expired is terminal: a late action on an expired match fails with
//     ErrMatchExpired and never resurrects the row.
//
// MatchedAt is written exactly once, on the pending→matched transition.
func (s *Service) RecordAction(ctx context.Context, actorDogID, targetDogID uint64, action db.Action) (*db.Match, bool, error) {
	if !action.Valid() {
		return nil, false, svcErr.Invalid("action must be like, superlike or pass")
	}
	if actorDogID == targetDogID {
		return nil, false, svcErr.ErrSelfMatch
	}

	actorOwner, err := s.ownerOf(ctx, actorDogID)
	if err != nil {
		return nil, false, err
	}
	targetOwner, err := s.ownerOf(ctx, targetDogID)
	if err != nil {
		return nil, false, err
	}
	// a same-owner pair would make participant resolution by owner ambiguous
	if actorOwner == targetOwner {
		return nil, false, svcErr.ErrSameOwner
	}

	lock := s.pairLock(actorDogID, targetDogID)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.matches.FindOrCreate(ctx, actorDogID, targetDogID, actorDogID)
	if err != nil {
		return nil, false, err
	}

	wasMatched := m.Status == db.StatusMatched
	updated, err := s.matches.UpdateWithLock(ctx, m.ID, func(m *db.Match) error {
		if m.Status == db.StatusExpired {
			return svcErr.ErrMatchExpired
		}
		if m.ActionOf(actorDogID).Decided() {
			return svcErr.ErrAlreadyActed
		}
		if m.DogAID == actorDogID {
			m.DogAAction = action
		} else {
			m.DogBAction = action
		}
		m.Status = ComputeStatus(m.DogAAction, m.DogBAction)
		if m.Status == db.StatusMatched && m.MatchedAt == nil {
			now := time.Now().UTC()
			m.MatchedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if action.Positive() {
		s.bumpLikeCounters(ctx, actorDogID, targetDogID)
	}

	newlyMatched := !wasMatched && updated.Status == db.StatusMatched
	if newlyMatched {
		s.appCtx.Logger.Info("match established",
			"match_id", updated.ID, "dog_a", updated.DogAID, "dog_b", updated.DogBID)
	}
	return updated, newlyMatched, nil
}

// bumpLikeCounters keeps the cached swipe stats warm. Best effort only;
// the DB recount on the next cache miss repairs any drift.
func (s *Service) bumpLikeCounters(ctx context.Context, actorDogID, targetDogID uint64) {
	s.appCtx.RedisCache.BumpCount(ctx, s.appCtx.RedisCache.KeyForLikesGiven(actorDogID))
	s.appCtx.RedisCache.BumpCount(ctx, s.appCtx.RedisCache.KeyForLikesReceived(targetDogID))
}

// Get fetches one match, applying lazy expiry: a pending row read past its
// TTL is flipped to expired right here, so readers never observe a match
// the sweeper simply has not reached yet.
func (s *Service) Get(ctx context.Context, matchID uint64) (*db.Match, error) {
	m, err := s.matches.FindByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if m.Status == db.StatusPending {
		now := time.Now().UTC()
		if m.CreatedAt.Before(now.Add(-s.appCtx.Config.Match.PendingTTL)) {
			return s.ExpireIfStale(ctx, matchID, now)
		}
	}
	return m, nil
}

// ownerOf resolves a dog to its owner, mapping a missing dog to ErrNotFound.
func (s *Service) ownerOf(ctx context.Context, dogID uint64) (uint64, error) {
	ownerID, err := s.dogs.OwnerOf(ctx, dogID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, svcErr.ErrNotFound
	}
	return ownerID, err
}

// OtherDog returns the counterpart of dogID within m.
func (s *Service) OtherDog(m *db.Match, dogID uint64) (uint64, error) {
	switch dogID {
	case m.DogAID:
		return m.DogBID, nil
	case m.DogBID:
		return m.DogAID, nil
	}
	return 0, svcErr.ErrNotAParticipant
}

// CanChat reports whether messages may be exchanged on m: mutually matched,
// active and not archived.
func (s *Service) CanChat(m *db.Match) bool {
	return m.Status == db.StatusMatched && m.Active && !m.Archived
}

// Archive hides an established match for byDogID without destroying
// history. Status and the action slots are untouched.
func (s *Service) Archive(ctx context.Context, matchID, byDogID uint64) (*db.Match, error) {
	return s.setArchived(ctx, matchID, byDogID, true)
}

// Unarchive reverses Archive.
func (s *Service) Unarchive(ctx context.Context, matchID, byDogID uint64) (*db.Match, error) {
	return s.setArchived(ctx, matchID, byDogID, false)
}

func (s *Service) setArchived(ctx context.Context, matchID, byDogID uint64, archived bool) (*db.Match, error) {
	m, err := s.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.HasDog(byDogID) {
		return nil, svcErr.ErrNotAParticipant
	}

	var by *uint64
	if archived {
		by = &byDogID
	}
	return s.matches.SetArchived(ctx, matchID, archived, by)
}

// ExpireIfStale moves one match from pending to expired when the deadline
// has elapsed. The transition is one-way and never reversed.
func (s *Service) ExpireIfStale(ctx context.Context, matchID uint64, now time.Time) (*db.Match, error) {
	deadline := now.Add(-s.appCtx.Config.Match.PendingTTL)
	return s.matches.UpdateWithLock(ctx, matchID, func(m *db.Match) error {
		if m.Status == db.StatusPending && m.CreatedAt.Before(deadline) {
			m.Status = db.StatusExpired
		}
		return nil
	})
}

// ExpireStale sweeps every match still pending past the configured TTL.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.matches.ExpireStale(ctx, now.Add(-s.appCtx.Config.Match.PendingTTL))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.appCtx.Logger.Info("expired stale pending matches", "count", n)
	}
	return n, nil
}

// ListForDog lists a dog's matches, optionally filtered by status and
// including archived ones.
func (s *Service) ListForDog(ctx context.Context, dogID uint64, status *db.Status, includeArchived bool) ([]db.Match, error) {
	return s.matches.ListForDog(ctx, dogID, status, includeArchived)
}

// Awaiting lists pending matches still waiting on dogID's response.
func (s *Service) Awaiting(ctx context.Context, dogID uint64) ([]db.Match, error) {
	return s.matches.ListAwaiting(ctx, dogID)
}

// Stats are the aggregate swipe numbers shown on a dog's profile screen.
type Stats struct {
	Matched       int64 `json:"matched"`
	Pending       int64 `json:"pending"`
	LikesGiven    int64 `json:"likesGiven"`
	LikesReceived int64 `json:"likesReceived"`
}

// Stats returns a dog's aggregate counters. Like counts are cache-first:
//  1. read Redis (likes:given / likes:received keys, 1h TTL);
//  2. on miss, recount from the DB and repopulate the cache.
//
// Match/pending counts are cheap indexed counts and always come from the DB.
func (s *Service) Stats(ctx context.Context, dogID uint64) (*Stats, error) {
	out := &Stats{}
	var err error

	if out.Matched, err = s.matches.CountByStatusForDog(ctx, dogID, db.StatusMatched); err != nil {
		return nil, err
	}
	if out.Pending, err = s.matches.CountByStatusForDog(ctx, dogID, db.StatusPending); err != nil {
		return nil, err
	}

	if out.LikesGiven, err = s.cachedCount(ctx,
		s.appCtx.RedisCache.KeyForLikesGiven(dogID),
		func() (int64, error) { return s.matches.CountLikesGiven(ctx, dogID) },
	); err != nil {
		return nil, err
	}
	if out.LikesReceived, err = s.cachedCount(ctx,
		s.appCtx.RedisCache.KeyForLikesReceived(dogID),
		func() (int64, error) { return s.matches.CountLikesReceived(ctx, dogID) },
	); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Service) cachedCount(ctx context.Context, key string, recount func() (int64, error)) (int64, error) {
	if n, ok, _ := s.appCtx.RedisCache.GetCount(ctx, key); ok {
		return n, nil
	}
	n, err := recount()
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.SetCount(ctx, key, n)
	return n, nil
}
