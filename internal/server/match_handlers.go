package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/app"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
	svcErr "github.com/pacheco20222/DogMatch-backend-sub000/internal/errors"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/repository"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/ledger"
)

// MatchHandler serves the swipe and match-ledger resources.
type MatchHandler struct {
	appCtx   *app.AppContext
	ledger   *ledger.Service
	dogs     *repository.DogRepository
	validate *validator.Validate
}

func NewMatchHandler(appCtx *app.AppContext, ledgerSvc *ledger.Service) *MatchHandler {
	return &MatchHandler{
		appCtx:   appCtx,
		ledger:   ledgerSvc,
		dogs:     repository.NewDogRepository(appCtx.DB),
		validate: validator.New(),
	}
}

// Register attaches the match routes to the authenticated API subrouter.
// The static /matches/awaiting route must precede the /matches/{id} pattern.
func (h *MatchHandler) Register(api *mux.Router) {
	api.HandleFunc("/swipes", h.Swipe).Methods("POST")
	api.HandleFunc("/matches/awaiting", h.Awaiting).Methods("GET")
	api.HandleFunc("/matches", h.List).Methods("GET")
	api.HandleFunc("/matches/{id:[0-9]+}", h.Get).Methods("GET")
	api.HandleFunc("/matches/{id:[0-9]+}", h.Archive).Methods("DELETE")
	api.HandleFunc("/matches/{id:[0-9]+}/unarchive", h.Unarchive).Methods("POST")
	api.HandleFunc("/stats", h.Stats).Methods("GET")
}

// matchView is a match row seen from one participant's side.
type matchView struct {
	ID            uint64     `json:"id"`
	DogID         uint64     `json:"dogId"`
	OtherDogID    uint64     `json:"otherDogId"`
	MyAction      db.Action  `json:"myAction"`
	TheirAction   db.Action  `json:"theirAction"`
	Status        db.Status  `json:"status"`
	InitiatedByMe bool       `json:"initiatedByMe"`
	Archived      bool       `json:"archived"`
	MessageCount  int64      `json:"messageCount"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	MatchedAt     *time.Time `json:"matchedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func newMatchView(m *db.Match, dogID uint64) matchView {
	otherDogID := m.DogAID
	if dogID == m.DogAID {
		otherDogID = m.DogBID
	}
	return matchView{
		ID:            m.ID,
		DogID:         dogID,
		OtherDogID:    otherDogID,
		MyAction:      m.ActionOf(dogID),
		TheirAction:   m.ActionOf(otherDogID),
		Status:        m.Status,
		InitiatedByMe: m.InitiatorDogID == dogID,
		Archived:      m.Archived,
		MessageCount:  m.MessageCount,
		LastMessageAt: m.LastMessageAt,
		MatchedAt:     m.MatchedAt,
		CreatedAt:     m.CreatedAt,
	}
}

type swipeRequest struct {
	DogID       uint64 `json:"dogId" validate:"required"`
	TargetDogID uint64 `json:"targetDogId" validate:"required"`
	Action      string `json:"action" validate:"required,oneof=like superlike pass"`
}

// Swipe records the caller's action slot against a target dog, creating
// the match row on first contact.
func (h *MatchHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, svcErr.Invalid("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, svcErr.Invalid(err.Error()))
		return
	}

	ownerID := OwnerFromContext(r.Context())
	owned, err := h.dogs.OwnedBy(r.Context(), req.DogID, ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !owned {
		writeError(w, svcErr.ErrNotAParticipant)
		return
	}

	m, newlyMatched, err := h.ledger.RecordAction(r.Context(), req.DogID, req.TargetDogID, db.Action(req.Action))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"match":        newMatchView(m, req.DogID),
		"newlyMatched": newlyMatched,
	})
}

// List returns the caller dog's matches, optionally filtered by status,
// archived hidden unless includeArchived=true.
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	dogID, err := h.callerDog(r, r.URL.Query().Get("dogId"))
	if err != nil {
		writeError(w, err)
		return
	}

	var status *db.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := db.Status(s)
		switch st {
		case db.StatusPending, db.StatusMatched, db.StatusDeclined, db.StatusExpired:
			status = &st
		default:
			writeError(w, svcErr.Invalid("unknown status filter"))
			return
		}
	}
	includeArchived := r.URL.Query().Get("includeArchived") == "true"

	matches, err := h.ledger.ListForDog(r.Context(), dogID, status, includeArchived)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]matchView, 0, len(matches))
	for i := range matches {
		views = append(views, newMatchView(&matches[i], dogID))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": views})
}

// Awaiting returns pending matches still waiting on the caller dog's response.
func (h *MatchHandler) Awaiting(w http.ResponseWriter, r *http.Request) {
	dogID, err := h.callerDog(r, r.URL.Query().Get("dogId"))
	if err != nil {
		writeError(w, err)
		return
	}

	matches, err := h.ledger.Awaiting(r.Context(), dogID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]matchView, 0, len(matches))
	for i := range matches {
		views = append(views, newMatchView(&matches[i], dogID))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": views})
}

// Get fetches one match from the caller's perspective.
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	matchID, dogID, err := h.resolveMatchCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.ledger.Get(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMatchView(m, dogID))
}

// Archive is the unmatch operation: hides an established conversation
// without destroying history.
func (h *MatchHandler) Archive(w http.ResponseWriter, r *http.Request) {
	matchID, dogID, err := h.resolveMatchCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.ledger.Archive(r.Context(), matchID, dogID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMatchView(m, dogID))
}

// Unarchive reverses Archive.
func (h *MatchHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	matchID, dogID, err := h.resolveMatchCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.ledger.Unarchive(r.Context(), matchID, dogID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMatchView(m, dogID))
}

// Stats returns the caller dog's aggregate swipe counters.
func (h *MatchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	dogID, err := h.callerDog(r, r.URL.Query().Get("dogId"))
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.ledger.Stats(r.Context(), dogID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// callerDog parses a dogId parameter and checks it belongs to the
// authenticated owner.
func (h *MatchHandler) callerDog(r *http.Request, raw string) (uint64, error) {
	dogID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || dogID == 0 {
		return 0, svcErr.Invalid("dogId must be a valid id")
	}
	owned, err := h.dogs.OwnedBy(r.Context(), dogID, OwnerFromContext(r.Context()))
	if err != nil {
		return 0, err
	}
	if !owned {
		return 0, svcErr.ErrNotAParticipant
	}
	return dogID, nil
}

// resolveMatchCaller parses the {id} path var and resolves which of the
// match's dogs belongs to the caller.
func (h *MatchHandler) resolveMatchCaller(r *http.Request) (matchID, dogID uint64, err error) {
	matchID, err = strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, 0, svcErr.Invalid("invalid match id")
	}
	m, err := h.ledger.Get(r.Context(), matchID)
	if err != nil {
		return 0, 0, err
	}
	dogID, err = h.dogs.DogOwnedBy(r.Context(), OwnerFromContext(r.Context()), m.DogAID, m.DogBID)
	if err != nil {
		return 0, 0, err
	}
	if dogID == 0 {
		return 0, 0, svcErr.ErrNotAParticipant
	}
	return matchID, dogID, nil
}
