package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	svcErr "github.com/pacheco20222/DogMatch-backend-sub000/internal/errors"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/chat"
)

// ChatHandler is the synchronous ingress for messaging. It translates
// HTTP to chat.Service calls; the realtime ingress in socket.go converges
// on the same service.
type ChatHandler struct {
	chat     *chat.Service
	validate *validator.Validate
}

func NewChatHandler(chatSvc *chat.Service) *ChatHandler {
	return &ChatHandler{chat: chatSvc, validate: validator.New()}
}

func (h *ChatHandler) Register(api *mux.Router) {
	api.HandleFunc("/matches/{id:[0-9]+}/messages", h.Send).Methods("POST")
	api.HandleFunc("/matches/{id:[0-9]+}/messages", h.History).Methods("GET")
	api.HandleFunc("/messages/{id}/read", h.MarkRead).Methods("POST")
	api.HandleFunc("/messages/{id}", h.Edit).Methods("PATCH")
	api.HandleFunc("/messages/{id}", h.Delete).Methods("DELETE")
}

// Send creates a message on a match. Responds with the caller's own view;
// the realtime fan-out happens inside the service as a side effect.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var in chat.SendInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, svcErr.Invalid("invalid request body"))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		writeError(w, svcErr.Invalid(err.Error()))
		return
	}

	msgView, err := h.chat.Send(r.Context(), matchID, OwnerFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msgView)
}

// History pages through a match's messages.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	var token *string
	if t := r.URL.Query().Get("paginationToken"); t != "" {
		token = &t
	}

	views, nextToken, err := h.chat.History(r.Context(), matchID, OwnerFromContext(r.Context()), token, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{"messages": views}
	if nextToken != nil {
		resp["nextPaginationToken"] = *nextToken
	}
	writeJSON(w, http.StatusOK, resp)
}

// MarkRead sets the read receipt on a message.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.chat.MarkRead(r.Context(), mux.Vars(r)["id"], OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type editRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// Edit rewrites a text message within the edit window.
func (h *ChatHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, svcErr.Invalid("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, svcErr.Invalid(err.Error()))
		return
	}

	msgView, err := h.chat.Edit(r.Context(), mux.Vars(r)["id"], OwnerFromContext(r.Context()), req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgView)
}

// Delete soft-deletes a message, leaving a tombstone.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Delete(r.Context(), mux.Vars(r)["id"], OwnerFromContext(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, svcErr.Invalid("invalid match id")
	}
	return id, nil
}
