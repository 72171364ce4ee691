package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/app"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
	svcErr "github.com/pacheco20222/DogMatch-backend-sub000/internal/errors"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/realtime"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/repository"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/ledger"
)

// Service is the message dispatch component. Both ingress paths (the HTTP
// handler and the socket "sendMessage" event) call the same Send below;
// the delivery semantics cannot diverge between them.
type Service struct {
	appCtx      *app.AppContext
	ledger      *ledger.Service
	messages    *repository.MessageRepository
	dogs        *repository.DogRepository
	registry    *realtime.Registry
	broadcaster realtime.Broadcaster
}

// NewService wires dispatch onto the ledger, the connection registry and
// the room broadcaster.
func NewService(appCtx *app.AppContext, ledgerSvc *ledger.Service, registry *realtime.Registry, broadcaster realtime.Broadcaster) *Service {
	return &Service{
		appCtx:      appCtx,
		ledger:      ledgerSvc,
		messages:    repository.NewMessageRepository(appCtx.DB),
		dogs:        repository.NewDogRepository(appCtx.DB),
		registry:    registry,
		broadcaster: broadcaster,
	}
}

// SendInput carries the type-specific message fields from either ingress.
type SendInput struct {
	Body          string         `json:"body" validate:"required_if=Type text,max=4000"`
	Type          db.MessageType `json:"type"`
	MediaURL      string         `json:"mediaUrl"`
	Latitude      *float64       `json:"latitude"`
	Longitude     *float64       `json:"longitude"`
	LocationLabel string         `json:"locationLabel"`
}

// MessageView is the per-recipient read model of a stored message. The two
// views built from one message differ only in SentByMe.
type MessageView struct {
	ID            string         `json:"id"`
	MatchID       uint64         `json:"matchId"`
	SenderDogID   uint64         `json:"senderDogId"`
	Body          string         `json:"body"`
	Type          db.MessageType `json:"type"`
	MediaURL      string         `json:"mediaUrl,omitempty"`
	Latitude      *float64       `json:"latitude,omitempty"`
	Longitude     *float64       `json:"longitude,omitempty"`
	LocationLabel string         `json:"locationLabel,omitempty"`
	SentByMe      bool           `json:"sentByMe"`
	Read          bool           `json:"read"`
	Edited        bool           `json:"edited"`
	Deleted       bool           `json:"deleted"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func view(msg *db.Message, sentByMe bool) *MessageView {
	return &MessageView{
		ID:            msg.ID,
		MatchID:       msg.MatchID,
		SenderDogID:   msg.SenderDogID,
		Body:          msg.DisplayBody(),
		Type:          msg.Type,
		MediaURL:      msg.MediaURL,
		Latitude:      msg.Latitude,
		Longitude:     msg.Longitude,
		LocationLabel: msg.LocationLabel,
		SentByMe:      sentByMe,
		Read:          msg.Read,
		Edited:        msg.Edited,
		Deleted:       msg.Deleted,
		CreatedAt:     msg.CreatedAt,
	}
}

// Send persists a message on a match and fans it out.
//
// Order of operations:
//  1. resolve the sender's dog within the pair from the owning account;
//  2. gate on the ledger (matched, active, not archived);
//  3. persist message + match aggregates in one transaction;
//  4. build the sender view and the recipient view;
//  5. fan out, best effort: a delivery failure never rolls back 1-3.
//
// Returns the sender's own view of the created message.
func (s *Service) Send(ctx context.Context, matchID, senderOwnerID uint64, in SendInput) (*MessageView, error) {
	m, err := s.ledger.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}

	senderDogID, err := s.dogs.DogOwnedBy(ctx, senderOwnerID, m.DogAID, m.DogBID)
	if err != nil {
		return nil, err
	}
	if senderDogID == 0 {
		return nil, svcErr.ErrNotAParticipant
	}

	if !s.ledger.CanChat(m) {
		return nil, svcErr.ErrMatchNotEstablished
	}

	if in.Type == "" {
		in.Type = db.MessageTypeText
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	msg := &db.Message{
		ID:            uuid.New().String(),
		MatchID:       m.ID,
		SenderDogID:   senderDogID,
		Body:          in.Body,
		Type:          in.Type,
		MediaURL:      in.MediaURL,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		LocationLabel: in.LocationLabel,
		// millisecond precision, matching the pagination cursor exactly
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	senderView := view(msg, true)
	recipientView := view(msg, false)
	s.fanOut(ctx, m, senderOwnerID, senderDogID, senderView, recipientView)

	return senderView, nil
}

func validateInput(in SendInput) error {
	switch in.Type {
	case db.MessageTypeText, db.MessageTypeSystem:
		if strings.TrimSpace(in.Body) == "" {
			return svcErr.Invalid("body is required")
		}
	case db.MessageTypeImage:
		if in.MediaURL == "" {
			return svcErr.Invalid("mediaUrl is required for image messages")
		}
	case db.MessageTypeLocation:
		if in.Latitude == nil || in.Longitude == nil {
			return svcErr.Invalid("latitude and longitude are required for location messages")
		}
	default:
		return svcErr.Invalid("unknown message type")
	}
	if len(in.Body) > 4000 {
		return svcErr.Invalid("body exceeds 4000 characters")
	}
	return nil
}

// fanOut delivers one logical message to every connection that should see
// it, exactly once per connection:
//
//	a) the sender view to every connection of the sender's account
//	   (multi-device self-sync);
//	b) the recipient view to the match room minus the sender's handles;
//	c) the recipient view directly to the recipient account's connections
//	   that the room broadcast did not already cover: a recipient can be
//	   online without having opened this conversation, and room broadcast
//	   alone would drop the notification for them.
//
// Every step is best effort: a dead handle is logged and skipped.
func (s *Service) fanOut(ctx context.Context, m *db.Match, senderOwnerID, senderDogID uint64, senderView, recipientView *MessageView) {
	senderConns := s.registry.Connections(senderOwnerID)
	exclude := make(map[string]struct{}, len(senderConns))
	for _, c := range senderConns {
		exclude[c.ID()] = struct{}{}
		s.safeEmit(c, realtime.EventNewMessage, senderView)
	}

	delivered := s.broadcaster.EmitToRoomExcept(
		realtime.MatchRoom(m.ID), exclude, realtime.EventNewMessage, recipientView)

	otherDogID, err := s.ledger.OtherDog(m, senderDogID)
	if err != nil {
		return
	}
	otherOwnerID, err := s.dogs.OwnerOf(ctx, otherDogID)
	if err != nil {
		s.appCtx.Logger.Warn("fan-out could not resolve recipient owner",
			"match_id", m.ID, "dog_id", otherDogID, "err", err)
		return
	}
	for _, c := range s.registry.Connections(otherOwnerID) {
		if _, done := delivered[c.ID()]; done {
			continue
		}
		s.safeEmit(c, realtime.EventNewMessage, recipientView)
	}
}

// safeEmit shields dispatch from a handle that died mid-delivery. The
// authoritative outcome is persistence; delivery is advisory.
func (s *Service) safeEmit(c realtime.Conn, event string, arg interface{}) {
	defer func() {
		if r := recover(); r != nil {
			s.appCtx.Logger.Warn("dropped event for dead connection",
				"conn_id", c.ID(), "event", event, "panic", r)
		}
	}()
	c.Emit(event, arg)
}

// ReadReceipt is broadcast to the match room when a message is read.
type ReadReceipt struct {
	MessageID   string    `json:"messageId"`
	MatchID     uint64    `json:"matchId"`
	ReaderDogID uint64    `json:"readerDogId"`
	ReadAt      time.Time `json:"readAt"`
}

// MarkRead flags a message read by the counterpart and broadcasts the
// receipt to the match room. The sender cannot read their own message.
func (s *Service) MarkRead(ctx context.Context, messageID string, readerOwnerID uint64) (*ReadReceipt, error) {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	m, err := s.ledger.Get(ctx, msg.MatchID)
	if err != nil {
		return nil, err
	}

	readerDogID, err := s.dogs.DogOwnedBy(ctx, readerOwnerID, m.DogAID, m.DogBID)
	if err != nil {
		return nil, err
	}
	if readerDogID == 0 {
		return nil, svcErr.ErrNotAParticipant
	}
	if readerDogID == msg.SenderDogID {
		return nil, svcErr.Invalid("sender cannot mark own message as read")
	}

	now := time.Now().UTC()
	if err := s.messages.MarkRead(ctx, msg.ID, now); err != nil {
		return nil, err
	}

	receipt := &ReadReceipt{
		MessageID:   msg.ID,
		MatchID:     m.ID,
		ReaderDogID: readerDogID,
		ReadAt:      now,
	}
	s.broadcaster.EmitToRoom(realtime.MatchRoom(m.ID), realtime.EventMessageRead, receipt)
	return receipt, nil
}

// TypingEvent is the fire-and-forget typing indicator.
type TypingEvent struct {
	MatchID  uint64 `json:"matchId"`
	DogID    uint64 `json:"dogId"`
	IsTyping bool   `json:"isTyping"`
}

// Typing broadcasts a typing indicator to the match room, excluding the
// typist's own connections. Authorization mirrors Send; nothing persists.
func (s *Service) Typing(ctx context.Context, matchID, ownerID uint64, isTyping bool) error {
	m, err := s.ledger.Get(ctx, matchID)
	if err != nil {
		return err
	}
	dogID, err := s.dogs.DogOwnedBy(ctx, ownerID, m.DogAID, m.DogBID)
	if err != nil {
		return err
	}
	if dogID == 0 {
		return svcErr.ErrNotAParticipant
	}
	if !s.ledger.CanChat(m) {
		return svcErr.ErrMatchNotEstablished
	}

	exclude := make(map[string]struct{})
	for _, c := range s.registry.Connections(ownerID) {
		exclude[c.ID()] = struct{}{}
	}
	s.broadcaster.EmitToRoomExcept(realtime.MatchRoom(m.ID), exclude, realtime.EventTyping,
		&TypingEvent{MatchID: m.ID, DogID: dogID, IsTyping: isTyping})
	return nil
}

// History pages through a match's messages, newest first, from the
// caller's perspective.
func (s *Service) History(ctx context.Context, matchID, ownerID uint64, paginationToken *string, limit int) ([]*MessageView, *string, error) {
	m, err := s.ledger.Get(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	dogID, err := s.dogs.DogOwnedBy(ctx, ownerID, m.DogAID, m.DogBID)
	if err != nil {
		return nil, nil, err
	}
	if dogID == 0 {
		return nil, nil, svcErr.ErrNotAParticipant
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	messages, nextToken, err := s.messages.ListByMatch(ctx, m.ID, paginationToken, limit)
	if err != nil {
		return nil, nil, err
	}

	views := make([]*MessageView, 0, len(messages))
	for i := range messages {
		msg := messages[i]
		views = append(views, view(&msg, msg.SenderDogID == dogID))
	}
	return views, nextToken, nil
}

// Edit rewrites a text message within the configured window. Only the
// sender may edit. The edit fans out like Send does: the editor's own
// connections get the sender view, the rest of the room the recipient view.
func (s *Service) Edit(ctx context.Context, messageID string, ownerID uint64, body string) (*MessageView, error) {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	m, err := s.ledger.Get(ctx, msg.MatchID)
	if err != nil {
		return nil, err
	}

	dogID, err := s.dogs.DogOwnedBy(ctx, ownerID, m.DogAID, m.DogBID)
	if err != nil {
		return nil, err
	}
	if dogID == 0 || dogID != msg.SenderDogID {
		return nil, svcErr.ErrNotAParticipant
	}
	if msg.Type != db.MessageTypeText {
		return nil, svcErr.Invalid("only text messages can be edited")
	}
	if msg.Deleted {
		return nil, svcErr.Invalid("cannot edit a deleted message")
	}
	if strings.TrimSpace(body) == "" {
		return nil, svcErr.Invalid("body is required")
	}

	now := time.Now().UTC()
	if now.Sub(msg.CreatedAt) > s.appCtx.Config.Match.EditWindow {
		return nil, svcErr.ErrEditWindowClosed
	}

	if err := s.messages.UpdateBody(ctx, msg.ID, body, now); err != nil {
		return nil, err
	}
	msg.Body = body
	msg.Edited = true
	msg.EditedAt = &now

	updated := view(msg, true)
	exclude := make(map[string]struct{})
	for _, c := range s.registry.Connections(ownerID) {
		exclude[c.ID()] = struct{}{}
		s.safeEmit(c, realtime.EventMessageEdited, updated)
	}
	s.broadcaster.EmitToRoomExcept(realtime.MatchRoom(m.ID), exclude,
		realtime.EventMessageEdited, view(msg, false))
	return updated, nil
}

// DeletedNotice is broadcast to the room on soft delete.
type DeletedNotice struct {
	MessageID      string `json:"messageId"`
	MatchID        uint64 `json:"matchId"`
	DeletedByDogID uint64 `json:"deletedByDogId"`
}

// Delete soft-deletes a message: the stored row survives, display shows
// the tombstone. Either participant may delete.
func (s *Service) Delete(ctx context.Context, messageID string, ownerID uint64) error {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	m, err := s.ledger.Get(ctx, msg.MatchID)
	if err != nil {
		return err
	}

	dogID, err := s.dogs.DogOwnedBy(ctx, ownerID, m.DogAID, m.DogBID)
	if err != nil {
		return err
	}
	if dogID == 0 {
		return svcErr.ErrNotAParticipant
	}

	if err := s.messages.SoftDelete(ctx, msg.ID, dogID); err != nil {
		return err
	}
	s.broadcaster.EmitToRoom(realtime.MatchRoom(m.ID), realtime.EventMessageDeleted,
		&DeletedNotice{MessageID: msg.ID, MatchID: m.ID, DeletedByDogID: dogID})
	return nil
}

func (s *Service) getMessage(ctx context.Context, id string) (*db.Message, error) {
	msg, err := s.messages.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrNotFound
	}
	return msg, err
}
