package server

import (
	"context"

	socketio "github.com/googollee/go-socket.io"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/app"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/auth"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
	svcErr "github.com/pacheco20222/DogMatch-backend-sub000/internal/errors"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/realtime"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/repository"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/chat"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/ledger"
)

type joinPayload struct {
	MatchID uint64 `json:"matchId"`
}

type sendPayload struct {
	MatchID       uint64   `json:"matchId"`
	Body          string   `json:"body"`
	Type          string   `json:"type"`
	MediaURL      string   `json:"mediaUrl"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	LocationLabel string   `json:"locationLabel"`
}

type typingPayload struct {
	MatchID  uint64 `json:"matchId"`
	IsTyping bool   `json:"isTyping"`
}

type readPayload struct {
	MessageID string `json:"messageId"`
}

type presencePayload struct {
	OwnerID uint64 `json:"ownerId"`
}

type errorPayload struct {
	Reason string `json:"reason"`
}

// RegisterSocketHandlers wires session lifecycle and the realtime ingress
// onto the socket.io server. Message sending converges on the same
// chat.Service.Send the HTTP handler uses; this file only translates
// events, it implements no delivery logic of its own.
func RegisterSocketHandlers(
	srv *socketio.Server,
	appCtx *app.AppContext,
	verifier auth.TokenVerifier,
	registry *realtime.Registry,
	ledgerSvc *ledger.Service,
	chatSvc *chat.Service,
) {
	log := appCtx.Logger
	dogs := repository.NewDogRepository(appCtx.DB)
	broadcaster := realtime.NewSocketBroadcaster(srv)

	emitErr := func(c socketio.Conn, err error) {
		c.Emit(realtime.EventError, errorPayload{Reason: svcErr.Reason(err)})
	}

	// ownerOf resolves the authenticated identity of a live connection.
	ownerOf := func(c socketio.Conn) (uint64, bool) {
		ownerID, ok := registry.Owner(c.ID())
		return ownerID, ok
	}

	// participantDog re-verifies, per call, that the connection's owner
	// holds one of the pair's dogs. Authorization is never cached on the
	// connection.
	participantDog := func(ctx context.Context, c socketio.Conn, matchID uint64) (uint64, error) {
		ownerID, ok := ownerOf(c)
		if !ok {
			return 0, svcErr.ErrAuthenticationFailed
		}
		m, err := ledgerSvc.Get(ctx, matchID)
		if err != nil {
			return 0, err
		}
		dogID, err := dogs.DogOwnedBy(ctx, ownerID, m.DogAID, m.DogBID)
		if err != nil {
			return 0, err
		}
		if dogID == 0 {
			return 0, svcErr.ErrNotAParticipant
		}
		return dogID, nil
	}

	srv.OnConnect(realtime.Namespace, func(c socketio.Conn) error {
		u := c.URL()
		token := u.Query().Get("token")
		ownerID, err := verifier.Verify(token)
		if err != nil {
			// refuse the connection outright, no error event
			log.Warn("socket auth failed", "conn_id", c.ID())
			return svcErr.ErrAuthenticationFailed
		}

		registry.Add(ownerID, c)
		c.SetContext(ownerID)
		c.Join(realtime.PresenceRoom)

		c.Emit(realtime.EventConnected, presencePayload{OwnerID: ownerID})
		broadcaster.EmitToRoomExcept(realtime.PresenceRoom,
			map[string]struct{}{c.ID(): {}},
			realtime.EventPresenceOnline, presencePayload{OwnerID: ownerID})

		log.Info("socket connected", "conn_id", c.ID(), "owner_id", ownerID)
		return nil
	})

	srv.OnDisconnect(realtime.Namespace, func(c socketio.Conn, reason string) {
		ownerID, last, ok := registry.Remove(c.ID())
		if !ok {
			return // never authenticated
		}
		if last {
			broadcaster.EmitToRoom(realtime.PresenceRoom,
				realtime.EventPresenceOffline, presencePayload{OwnerID: ownerID})
		}
		log.Info("socket disconnected",
			"conn_id", c.ID(), "owner_id", ownerID, "reason", reason, "last", last)
	})

	srv.OnError(realtime.Namespace, func(c socketio.Conn, err error) {
		log.Warn("socket error", "err", err)
	})

	srv.OnEvent(realtime.Namespace, "join", func(c socketio.Conn, p joinPayload) {
		if _, err := participantDog(context.Background(), c, p.MatchID); err != nil {
			emitErr(c, err)
			return
		}
		c.Join(realtime.MatchRoom(p.MatchID))
		c.Emit(realtime.EventJoined, joinPayload{MatchID: p.MatchID})
	})

	srv.OnEvent(realtime.Namespace, "leave", func(c socketio.Conn, p joinPayload) {
		c.Leave(realtime.MatchRoom(p.MatchID))
		c.Emit(realtime.EventLeft, joinPayload{MatchID: p.MatchID})
	})

	srv.OnEvent(realtime.Namespace, "sendMessage", func(c socketio.Conn, p sendPayload) {
		ownerID, ok := ownerOf(c)
		if !ok {
			emitErr(c, svcErr.ErrAuthenticationFailed)
			return
		}
		msgView, err := chatSvc.Send(context.Background(), p.MatchID, ownerID, chat.SendInput{
			Body:          p.Body,
			Type:          messageType(p.Type),
			MediaURL:      p.MediaURL,
			Latitude:      p.Latitude,
			Longitude:     p.Longitude,
			LocationLabel: p.LocationLabel,
		})
		if err != nil {
			emitErr(c, err)
			return
		}
		// confirmation to the originating connection only; the fan-out to
		// everyone else already happened inside Send
		c.Emit(realtime.EventMessageSent, msgView)
	})

	srv.OnEvent(realtime.Namespace, "typing", func(c socketio.Conn, p typingPayload) {
		ownerID, ok := ownerOf(c)
		if !ok {
			emitErr(c, svcErr.ErrAuthenticationFailed)
			return
		}
		if err := chatSvc.Typing(context.Background(), p.MatchID, ownerID, p.IsTyping); err != nil {
			emitErr(c, err)
		}
	})

	srv.OnEvent(realtime.Namespace, "markRead", func(c socketio.Conn, p readPayload) {
		ownerID, ok := ownerOf(c)
		if !ok {
			emitErr(c, svcErr.ErrAuthenticationFailed)
			return
		}
		if _, err := chatSvc.MarkRead(context.Background(), p.MessageID, ownerID); err != nil {
			emitErr(c, err)
		}
	})

	srv.OnEvent(realtime.Namespace, "ping", func(c socketio.Conn) {
		c.Emit(realtime.EventPong)
	})
}

func messageType(s string) db.MessageType {
	if s == "" {
		return db.MessageTypeText
	}
	return db.MessageType(s)
}
