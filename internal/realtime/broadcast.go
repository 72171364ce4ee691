package realtime

import (
	"fmt"

	socketio "github.com/googollee/go-socket.io"
)

// Namespace is the single socket.io namespace the service uses.
const Namespace = "/"

// PresenceRoom is the room every authenticated connection joins on connect;
// presence transitions are broadcast here.
const PresenceRoom = "presence"

// MatchRoom names the broadcast room scoped to one match.
func MatchRoom(matchID uint64) string {
	return fmt.Sprintf("match:%d", matchID)
}

// Realtime event names, shared by the socket handlers and the dispatch
// fan-out so the two ingress paths emit identical wire events.
const (
	EventConnected       = "connected"
	EventJoined          = "joined"
	EventLeft            = "left"
	EventNewMessage      = "newMessage"
	EventMessageSent     = "messageSent"
	EventMessageRead     = "messageRead"
	EventMessageEdited   = "messageEdited"
	EventMessageDeleted  = "messageDeleted"
	EventTyping          = "typing"
	EventPresenceOnline  = "presenceOnline"
	EventPresenceOffline = "presenceOffline"
	EventPong            = "pong"
	EventError           = "error"
)

// Broadcaster is the room fan-out primitive: emit one event to every
// member of a room, optionally excluding some connection handles.
// EmitToRoomExcept reports which handles it actually delivered to, so the
// direct-to-connection path in dispatch can skip them and keep delivery
// exactly-once per connection.
type Broadcaster interface {
	EmitToRoom(room, event string, arg interface{})
	EmitToRoomExcept(room string, exclude map[string]struct{}, event string, arg interface{}) map[string]struct{}
}

// SocketBroadcaster implements Broadcaster on the socket.io server's
// native room bookkeeping.
type SocketBroadcaster struct {
	srv *socketio.Server
}

func NewSocketBroadcaster(srv *socketio.Server) *SocketBroadcaster {
	return &SocketBroadcaster{srv: srv}
}

func (b *SocketBroadcaster) EmitToRoom(room, event string, arg interface{}) {
	b.srv.BroadcastToRoom(Namespace, room, event, arg)
}

func (b *SocketBroadcaster) EmitToRoomExcept(room string, exclude map[string]struct{}, event string, arg interface{}) map[string]struct{} {
	delivered := make(map[string]struct{})
	b.srv.ForEach(Namespace, room, func(c socketio.Conn) {
		if _, skip := exclude[c.ID()]; skip {
			return
		}
		c.Emit(event, arg)
		delivered[c.ID()] = struct{}{}
	})
	return delivered
}
