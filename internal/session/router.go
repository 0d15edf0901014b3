package session

import (
	"github.com/collabix/server/internal/protocol"
)

// Delivery is fire-and-forget: sends push into each recipient's buffered
// queue and are never acknowledged or retried. Because all room-scoped sends
// happen while holding the room mutex, events of the same type from one
// originator reach every recipient in acceptance order.

// toRoomLocked delivers to every member. Caller holds rs.mu.
func (c *Coordinator) toRoomLocked(rs *roomSession, event string, data interface{}) {
	for _, m := range rs.members {
		m.conn.Send(event, data)
	}
}

// toRoomExceptLocked delivers to every member except the originator, so the
// author of a live-editing signal never receives its own echo. Caller holds rs.mu.
func (c *Coordinator) toRoomExceptLocked(rs *roomSession, excludeID, event string, data interface{}) {
	for id, m := range rs.members {
		if id == excludeID {
			continue
		}
		m.conn.Send(event, data)
	}
}

// ToConn unicasts to a connection by identity; unknown targets drop silently.
func (c *Coordinator) ToConn(connID, event string, data interface{}) {
	if conn := c.identity.Lookup(connID); conn != nil {
		conn.Send(event, data)
	}
}

// Signaling relay: stateless point-to-point forwarding of call-setup
// payloads. No room-membership check; targets are only ever learned from
// prior membership notifications, and a vanished peer drops silently.

func (c *Coordinator) RelayOffer(p protocol.SendingSignal) {
	c.ToConn(p.UserToSignal, protocol.EventUserJoinedCall, protocol.UserJoinedCall{
		Signal:   p.Signal,
		CallerID: p.CallerID,
		Username: p.Username,
	})
}

func (c *Coordinator) RelayAnswer(fromID string, p protocol.ReturningSignal) {
	c.ToConn(p.CallerID, protocol.EventReceivingReturned, protocol.ReceivingReturnedSignal{
		Signal: p.Signal,
		ID:     fromID,
	})
}
