package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/collabix/server/internal/exec"
	"github.com/collabix/server/internal/protocol"
	"github.com/collabix/server/internal/ratelimit"
	"github.com/collabix/server/internal/session"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 1024 * 1024
	execTimeout       = 15 * time.Second
	messagesPerSecond = 100
	messageBurst      = 200
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one live websocket connection. It implements session.Conn.
type Client struct {
	id      string
	coord   *session.Coordinator
	runner  exec.Runner
	conn    *websocket.Conn
	send    chan []byte
	limiter *ratelimit.Limiter
}

func ServeWs(coord *session.Coordinator, runner exec.Runner, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	client := &Client{
		id:      uuid.NewString(),
		coord:   coord,
		runner:  runner,
		conn:    conn,
		send:    make(chan []byte, 512),
		limiter: ratelimit.NewLimiter(messagesPerSecond, messageBurst),
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) ID() string {
	return c.id
}

// Send marshals the event into an envelope and queues it without blocking.
// A slow consumer loses messages rather than stalling the room.
func (c *Client) Send(event string, data interface{}) {
	env := protocol.Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			log.Printf("Failed to marshal %s payload: %v", event, err)
			return
		}
		env.Data = raw
	}

	msg, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to marshal %s envelope: %v", event, err)
		return
	}

	select {
	case c.send <- msg:
	default:
		log.Printf("Send buffer full, dropping %s for client %s", event, c.id)
	}
}

func (c *Client) readPump() {
	defer func() {
		// Membership, host failover and identity teardown happen before
		// the handle is discarded.
		c.coord.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if !c.limiter.Allow() {
			continue
		}

		var env protocol.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Printf("Invalid message from client %s: %v", c.id, err)
			continue
		}

		c.handleEvent(env)
	}
}

func (c *Client) handleEvent(env protocol.Envelope) {
	switch env.Event {
	case protocol.EventJoinRoom:
		var p protocol.JoinRoom
		if decode(env.Data, &p) {
			c.coord.Join(c, p.RoomID, p.Username)
		}

	case protocol.EventKickUser:
		var p protocol.KickUser
		if decode(env.Data, &p) {
			c.coord.Kick(p.RoomID, c.id, p.TargetSocketID)
		}

	case protocol.EventCodeChange:
		var p protocol.CodeChange
		if decode(env.Data, &p) {
			c.coord.CodeChange(c, p)
		}

	case protocol.EventLineChange:
		var p protocol.LineChange
		if decode(env.Data, &p) {
			c.coord.LineChange(c, p)
		}

	case protocol.EventRunCode:
		var p protocol.RunCode
		if decode(env.Data, &p) {
			// Execution may take seconds; never block the read loop
			go c.runCode(p)
		}

	case protocol.EventFileCreated:
		var p protocol.FileCreated
		if decode(env.Data, &p) {
			if _, err := c.coord.CreateFile(p.RoomID, p.FileName, p.Type); err != nil {
				log.Printf("Rejected file create %s in room %s: %v", p.FileName, p.RoomID, err)
			}
		}

	case protocol.EventFileDeleted:
		var p protocol.FileDeleted
		if decode(env.Data, &p) {
			c.coord.DeleteFile(p.RoomID, p.FileName)
		}

	case protocol.EventSendMessage:
		var p protocol.SendMessage
		if decode(env.Data, &p) {
			c.coord.SendMessage(p.RoomID, p.Message, p.Username)
		}

	case protocol.EventSendingSignal:
		var p protocol.SendingSignal
		if decode(env.Data, &p) {
			c.coord.RelayOffer(p)
		}

	case protocol.EventReturningSignal:
		var p protocol.ReturningSignal
		if decode(env.Data, &p) {
			c.coord.RelayAnswer(c.id, p)
		}

	default:
		log.Printf("Unknown event from client %s: %s", c.id, env.Event)
	}
}

func decode(raw json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		log.Printf("Invalid event payload: %v", err)
		return false
	}
	return true
}

// runCode executes a snippet and reports the result to the requester only.
// Failures of any kind are never broadcast.
func (c *Client) runCode(p protocol.RunCode) {
	if p.Code == "" {
		c.Send(protocol.EventCodeOutput, protocol.CodeOutput{
			Output:  "Error: No code to run.",
			IsError: true,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()

	result, err := c.runner.Execute(ctx, p.Language, p.Code)
	if err == exec.ErrUnsupportedLanguage {
		c.Send(protocol.EventCodeOutput, protocol.CodeOutput{
			Output:  "Language not supported.",
			IsError: true,
		})
		return
	}
	if err != nil {
		log.Printf("Execution error for client %s: %v", c.id, err)
		c.Send(protocol.EventCodeOutput, protocol.CodeOutput{
			Output:  "Failed to execute code via external API.",
			IsError: true,
		})
		return
	}

	c.Send(protocol.EventCodeOutput, protocol.CodeOutput{
		Output:  result.Output,
		IsError: result.Stderr != "",
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
