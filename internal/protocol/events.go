package protocol

import "encoding/json"

// Inbound event names (client → server)
const (
	EventJoinRoom        = "join-room"
	EventKickUser        = "kick-user"
	EventCodeChange      = "code-change"
	EventLineChange      = "line-change"
	EventRunCode         = "run-code"
	EventFileCreated     = "file-created"
	EventFileDeleted     = "file-deleted"
	EventSendMessage     = "send-message"
	EventSendingSignal   = "sending-signal"
	EventReturningSignal = "returning-signal"
)

// Outbound event names (server → client)
const (
	EventJoined            = "joined"
	EventUserJoined        = "user-joined"
	EventUpdateHost        = "update-host"
	EventKicked            = "kicked"
	EventUserDisconnected  = "user-disconnected"
	EventCodeOutput        = "code-output"
	EventReceiveMessage    = "receive-message"
	EventUserJoinedCall    = "user-joined-call"
	EventReceivingReturned = "receiving-returned-signal"
)

// Envelope wraps every message on the wire
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type KickUser struct {
	RoomID         string `json:"roomId"`
	TargetSocketID string `json:"targetSocketId"`
}

type CodeChange struct {
	RoomID   string `json:"roomId,omitempty"`
	FileName string `json:"fileName"`
	Code     string `json:"code"`
	OriginID string `json:"originId"`
}

type LineChange struct {
	RoomID     string `json:"roomId,omitempty"`
	SocketID   string `json:"socketId,omitempty"`
	LineNumber int    `json:"lineNumber"`
	FileName   string `json:"fileName"`
	Username   string `json:"username"`
}

type RunCode struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type FileCreated struct {
	RoomID   string `json:"roomId"`
	FileName string `json:"fileName"`
	Type     string `json:"type"`
}

type FileDeleted struct {
	RoomID   string `json:"roomId,omitempty"`
	FileName string `json:"fileName"`
}

type SendMessage struct {
	RoomID   string `json:"roomId"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

type SendingSignal struct {
	UserToSignal string          `json:"userToSignal"`
	Signal       json.RawMessage `json:"signal"`
	CallerID     string          `json:"callerID"`
	Username     string          `json:"username"`
}

type ReturningSignal struct {
	CallerID string          `json:"callerID"`
	Signal   json.RawMessage `json:"signal"`
}

// Outbound payloads

type ClientInfo struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

type Joined struct {
	Clients  []ClientInfo        `json:"clients"`
	Username string              `json:"username"`
	RoomID   string              `json:"roomId"`
	Files    map[string]FileNode `json:"files"`
	HostID   string              `json:"hostId"`
}

type UserJoined struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

type UpdateHost struct {
	HostID string `json:"hostId"`
}

type UserDisconnected struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

type CodeOutput struct {
	Output  string `json:"output"`
	IsError bool   `json:"isError"`
}

type ReceiveMessage struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Time     string `json:"time"`
}

type UserJoinedCall struct {
	Signal   json.RawMessage `json:"signal"`
	CallerID string          `json:"callerID"`
	Username string          `json:"username"`
}

type ReceivingReturnedSignal struct {
	Signal json.RawMessage `json:"signal"`
	ID     string          `json:"id"`
}
