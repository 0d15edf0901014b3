package session

// Conn is a live bidirectional channel to one user. Send must never block:
// transport implementations push into a buffered queue and drop on overflow.
type Conn interface {
	ID() string
	Send(event string, data interface{})
}
