package store

import (
	"context"
	"time"

	"github.com/collabix/server/internal/protocol"
)

// A durable collaborative workspace
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the durable document store consumed by the session coordinator
// and the persistence writer. Implementations must be safe for concurrent use.
type Store interface {
	// GetRoom returns nil (no error) when the room does not exist
	GetRoom(ctx context.Context, roomID string) (*Room, error)

	// CreateRoom creates an empty room; creating an existing room is a no-op
	CreateRoom(ctx context.Context, roomID string) (*Room, error)

	// GetFiles returns the room's file tree in append order
	GetFiles(ctx context.Context, roomID string) ([]protocol.FileNode, error)

	// AppendFile adds a node to the end of the room's file tree
	AppendFile(ctx context.Context, roomID string, node protocol.FileNode) error

	// RemoveFile deletes a node by name; removing an absent name is a no-op
	RemoveFile(ctx context.Context, roomID, name string) error

	// SetFileContent overwrites a file's content, last write wins.
	// Returns the number of rows touched; 0 means the file no longer exists.
	SetFileContent(ctx context.Context, roomID, name, content string) (int64, error)
}
