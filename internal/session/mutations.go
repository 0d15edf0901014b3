package session

import (
	"time"

	"github.com/collabix/server/internal/protocol"
)

// CreateFile derives the language tag, appends the node to the room's cache,
// broadcasts file-created to the whole room (the creator needs the canonical
// node back) and enqueues the durable append. A duplicate name is rejected
// before any of that happens. The enqueue happens inside the critical section
// (submission never blocks) so the durable log sees mutations of one name in
// the order the room accepted them.
func (c *Coordinator) CreateFile(roomID, fileName, nodeType string) (protocol.FileNode, error) {
	node := protocol.NewFileNode(fileName, nodeType)

	rs := c.getRoom(roomID)
	if rs == nil {
		c.writer.AppendFile(roomID, node)
		return node, nil
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, exists := rs.files[fileName]; exists {
		return protocol.FileNode{}, ErrFileExists
	}
	rs.files[fileName] = node
	c.toRoomLocked(rs, protocol.EventFileCreated, node)
	c.writer.AppendFile(roomID, node)
	return node, nil
}

// DeleteFile removes the node by name from the cache and the durable room.
// Deleting a nonexistent name is a no-op, not an error.
func (c *Coordinator) DeleteFile(roomID, fileName string) {
	rs := c.getRoom(roomID)
	if rs == nil {
		c.writer.RemoveFile(roomID, fileName)
		return
	}

	rs.mu.Lock()
	delete(rs.files, fileName)
	c.toRoomLocked(rs, protocol.EventFileDeleted, protocol.FileDeleted{FileName: fileName})
	c.writer.RemoveFile(roomID, fileName)
	rs.mu.Unlock()
}

// CodeChange reflects a content edit to every other member immediately and
// enqueues the durable write. The two are deliberately decoupled: the
// broadcast is never retracted when persistence fails, and the durable copy
// converges on the next successful write.
func (c *Coordinator) CodeChange(from Conn, p protocol.CodeChange) {
	rs := c.getRoom(p.RoomID)
	if rs == nil {
		return
	}

	rs.mu.Lock()
	if f, ok := rs.files[p.FileName]; ok {
		f.Content = p.Code
		rs.files[p.FileName] = f
	}
	c.toRoomExceptLocked(rs, from.ID(), protocol.EventCodeChange, protocol.CodeChange{
		FileName: p.FileName,
		Code:     p.Code,
		OriginID: p.OriginID,
	})
	c.writer.SetFileContent(p.RoomID, p.FileName, p.Code)
	rs.mu.Unlock()
}

// LineChange fans out a cursor/line marker to everyone but the author.
func (c *Coordinator) LineChange(from Conn, p protocol.LineChange) {
	rs := c.getRoom(p.RoomID)
	if rs == nil {
		return
	}

	rs.mu.Lock()
	c.toRoomExceptLocked(rs, from.ID(), protocol.EventLineChange, protocol.LineChange{
		SocketID:   from.ID(),
		LineNumber: p.LineNumber,
		FileName:   p.FileName,
		Username:   p.Username,
	})
	rs.mu.Unlock()
}

// SendMessage broadcasts a chat message, stamped server-side, to the whole
// room including the sender.
func (c *Coordinator) SendMessage(roomID, message, username string) {
	rs := c.getRoom(roomID)
	if rs == nil {
		return
	}

	rs.mu.Lock()
	c.toRoomLocked(rs, protocol.EventReceiveMessage, protocol.ReceiveMessage{
		Message:  message,
		Username: username,
		Time:     time.Now().Format("3:04 PM"),
	})
	rs.mu.Unlock()
}
