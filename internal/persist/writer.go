package persist

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/collabix/server/internal/protocol"
)

// FileStore is the slice of the durable store the writer reconciles against.
type FileStore interface {
	AppendFile(ctx context.Context, roomID string, node protocol.FileNode) error
	RemoveFile(ctx context.Context, roomID, name string) error
	SetFileContent(ctx context.Context, roomID, name, content string) (int64, error)
}

type Config struct {
	QueueSize    int
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		QueueSize:    1024,
		WriteTimeout: 5 * time.Second,
	}
}

type opKind int

const (
	opAppend opKind = iota
	opRemove
	opSetContent
)

type op struct {
	kind    opKind
	roomID  string
	name    string
	content string
	node    protocol.FileNode
}

// Writer reconciles in-memory file mutations with the durable store in the
// background. Writes are fire-once: failures are logged, never retried, and
// never surfaced to collaborators.
type Writer struct {
	store  FileStore
	config Config
	ops    chan op
	stop   chan struct{}
	wg     sync.WaitGroup
}

func New(s FileStore, config Config) *Writer {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Writer{
		store:  s,
		config: config,
		ops:    make(chan op, config.QueueSize),
		stop:   make(chan struct{}),
	}
}

func (w *Writer) Start() {
	w.wg.Add(1)
	go w.run()
	log.Printf("Persistence writer started (queue: %d, timeout: %v)",
		w.config.QueueSize, w.config.WriteTimeout)
}

// Stop drains queued writes, then shuts the worker down.
func (w *Writer) Stop() {
	close(w.stop)
	w.wg.Wait()
	log.Println("Persistence writer stopped")
}

func (w *Writer) AppendFile(roomID string, node protocol.FileNode) {
	w.submit(op{kind: opAppend, roomID: roomID, node: node})
}

func (w *Writer) RemoveFile(roomID, name string) {
	w.submit(op{kind: opRemove, roomID: roomID, name: name})
}

func (w *Writer) SetFileContent(roomID, name, content string) {
	w.submit(op{kind: opSetContent, roomID: roomID, name: name, content: content})
}

// submit never blocks the caller; a full queue drops the write.
func (w *Writer) submit(o op) {
	select {
	case w.ops <- o:
	default:
		log.Printf("Persistence queue full, dropping write for room %s", o.roomID)
	}
}

func (w *Writer) run() {
	defer w.wg.Done()

	for {
		select {
		case o := <-w.ops:
			w.apply(o)
		case <-w.stop:
			// Drain whatever was already accepted
			for {
				select {
				case o := <-w.ops:
					w.apply(o)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) apply(o op) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.WriteTimeout)
	defer cancel()

	switch o.kind {
	case opAppend:
		if err := w.store.AppendFile(ctx, o.roomID, o.node); err != nil {
			log.Printf("Failed to persist file %s in room %s: %v", o.node.Name, o.roomID, err)
		}
	case opRemove:
		if err := w.store.RemoveFile(ctx, o.roomID, o.name); err != nil {
			log.Printf("Failed to remove file %s in room %s: %v", o.name, o.roomID, err)
		}
	case opSetContent:
		n, err := w.store.SetFileContent(ctx, o.roomID, o.name, o.content)
		if err != nil {
			log.Printf("Failed to save code for room %s, file %s: %v", o.roomID, o.name, err)
			return
		}
		if n == 0 {
			log.Printf("Code saved but durable copy not updated for room %s, file %s", o.roomID, o.name)
		}
	}
}
