package store

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/collabix/server/internal/protocol"
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// SQLite implements Store on a local sqlite database
type SQLite struct {
	db *sql.DB
}

func New(dbPath string) (*SQLite, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	log.Printf("Database initialized at %s", dbPath)
	return &SQLite{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_files_room_id ON files(room_id);
	CREATE INDEX IF NOT EXISTS idx_files_room_name ON files(room_id, name);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Room operations

func (s *SQLite) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM rooms WHERE id = ?",
		roomID,
	)

	var room Room
	err := row.Scan(&room.ID, &room.Name, &room.CreatedAt, &room.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *SQLite) CreateRoom(ctx context.Context, roomID string) (*Room, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO rooms (id) VALUES (?)",
		roomID,
	)
	if err != nil {
		return nil, err
	}
	return s.GetRoom(ctx, roomID)
}

func (s *SQLite) touchRoom(ctx context.Context, roomID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE rooms SET updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		roomID,
	)
	return err
}

// File operations

func (s *SQLite) GetFiles(ctx context.Context, roomID string) ([]protocol.FileNode, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, type, language, content FROM files WHERE room_id = ? ORDER BY id ASC",
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []protocol.FileNode
	for rows.Next() {
		var f protocol.FileNode
		if err := rows.Scan(&f.Name, &f.Type, &f.Language, &f.Content); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLite) AppendFile(ctx context.Context, roomID string, node protocol.FileNode) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO files (room_id, name, type, language, content) VALUES (?, ?, ?, ?, ?)",
		roomID, node.Name, node.Type, node.Language, node.Content,
	)
	if err != nil {
		return err
	}
	return s.touchRoom(ctx, roomID)
}

func (s *SQLite) RemoveFile(ctx context.Context, roomID, name string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM files WHERE room_id = ? AND name = ?",
		roomID, name,
	)
	if err != nil {
		return err
	}
	return s.touchRoom(ctx, roomID)
}

func (s *SQLite) SetFileContent(ctx context.Context, roomID, name, content string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE files SET content = ? WHERE room_id = ? AND name = ?",
		content, roomID, name,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// User operations

func (s *SQLite) CreateUser(ctx context.Context, username, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		username, email, string(hash),
	)
	if err != nil {
		// UNIQUE constraint on username
		return nil, ErrUserExists
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.getUser(ctx, int(id))
}

func (s *SQLite) getUser(ctx context.Context, id int) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, created_at FROM users WHERE id = ?",
		id,
	)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLite) AuthenticateUser(ctx context.Context, username, password string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?",
		username,
	)

	var u User
	var hash string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &hash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// Stats

func (s *SQLite) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var roomCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rooms").Scan(&roomCount); err != nil {
		return nil, err
	}
	stats["room_count"] = roomCount

	var fileCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&fileCount); err != nil {
		return nil, err
	}
	stats["file_count"] = fileCount

	return stats, nil
}
