package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/collabix/server/internal/protocol"
	"github.com/collabix/server/internal/session"
	"github.com/collabix/server/internal/store"
)

type API struct {
	coord   *session.Coordinator
	backend *store.SQLite
}

func New(coord *session.Coordinator, backend *store.SQLite) *API {
	return &API{
		coord:   coord,
		backend: backend,
	}
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_rooms":   a.coord.RoomCount(),
		"active_clients": a.coord.ClientCount(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if a.backend != nil {
		dbStats, err := a.backend.Stats(r.Context())
		if err != nil {
			log.Printf("Failed to read store stats: %v", err)
		} else {
			stats["total_rooms"] = dbStats["room_count"]
			stats["total_files"] = dbStats["file_count"]
		}
	}

	jsonResponse(w, http.StatusOK, stats)
}

// Auth handlers

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse matches what the frontend checks: a status flag plus
// either the user record or a message.
type AuthResponse struct {
	Status bool        `json:"status"`
	User   *store.User `json:"user,omitempty"`
	Msg    string      `json:"msg,omitempty"`
}

func (a *API) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonResponse(w, http.StatusOK, AuthResponse{Status: false, Msg: "Username and password are required"})
		return
	}

	user, err := a.backend.CreateUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			jsonResponse(w, http.StatusOK, AuthResponse{Status: false, Msg: "Username already taken"})
			return
		}
		log.Printf("Failed to create user %q: %v", req.Username, err)
		errorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	jsonResponse(w, http.StatusOK, AuthResponse{Status: true, User: user})
}

func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := a.backend.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			jsonResponse(w, http.StatusOK, AuthResponse{Status: false, Msg: "Incorrect username or password"})
			return
		}
		log.Printf("Failed to authenticate user %q: %v", req.Username, err)
		errorResponse(w, http.StatusInternalServerError, "Failed to authenticate")
		return
	}

	jsonResponse(w, http.StatusOK, AuthResponse{Status: true, User: user})
}

func (a *API) AuthRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/auth")

	switch strings.TrimSuffix(path, "/") {
	case "/register":
		a.RegisterHandler(w, r)
	case "/login":
		a.LoginHandler(w, r)
	default:
		errorResponse(w, http.StatusNotFound, "Not found")
	}
}

// DownloadHandler serves a room's files as a zip archive. Folders are
// structural only and carry no content, so they are skipped.
func (a *API) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// Extract room ID from path: /api/download/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/download/")
	roomID := strings.TrimSuffix(path, "/")

	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	room, err := a.backend.GetRoom(r.Context(), roomID)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get room")
		return
	}

	if room == nil {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	// Prefer the live session's view when the room is active; fall back
	// to the durable copy for rooms with no one connected.
	var files []protocol.FileNode
	if live := a.coord.CurrentFiles(roomID); live != nil {
		names := make([]string, 0, len(live))
		for name := range live {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			files = append(files, live[name])
		}
	} else {
		files, err = a.backend.GetFiles(r.Context(), roomID)
		if err != nil {
			errorResponse(w, http.StatusInternalServerError, "Failed to get files")
			return
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		if f.Type != protocol.NodeFile {
			continue
		}
		entry, err := zw.Create(f.Name)
		if err == nil {
			_, err = entry.Write([]byte(f.Content))
		}
		if err != nil {
			errorResponse(w, http.StatusInternalServerError, "Failed to build archive")
			return
		}
	}
	if err := zw.Close(); err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=Collabix-%s.zip", roomID))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing zip response: %v", err)
	}
}
