package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/collabix/server/internal/api"
	"github.com/collabix/server/internal/exec"
	"github.com/collabix/server/internal/persist"
	"github.com/collabix/server/internal/session"
	"github.com/collabix/server/internal/store"
	"github.com/collabix/server/internal/ws"
)

func main() {
	dbPath := os.Getenv("COLLABIX_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/collabix.db"
	}

	backend, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer backend.Close()

	writer := persist.New(backend, persist.DefaultConfig())
	writer.Start()

	coord := session.New(backend, writer)

	execURL := os.Getenv("COLLABIX_EXEC_URL")
	if execURL == "" {
		execURL = exec.DefaultBaseURL
	}
	runner := exec.NewPistonClient(execURL)

	apiHandler := api.New(coord, backend)

	// WebSocket endpoint
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(coord, runner, w, r)
	})

	http.HandleFunc("/health", apiHandler.HealthHandler)
	http.HandleFunc("/api/stats", apiHandler.StatsHandler)
	http.HandleFunc("/api/auth/", apiHandler.AuthRouter)
	http.HandleFunc("/api/download/", apiHandler.DownloadHandler)

	// Apply CORS middleware
	handler := corsMiddleware(http.DefaultServeMux)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		writer.Stop()
		backend.Close()
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Collabix server starting on :%s", port)
	log.Printf("Database: %s", dbPath)
	log.Printf("Execution API: %s", execURL)
	log.Println("Endpoints:")
	log.Println("  - WebSocket: /ws")
	log.Println("  - Health:    GET /health")
	log.Println("  - Stats:     GET /api/stats")
	log.Println("  - Register:  POST /api/auth/register")
	log.Println("  - Login:     POST /api/auth/login")
	log.Println("  - Download:  GET /api/download/{roomId}")

	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
