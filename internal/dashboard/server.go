// Package dashboard provides a real-time WebSocket feed of the link
// organizer.
//
// The dashboard broadcasts link, category and todo snapshots, sync status
// changes and user notices to connected WebSocket clients, and exposes HTTP
// endpoints to trigger a manual sync or a restore.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/devhub-tools/devhub/internal/autosync"
	"github.com/devhub-tools/devhub/internal/backup"
	"github.com/devhub-tools/devhub/internal/types"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeLinks carries the full link set
	MessageTypeLinks MessageType = "links"

	// MessageTypeCategories carries the full category set
	MessageTypeCategories MessageType = "categories"

	// MessageTypeTodos carries the full todo list
	MessageTypeTodos MessageType = "todos"

	// MessageTypeSyncStatus indicates the backup sync status or config changed
	MessageTypeSyncStatus MessageType = "sync_status"

	// MessageTypeNotice is a one-off message for the user
	MessageTypeNotice MessageType = "notice"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SyncStatusData contains the sync status and configuration
type SyncStatusData struct {
	Status autosync.Status  `json:"status"`
	Config types.SyncConfig `json:"config"`
}

// Actions is what the dashboard can ask of the running hub.
type Actions interface {
	Snapshot() autosync.State
	SyncNow(ctx context.Context) error
	Restore(ctx context.Context) (*backup.Data, error)
}

// Server manages WebSocket connections and broadcasts dashboard messages
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	actions  Actions

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Host to bind (default: all interfaces)
	Host string

	// Port to listen on (default: 8080)
	Port int

	// Actions backs the initial state and the /api endpoints; optional
	Actions Actions

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:   8080,
		Logger: log.Default(),
	}
}

// NewServer creates a new dashboard WebSocket server
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
		actions:   config.Actions,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/sync", s.handleSync)
	mux.HandleFunc("/api/restore", s.handleRestore)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				if err := s.write(conn, data); err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// New clients get the current state before any broadcast.
	for _, msg := range s.stateMessages() {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := s.write(conn, data); err != nil {
			_ = conn.Close(websocket.StatusInternalError, "initial state")
			return
		}
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	go s.readLoop(conn)
}

// stateMessages renders the current hub state as one message per kind.
func (s *Server) stateMessages() []Message {
	if s.actions == nil {
		return nil
	}
	st := s.actions.Snapshot()
	now := time.Now()

	var out []Message
	add := func(t MessageType, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Printf("Failed to marshal %s: %v", t, err)
			return
		}
		out = append(out, Message{Type: t, Timestamp: now, Data: data})
	}
	add(MessageTypeLinks, st.Links)
	add(MessageTypeCategories, st.Categories)
	add(MessageTypeTodos, st.Todos)
	add(MessageTypeSyncStatus, SyncStatusData{Status: st.Status, Config: st.Config})
	return out
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"clients": s.ClientCount(),
	}
	if s.actions != nil {
		resp["sync"] = s.actions.Snapshot().Status
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.actions == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no hub attached"})
		return
	}
	st := s.actions.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"links":      st.Links,
		"categories": st.Categories,
		"todos":      st.Todos,
		"sync":       SyncStatusData{Status: st.Status, Config: st.Config},
	})
}

// handleSync runs a manual sync
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}

	err := s.actions.SyncNow(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": autosync.StatusSynced})
	case errors.Is(err, autosync.ErrSyncDisabled):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

// handleRestore replaces the working set from the backup
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}

	data, err := s.actions.Restore(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]int{
			"links":      len(data.Links),
			"categories": len(data.Categories),
		})
	case errors.Is(err, autosync.ErrSyncDisabled):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

func (s *Server) requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return false
	}
	if s.actions == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no hub attached"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleRoot returns basic server information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>DevHub Dashboard</title>
</head>
<body>
    <h1>DevHub Dashboard Server</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Health check: <a href="/health">/health</a></p>
    <p>Current state: <a href="/api/state">/api/state</a></p>
    <p>POST <code>/api/sync</code> to back up now, <code>/api/restore</code> to restore.</p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
