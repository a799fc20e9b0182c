package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"github.com/devhub-tools/devhub/internal/autosync"
	"github.com/devhub-tools/devhub/internal/types"
)

// Handler turns hub events into dashboard messages. It implements
// hub.Listener.
type Handler struct {
	server *Server
	logger *log.Logger
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{server: server, logger: logger}
}

// LinksChanged broadcasts the link set
func (h *Handler) LinksChanged(links []types.LinkItem) {
	h.send(MessageTypeLinks, links)
}

// CategoriesChanged broadcasts the category set
func (h *Handler) CategoriesChanged(categories []types.Category) {
	h.send(MessageTypeCategories, categories)
}

// TodosChanged broadcasts the todo list
func (h *Handler) TodosChanged(todos []types.TodoItem) {
	h.send(MessageTypeTodos, todos)
}

// SyncStatusChanged broadcasts the sync status
func (h *Handler) SyncStatusChanged(status autosync.Status, cfg types.SyncConfig) {
	h.send(MessageTypeSyncStatus, SyncStatusData{Status: status, Config: cfg})
}

// Notice broadcasts a user notice
func (h *Handler) Notice(n autosync.Notice) {
	h.send(MessageTypeNotice, n)
}

func (h *Handler) send(t MessageType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", t, err)
		return
	}
	h.server.Broadcast(Message{
		Type:      t,
		Timestamp: time.Now(),
		Data:      data,
	})
}
