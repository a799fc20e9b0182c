package sheet

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// maxBody bounds a push request body.
const maxBody = 32 << 20

type pushRequest struct {
	Action     string   `json:"action"`
	Data       []Record `json:"data"`
	Categories []Record `json:"categories"`
}

type pullResponse struct {
	Data       []Record `json:"data"`
	Categories []Record `json:"categories"`
}

// Handler serves the backup protocol on top of a Workbook.
//
//	GET  ?action=pull   -> {"data": [...], "categories": [...]}
//	POST {"action":"push", ...} -> "Success" or "Error: <message>"
type Handler struct {
	wb     *Workbook
	logger *log.Logger
}

// NewHandler returns a handler backed by wb.
func NewHandler(wb *Workbook, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{wb: wb, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action != "pull" {
		http.Error(w, fmt.Sprintf("unknown action %q", action), http.StatusBadRequest)
		return
	}

	resp := pullResponse{
		Data:       h.wb.Get(LinksSheet),
		Categories: h.wb.Get(CategoriesSheet),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Printf("Failed to write pull response: %v", err)
	}
}

// handlePost answers 200 with a text body in every case; callers look at the
// body, not the status.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if err := h.push(r); err != nil {
		h.logger.Printf("Push rejected: %v", err)
		_, _ = io.WriteString(w, "Error: "+err.Error())
		return
	}
	_, _ = io.WriteString(w, "Success")
}

func (h *Handler) push(r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	var req pushRequest
	if err := dec.Decode(&req); err != nil {
		return fmt.Errorf("parse body: %w", err)
	}
	if req.Action != "push" {
		return fmt.Errorf("unknown action %q", req.Action)
	}

	if err := h.wb.Replace(map[string][]Record{
		LinksSheet:      req.Data,
		CategoriesSheet: req.Categories,
	}); err != nil {
		return err
	}
	h.logger.Printf("Stored %d links, %d categories", len(req.Data), len(req.Categories))
	return nil
}
