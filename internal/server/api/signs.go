// Package api provides HTTP API handlers for the SignBridge prediction service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/store"
)

// SignHandler handles HTTP requests for sign template resources.
type SignHandler struct {
	store    *store.Store
	onChange func()
}

// NewSignHandler creates a new SignHandler with the given store. onChange,
// if non-nil, is called after every successful create or delete.
func NewSignHandler(s *store.Store, onChange func()) *SignHandler {
	return &SignHandler{store: s, onChange: onChange}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/signs or /api/signs/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/signs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createSignRequest struct {
	Label     string    `json:"label"`
	Landmarks []float64 `json:"landmarks"`
}

type signResponse struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Landmarks []float64 `json:"landmarks"`
	CreatedAt string    `json:"created_at"`
}

type listSignsResponse struct {
	Signs []signResponse `json:"signs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(sg *store.Sign) signResponse {
	return signResponse{
		ID:        sg.ID,
		Label:     sg.Label,
		Landmarks: sg.Landmarks,
		CreatedAt: sg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *SignHandler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

// list handles GET /api/signs.
func (h *SignHandler) list(w http.ResponseWriter, r *http.Request) {
	signs, err := h.store.Signs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list signs")
		return
	}

	response := listSignsResponse{
		Signs: make([]signResponse, 0, len(signs)),
	}
	for _, sg := range signs {
		response.Signs = append(response.Signs, toResponse(sg))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/signs/{id}.
func (h *SignHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sg, err := h.store.Signs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(sg))
}

// create handles POST /api/signs and records a new template.
func (h *SignHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}
	if len(req.Landmarks) != detector.VectorLen {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Expected %d values, got %d", detector.VectorLen, len(req.Landmarks)))
		return
	}

	sg := &store.Sign{
		ID:        uuid.New().String(),
		Label:     label,
		Landmarks: req.Landmarks,
	}
	if err := h.store.Signs().Create(sg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create sign")
		return
	}
	h.changed()

	writeJSON(w, http.StatusCreated, toResponse(sg))
}

// delete handles DELETE /api/signs/{id}.
func (h *SignHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Signs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sign")
		return
	}
	h.changed()

	w.WriteHeader(http.StatusNoContent)
}
