package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

const maxNameLength = 255

type collectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageRef    string `json:"image_ref"`
}

func (req *collectionRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.ImageRef = strings.TrimSpace(req.ImageRef)
	switch {
	case req.Name == "":
		return "name is required"
	case utf8.RuneCountInString(req.Name) > maxNameLength:
		return "name must be at most 255 characters"
	}
	return ""
}

func (h *Handler) HandleCollections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		collections, err := h.store.ListCollections(r.Context())
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, collections)
	case "POST":
		var req collectionRequest
		if !h.decodeJSON(w, r, &req) {
			return
		}
		if msg := req.validate(); msg != "" {
			h.writeError(w, msg, http.StatusBadRequest)
			return
		}
		c := &models.Collection{Name: req.Name, Description: req.Description, ImageRef: req.ImageRef}
		if err := h.store.CreateCollection(r.Context(), c); err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSONStatus(w, http.StatusCreated, c)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleCollectionDetail(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r.URL.Path, "/api/collections/")
	if !ok {
		h.writeError(w, "Invalid collection id", http.StatusBadRequest)
		return
	}

	switch tail {
	case "":
	case "layout":
		h.handleLayout(w, r, id)
		return
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case "GET":
		c, err := h.service.Collection(r.Context(), id)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, c)
	case "PUT":
		var req collectionRequest
		if !h.decodeJSON(w, r, &req) {
			return
		}
		if msg := req.validate(); msg != "" {
			h.writeError(w, msg, http.StatusBadRequest)
			return
		}
		c, err := h.service.Collection(r.Context(), id)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		c.Name, c.Description, c.ImageRef = req.Name, req.Description, req.ImageRef
		if err := h.store.UpdateCollection(r.Context(), c); err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, c)
	case "DELETE":
		if err := h.store.DeleteCollection(r.Context(), id); err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, map[string]any{"message": "Collection deleted"})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleLayout(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	view, err := h.service.View(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{
		"collection": view.Collection,
		"layout":     view.Layout,
		"stats":      view.Stats,
	})
}
