package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/shelver/internal/config"
)

// HandleShare issues a read-only share token for a collection
func (h *Handler) HandleShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		CollectionID int64  `json:"collectionId"`
		TTL          string `json:"ttl"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.CollectionID <= 0 {
		h.writeError(w, "collectionId is required", http.StatusBadRequest)
		return
	}

	ttl := h.shareTTL
	if request.TTL != "" {
		parsed, err := config.ParseTTL(request.TTL)
		if err != nil {
			h.writeError(w, "Invalid ttl: "+err.Error(), http.StatusBadRequest)
			return
		}
		ttl = parsed
	}

	tok, err := h.service.Share(r.Context(), request.CollectionID, ttl)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, map[string]any{
		"token":      tok.Token,
		"expires_at": tok.ExpiresAt,
		"url":        "/api/share/" + tok.Token,
	})
}

// HandleShareDetail returns the collection view behind a token
func (h *Handler) HandleShareDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/share/"), "/")
	if token == "" {
		h.writeError(w, "Token is required", http.StatusBadRequest)
		return
	}

	view, err := h.service.OpenShare(r.Context(), token)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, view)
}
