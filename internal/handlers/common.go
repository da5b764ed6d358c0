package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/shelver/internal/inventory"
	"github.com/lehigh-university-libraries/shelver/internal/storage"
)

// maxBodySize bounds JSON bodies and uploaded import files
const maxBodySize = 10 * 1024 * 1024

type Handler struct {
	service  *inventory.Service
	store    *storage.Store
	shareTTL time.Duration
}

// New creates the API handler. shareTTL is the lifetime given to share tokens
// when a request does not ask for one.
func New(service *inventory.Service, shareTTL time.Duration) *Handler {
	return &Handler{
		service:  service,
		store:    service.Store(),
		shareTTL: shareTTL,
	}
}

// Routes registers every API endpoint on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/collections", h.HandleCollections)
	mux.HandleFunc("/api/collections/", h.HandleCollectionDetail)
	mux.HandleFunc("/api/items", h.HandleItems)
	mux.HandleFunc("/api/items/", h.HandleItemDetail)
	mux.HandleFunc("/api/items/upload", h.HandleUpload)
	mux.HandleFunc("/api/items/scan", h.HandleScan)
	mux.HandleFunc("/api/items/export", h.HandleExport)
	mux.HandleFunc("/api/mappings", h.HandleMappings)
	mux.HandleFunc("/api/mappings/", h.HandleMappingDetail)
	mux.HandleFunc("/api/mappings/resolve", h.HandleResolve)
	mux.HandleFunc("/api/share", h.HandleShare)
	mux.HandleFunc("/api/share/", h.HandleShareDetail)
	mux.HandleFunc("/healthcheck", h.HandleHealthcheck)
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.writeErrorBody(w, code, map[string]any{"error": message})
}

func (h *Handler) writeErrorBody(w http.ResponseWriter, code int, body map[string]any) {
	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", "status", code, "error", body["error"])
	} else {
		slog.Debug("Request rejected", "status", code, "error", body["error"])
	}
	h.writeJSONStatus(w, code, body)
}

// writeEngineError maps engine and store errors onto status codes
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var (
		ve *inventory.ValidationError
		ap *inventory.AlreadyPlacedError
		lc *inventory.LocationConflictError
	)
	switch {
	case errors.As(err, &ve):
		h.writeErrorBody(w, http.StatusBadRequest, map[string]any{
			"error": err.Error(),
			"field": ve.Field,
		})
	case errors.Is(err, inventory.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		h.writeError(w, notFoundMessage(err), http.StatusNotFound)
	case errors.As(err, &ap):
		h.writeErrorBody(w, http.StatusConflict, map[string]any{
			"error":     err.Error(),
			"kind":      "already_placed",
			"serial":    ap.Serial,
			"placement": ap.Placement,
		})
	case errors.As(err, &lc):
		h.writeErrorBody(w, http.StatusConflict, map[string]any{
			"error":    err.Error(),
			"kind":     "location_conflict",
			"location": lc.Location,
			"serial":   lc.Serial,
		})
	case errors.Is(err, inventory.ErrNotResolved):
		h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, inventory.ErrShareExpired):
		h.writeError(w, err.Error(), http.StatusGone)
	default:
		slog.Error("Unhandled engine error", "err", err)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func notFoundMessage(err error) string {
	var nf *inventory.NotFoundError
	if errors.As(err, &nf) {
		return err.Error()
	}
	return "Not found"
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// pathID extracts the numeric id following prefix, plus any remaining path segment
func pathID(path, prefix string) (int64, string, bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	idPart, tail, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, tail, true
}

// collectionIDParam reads the collectionId query parameter
func (h *Handler) collectionIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("collectionId")
	if raw == "" {
		h.writeError(w, "collectionId is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, "Invalid collectionId", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
