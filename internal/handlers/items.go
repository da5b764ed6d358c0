package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/lehigh-university-libraries/shelver/internal/dataset"
)

func (h *Handler) HandleItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	collectionID, ok := h.collectionIDParam(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Collection(r.Context(), collectionID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	items, err := h.store.ListItems(r.Context(), collectionID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, items)
}

func (h *Handler) HandleItemDetail(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r.URL.Path, "/api/items/")
	if !ok || tail != "" {
		h.writeError(w, "Invalid item id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case "GET":
		item, err := h.store.GetItem(r.Context(), id)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, item)
	case "DELETE":
		if err := h.store.DeleteItem(r.Context(), id); err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, map[string]any{"message": "Item deleted"})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleExport streams a collection's items as CSV or Parquet
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	collectionID, ok := h.collectionIDParam(w, r)
	if !ok {
		return
	}
	format := dataset.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = dataset.FormatCSV
	}
	if !slices.Contains(dataset.ExportFormats, format) {
		h.writeError(w, "Invalid format. Must be 'csv' or 'parquet'.", http.StatusBadRequest)
		return
	}

	if _, err := h.service.Collection(r.Context(), collectionID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	items, err := h.store.ListItems(r.Context(), collectionID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := dataset.WriteItems(&buf, format, items); err != nil {
		h.writeError(w, "Failed to export items: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", dataset.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(collectionID, format)+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write export", "collection_id", collectionID, "err", err)
	}
}

func exportFilename(collectionID int64, format dataset.Format) string {
	return fmt.Sprintf("items_collection_%d.%s", collectionID, format)
}
