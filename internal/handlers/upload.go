package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/shelver/internal/dataset"
	"github.com/lehigh-university-libraries/shelver/internal/inventory"
	"github.com/lehigh-university-libraries/shelver/internal/mapping"
	"github.com/lehigh-university-libraries/shelver/internal/models"
)

// HandleUpload imports items, either as a JSON batch or as an uploaded file
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleBatchUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		CollectionID int64                 `json:"collectionId"`
		Items        []models.ImportRecord `json:"items"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.CollectionID <= 0 {
		h.writeError(w, "collectionId is required", http.StatusBadRequest)
		return
	}
	if len(request.Items) == 0 {
		h.writeError(w, "items must not be empty", http.StatusBadRequest)
		return
	}

	h.importRecords(w, r, request.CollectionID, request.Items, "json")
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	collectionID, err := strconv.ParseInt(r.FormValue("collectionId"), 10, 64)
	if err != nil || collectionID <= 0 {
		h.writeError(w, "collectionId is required", http.StatusBadRequest)
		return
	}

	format, err := dataset.FormatFromPath(header.Filename)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	records, err := dataset.Read(io.LimitReader(file, maxBodySize), format)
	if err != nil {
		h.writeError(w, "Failed to parse file: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(records) == 0 {
		h.writeError(w, "No valid records found in file", http.StatusBadRequest)
		return
	}

	h.importRecords(w, r, collectionID, records, header.Filename)
}

func (h *Handler) importRecords(w http.ResponseWriter, r *http.Request, collectionID int64, records []models.ImportRecord, source string) {
	result, err := h.service.ImportBatch(r.Context(), collectionID, records)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	response := map[string]any{
		"inserted":  result.Inserted,
		"submitted": result.Submitted,
		"message":   result.Summary(),
		"source":    source,
	}
	h.writeJSON(w, response)
}

type scanRequest struct {
	CollectionID int64               `json:"collectionId"`
	Serial       string              `json:"serial"`
	Records      []mapping.TagRecord `json:"records"`
	Section      string              `json:"section"`
	Row          int                 `json:"row"`
	Column       *int                `json:"column"`
}

// HandleScan places an item, identified either by serial or by a tag message
// resolved with the collection's mapping rules
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request scanRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.CollectionID <= 0 {
		h.writeError(w, "collectionId is required", http.StatusBadRequest)
		return
	}

	scan := inventory.ScanRequest{
		CollectionID: request.CollectionID,
		Serial:       request.Serial,
		Section:      request.Section,
		Row:          request.Row,
		Column:       request.Column,
	}

	var (
		result *inventory.ScanResult
		err    error
	)
	if strings.TrimSpace(request.Serial) == "" && len(request.Records) > 0 {
		result, err = h.service.ScanTag(r.Context(), scan, mapping.Message{Records: request.Records})
	} else {
		result, err = h.service.Scan(r.Context(), scan)
	}
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"item":    result.Item,
		"message": result.Summary(),
	})
}
