package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/shelver/internal/mapping"
	"github.com/lehigh-university-libraries/shelver/internal/models"
)

type mappingRequest struct {
	CollectionID int64  `json:"collectionId"`
	RecordType   string `json:"record_type"`
	FieldPath    string `json:"field_path"`
	Description  string `json:"description"`
}

func (req *mappingRequest) validate() string {
	req.RecordType = strings.TrimSpace(req.RecordType)
	req.FieldPath = strings.TrimSpace(req.FieldPath)
	req.Description = strings.TrimSpace(req.Description)
	switch {
	case req.RecordType == "":
		return "record_type is required"
	case req.FieldPath == "":
		return "field_path is required"
	}
	return ""
}

func (h *Handler) HandleMappings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		collectionID, ok := h.collectionIDParam(w, r)
		if !ok {
			return
		}
		rules, err := h.store.ListMappingRules(r.Context(), collectionID)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, rules)
	case "POST":
		var req mappingRequest
		if !h.decodeJSON(w, r, &req) {
			return
		}
		if req.CollectionID <= 0 {
			h.writeError(w, "collectionId is required", http.StatusBadRequest)
			return
		}
		if msg := req.validate(); msg != "" {
			h.writeError(w, msg, http.StatusBadRequest)
			return
		}
		if _, err := h.service.Collection(r.Context(), req.CollectionID); err != nil {
			h.writeEngineError(w, err)
			return
		}
		rule := &models.MappingRule{
			CollectionID: req.CollectionID,
			RecordType:   req.RecordType,
			FieldPath:    req.FieldPath,
			Description:  req.Description,
		}
		if err := h.store.CreateMappingRule(r.Context(), rule); err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSONStatus(w, http.StatusCreated, rule)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleMappingDetail(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r.URL.Path, "/api/mappings/")
	if !ok || tail != "" {
		h.writeError(w, "Invalid mapping id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case "GET":
		rule, err := h.store.GetMappingRule(r.Context(), id)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, rule)
	case "PUT":
		var req mappingRequest
		if !h.decodeJSON(w, r, &req) {
			return
		}
		if msg := req.validate(); msg != "" {
			h.writeError(w, msg, http.StatusBadRequest)
			return
		}
		rule, err := h.store.GetMappingRule(r.Context(), id)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		rule.RecordType, rule.FieldPath, rule.Description = req.RecordType, req.FieldPath, req.Description
		if err := h.store.UpdateMappingRule(r.Context(), rule); err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, rule)
	case "DELETE":
		if err := h.store.DeleteMappingRule(r.Context(), id); err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, map[string]any{"message": "Mapping deleted"})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleResolve previews which identifier a tag message resolves to
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		CollectionID int64               `json:"collectionId"`
		SerialNumber string              `json:"serial_number"`
		Records      []mapping.TagRecord `json:"records"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.CollectionID <= 0 {
		h.writeError(w, "collectionId is required", http.StatusBadRequest)
		return
	}

	msg := mapping.Message{SerialNumber: request.SerialNumber, Records: request.Records}
	res, ok, err := h.service.ResolveIdentifier(r.Context(), request.CollectionID, msg)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if !ok {
		h.writeJSON(w, map[string]any{"resolved": false})
		return
	}
	h.writeJSON(w, map[string]any{
		"resolved":     true,
		"identifier":   res.Identifier,
		"fallback":     res.Fallback,
		"rule_id":      res.Rule.ID,
		"record_type":  res.Rule.RecordType,
		"record_index": res.RecordIndex,
	})
}
