package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
)

const maskedValue = "********"

// KVHandler manages runtime settings (API keys, smtp_* values) held in the key/value store
type KVHandler struct {
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger
}

// NewKVHandler creates a new KV handler
func NewKVHandler(kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *KVHandler {
	return &KVHandler{
		kvStorage: kvStorage,
		logger:    logger,
	}
}

// ListKVHandler handles GET /api/kv - lists keys with masked values
func (h *KVHandler) ListKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	all, err := h.kvStorage.GetAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list key/value pairs")
		WriteError(w, http.StatusInternalServerError, "Failed to list key/value pairs")
		return
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, map[string]string{
			"key":   k,
			"value": maskValue(all[k]),
		})
	}

	WriteJSON(w, http.StatusOK, items)
}

// UpdateKVHandler handles PUT /api/kv/{key} - creates or replaces a value
func (h *KVHandler) UpdateKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	key := PathParam(r, "/api/kv/")
	if key == "" {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return
	}

	var req struct {
		Value       string `json:"value"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Value == "" {
		WriteError(w, http.StatusBadRequest, "Value is required")
		return
	}

	if err := h.kvStorage.Set(r.Context(), key, req.Value, req.Description); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to set key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to save key/value pair")
		return
	}

	h.logger.Debug().Str("key", key).Msg("Updated key/value pair")
	WriteSuccess(w, "Key/value pair saved")
}

// DeleteKVHandler handles DELETE /api/kv/{key}
func (h *KVHandler) DeleteKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	key := PathParam(r, "/api/kv/")
	if key == "" {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return
	}

	if err := h.kvStorage.Delete(r.Context(), key); err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			WriteError(w, http.StatusNotFound, "Key not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to delete key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to delete key/value pair")
		return
	}

	WriteSuccess(w, "Key/value pair deleted")
}

// maskValue hides secrets: short values entirely, longer ones except the first and last four characters
func maskValue(value string) string {
	if len(value) < 8 {
		return maskedValue
	}
	return value[:4] + "..." + value[len(value)-4:]
}
