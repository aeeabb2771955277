// internal/handler/message_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/glowdesk/messaging-backend/internal/service"
)

// MessageHandler serves the dashboard's read endpoints.
type MessageHandler struct {
	Service *service.MessageService
}

// ListMessages returns a paginated list of scheduled messages
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	messages, pagination, err := h.Service.ListMessages(page, pageSize, status)
	if err != nil {
		http.Error(w, "failed to fetch messages: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       messages,
		"pagination": pagination,
	})
}

// GetRuleStats returns the status breakdown and delivery counters for a rule
func (h *MessageHandler) GetRuleStats(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid rule id", http.StatusBadRequest)
		return
	}

	stats, err := h.Service.GetRuleStats(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to fetch rule stats: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if stats == nil {
		http.Error(w, "rule not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// Health is a liveness endpoint
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
