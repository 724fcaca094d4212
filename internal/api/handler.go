package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/internal/service"
	"github.com/d00mkeeps/ibhackathon/internal/session"
	"github.com/d00mkeeps/ibhackathon/models"
)

const serviceName = "cara"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	companies *service.CompanyService
	datasets  *service.DatasetService
	sessions  *session.Orchestrator
	db        Pinger
	upgrader  *websocket.Upgrader
	log       *logrus.Entry
}

func NewHandler(companies *service.CompanyService, datasets *service.DatasetService, sessions *session.Orchestrator, db Pinger, allowedOrigins []string, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.WithField("component", "api")
	}
	return &Handler{
		companies: companies,
		datasets:  datasets,
		sessions:  sessions,
		db:        db,
		upgrader:  newUpgrader(allowedOrigins),
		log:       log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Post("/company/process-company", h.ProcessCompany)
	r.Get("/conversations", h.ListConversations)
	r.Get("/conversations/{conversationID}/messages", h.ListMessages)
	r.Get("/dataset/summary", h.DatasetSummary)
	r.Get("/ws/chat", h.Chat)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{Status: "healthy", Service: serviceName, Database: "connected"}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("database ping failed")
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handler) ProcessCompany(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: invalid request body", service.ErrInvalidInput))
		return
	}

	resp, err := h.companies.ProcessCompany(r.Context(), req)
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			h.log.WithError(err).WithField("company", req.CompanyName).Error("process company")
		}
		writeJSON(w, status, models.ProcessCompanyResponse{
			Success:     false,
			Message:     fmt.Sprintf("Failed to process company: %v", err),
			CompanyName: req.CompanyName,
			ProcessedAt: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, h.log, fmt.Errorf("%w: limit must be a non-negative integer", service.ErrInvalidInput))
			return
		}
		limit = n
	}

	convs, err := h.companies.ListConversations(r.Context(), limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ConversationsResponse{
		Success:       true,
		Conversations: convs,
		Message:       fmt.Sprintf("Retrieved %d conversations", len(convs)),
	})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.companies.Messages(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessagesResponse{Success: true, Messages: msgs})
}

func (h *Handler) DatasetSummary(w http.ResponseWriter, r *http.Request) {
	resp := h.datasets.Summary(r.Context())
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Chat upgrades to a websocket and runs one session on it.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	err = h.sessions.Serve(r.Context(), newWSConn(ws), conversationID)
	if err != nil && !errors.Is(err, context.Canceled) {
		h.log.WithError(err).WithField("conversation_id", conversationID).Debug("session ended with error")
	}
}
