package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/saransh1220/notification-service/internal/modules/notification/application"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
	"github.com/saransh1220/notification-service/internal/modules/notification/infrastructure/websocket"
	"github.com/saransh1220/notification-service/internal/shared/utils"
)

// NotificationService is the part of application.NotificationService the handler drives.
type NotificationService interface {
	Create(ctx context.Context, in application.CreateInput) (*domain.Notification, error)
	Update(ctx context.Context, id int64, in application.UpdateInput) (*domain.Notification, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*domain.Notification, bool, error)
	GetRecent(ctx context.Context) ([]*domain.Notification, error)
}

type NotificationHandler struct {
	service NotificationService
	hub     *websocket.Hub
}

func NewNotificationHandler(service NotificationService, hub *websocket.Hub) *NotificationHandler {
	return &NotificationHandler{service: service, hub: hub}
}

// Create handles POST /notifications
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	n, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, "Create", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, ToNotificationResponse(n))
}

// Get handles GET /notifications/{id}
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	n, hit, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Get", err)
		return
	}
	if n == nil {
		utils.WriteError(w, http.StatusNotFound, domain.ErrNotificationNotFound.Error(), nil)
		return
	}

	if hit {
		log.Printf("[CACHE HIT] Notification ID: %d", id)
		w.Header().Set("X-Cache", "HIT")
	} else {
		log.Printf("[CACHE MISS] Notification ID: %d", id)
		w.Header().Set("X-Cache", "MISS")
	}
	utils.WriteJSON(w, http.StatusOK, ToNotificationResponse(n))
}

// Recent handles GET /notifications/recent
func (h *NotificationHandler) Recent(w http.ResponseWriter, r *http.Request) {
	ns, err := h.service.GetRecent(r.Context())
	if err != nil {
		h.writeServiceError(w, "Recent", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ToNotificationResponses(ns))
}

// Update handles PUT /notifications/{id}
func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	n, err := h.service.Update(r.Context(), id, application.UpdateInput{Subject: req.Subject, Content: req.Content})
	if err != nil {
		h.writeServiceError(w, "Update", err)
		return
	}
	if n == nil {
		utils.WriteError(w, http.StatusNotFound, domain.ErrNotificationNotFound.Error(), nil)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ToNotificationResponse(n))
}

// Delete handles DELETE /notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Delete", err)
		return
	}
	if !deleted {
		utils.WriteError(w, http.StatusNotFound, domain.ErrNotificationNotFound.Error(), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Subscribe upgrades to a websocket that streams committed events.
// ?recipient= narrows the stream to one recipient.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "live updates disabled", http.StatusServiceUnavailable)
		return
	}
	websocket.ServeWs(h.hub, w, r, r.URL.Query().Get("recipient"))
}

func (h *NotificationHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	if domain.IsValidationError(err) {
		utils.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	log.Printf("%s: service error: %v", op, err)
	utils.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "invalid notification id", nil)
		return 0, false
	}
	return id, true
}
