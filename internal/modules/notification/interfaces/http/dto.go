package http

import (
	"time"

	"github.com/saransh1220/notification-service/internal/modules/notification/application"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
)

type CreateNotificationRequest struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
}

func (r CreateNotificationRequest) toInput() application.CreateInput {
	return application.CreateInput{
		Type:      r.Type,
		Recipient: r.Recipient,
		Subject:   r.Subject,
		Content:   r.Content,
	}
}

type UpdateNotificationRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type NotificationResponse struct {
	ID        int64           `json:"id"`
	Type      domain.Category `json:"type"`
	Recipient string          `json:"recipient"`
	Subject   string          `json:"subject"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

func ToNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
	}
}

func ToNotificationResponses(ns []*domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, ToNotificationResponse(n))
	}
	return out
}
