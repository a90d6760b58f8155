package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the delivery channel of a notification.
type Category string

const (
	CategoryEmail Category = "EMAIL"
	CategorySMS   Category = "SMS"
)

var validCategories = map[Category]bool{
	CategoryEmail: true,
	CategorySMS:   true,
}

func (c Category) IsValid() bool {
	return validCategories[c]
}

// ParseCategory accepts the canonical upper-case names only.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

type Notification struct {
	ID        int64     `json:"id" db:"id" msgpack:"id"`
	Type      Category  `json:"type" db:"type" msgpack:"type"`
	Recipient string    `json:"recipient" db:"recipient" msgpack:"recipient"`
	Subject   string    `json:"subject" db:"subject" msgpack:"subject"`
	Content   string    `json:"content" db:"content" msgpack:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at" msgpack:"created_at"`
}

// Validate checks the fields a caller controls.
func (n *Notification) Validate() error {
	if !n.Type.IsValid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(n.Recipient) == "" {
		return ErrRecipientRequired
	}
	if strings.TrimSpace(n.Content) == "" {
		return ErrContentRequired
	}
	return nil
}

// Score orders notifications inside the recent view.
func (n *Notification) Score() float64 {
	return float64(n.CreatedAt.UnixMilli())
}

// MessageType names the state change carried by an Event.
type MessageType string

const (
	MessageTypeCreate MessageType = "CREATE"
	MessageTypeUpdate MessageType = "UPDATE"
	MessageTypeDelete MessageType = "DELETE"
)

var validMessageTypes = map[MessageType]bool{
	MessageTypeCreate: true,
	MessageTypeUpdate: true,
	MessageTypeDelete: true,
}

func (m MessageType) IsValid() bool {
	return validMessageTypes[m]
}

// Event is the downstream announcement of a committed change.
type Event struct {
	EventID          string      `json:"event_id"`
	MessageType      MessageType `json:"notification_message_type"`
	NotificationID   int64       `json:"id"`
	NotificationType Category    `json:"notification_type"`
	Recipient        string      `json:"recipient"`
	Subject          string      `json:"subject"`
	Content          string      `json:"content"`
	OccurredAt       time.Time   `json:"occurred_at"`
}

func NewEvent(n *Notification, messageType MessageType) Event {
	return Event{
		EventID:          uuid.NewString(),
		MessageType:      messageType,
		NotificationID:   n.ID,
		NotificationType: n.Type,
		Recipient:        n.Recipient,
		Subject:          n.Subject,
		Content:          n.Content,
		OccurredAt:       time.Now().UTC(),
	}
}
