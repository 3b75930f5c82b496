package services

import (
	"database/sql"
	"errors"
	"time"
)

// Publisher broadcasts an event to every connected client.
type Publisher interface {
	Publish(event string, payload any)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(string, any) {}

// Push event names understood by the page scripts.
const (
	EventCartCount         = "UpdateCartCount"
	EventOrderCount        = "UpdateOrderCount"
	EventAnnouncement      = "ReceiveAnnouncement"
	EventTimedAnnouncement = "ReceiveTimedAnnouncement"
	EventOrderNotification = "ReceiveOrderNotification"
)

// CountPayload goes to everyone; pages ignore counts that carry another user's id.
type CountPayload struct {
	UserID string `json:"userId"`
	Count  int    `json:"count"`
}

type AnnouncementPayload struct {
	Title     string `json:"title,omitempty"`
	Message   string `json:"message"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

type OrderNotificationPayload struct {
	Message string `json:"message"`
	OrderNo int64  `json:"orderNo"`
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
