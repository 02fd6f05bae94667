package models

import "time"

// NotificationType classifies admin-authored notifications.
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "INFO"
	NotificationTypeWarning NotificationType = "WARNING"
	NotificationTypeUrgent  NotificationType = "URGENT"
)

// Notification is an admin-authored message shown on dashboards and
// optionally broadcast by email to a filtered user set.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Type      NotificationType `db:"type" json:"type"`
	Active    bool             `db:"active" json:"active"`
	CreatedBy string           `db:"created_by" json:"created_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// NotificationFilter allows listing notifications.
type NotificationFilter struct {
	Type     NotificationType
	Active   *bool
	Page     int
	PageSize int
}
