package notifier

import "time"

// NotificationPayload is the message body consumed by the notification service.
type NotificationPayload struct {
	UserID   string            `json:"user_id"`
	Template string            `json:"template"`
	Channel  string            `json:"channel"`
	Metadata map[string]string `json:"metadata,omitempty"`
	SentAt   time.Time         `json:"sent_at"`
}

func newPayload(userID, template string, metadata map[string]string, now time.Time) NotificationPayload {
	channel := metadata["channel"]
	if channel == "" {
		channel = "in_app"
	}
	return NotificationPayload{
		UserID:   userID,
		Template: template,
		Channel:  channel,
		Metadata: metadata,
		SentAt:   now,
	}
}

// routingKey lets consumers bind per channel, e.g. "notification.email.*".
func (p NotificationPayload) routingKey() string {
	return "notification." + p.Channel + "." + p.Template
}
