// Package domain holds the one-time delivery code records.
package domain

import "time"

// Delivery channels.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Scenes a code can be issued for.
const (
	SceneForgot = "forgot"
	SceneChange = "change"
)

// Delivery statuses. A code is inserted pending and moves to sent or failed
// after the gateway call; consumption is tracked separately.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Code is one issued delivery code. Destination is a phone number or mail
// address depending on the channel.
type Code struct {
	ID          string
	Username    string
	Destination string
	Code        string
	Scene       string
	Status      string
	// Attempts counts delivery tries, the initial send included.
	Attempts int
	// LastError holds the provider message from the most recent failed
	// delivery, cleared on success.
	LastError  string
	ConsumedAt *time.Time
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Consumed reports whether the code was already used.
func (c *Code) Consumed() bool { return c.ConsumedAt != nil }

// Expired reports whether the code's validity window has passed.
func (c *Code) Expired(now time.Time) bool { return !now.Before(c.ExpiresAt) }
