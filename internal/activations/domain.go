package activations

import "time"

// Activation is the one-time token row. At most one exists per user, between
// registration and successful redemption or expiry.
type Activation struct {
	UserID    int64
	Token     string
	CreatedAt time.Time
}
