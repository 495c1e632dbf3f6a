package sessions

import "time"

// Login is the per-user session row. SessionToken is nil while no session is
// active; Attempts counts consecutive failed credential checks; CreatedAt is
// the timestamp of the last state change.
type Login struct {
	UserID       int64
	SessionToken *string
	Attempts     int32
	CreatedAt    time.Time
}

// Session is the result of a successful validation. Token differs from the
// presented one when the session was rotated near expiry.
type Session struct {
	UserID  int64
	Token   string
	Rotated bool
}

// Config carries the lifecycle windows; all are required configuration inputs,
// never hardcoded.
type Config struct {
	// TTL is the absolute session lifetime from creation.
	TTL time.Duration
	// RefreshWindow rotates the token when remaining lifetime drops below it.
	// Zero disables rotation.
	RefreshWindow time.Duration
	// MaxAttempts is the lockout threshold for consecutive failures.
	MaxAttempts int32
	// AttemptWindow bounds the gap between failures counted as consecutive.
	AttemptWindow time.Duration
}

// Credentials is the minimal account view the login flow needs.
type Credentials struct {
	UserID       int64
	PasswordHash string
	Active       bool
}
