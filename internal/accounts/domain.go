package accounts

// Status models the user account lifecycle. Accounts are never physically
// deleted in normal operation; disabling is a status transition.
type Status int16

const (
	// StatusInactive marks a registered account awaiting activation.
	StatusInactive Status = 0
	// StatusActive marks an activated account allowed to authenticate.
	StatusActive Status = 1
	// StatusSuspended marks an administratively disabled account.
	StatusSuspended Status = 2
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusInactive, StatusActive, StatusSuspended:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusActive:
		return "active"
	case StatusSuspended:
		return "suspended"
	}
	return "unknown"
}

// User represents a user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Status       Status
	RoleID       int64
}
