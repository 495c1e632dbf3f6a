package shared

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// NewToken returns an unpredictable opaque token for sessions and activations.
func NewToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err == nil {
		return base64.RawURLEncoding.EncodeToString(b)
	}
	// uuid.NewRandom reports entropy failure instead of panicking the way
	// uuid.NewString would.
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	// No entropy source left; predictable tokens are worse than a crash.
	panic("shared: no entropy available for token generation")
}
