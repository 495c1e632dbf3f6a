package shared

import "testing"

func TestNewTokenUniqueAndOpaque(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 256; i++ {
		token := NewToken()
		if len(token) < 32 {
			t.Fatalf("token too short: %q", token)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[token] = struct{}{}
	}
}
