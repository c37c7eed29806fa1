package redis

import "fmt"

// Key construction helpers for the release agent's state mirror.

// SessionKey returns the key for the live monitoring session hash
// Pattern: release:session:{room}
func SessionKey(room string) string {
	return fmt.Sprintf("release:session:%s", room)
}

// HistoryKey returns the key for the capped transition history list
// Pattern: release:history:{room}
func HistoryKey(room string) string {
	return fmt.Sprintf("release:history:%s", room)
}
