package core

import "github.com/google/uuid"

// NewLeaseID returns an identifier for a single open/close pairing. It only
// correlates log lines; nothing looks resources up by it.
func NewLeaseID() string {
	return uuid.NewString()
}
