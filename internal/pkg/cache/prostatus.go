package cache

import (
	"fmt"
	"time"
)

// Pro status responses are cached per user so the calculator UI can poll
// the status endpoint without hitting MySQL every time. Webhook handlers
// invalidate the entry whenever a subscriber changes.
const proStatusTTL = 5 * time.Minute

func ProStatusKey(userID uint) string {
	return fmt.Sprintf("billing:prostatus:%d", userID)
}

// SetProStatus stores a serialized pro-status response for a user.
func SetProStatus(userID uint, payload string) error {
	return Set(ProStatusKey(userID), payload, proStatusTTL)
}

// GetProStatus returns the cached pro-status JSON, or an error on miss.
func GetProStatus(userID uint) (string, error) {
	return Get(ProStatusKey(userID))
}

// InvalidateProStatus drops the cached status after a billing event changed
// the subscriber. Safe to call for users that were never cached.
func InvalidateProStatus(userID uint) {
	_ = Delete(ProStatusKey(userID))
}
