package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// GetGravatarURL builds a Gravatar URL for the given email address with the
// "mystery person" fallback. Falls back to 80px when size is not positive.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = 80
	}

	// Gravatar hashes the trimmed, lowercased address
	email = strings.ToLower(strings.TrimSpace(email))
	hash := md5.Sum([]byte(email))

	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
