package redis

import "fmt"

const (
	// KeyPrefixSession is the prefix for every per-session key
	KeyPrefixSession = "relay:session:"

	fieldToken      = "token"
	fieldUser       = "user"
	fieldVerifiedAt = "verified_at"
)

// SessionKey returns the Redis key for one field of a session
func SessionKey(sessionID, field string) string {
	return KeyPrefixSession + sessionID + ":" + field
}

// TokenKey returns the Redis key holding the session token
func TokenKey(sessionID string) string {
	return SessionKey(sessionID, fieldToken)
}

// UserKey returns the Redis key holding the JSON user record
func UserKey(sessionID string) string {
	return SessionKey(sessionID, fieldUser)
}

// VerifiedAtKey returns the Redis key holding the last verification time (unix ms)
func VerifiedAtKey(sessionID string) string {
	return SessionKey(sessionID, fieldVerifiedAt)
}

// ExtractSessionID extracts the session ID from a session key
func ExtractSessionID(key string) (string, error) {
	if len(key) <= len(KeyPrefixSession) || key[:len(KeyPrefixSession)] != KeyPrefixSession {
		return "", fmt.Errorf("invalid session key: %s", key)
	}
	rest := key[len(KeyPrefixSession):]
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == ':' {
			if i == 0 {
				break
			}
			return rest[:i], nil
		}
	}
	return "", fmt.Errorf("invalid session key: %s", key)
}
