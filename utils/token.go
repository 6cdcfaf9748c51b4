package utils

import (
	"sync"
	"time"
)

var (
	blacklistedTokens = make(map[string]time.Time)
	blacklistMutex    sync.RWMutex
)

// BlacklistToken revokes a token until its own expiry.
func BlacklistToken(token string, expiresAt time.Time) {
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(JWTTTL)
	}
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()
	blacklistedTokens[token] = expiresAt
}

func IsTokenBlacklisted(token string) bool {
	blacklistMutex.RLock()
	expiry, exists := blacklistedTokens[token]
	blacklistMutex.RUnlock()

	if !exists {
		return false
	}
	if time.Now().Before(expiry) {
		return true
	}

	blacklistMutex.Lock()
	delete(blacklistedTokens, token)
	blacklistMutex.Unlock()
	return false
}

// CleanupBlacklist drops expired entries every interval until stop is closed.
func CleanupBlacklist(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pruneBlacklist(time.Now())
		case <-stop:
			return
		}
	}
}

func pruneBlacklist(now time.Time) int {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()

	removed := 0
	for token, expiry := range blacklistedTokens {
		if now.After(expiry) {
			delete(blacklistedTokens, token)
			removed++
		}
	}
	return removed
}
