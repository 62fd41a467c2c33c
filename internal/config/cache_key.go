package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionStartKey returns the cache key for a session's start timestamp.
func (r *CacheKeyStruct) SessionStartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:start", sessionID)
}

// TestPayloadKey returns the cache key for a test's candidate-facing payload.
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// TestDurationKey returns the cache key for a test's time limit in minutes.
func (r *CacheKeyStruct) TestDurationKey(testID string) string {
	return fmt.Sprintf("test:%s:duration", testID)
}

// UserActiveSessionKey returns the cache key for a user's currently active session.
func (r *CacheKeyStruct) UserActiveSessionKey(userID string) string {
	return fmt.Sprintf("user:%s:active_session", userID)
}

var CacheKey = NewCacheKeyStruct()
