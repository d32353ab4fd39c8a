package client

import "sync"

// TokenCache holds the in-memory access token shared between the transport
// and the session manager. It exists so the two can be wired independently:
// the transport reads from it, the session manager writes to it.
type TokenCache struct {
	mu    sync.RWMutex
	token string
}

func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

func (c *TokenCache) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *TokenCache) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}
