// internal/api/middleware/auth.go
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader is the request header carrying the client's key.
const APIKeyHeader = "X-API-Key"

const clientContextKey = "api_client"

// Client describes an authenticated API consumer. RateLimit is requests per
// minute; a zero ExpiresAt means the key never expires.
type Client struct {
	ClientID  string
	RateLimit int
	ExpiresAt time.Time
}

// APIKeyStore holds the known keys. The store is populated once at startup
// and read-only afterwards.
type APIKeyStore struct {
	keys map[string]Client
}

// NewAPIKeyStore returns an empty store.
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{keys: make(map[string]Client)}
}

// Add registers a key.
func (s *APIKeyStore) Add(key string, client Client) {
	s.keys[key] = client
}

// Lookup returns the client for a key.
func (s *APIKeyStore) Lookup(key string) (Client, bool) {
	client, ok := s.keys[key]
	return client, ok
}

// ParseAPIKeys builds a store from a comma-separated list of
// key:client:limit entries, e.g. "dev-key:dev-client:100".
func ParseAPIKeys(spec string) (*APIKeyStore, error) {
	store := NewAPIKeyStore()
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid api key entry %q, want key:client:limit", entry)
		}

		limit, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("invalid rate limit in api key entry %q", entry)
		}

		store.Add(strings.TrimSpace(parts[0]), Client{
			ClientID:  strings.TrimSpace(parts[1]),
			RateLimit: limit,
		})
	}

	if len(store.keys) == 0 {
		return nil, fmt.Errorf("no api keys configured")
	}

	return store, nil
}

// APIKeyAuth rejects requests without a valid, unexpired X-API-Key and
// stashes the resolved client in the request context.
func APIKeyAuth(store *APIKeyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
			return
		}

		client, ok := store.Lookup(key)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		if !client.ExpiresAt.IsZero() && client.ExpiresAt.Before(time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key has expired"})
			return
		}

		c.Set(clientContextKey, client)
		c.Next()
	}
}

// ClientFromContext returns the authenticated client, if any.
func ClientFromContext(c *gin.Context) (Client, bool) {
	value, exists := c.Get(clientContextKey)
	if !exists {
		return Client{}, false
	}
	client, ok := value.(Client)
	return client, ok
}
