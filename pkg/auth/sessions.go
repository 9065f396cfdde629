package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// SessionStore keeps authenticated user contexts in Redis. Sessions are
// issued by the identity service; this process only resolves and refreshes
// them.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Create stores a new session and returns its bearer token.
func (s *SessionStore) Create(ctx context.Context, user models.UserContext) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	payload, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, sessionKey(token), payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the user behind a token and slides its expiry.
func (s *SessionStore) Resolve(ctx context.Context, token string) (models.UserContext, error) {
	payload, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.UserContext{}, ErrSessionNotFound
	}
	if err != nil {
		return models.UserContext{}, err
	}

	var user models.UserContext
	if err := json.Unmarshal(payload, &user); err != nil {
		return models.UserContext{}, err
	}

	// Sliding expiry; a failed refresh does not invalidate the lookup.
	s.client.Expire(ctx, sessionKey(token), s.ttl)
	return user, nil
}

func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}
