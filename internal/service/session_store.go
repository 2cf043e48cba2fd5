package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	accessTokenKeyFmt  = "access_token:%s:%s"
	refreshTokenKeyFmt = "refresh_token:%s:%s"
	tokenScanBatch     = 100
)

// SessionStore tracks issued token ids in Redis so tokens can be revoked
// before they expire.
type SessionStore struct {
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewSessionStore(redisClient *redis.Client, log *logrus.Logger) *SessionStore {
	return &SessionStore{redisClient: redisClient, log: log}
}

// Store records an access/refresh pair with their lifetimes.
func (s *SessionStore) Store(ctx context.Context, userID uuid.UUID, accessID string, accessTTL time.Duration, refreshID string, refreshTTL time.Duration) error {
	pipe := s.redisClient.TxPipeline()
	pipe.Set(ctx, accessKey(userID, accessID), "valid", accessTTL)
	pipe.Set(ctx, refreshKey(userID, refreshID), "valid", refreshTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session tokens: %w", err)
	}
	return nil
}

func (s *SessionStore) IsAccessValid(ctx context.Context, userID uuid.UUID, tokenID string) (bool, error) {
	n, err := s.redisClient.Exists(ctx, accessKey(userID, tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check access token: %w", err)
	}
	return n > 0, nil
}

// ConsumeRefresh deletes a refresh token id and reports whether it existed.
// A refresh token can therefore be exchanged only once.
func (s *SessionStore) ConsumeRefresh(ctx context.Context, userID uuid.UUID, tokenID string) (bool, error) {
	n, err := s.redisClient.Del(ctx, refreshKey(userID, tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("consume refresh token: %w", err)
	}
	return n > 0, nil
}

// Revoke deletes the given token ids. An empty refreshID is skipped.
func (s *SessionStore) Revoke(ctx context.Context, userID uuid.UUID, accessID, refreshID string) error {
	keys := []string{accessKey(userID, accessID)}
	if refreshID != "" {
		keys = append(keys, refreshKey(userID, refreshID))
	}
	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// RevokeAll removes every token issued to userID.
func (s *SessionStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	for _, pattern := range []string{accessKey(userID, "*"), refreshKey(userID, "*")} {
		iter := s.redisClient.Scan(ctx, 0, pattern, tokenScanBatch).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) == 0 {
			continue
		}
		if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("delete %d keys: %w", len(keys), err)
		}
		s.log.Debugf("Revoked %d keys matching %s", len(keys), pattern)
	}
	return nil
}

func accessKey(userID uuid.UUID, tokenID string) string {
	return fmt.Sprintf(accessTokenKeyFmt, userID.String(), tokenID)
}

func refreshKey(userID uuid.UUID, tokenID string) string {
	return fmt.Sprintf(refreshTokenKeyFmt, userID.String(), tokenID)
}
