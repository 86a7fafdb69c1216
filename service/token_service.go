package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"toolx/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// TokenInfo stores session metadata in Redis
type TokenInfo struct {
	Email     string    `json:"email"`
	TokenHash string    `json:"token_hash"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenService keeps issued sessions in Redis so they can be revoked
type TokenService struct {
	redis  redis.UniversalClient
	logger *logger.Logger
}

// NewTokenService creates a new token service
func NewTokenService(redis redis.UniversalClient, logger *logger.Logger) *TokenService {
	return &TokenService{
		redis:  redis,
		logger: logger,
	}
}

func tokenKey(tokenHash string) string {
	return fmt.Sprintf("token:%s", tokenHash)
}

func userTokensKey(email string) string {
	return fmt.Sprintf("user_tokens:%s", email)
}

// StoreToken stores token information in Redis
func (s *TokenService) StoreToken(ctx context.Context, tokenInfo *TokenInfo, expiration time.Duration) error {
	data, err := json.Marshal(tokenInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal token info: %w", err)
	}

	userKey := userTokensKey(tokenInfo.Email)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey(tokenInfo.TokenHash), data, expiration)
		pipe.SAdd(ctx, userKey, tokenInfo.TokenHash)
		// A bit longer than the token so the set never forgets a live session
		pipe.Expire(ctx, userKey, expiration+time.Hour)
		return nil
	})
	if err != nil {
		s.logger.Errorw("Failed to store token in Redis", "email", tokenInfo.Email, "error", err)
		return fmt.Errorf("failed to store token in Redis: %w", err)
	}

	s.logger.Debugw("Token stored", "email", tokenInfo.Email, "token_hash", tokenInfo.TokenHash[:8]+"...")
	return nil
}

// ValidateToken checks that the session still exists
func (s *TokenService) ValidateToken(ctx context.Context, tokenHash string) (*TokenInfo, error) {
	data, err := s.redis.Get(ctx, tokenKey(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("token not found or expired")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token from Redis: %w", err)
	}

	var tokenInfo TokenInfo
	if err := json.Unmarshal([]byte(data), &tokenInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token info: %w", err)
	}

	return &tokenInfo, nil
}

// RevokeToken removes one session (logout)
func (s *TokenService) RevokeToken(ctx context.Context, tokenHash string) error {
	if tokenInfo, err := s.ValidateToken(ctx, tokenHash); err == nil {
		s.redis.SRem(ctx, userTokensKey(tokenInfo.Email), tokenHash)
	}

	if err := s.redis.Del(ctx, tokenKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.logger.Infow("Token revoked", "token_hash", tokenHash[:8]+"...")
	return nil
}

// RevokeAllUserTokens revokes every session of one email and returns how many were removed
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, email string) (int, error) {
	userKey := userTokensKey(email)

	tokenHashes, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get user tokens: %w", err)
	}

	pipe := s.redis.Pipeline()
	for _, tokenHash := range tokenHashes {
		pipe.Del(ctx, tokenKey(tokenHash))
	}
	pipe.Del(ctx, userKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to revoke all user tokens: %w", err)
	}

	s.logger.Infow("All user tokens revoked", "email", email, "token_count", len(tokenHashes))
	return len(tokenHashes), nil
}
