package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"toolx/config"
	"toolx/entity"
	"toolx/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "toolx"

// ErrRevocationUnavailable is returned by revocation calls when sessions are not stored.
var ErrRevocationUnavailable = errors.New("token revocation is not available")

// JWTService issues and checks session tokens
type JWTService interface {
	GenerateToken(ctx context.Context, email string) (*entity.AuthResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*JWTClaims, error)
	RevokeToken(ctx context.Context, tokenString string) error
	RevokeAllUserTokens(ctx context.Context, email string) (int, error)
}

// JWTClaims represents the JWT claims
type JWTClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// jwtService implements JWTService interface
type jwtService struct {
	cfg          config.JWT
	clock        Clock
	logger       *logger.Logger
	tokenService *TokenService
}

// NewJWTService creates a new JWT service. tokenService may be nil, in which case tokens
// cannot be revoked before they expire.
func NewJWTService(cfg config.JWT, clock Clock, logger *logger.Logger, tokenService *TokenService) JWTService {
	return &jwtService{
		cfg:          cfg,
		clock:        clock,
		logger:       logger,
		tokenService: tokenService,
	}
}

// GenerateToken signs a session token embedding email
func (s *jwtService) GenerateToken(ctx context.Context, email string) (*entity.AuthResponse, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.ExpirationTime)

	claims := JWTClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if s.tokenService != nil {
		tokenInfo := &TokenInfo{
			Email:     email,
			TokenHash: hashToken(tokenString),
			IssuedAt:  now,
			ExpiresAt: expiresAt,
		}
		if err := s.tokenService.StoreToken(ctx, tokenInfo, s.cfg.ExpirationTime); err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}
	}

	s.logger.Infow("Session token issued", "email", email, "expires_at", expiresAt)

	return &entity.AuthResponse{
		Token:     tokenString,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken verifies signature, expiry and, when sessions are stored, that the session
// has not been revoked
func (s *jwtService) ValidateToken(ctx context.Context, tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
	}

	if !token.Valid || claims.Email == "" {
		return nil, entity.ErrUnauthorized
	}

	if s.tokenService != nil {
		if _, err := s.tokenService.ValidateToken(ctx, hashToken(tokenString)); err != nil {
			s.logger.Warnw("Session not found or expired", "email", claims.Email, "error", err)
			return nil, fmt.Errorf("%w: session expired", entity.ErrUnauthorized)
		}
	}

	return claims, nil
}

// RevokeToken revokes a specific token (logout)
func (s *jwtService) RevokeToken(ctx context.Context, tokenString string) error {
	if s.tokenService == nil {
		return ErrRevocationUnavailable
	}
	return s.tokenService.RevokeToken(ctx, hashToken(tokenString))
}

// RevokeAllUserTokens revokes all tokens for an email (logout from all devices)
func (s *jwtService) RevokeAllUserTokens(ctx context.Context, email string) (int, error) {
	if s.tokenService == nil {
		return 0, ErrRevocationUnavailable
	}
	return s.tokenService.RevokeAllUserTokens(ctx, email)
}

// hashToken creates a hash of the token for storage in Redis
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
