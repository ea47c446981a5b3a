package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"questionnaire-engine/internal/dto"
	"questionnaire-engine/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const TokenTypeAccess = "access"

var ErrInvalidJWTToken = errors.New("invalid JWT token")

// AuthService validates the bearer tokens issued by the identity provider of
// the admission workflow. Token issuance is kept for tooling and tests.
type AuthService interface {
	CreateJWT(userID, role string, ttl time.Duration) (string, error)
	ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
}

type authService struct {
	secret []byte
}

func NewAuthService(secret string) (AuthService, error) {
	if secret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	return &authService{secret: []byte(secret)}, nil
}

func (s *authService) CreateJWT(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &dto.AuthClaims{
		UserID:    userID,
		Role:      role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *authService) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dto.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Get().Warn("JWT token expired", zap.Error(err))
		} else {
			logger.Get().Warn("JWT validation failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	if claims, ok := token.Claims.(*dto.AuthClaims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, ErrInvalidJWTToken
}
