package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"questionnaire-engine/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RoundTrip(t *testing.T) {
	svc, err := NewAuthService("test-secret")
	require.NoError(t, err)

	token, err := svc.CreateJWT("u1", dto.RoleReviewer, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateJWT(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, dto.RoleReviewer, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestAuthService_Rejects(t *testing.T) {
	svc, err := NewAuthService("test-secret")
	require.NoError(t, err)
	other, err := NewAuthService("other-secret")
	require.NoError(t, err)

	expired, err := svc.CreateJWT("u1", dto.RoleRespondent, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateJWT(context.Background(), expired)
	assert.True(t, errors.Is(err, ErrInvalidJWTToken))

	foreign, err := other.CreateJWT("u1", dto.RoleRespondent, time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateJWT(context.Background(), foreign)
	assert.True(t, errors.Is(err, ErrInvalidJWTToken))

	_, err = NewAuthService("")
	assert.Error(t, err)
}
