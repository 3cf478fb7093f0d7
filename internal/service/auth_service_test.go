package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/models"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", Issuer: "idp"})
	token, err := svc.IssueToken("u1", models.RoleManager, []string{"p1"}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.CanAccessPractice("p1"))
	assert.False(t, claims.CanAccessPractice("p2"))
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "idp"})

	other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other", Issuer: "idp"})
	forged, err := other.IssueToken("u1", models.RoleAdmin, nil, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	foreign := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "elsewhere"})
	wrongIssuer, err := foreign.IssueToken("u1", models.RoleAdmin, nil, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongIssuer)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	expired, err := svc.IssueToken("u1", models.RoleAdmin, nil, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	_, err = svc.ValidateToken("not-a-token")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestAdminCanAccessAnyPractice(t *testing.T) {
	claims := &models.JWTClaims{UserID: "root", Role: models.RoleAdmin}
	assert.True(t, claims.CanAccessPractice("anything"))

	var missing *models.JWTClaims
	assert.False(t, missing.CanAccessPractice("anything"))
}
