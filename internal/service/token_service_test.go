package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "grievance-api", TTL: time.Minute})
	token, expires, err := svc.Issue(models.User{ID: "u-1", FullName: "Ravi Kumar", Role: models.RoleOfficer})
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleOfficer, claims.Role)
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "grievance-api"})

	other := NewTokenService(TokenConfig{Secret: "other", Issuer: "grievance-api"})
	forged, _, err := other.Issue(models.User{ID: "u-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	requireAppError(t, err, appErrors.ErrUnauthorized.Code)

	foreign := NewTokenService(TokenConfig{Secret: "secret", Issuer: "someone-else"})
	token, _, err := foreign.Issue(models.User{ID: "u-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	requireAppError(t, err, appErrors.ErrUnauthorized.Code)

	expired := NewTokenService(TokenConfig{Secret: "secret", Issuer: "grievance-api", TTL: time.Minute})
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err = expired.Issue(models.User{ID: "u-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	requireAppError(t, err, appErrors.ErrUnauthorized.Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "u-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	requireAppError(t, err, appErrors.ErrUnauthorized.Code)
}
