package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munai7/TrustGate/internal/models"
)

func TestIssueSessionToken_Claims(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour, "trustgate")
	issuedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issuedAt }

	token, err := tm.IssueSessionToken("alice", models.RoleUser, models.RiskHigh)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, models.RiskHigh, claims.RiskLabel)
	assert.Equal(t, "trustgate", claims.Issuer)
	assert.True(t, issuedAt.Add(time.Hour).Equal(claims.ExpiresAt.Time))
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Expired(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour, "trustgate")
	start := time.Now()
	tm.now = func() time.Time { return start }

	token, err := tm.IssueSessionToken("bob", models.RoleUser, models.RiskNormal)
	require.NoError(t, err)

	tm.now = func() time.Time { return start.Add(61 * time.Minute) }
	_, err = tm.ValidateToken(token)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := NewTokenManager(testSecret, time.Hour, "trustgate")
	token, err := issuer.IssueSessionToken("carol", models.RoleUser, models.RiskNormal)
	require.NoError(t, err)

	other := NewTokenManager("another-secret-32-characters-long", time.Hour, "trustgate")
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour, "trustgate")

	claims := &models.TokenClaims{
		Type:             tokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "mallory", Issuer: "trustgate"},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.ValidateToken(unsigned)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
