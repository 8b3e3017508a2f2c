package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any"))
	require.NoError(t, err)
	return token
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	svc := NewService(nil, time.Minute)
	svc.now = func() time.Time { return now }

	require.False(t, svc.NeedsRefresh(signed(t, jwt.MapClaims{"exp": now.Add(10 * time.Minute).Unix()})))
	require.True(t, svc.NeedsRefresh(signed(t, jwt.MapClaims{"exp": now.Add(30 * time.Second).Unix()})))
	require.True(t, svc.NeedsRefresh(signed(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()})))
	require.False(t, svc.NeedsRefresh(signed(t, jwt.MapClaims{"sub": "no-expiry"})))
	require.False(t, svc.NeedsRefresh("opaque-token"))
}
