package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
)

// DefaultRefreshLeeway is how close to expiry an access token is renewed.
const DefaultRefreshLeeway = time.Minute

// Service exchanges credentials for API tokens and keeps them fresh.
type Service struct {
	api    API
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewService constructs a new Service.
func NewService(api API, leeway time.Duration) *Service {
	if leeway <= 0 {
		leeway = DefaultRefreshLeeway
	}
	return &Service{api: api, leeway: leeway, now: time.Now, parser: jwt.NewParser()}
}

// Authenticate trades email/password credentials for a token pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (erpapi.TokenPair, error) {
	return s.api.Login(ctx, email, password)
}

// Refresh renews the pair with a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (erpapi.TokenPair, error) {
	return s.api.Refresh(ctx, refreshToken)
}

// NeedsRefresh reports whether the access token expires within the leeway.
// The signature is not checked; the API remains the authority. Tokens
// without a readable expiry are left to the API to reject.
func (s *Service) NeedsRefresh(accessToken string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(accessToken, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(s.now().Add(s.leeway))
}
