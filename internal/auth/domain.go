package auth

import (
	"context"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
)

// API is the remote token endpoint pair.
type API interface {
	Login(ctx context.Context, email, password string) (erpapi.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (erpapi.TokenPair, error)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

var fieldMessages = map[string]string{
	"Email":    "Enter a valid email address",
	"Password": "Enter your password",
}
