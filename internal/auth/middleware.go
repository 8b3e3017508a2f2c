package auth

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/shared"
)

// RequireLogin sends anonymous visitors to the login page and attaches the
// session's API token to the request context, renewing it when it is about
// to expire.
func (h *Handler) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.AccessToken() == "" {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}
		access := sess.AccessToken()
		if h.service.NeedsRefresh(access) {
			tokens, err := h.service.Refresh(r.Context(), sess.RefreshToken())
			if err != nil {
				h.logger.Info("token refresh failed", slog.String("user", sess.User()), slog.Any("error", err))
				sess.ClearAuth()
				sess.AddFlash(shared.FlashMessage{Kind: shared.FlashError, Message: "Session expired, please sign in again"})
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			sess.SetTokens(tokens.AccessToken, tokens.RefreshToken)
			access = tokens.AccessToken
		}
		next.ServeHTTP(w, r.WithContext(erpapi.ContextWithToken(r.Context(), access)))
	})
}
