package locations

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/erp-console/internal/shared"
)

// Enqueuer schedules a background catalog rebuild.
type Enqueuer interface {
	EnqueueLocationsWarmup(ctx context.Context) error
}

// Handler exposes catalog maintenance to signed-in users.
type Handler struct {
	catalog  *Catalog
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewHandler builds a Handler. Without an enqueuer the rebuild runs inline.
func NewHandler(catalog *Catalog, enqueuer Enqueuer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{catalog: catalog, enqueuer: enqueuer, logger: logger}
}

// MountRoutes registers routes relative to /locations.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/refresh", h.handleRefresh)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	target := safeReturn(r.PostFormValue("return_to"))
	flash := shared.FlashMessage{Kind: shared.FlashSuccess}

	if h.enqueuer != nil {
		if err := h.catalog.Invalidate(r.Context()); err != nil {
			h.logger.Warn("invalidate locations", slog.Any("error", err))
		}
		if err := h.enqueuer.EnqueueLocationsWarmup(r.Context()); err != nil {
			h.logger.Error("enqueue locations warmup", slog.Any("error", err))
			flash = shared.FlashMessage{Kind: shared.FlashError, Message: "Could not schedule location refresh"}
		} else {
			flash.Message = "Location refresh scheduled"
		}
	} else {
		count, err := h.catalog.Refresh(r.Context())
		if err != nil {
			h.logger.Error("refresh locations", slog.Any("error", err))
			flash = shared.FlashMessage{Kind: shared.FlashError, Message: shared.UserSafeMessage(err)}
		} else {
			flash.Message = fmt.Sprintf("Locations refreshed (%d)", count)
		}
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(flash)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeReturn keeps redirects on this host.
func safeReturn(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return "/purchase-orders"
	}
	return path
}
