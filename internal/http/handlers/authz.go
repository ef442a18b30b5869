package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "shopfront/internal/log"
	"shopfront/internal/notify"
	"shopfront/internal/services"
)

// Session resolves the visitor for every page load: the user behind the
// stored token (if the remote server still accepts it) and the cart/wishlist
// shelf. Neither is required; anonymous visitors get an empty shelf.
func Session(auth *services.AuthService, shelf *services.ShelfService, toasts *notify.Center) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("toasts", toasts)
		if skipSession(c.Path()) {
			return c.Next()
		}
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Next()
		}
		ctx := c.UserContext()

		u, err := auth.CheckAuthStatus(ctx, sid)
		switch {
		case errors.Is(err, services.ErrCorruptSlot):
			applog.Security(c, "storage.corrupt", map[string]any{"slot": "jwtToken"})
		case err != nil:
			applog.Info(c, "auth.session.expired", map[string]any{"reason": err.Error()})
		case u != nil:
			c.Locals("user", u)
		}

		s, err := shelf.Load(ctx, sid)
		var cse *services.CorruptSlotError
		switch {
		case errors.As(err, &cse):
			applog.Security(c, "storage.corrupt", map[string]any{"slots": cse.Slots})
			toasts.Push(sid, notify.Warning("Storage reset", services.UserMessage(err)))
		case err != nil:
			return err
		}
		c.Locals("shelf", s)
		return c.Next()
	}
}

func skipSession(path string) bool {
	return strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/api/") || path == "/healthz"
}
