package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shopfront/internal/log"
	"shopfront/internal/notify"
	"shopfront/internal/services"
	"shopfront/internal/validate"
)

// PageHandler swaps the main page by name. Pages that need a signed-in user
// fall back to home for everyone else, as do unknown names.
type PageHandler struct {
	Catalog *CatalogHandler
	Auth    *services.AuthService
	Toasts  *notify.Center
}

var memberPages = map[string]bool{"dashboard": true, "users": true, "profile": true}

func (h *PageHandler) Show(c *fiber.Ctx) error {
	name, ok := validate.Page(c.Params("name"))
	if !ok {
		return h.Catalog.Home(c)
	}
	switch name {
	case "login":
		return c.Redirect("/login")
	case "register":
		return c.Redirect("/register")
	case "cart":
		return c.Redirect("/cart")
	case "wishlist":
		return c.Redirect("/wishlist")
	}
	if !memberPages[name] || currentUser(c) == nil {
		return h.Catalog.Home(c)
	}
	if name == "users" {
		return h.users(c)
	}
	return render(c, name, fiber.Map{"Page": name})
}

func (h *PageHandler) users(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	users, err := h.Auth.ListUsers(c.UserContext(), sid)
	if errors.Is(err, services.ErrSessionExpired) {
		log.Security(c, "auth.session.expired", map[string]any{"page": "users"})
		h.Toasts.Push(sid, notify.Warning("Session expired", services.MsgSessionExpired))
		return c.Redirect("/login")
	}
	if err != nil {
		log.Error(c, "users.list.fail", err, nil)
		c.Status(fiber.StatusBadGateway)
		return render(c, "users", fiber.Map{"Page": "users", "Err": services.UserMessage(err)})
	}
	return render(c, "users", fiber.Map{"Page": "users", "Users": users})
}
