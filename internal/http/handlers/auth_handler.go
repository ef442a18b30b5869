package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"shopfront/internal/log"
	"shopfront/internal/notify"
	"shopfront/internal/services"
)

type AuthHandler struct {
	Auth   *services.AuthService
	Reg    *services.RegistrationService
	Toasts *notify.Center
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false,
		})
	}
	return sid
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	// leaving the registration wizard for the login page ends it
	if sid := c.Cookies("sid"); sid != "" {
		if err := h.Reg.Abandon(c.UserContext(), sid); err != nil {
			log.Error(c, "register.abandon.fail", err, nil)
		}
	}
	if currentUser(c) != nil {
		return c.Redirect("/page/dashboard")
	}
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	email := c.FormValue("email")
	pass := c.FormValue("password")

	u, err := h.Auth.Login(c.UserContext(), sid, email, pass)
	if err != nil {
		status, reason := fiber.StatusBadGateway, "remote"
		switch {
		case services.IsValidation(err):
			status, reason = fiber.StatusBadRequest, "missing_fields"
		case errors.Is(err, services.ErrBadCreds):
			status, reason = fiber.StatusUnauthorized, "bad_credentials"
		}
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": reason})
		c.Status(status)
		return render(c, "login", fiber.Map{"Err": services.UserMessage(err), "Email": email})
	}

	log.Audit(c, "auth.login.success", map[string]any{"email": email, "user_id": u.ID})
	h.Toasts.Push(sid, notify.Success("Welcome", "Welcome back, "+u.DisplayName()+"!"))
	return c.Redirect("/page/dashboard")
}

// Logout drops only the token; the cart and wishlist stay with the browser.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
		log.Error(c, "auth.logout.fail", err, nil)
	}
	log.Audit(c, "auth.logout", map[string]any{"sid": sid})
	h.Toasts.Push(sid, notify.Info("Logged out", "You have been logged out"))
	return c.Redirect("/")
}
