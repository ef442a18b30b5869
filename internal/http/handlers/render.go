package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"shopfront/internal/domain"
	"shopfront/internal/notify"
	"shopfront/internal/services"
	"shopfront/internal/view"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	// Pick up the token the CSRF middleware put into Locals
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		// the cookie is the fallback when the middleware did not run for this route
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}

	counts := currentShelf(c).Counts()
	data["CartBadge"] = view.CountBadge(counts.Cart)
	data["WishlistBadge"] = view.CountBadge(counts.Wishlist)

	if center, ok := c.Locals("toasts").(*notify.Center); ok {
		if sid := c.Cookies("sid"); sid != "" {
			data["Toasts"] = center.List(sid)
		}
	}
	return c.Render(tmpl, data)
}

// notFound is the friendly dead end every handler uses for failures.
func notFound(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).Render("notfound", fiber.Map{"Message": msg})
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

func currentShelf(c *fiber.Ctx) *services.Shelf {
	if s, ok := c.Locals("shelf").(*services.Shelf); ok && s != nil {
		return s
	}
	return &services.Shelf{}
}

// wantsJSON is true for script callers that ask for JSON over HTML.
func wantsJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// back redirects to the referring page on this host, or to fallback.
func back(c *fiber.Ctx, fallback string) error {
	if u, err := url.Parse(c.Get(fiber.HeaderReferer)); err == nil && u.Path != "" && (u.Host == "" || u.Host == string(c.Request().Host())) {
		return c.Redirect(u.RequestURI())
	}
	return c.Redirect(fallback)
}
