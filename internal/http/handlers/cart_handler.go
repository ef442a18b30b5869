package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "shopfront/internal/log"
	"shopfront/internal/notify"
	"shopfront/internal/services"
	"shopfront/internal/validate"
	"shopfront/internal/view"
)

type CartHandler struct {
	Shelf  *services.ShelfService
	Toasts *notify.Center
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	return render(c, "cart", fiber.Map{"Page": "cart", "Cart": view.Cart(currentShelf(c).Cart)})
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c)
	pid, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return notFound(c, fiber.StatusBadRequest, "This item is no longer available")
	}
	qty := validate.Qty(c.FormValue("qty"))

	res, err := h.Shelf.AddToCart(c.UserContext(), sid, pid, qty)
	if err != nil {
		applog.Error(c, "cart.add.fail", err, map[string]any{"product": pid})
		return notFound(c, fiber.StatusInternalServerError, "Could not update cart")
	}
	if res.Changed {
		applog.Audit(c, "cart.add", map[string]any{"product": pid, "qty": qty})
	}
	return shelfReply(c, h.Toasts, sid, res, "/cart")
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	sid := ensureSID(c)
	res, err := h.Shelf.ClearCart(c.UserContext(), sid)
	if err != nil {
		applog.Error(c, "cart.clear.fail", err, nil)
		return notFound(c, fiber.StatusInternalServerError, "Could not update cart")
	}
	if res.Changed {
		applog.Audit(c, "cart.clear", nil)
	}
	return shelfReply(c, h.Toasts, sid, res, "/cart")
}

// Counts feeds the header badges for script callers.
func (h *CartHandler) Counts(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	if sid == "" {
		return c.JSON(services.Counts{})
	}
	s, err := h.Shelf.Load(c.UserContext(), sid)
	if err != nil && s == nil {
		applog.Error(c, "counts.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load counts"})
	}
	return c.JSON(s.Counts())
}

// shelfReply answers a cart or wishlist mutation: JSON for script callers,
// otherwise a toast and a redirect back.
func shelfReply(c *fiber.Ctx, toasts *notify.Center, sid string, res services.ShelfResult, fallback string) error {
	var shown *notify.Toast
	if res.Toast != nil {
		t := toasts.Push(sid, *res.Toast)
		shown = &t
	}
	if wantsJSON(c) {
		return c.JSON(fiber.Map{
			"changed":       res.Changed,
			"added":         res.Added,
			"counts":        res.Counts,
			"cartBadge":     view.CountBadge(res.Counts.Cart),
			"wishlistBadge": view.CountBadge(res.Counts.Wishlist),
			"toast":         shown,
		})
	}
	return back(c, fallback)
}
