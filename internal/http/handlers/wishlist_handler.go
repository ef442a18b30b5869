package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "shopfront/internal/log"
	"shopfront/internal/notify"
	"shopfront/internal/services"
	"shopfront/internal/validate"
	"shopfront/internal/view"
)

type WishlistHandler struct {
	Shelf  *services.ShelfService
	Toasts *notify.Center
}

func (h *WishlistHandler) List(c *fiber.Ctx) error {
	return render(c, "wishlist", fiber.Map{"Page": "wishlist", "Items": view.Wishlist(currentShelf(c).Wishlist)})
}

func (h *WishlistHandler) Toggle(c *fiber.Ctx) error {
	sid := ensureSID(c)
	pid, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return notFound(c, fiber.StatusBadRequest, "This item is no longer available")
	}
	res, err := h.Shelf.ToggleWishlist(c.UserContext(), sid, pid)
	if err != nil {
		applog.Error(c, "wishlist.toggle.fail", err, map[string]any{"product": pid})
		return notFound(c, fiber.StatusInternalServerError, "Could not update wishlist")
	}
	if res.Changed {
		applog.Audit(c, "wishlist.toggle", map[string]any{"product": pid, "added": res.Added})
	}
	return shelfReply(c, h.Toasts, sid, res, "/wishlist")
}
