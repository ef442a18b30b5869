package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopfront/internal/log"
	"shopfront/internal/repos"
	"shopfront/internal/view"
)

type CatalogHandler struct {
	Products *repos.ProductRepo
}

// Home lists the catalog, optionally narrowed with ?category=.
func (h *CatalogHandler) Home(c *fiber.Ctx) error {
	category := c.Query("category")
	products := h.Products.List()
	if category != "" {
		products = h.Products.ListByCategory(category)
		if len(products) == 0 {
			log.Security(c, "validation.fail", map[string]any{"field": "category"})
			category = ""
			products = h.Products.List()
		}
	}
	return render(c, "home", fiber.Map{
		"Page":       "home",
		"Products":   view.Cards(products, currentShelf(c).Wishlist),
		"Categories": h.Products.Categories(),
		"Category":   category,
	})
}
