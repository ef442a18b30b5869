package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopfront/internal/notify"
)

// ToastHandler lets the page script poll toasts and hold them while hovered.
type ToastHandler struct {
	Toasts *notify.Center
}

func (h *ToastHandler) List(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	if sid == "" {
		return c.JSON([]notify.Toast{})
	}
	return c.JSON(h.Toasts.List(sid))
}

func (h *ToastHandler) Pause(c *fiber.Ctx) error {
	return h.act(c, h.Toasts.Pause)
}

func (h *ToastHandler) Resume(c *fiber.Ctx) error {
	return h.act(c, h.Toasts.Resume)
}

func (h *ToastHandler) Dismiss(c *fiber.Ctx) error {
	return h.act(c, h.Toasts.Dismiss)
}

func (h *ToastHandler) act(c *fiber.Ctx, fn func(sid, id string) bool) error {
	sid := c.Cookies("sid")
	if sid == "" || !fn(sid, c.Params("id")) {
		return c.SendStatus(fiber.StatusNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
