package handler

import (
	"github.com/gofiber/fiber/v2"
)

// GetMe returns the signed-in user including the credit balance.
func (h *Handler) GetMe(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, "User found", user)
}

func (h *Handler) GetMyImages(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}

	page := c.QueryInt("page", 1)
	result, err := h.gallery.ListByAuthor(c.UserContext(), user.ID, page, 0)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, "Images found", result)
}
