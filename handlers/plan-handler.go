package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-edit/transformations"
)

func GetPlans(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, "Plans found", transformations.Plans())
}
