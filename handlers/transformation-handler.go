package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-edit/assets"
	"github.com/krishkalaria12/snap-edit/transformations"
	"github.com/krishkalaria12/snap-edit/workflow"
)

// StartTransformation opens a form for a new image, or for an existing
// one when imageId is given.
func (h *Handler) StartTransformation(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	var input workflow.StartParams
	if err := h.parse(c, &input); err != nil {
		return h.fail(c, err)
	}
	input.AuthorID = user.ID

	s, err := h.sessions.Start(c.UserContext(), input)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusCreated, "Transformation started", s.Snapshot())
}

func (h *Handler) GetTransformation(c *fiber.Ctx) error {
	return h.withSession(c, func(s *workflow.Session) error {
		return nil
	})
}

func (h *Handler) SetTransformationImage(c *fiber.Ctx) error {
	var input assets.Asset
	if err := h.parse(c, &input); err != nil {
		return h.fail(c, err)
	}
	return h.withSession(c, func(s *workflow.Session) error {
		return s.SetImage(input)
	})
}

func (h *Handler) SetTransformationTitle(c *fiber.Ctx) error {
	type SetTitle struct {
		Title string `json:"title" validate:"required,max=100"`
	}
	var input SetTitle
	if err := h.parse(c, &input); err != nil {
		return h.fail(c, err)
	}
	return h.withSession(c, func(s *workflow.Session) error {
		return s.SetTitle(input.Title)
	})
}

func (h *Handler) SelectAspectRatio(c *fiber.Ctx) error {
	type SelectAspectRatio struct {
		AspectRatio string `json:"aspectRatio" validate:"required"`
	}
	var input SelectAspectRatio
	if err := h.parse(c, &input); err != nil {
		return h.fail(c, err)
	}
	return h.withSession(c, func(s *workflow.Session) error {
		return s.SelectAspectRatio(input.AspectRatio)
	})
}

// EditTransformationField updates prompt or color. The change reaches the
// pending configuration after the debounce delay.
func (h *Handler) EditTransformationField(c *fiber.Ctx) error {
	type EditField struct {
		Field string `json:"field" validate:"required,oneof=prompt color"`
		Value string `json:"value" validate:"max=200"`
	}
	var input EditField
	if err := h.parse(c, &input); err != nil {
		return h.fail(c, err)
	}
	return h.withSession(c, func(s *workflow.Session) error {
		return s.EditField(transformations.Field(input.Field), input.Value)
	})
}

// ApplyTransformation renders, charges and saves. The session is closed on
// success and kept for a retry on failure.
func (h *Handler) ApplyTransformation(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	s, err := h.sessions.Get(c.Params("sid"), user.ID)
	if err != nil {
		return h.fail(c, err)
	}

	res, err := s.Apply(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	h.sessions.Finish(s.ID())

	h.log.WithUserID(user.ID).WithField("image_id", res.Image.ID).
		WithField("credit_balance", res.Balance).Info("transformation applied")
	return success(c, fiber.StatusOK, "Transformation applied", res)
}

func (h *Handler) withSession(c *fiber.Ctx, fn func(s *workflow.Session) error) error {
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	s, err := h.sessions.Get(c.Params("sid"), user.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if err := fn(s); err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, "Transformation found", s.Snapshot())
}
