package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/assets"
	"github.com/krishkalaria12/snap-edit/auth"
	"github.com/krishkalaria12/snap-edit/gallery"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/middleware"
	"github.com/krishkalaria12/snap-edit/models"
	"github.com/krishkalaria12/snap-edit/workflow"
)

// Handler serves the HTTP API.
type Handler struct {
	gallery       *gallery.Service
	sessions      *workflow.Sessions
	accounts      *auth.Accounts
	assets        assets.Service
	archive       assets.Archiver
	validate      *validator.Validate
	log           *logger.Logger
	webhookSecret string
}

type Deps struct {
	Gallery  *gallery.Service
	Sessions *workflow.Sessions
	Accounts *auth.Accounts
	Assets   assets.Service
	// Archive is optional; when set originals are copied there first.
	Archive       assets.Archiver
	Log           *logger.Logger
	WebhookSecret string
}

func New(d Deps) *Handler {
	return &Handler{
		gallery:       d.Gallery,
		sessions:      d.Sessions,
		accounts:      d.Accounts,
		assets:        d.Assets,
		archive:       d.Archive,
		validate:      validator.New(),
		log:           d.Log,
		webhookSecret: d.WebhookSecret,
	}
}

func Hello(c *fiber.Ctx) error {
	return c.SendString("Hello, World!")
}

func success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}

// parse decodes the body into dst and validates it.
func (h *Handler) parse(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.Invalid("body", "invalid input")
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.Invalid(lowerFirst(fe.Field()), "failed "+fe.Tag()+" check")
		}
		return apperrors.Invalid("body", "invalid input")
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// fail maps err to a response without leaking internals.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case apperrors.IsValidation(err):
		return failure(c, fiber.StatusBadRequest, err.Error())
	case apperrors.IsNotFound(err):
		return failure(c, fiber.StatusNotFound, "Not found")
	case apperrors.IsUnauthorized(err):
		return failure(c, fiber.StatusForbidden, "You are not allowed to do that")
	case errors.Is(err, workflow.ErrInsufficientCredits):
		return failure(c, fiber.StatusPaymentRequired, "Insufficient credits")
	case errors.Is(err, workflow.ErrBusy):
		return failure(c, fiber.StatusConflict, "A transformation is already running")
	case errors.Is(err, workflow.ErrNothingPending):
		return failure(c, fiber.StatusBadRequest, "Nothing to apply")
	case apperrors.IsExternal(err):
		h.log.WithError(err).Error("media service call failed")
		return failure(c, fiber.StatusBadGateway, "Media service unavailable")
	}
	h.log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return failure(c, fiber.StatusInternalServerError, "Something went wrong")
}

func currentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, apperrors.Unauthorized("access", "account")
	}
	return user, nil
}
