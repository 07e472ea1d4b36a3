package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-edit/models"
)

const SignatureHeader = "X-Webhook-Signature"

type identityEvent struct {
	Type string            `json:"type" validate:"required,oneof=user.created user.updated user.deleted"`
	Data identityEventUser `json:"data"`
}

type identityEventUser struct {
	ID             string `json:"id" validate:"required"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	ImageURL  string `json:"image_url"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u identityEventUser) profile() models.UserProfile {
	p := models.UserProfile{
		Username:  u.Username,
		Photo:     u.ImageURL,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
	if len(u.EmailAddresses) > 0 {
		p.Email = u.EmailAddresses[0].EmailAddress
	}
	return p
}

// Sign returns the signature the identity provider sends for body.
func Sign(secret string, body []byte) string {
	return hex.EncodeToString(signature(secret, body))
}

func signature(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// IdentityWebhook applies user lifecycle events from the identity provider.
func (h *Handler) IdentityWebhook(c *fiber.Ctx) error {
	if h.webhookSecret == "" {
		return failure(c, fiber.StatusServiceUnavailable, "Webhook not configured")
	}
	got, err := hex.DecodeString(c.Get(SignatureHeader))
	if err != nil || !hmac.Equal(got, signature(h.webhookSecret, c.Body())) {
		return failure(c, fiber.StatusUnauthorized, "Invalid signature")
	}

	var evt identityEvent
	if err := h.parse(c, &evt); err != nil {
		return h.fail(c, err)
	}

	ctx := c.UserContext()
	switch evt.Type {
	case "user.created":
		user, err := h.accounts.Provision(ctx, evt.Data.ID, evt.Data.profile())
		if err != nil {
			return h.fail(c, err)
		}
		return success(c, fiber.StatusCreated, "User created", user)
	case "user.updated":
		user, err := h.accounts.Update(ctx, evt.Data.ID, evt.Data.profile())
		if err != nil {
			return h.fail(c, err)
		}
		return success(c, fiber.StatusOK, "User updated", user)
	default:
		user, err := h.accounts.Delete(ctx, evt.Data.ID)
		if err != nil {
			return h.fail(c, err)
		}
		return success(c, fiber.StatusOK, "User deleted", user)
	}
}
