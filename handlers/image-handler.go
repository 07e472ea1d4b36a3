package handler

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-edit/apperrors"
)

const maxUploadSize = 10 << 20

// UploadImage stores an original in the media service and returns the
// asset for the transformation form.
func (h *Handler) UploadImage(c *fiber.Ctx) error {
	if _, err := currentUser(c); err != nil {
		return h.fail(c, err)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return failure(c, fiber.StatusBadRequest, "No file provided")
	}
	if file.Size > maxUploadSize {
		return failure(c, fiber.StatusBadRequest, "File too large")
	}
	if ct := file.Header.Get(fiber.HeaderContentType); ct != "" && !strings.HasPrefix(ct, "image/") {
		return failure(c, fiber.StatusBadRequest, "Only images can be uploaded")
	}

	blobFile, err := file.Open()
	if err != nil {
		return failure(c, fiber.StatusInternalServerError, "Error opening the file")
	}
	defer blobFile.Close()

	ctx := c.UserContext()
	var src io.Reader = blobFile
	if h.archive != nil {
		url, err := h.archive.Archive(ctx, src, file.Filename)
		if err != nil {
			return h.fail(c, err)
		}
		asset, err := h.assets.UploadRemote(ctx, url)
		if err != nil {
			return h.fail(c, err)
		}
		return success(c, fiber.StatusCreated, "Successfully uploaded the file", asset)
	}

	asset, err := h.assets.Upload(ctx, src, file.Filename)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusCreated, "Successfully uploaded the file", asset)
}

func (h *Handler) ListImages(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	result, err := h.gallery.List(c.UserContext(), page, 0, c.Query("query"))
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, "Images found", result)
}

func (h *Handler) GetImage(c *fiber.Ctx) error {
	image, err := h.gallery.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, "Image found", image)
}

func (h *Handler) UpdateImage(c *fiber.Ctx) error {
	type UpdateImage struct {
		Title string `json:"title" validate:"required,max=100"`
	}

	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	var input UpdateImage
	if err := h.parse(c, &input); err != nil {
		return h.fail(c, err)
	}

	image, err := h.gallery.Rename(c.UserContext(), c.Params("id"), user.ID, input.Title)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, "Image updated", image)
}

func (h *Handler) DeleteImage(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	id := c.Params("id")
	if id == "" {
		return h.fail(c, apperrors.Invalid("id", "image id is required"))
	}

	redirect, err := h.gallery.Delete(c.UserContext(), id, user.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, "Image deleted", fiber.Map{"redirect": redirect})
}
