package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("saving: %w", NotFound("image", "img_1"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsUnauthorized(wrapped))

	assert.True(t, IsUnauthorized(fmt.Errorf("x: %w", Unauthorized("update", "image"))))
	assert.True(t, IsValidation(Invalid("title", "is required")))
	assert.False(t, IsExternal(errors.New("plain")))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, `image "img_1" not found`, NotFound("image", "img_1").Error())
	assert.Equal(t, "not allowed to delete image", Unauthorized("delete", "image").Error())
	assert.Equal(t, "title: is required", Invalid("title", "is required").Error())
	assert.Equal(t, "invalid input", Invalid("", "invalid input").Error())
}

func TestExternalUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	err := External("cloudinary", "search", cause)
	assert.True(t, IsExternal(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cloudinary search: timeout", err.Error())
}
