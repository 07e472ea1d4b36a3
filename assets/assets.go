package assets

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/krishkalaria12/snap-edit/transformations"
)

// Asset is what the media service reports for a stored original.
type Asset struct {
	PublicID  string `json:"publicId" validate:"required"`
	SecureURL string `json:"secureURL" validate:"required,url"`
	Width     int    `json:"width" validate:"gte=0"`
	Height    int    `json:"height" validate:"gte=0"`
}

// RenderRequest describes a transformed rendition of an existing asset.
type RenderRequest struct {
	PublicID string
	Width    int
	Height   int
	Config   transformations.Config
}

// Service is the external media service that stores originals and renders
// AI transformations of them.
type Service interface {
	Upload(ctx context.Context, file io.Reader, filename string) (*Asset, error)
	// UploadRemote ingests an original already reachable at sourceURL.
	UploadRemote(ctx context.Context, sourceURL string) (*Asset, error)
	Exists(ctx context.Context, publicID string) (bool, error)
	// Search returns the public ids of assets matching query inside the
	// configured folder.
	Search(ctx context.Context, query string) ([]string, error)
	RenderURL(req RenderRequest) (string, error)
}

// SearchExpression scopes a free text query to folder.
func SearchExpression(folder, query string) string {
	return fmt.Sprintf("folder=%s AND %s", folder, query)
}

// BuildTransformation renders cfg as a delivery transformation chain, one
// component per requested effect.
func BuildTransformation(req RenderRequest) string {
	cfg := req.Config
	var steps []string

	if isSet(cfg.Restore) {
		steps = append(steps, "e_gen_restore")
	}
	if isSet(cfg.RemoveBackground) {
		steps = append(steps, "e_background_removal")
	}
	if isSet(cfg.FillBackground) {
		step := "b_gen_fill,c_pad"
		if req.Width > 0 && req.Height > 0 {
			step += fmt.Sprintf(",w_%d,h_%d", req.Width, req.Height)
		}
		steps = append(steps, step)
	}
	if p := cfg.Remove; p != nil {
		steps = append(steps, "e_gen_remove:"+joinParams(
			param("prompt", p.Prompt),
			boolParam("multiple", p.Multiple),
			boolParam("remove-shadow", p.RemoveShadow),
		))
	}
	if p := cfg.Recolor; p != nil {
		steps = append(steps, "e_gen_recolor:"+joinParams(
			param("prompt", p.Prompt),
			param("to-color", colorValue(p.To)),
			boolParam("multiple", p.Multiple),
		))
	}

	if !isSet(cfg.FillBackground) && req.Width > 0 {
		steps = append(steps, fmt.Sprintf("c_limit,w_%d", req.Width))
	}
	return strings.Join(steps, "/")
}

func isSet(b *bool) bool {
	return b != nil && *b
}

func param(name string, value *string) string {
	if value == nil || *value == "" {
		return ""
	}
	return name + "_" + url.PathEscape(*value)
}

func boolParam(name string, value *bool) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%s_%t", name, *value)
}

func colorValue(c *string) *string {
	if c == nil {
		return nil
	}
	v := strings.TrimPrefix(*c, "#")
	return &v
}

func joinParams(params ...string) string {
	kept := params[:0]
	for _, p := range params {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ";")
}

// PublicIDFor derives a unique public id from an uploaded file name.
func PublicIDFor(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, base)
	if base == "" {
		base = "image"
	}
	return base + "_" + uuid.NewString()[:8]
}
