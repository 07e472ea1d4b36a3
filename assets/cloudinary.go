package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/admin/search"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/config"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/metrics"
)

const (
	serviceName   = "cloudinary"
	maxSearchHits = 500
)

// Cloudinary implements Service on top of the Cloudinary SDK. Every network
// call runs under its own timeout and is retried with exponential backoff.
type Cloudinary struct {
	cld     *cloudinary.Cloudinary
	folder  string
	timeout time.Duration
	retry   *repeater.Repeater
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewCloudinary builds the client. m may be nil.
func NewCloudinary(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true
	cld.Config.URL.Analytics = false

	return &Cloudinary{
		cld:     cld,
		folder:  cfg.AssetFolder,
		timeout: cfg.ExternalTimeout,
		retry: repeater.New(&strategy.Backoff{
			Duration: 200 * time.Millisecond,
			Repeats:  3,
			Factor:   2,
			Jitter:   true,
		}),
		log:     log,
		metrics: m,
	}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, filename string) (*Asset, error) {
	// buffered so every attempt sends the whole file
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return c.upload(ctx, "upload", func() any { return bytes.NewReader(data) }, filename)
}

func (c *Cloudinary) UploadRemote(ctx context.Context, sourceURL string) (*Asset, error) {
	return c.upload(ctx, "upload_remote", func() any { return sourceURL }, "")
}

func (c *Cloudinary) upload(ctx context.Context, op string, source func() any, filename string) (*Asset, error) {
	params := uploader.UploadParams{
		Folder:    c.folder,
		Overwrite: api.Bool(false),
	}
	if filename != "" {
		params.PublicID = PublicIDFor(filename)
	}

	var res *uploader.UploadResult
	err := c.call(ctx, op, func(ctx context.Context) error {
		r, err := c.cld.Upload.Upload(ctx, source(), params)
		if err != nil {
			return err
		}
		if r.Error.Message != "" {
			return errors.New(r.Error.Message)
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Asset{
		PublicID:  res.PublicID,
		SecureURL: res.SecureURL,
		Width:     res.Width,
		Height:    res.Height,
	}, nil
}

func (c *Cloudinary) Exists(ctx context.Context, publicID string) (bool, error) {
	found := false
	err := c.call(ctx, "exists", func(ctx context.Context) error {
		r, err := c.cld.Admin.Asset(ctx, admin.AssetParams{PublicID: publicID})
		if err != nil {
			return err
		}
		if msg := r.Error.Message; msg != "" {
			if strings.Contains(strings.ToLower(msg), "not found") {
				found = false
				return nil
			}
			return errors.New(msg)
		}
		found = r.PublicID != ""
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (c *Cloudinary) Search(ctx context.Context, query string) ([]string, error) {
	expr := SearchExpression(c.folder, query)

	var ids []string
	err := c.call(ctx, "search", func(ctx context.Context) error {
		r, err := c.cld.Admin.Search(ctx, search.Query{Expression: expr, MaxResults: maxSearchHits})
		if err != nil {
			return err
		}
		if r.Error.Message != "" {
			return errors.New(r.Error.Message)
		}
		ids = make([]string, 0, len(r.Assets))
		for _, a := range r.Assets {
			ids = append(ids, a.PublicID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RenderURL builds the delivery URL locally; no request is made.
func (c *Cloudinary) RenderURL(req RenderRequest) (string, error) {
	img, err := c.cld.Image(req.PublicID)
	if err != nil {
		return "", apperrors.External(serviceName, "render", err)
	}
	img.Transformation = BuildTransformation(req)

	u, err := img.String()
	if err != nil {
		return "", apperrors.External(serviceName, "render", err)
	}
	return u, nil
}

func (c *Cloudinary) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	err := c.retry.Do(ctx, func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		err := fn(callCtx)
		if err != nil {
			c.log.WithError(err).WithField("op", op).WithField("attempt", attempt).Warn("cloudinary call failed")
		}
		return err
	})
	if err != nil {
		c.metrics.ExternalFailure(op)
		return apperrors.External(serviceName, op, err)
	}
	return nil
}
