package assetstest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/assets"
)

const baseURL = "https://res.cloudinary.com/demo/image/upload"

// Fake is an in-memory assets.Service. Search matches public ids containing
// the query.
type Fake struct {
	mu      sync.Mutex
	assets  map[string]assets.Asset
	Folder  string
	Queries []string

	// Err, when set, is returned by every network call.
	Err error
	// RenderErr, when set, is returned by RenderURL.
	RenderErr error
}

func New() *Fake {
	return &Fake{assets: map[string]assets.Asset{}, Folder: "imaginify"}
}

// Add registers an existing asset.
func (f *Fake) Add(publicID string, width, height int) assets.Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := assets.Asset{
		PublicID:  publicID,
		SecureURL: fmt.Sprintf("%s/%s.jpg", baseURL, publicID),
		Width:     width,
		Height:    height,
	}
	f.assets[publicID] = a
	return a
}

func (f *Fake) Upload(ctx context.Context, file io.Reader, filename string) (*assets.Asset, error) {
	if f.Err != nil {
		return nil, apperrors.External("fake", "upload", f.Err)
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		return nil, err
	}
	a := f.Add(f.Folder+"/"+assets.PublicIDFor(filename), 1000, 1000)
	return &a, nil
}

func (f *Fake) UploadRemote(ctx context.Context, sourceURL string) (*assets.Asset, error) {
	if f.Err != nil {
		return nil, apperrors.External("fake", "upload_remote", f.Err)
	}
	a := f.Add(f.Folder+"/"+assets.PublicIDFor(sourceURL), 1000, 1000)
	return &a, nil
}

func (f *Fake) Exists(ctx context.Context, publicID string) (bool, error) {
	if f.Err != nil {
		return false, apperrors.External("fake", "exists", f.Err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.assets[publicID]
	return ok, nil
}

func (f *Fake) Search(ctx context.Context, query string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, assets.SearchExpression(f.Folder, query))
	if f.Err != nil {
		return nil, apperrors.External("fake", "search", f.Err)
	}
	ids := []string{}
	for id := range f.assets {
		if strings.Contains(id, query) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *Fake) RenderURL(req assets.RenderRequest) (string, error) {
	if f.RenderErr != nil {
		return "", apperrors.External("fake", "render", f.RenderErr)
	}
	return fmt.Sprintf("%s/%s/%s", baseURL, assets.BuildTransformation(req), req.PublicID), nil
}

var _ assets.Service = (*Fake)(nil)
