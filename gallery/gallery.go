package gallery

import (
	"context"
	"strings"

	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/assets"
	"github.com/krishkalaria12/snap-edit/cache"
	"github.com/krishkalaria12/snap-edit/events"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/models"
	"github.com/krishkalaria12/snap-edit/store"
)

// HomeRedirect is where clients go after deleting an image.
const HomeRedirect = "/"

// Service serves image reads and owner mutations outside the
// transformation workflow.
type Service struct {
	repo   store.Repository
	assets assets.Service
	cache  *cache.Cache
	events events.Publisher
	log    *logger.Logger

	// When set, Delete logs store failures and still reports success.
	swallowDeleteErrors bool
}

type Options struct {
	Cache               *cache.Cache
	Events              events.Publisher
	SwallowDeleteErrors bool
}

func New(repo store.Repository, svc assets.Service, log *logger.Logger, opts Options) *Service {
	pub := opts.Events
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{
		repo:                repo,
		assets:              svc,
		cache:               opts.Cache,
		events:              pub,
		log:                 log,
		swallowDeleteErrors: opts.SwallowDeleteErrors,
	}
}

// List returns a page of all images, newest update first. A non-empty query
// is first resolved against the media service and only matching records
// are returned.
func (s *Service) List(ctx context.Context, page, pageSize int, query string) (*store.ImagePage, error) {
	page, pageSize = store.Normalize(page, pageSize)
	query = strings.TrimSpace(query)

	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.log.WithError(err).Warn("cache generation lookup failed")
	}
	key := cache.ListKey(gen, page, pageSize, query)

	var cached store.ImagePage
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.WithError(err).Warn("cache read failed")
	} else if ok {
		return &cached, nil
	}

	q := store.ListQuery{Page: page, PageSize: pageSize}
	if query != "" {
		ids, err := s.assets.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		q.FilterPublicIDs = true
		q.PublicIDs = ids
	}

	result, err := s.repo.Images().List(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, result); err != nil {
		s.log.WithError(err).Warn("cache write failed")
	}
	return result, nil
}

func (s *Service) ListByAuthor(ctx context.Context, authorID string, page, pageSize int) (*store.ImagePage, error) {
	return s.repo.Images().ListByAuthor(ctx, authorID, page, pageSize)
}

// Get returns one image with its author populated.
func (s *Service) Get(ctx context.Context, id string) (*models.Image, error) {
	var cached models.Image
	if ok, err := s.cache.Get(ctx, cache.ImageKey(id), &cached); err != nil {
		s.log.WithError(err).Warn("cache read failed")
	} else if ok {
		return &cached, nil
	}

	image, err := s.repo.Images().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.ImageKey(id), image); err != nil {
		s.log.WithError(err).Warn("cache write failed")
	}
	return image, nil
}

// Rename changes the title of an image owned by requesterID.
func (s *Service) Rename(ctx context.Context, id, requesterID, title string) (*models.Image, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.Invalid("title", "title is required")
	}

	image, err := s.repo.Images().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	image.Title = title

	updated, err := s.repo.Images().Update(ctx, image, requesterID)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, id)
	s.publish(ctx, events.ImageUpdated, events.ImagePayload{
		ImageID: id, AuthorID: updated.AuthorID, TransformationType: string(updated.TransformationType),
	})
	return updated, nil
}

// Delete removes an image owned by requesterID and returns where the client
// should go next. Ownership violations are always reported.
func (s *Service) Delete(ctx context.Context, id, requesterID string) (string, error) {
	err := s.delete(ctx, id, requesterID)
	if err == nil {
		return HomeRedirect, nil
	}
	if apperrors.IsUnauthorized(err) || !s.swallowDeleteErrors {
		return "", err
	}
	s.log.WithError(err).WithField("image_id", id).Error("delete image failed")
	return HomeRedirect, nil
}

func (s *Service) delete(ctx context.Context, id, requesterID string) error {
	image, err := s.repo.Images().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if image.AuthorID != requesterID {
		return apperrors.Unauthorized("delete", "image")
	}
	if err := s.repo.Images().Delete(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx, id)
	s.publish(ctx, events.ImageDeleted, events.ImagePayload{ImageID: id, AuthorID: image.AuthorID})
	return nil
}

// Invalidate drops cached reads touching image id.
func (s *Service) Invalidate(ctx context.Context, id string) {
	if err := s.cache.InvalidateImage(ctx, id); err != nil {
		s.log.WithError(err).WithField("image_id", id).Warn("cache invalidation failed")
	}
}

func (s *Service) publish(ctx context.Context, subject string, payload any) {
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.log.WithError(err).WithField("subject", subject).Warn("publish failed")
	}
}
