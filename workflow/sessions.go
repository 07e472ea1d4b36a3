package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/assets"
	"github.com/krishkalaria12/snap-edit/events"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/metrics"
	"github.com/krishkalaria12/snap-edit/models"
	"github.com/krishkalaria12/snap-edit/store"
	"github.com/krishkalaria12/snap-edit/transformations"
)

// Invalidator drops cached reads of an image after it changes.
type Invalidator interface {
	Invalidate(ctx context.Context, imageID string)
}

type Deps struct {
	Repo          store.Repository
	Assets        assets.Service
	Events        events.Publisher
	Metrics       *metrics.Metrics
	Invalidator   Invalidator
	Log           *logger.Logger
	DebounceDelay time.Duration

	// Clock, when set, replaces time.Now.
	Clock func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// StartParams opens a form for a new image (ImageID empty) or for editing
// an existing one.
type StartParams struct {
	Type     string `json:"transformationType" validate:"required,oneof=restore removeBackground fill remove recolor"`
	ImageID  string `json:"imageId" validate:"omitempty,max=64"`
	AuthorID string `json:"-"`
}

// Sessions tracks open transformation forms. Sessions idle for longer than
// ttl are dropped by Sweep.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     *Deps
	ttl      time.Duration
}

func NewSessions(deps Deps, ttl time.Duration) *Sessions {
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	return &Sessions{
		sessions: map[string]*Session{},
		deps:     &deps,
		ttl:      ttl,
	}
}

func (r *Sessions) Start(ctx context.Context, p StartParams) (*Session, error) {
	kind, err := transformations.ParseType(p.Type)
	if err != nil {
		return nil, err
	}

	action := ActionAdd
	var image *models.Image
	if p.ImageID != "" {
		image, err = r.deps.Repo.Images().GetByID(ctx, p.ImageID)
		if err != nil {
			return nil, err
		}
		if image.AuthorID != p.AuthorID {
			return nil, apperrors.Unauthorized("update", "image")
		}
		if image.TransformationType != kind {
			return nil, apperrors.Invalid("transformationType", "does not match the image")
		}
		action = ActionUpdate
	}

	s := newSession(uuid.NewString(), r.deps, action, kind, p.AuthorID, image)

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	r.deps.Log.WithField("session_id", s.id).WithField("user_id", p.AuthorID).
		WithField("action", action).Debug("transformation session started")
	return s, nil
}

// Get returns the session id owned by authorID.
func (r *Sessions) Get(id, authorID string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok {
		return nil, apperrors.NotFound("session", id)
	}
	if s.authorID != authorID {
		return nil, apperrors.Unauthorized("edit", "session")
	}
	return s, nil
}

// Finish drops a session, cancelling any buffered edits.
func (r *Sessions) Finish(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.close()
	}
}

func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops idle sessions and returns how many were removed.
func (r *Sessions) Sweep() int {
	cutoff := r.deps.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// Run sweeps periodically until ctx is cancelled.
func (r *Sessions) Run(ctx context.Context) {
	interval := r.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.deps.Log.WithField("count", n).Debug("expired transformation sessions")
			}
		}
	}
}
