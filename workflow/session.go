package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/assets"
	"github.com/krishkalaria12/snap-edit/events"
	"github.com/krishkalaria12/snap-edit/models"
	"github.com/krishkalaria12/snap-edit/store"
	"github.com/krishkalaria12/snap-edit/transformations"
)

type State string

const (
	Idle          State = "idle"
	ConfigPending State = "configPending"
	Transforming  State = "transforming"
	Persisting    State = "persisting"
	Done          State = "done"
	Failed        State = "failed"
)

type Action string

const (
	ActionAdd    Action = "Add"
	ActionUpdate Action = "Update"
)

var (
	ErrBusy                = errors.New("a transformation is already running")
	ErrNothingPending      = errors.New("no pending transformation")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNoImage             = apperrors.Invalid("publicId", "no image uploaded")
)

// Form holds the values of the editing form.
type Form struct {
	Title       string `json:"title"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Color       string `json:"color,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	PublicID    string `json:"publicId,omitempty"`
	SecureURL   string `json:"secureURL,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

type Snapshot struct {
	ID                string                  `json:"id"`
	State             State                   `json:"state"`
	Action            Action                  `json:"action"`
	Type              transformations.Type    `json:"transformationType"`
	ImageID           string                  `json:"imageId,omitempty"`
	Form              Form                    `json:"form"`
	Config            transformations.Config  `json:"config"`
	Pending           *transformations.Config `json:"pending"`
	TransformationURL string                  `json:"transformationUrl,omitempty"`
}

// Result is returned by a successful Apply.
type Result struct {
	Image    *models.Image `json:"image"`
	Balance  int           `json:"creditBalance"`
	Redirect string        `json:"redirect"`
}

// Session is one transformation form. Config is the last applied
// configuration; pending accumulates edits until the next Apply.
type Session struct {
	mu sync.Mutex

	id       string
	action   Action
	kind     transformations.Type
	authorID string
	imageID  string

	state             State
	form              Form
	config            transformations.Config
	pending           *transformations.Config
	transformationURL string

	buffered  map[transformations.Field]string
	debouncer *Debouncer
	lastSeen  time.Time

	deps *Deps
}

func newSession(id string, deps *Deps, action Action, kind transformations.Type, authorID string, image *models.Image) *Session {
	s := &Session{
		id:       id,
		action:   action,
		kind:     kind,
		authorID: authorID,
		state:    Idle,
		config:   transformations.DefaultConfig(kind),
		buffered: map[transformations.Field]string{},
		lastSeen: deps.now(),
		deps:     deps,
	}
	if image != nil {
		s.imageID = image.ID
		s.config = image.Config.Clone()
		s.transformationURL = image.TransformationURL
		s.form = Form{
			Title:       image.Title,
			AspectRatio: image.AspectRatio,
			Color:       image.Color,
			Prompt:      image.Prompt,
			PublicID:    image.PublicID,
			SecureURL:   image.SecureURL,
			Width:       image.Width,
			Height:      image.Height,
		}
	}
	s.debouncer = NewDebouncer(deps.DebounceDelay, s.flushBuffered)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) AuthorID() string { return s.authorID }

// SetImage records the asset returned by the media uploader. Types without
// editable parameters become pending immediately.
func (s *Session) SetImage(a assets.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}

	s.form.PublicID = a.PublicID
	s.form.SecureURL = a.SecureURL
	s.form.Width = a.Width
	s.form.Height = a.Height
	if s.kind == transformations.Restore || s.kind == transformations.RemoveBackground {
		s.setPendingLocked(transformations.DefaultConfig(s.kind))
	}
	return nil
}

func (s *Session) SetTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.form.Title = title
	return nil
}

// SelectAspectRatio resizes the output of a generative fill and resets the
// pending configuration to the fill defaults.
func (s *Session) SelectAspectRatio(key string) error {
	if s.kind != transformations.Fill {
		return apperrors.Invalid("aspectRatio", "only generative fill has an aspect ratio")
	}
	ratio, ok := transformations.LookupAspectRatio(key)
	if !ok {
		return apperrors.Invalid("aspectRatio", "unknown aspect ratio")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}

	s.form.AspectRatio = ratio.Key
	s.form.Width = ratio.Width
	s.form.Height = ratio.Height
	s.setPendingLocked(transformations.DefaultConfig(s.kind))
	return nil
}

// EditField updates a form value now and folds it into the pending
// configuration once edits have been quiet for the debounce delay.
func (s *Session) EditField(field transformations.Field, value string) error {
	if _, err := transformations.FieldPatch(s.kind, field, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}

	switch field {
	case transformations.FieldPrompt:
		s.form.Prompt = value
	case transformations.FieldColor:
		s.form.Color = value
	}
	s.buffered[field] = value
	s.debouncer.Trigger()
	return nil
}

func (s *Session) flushBuffered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *Session) flushLocked() {
	if len(s.buffered) == 0 || s.busyLocked() {
		return
	}
	for _, field := range []transformations.Field{transformations.FieldPrompt, transformations.FieldColor} {
		value, ok := s.buffered[field]
		if !ok {
			continue
		}
		patch, err := transformations.FieldPatch(s.kind, field, value)
		if err != nil {
			continue
		}
		base := transformations.Config{}
		if s.pending != nil {
			base = *s.pending
		}
		s.setPendingLocked(transformations.Merge(base, &patch))
	}
	s.buffered = map[transformations.Field]string{}
}

func (s *Session) setPendingLocked(cfg transformations.Config) {
	s.pending = &cfg
	s.state = ConfigPending
	s.lastSeen = s.deps.now()
}

func (s *Session) busyLocked() bool {
	return s.state == Transforming || s.state == Persisting
}

func (s *Session) mutableLocked() error {
	if s.busyLocked() {
		return ErrBusy
	}
	s.lastSeen = s.deps.now()
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:                s.id,
		State:             s.state,
		Action:            s.action,
		Type:              s.kind,
		ImageID:           s.imageID,
		Form:              s.form,
		Config:            s.config.Clone(),
		TransformationURL: s.transformationURL,
	}
	if s.pending != nil {
		p := s.pending.Clone()
		snap.Pending = &p
	}
	return snap
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.debouncer.Stop()
}

// Apply renders the pending configuration, charges the author one credit
// and saves the image record. On failure the session keeps its previous
// configuration and pending edits so Apply can be retried.
func (s *Session) Apply(ctx context.Context) (*Result, error) {
	job, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.run(ctx, job)
	if err != nil {
		s.fail(job)
		s.deps.Metrics.Transformation(string(s.kind), "failed")
		s.deps.Log.WithError(err).WithField("session_id", s.id).WithField("user_id", s.authorID).
			Warn("transformation failed")
		return nil, err
	}

	s.finish(res)
	s.deps.Metrics.Transformation(string(s.kind), "done")
	return res, nil
}

type job struct {
	form      Form
	imageID   string
	effective transformations.Config
	prevCfg   transformations.Config
	prevPend  *transformations.Config
}

func (s *Session) begin(ctx context.Context) (*job, error) {
	s.mu.Lock()
	_, err := s.readyLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// the balance is read unlocked so a slow database does not stall the form
	author, err := s.deps.Repo.Users().GetByID(ctx, s.authorID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	effective, err := s.readyLocked()
	if err != nil {
		return nil, err
	}
	if author.CreditBalance < -transformations.CreditFee {
		return nil, ErrInsufficientCredits
	}

	j := &job{
		form:      s.form,
		imageID:   s.imageID,
		effective: effective,
		prevCfg:   s.config,
		prevPend:  s.pending,
	}
	s.config = effective
	s.pending = nil
	s.state = Transforming
	s.lastSeen = s.deps.now()
	return j, nil
}

// readyLocked checks the form can be applied and returns the configuration
// it would render.
func (s *Session) readyLocked() (transformations.Config, error) {
	if s.busyLocked() {
		return transformations.Config{}, ErrBusy
	}
	s.debouncer.Stop()
	s.flushLocked()

	if s.pending == nil || s.pending.IsEmpty() {
		return transformations.Config{}, ErrNothingPending
	}
	if s.form.PublicID == "" {
		return transformations.Config{}, ErrNoImage
	}
	if s.form.Title == "" {
		return transformations.Config{}, apperrors.Invalid("title", "title is required")
	}

	effective := transformations.Merge(s.config, s.pending)
	if err := effective.Validate(s.kind); err != nil {
		return transformations.Config{}, err
	}
	return effective, nil
}

func (s *Session) run(ctx context.Context, j *job) (*Result, error) {
	url, err := s.deps.Assets.RenderURL(assets.RenderRequest{
		PublicID: j.form.PublicID,
		Width:    j.form.Width,
		Height:   j.form.Height,
		Config:   j.effective,
	})
	if err != nil {
		return nil, err
	}
	exists, err := s.deps.Assets.Exists(ctx, j.form.PublicID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.Invalid("publicId", "image is not stored in the media service")
	}

	s.setState(Persisting)

	image := &models.Image{
		ID:                 j.imageID,
		Title:              j.form.Title,
		TransformationType: s.kind,
		PublicID:           j.form.PublicID,
		SecureURL:          j.form.SecureURL,
		Width:              j.form.Width,
		Height:             j.form.Height,
		Config:             j.effective,
		TransformationURL:  url,
		AspectRatio:        j.form.AspectRatio,
		Color:              j.form.Color,
		Prompt:             j.form.Prompt,
	}

	var balance int
	err = s.deps.Repo.Atomically(ctx, func(r store.Repository) error {
		var err error
		if balance, err = r.Ledger().Debit(ctx, s.authorID, transformations.CreditFee); err != nil {
			return err
		}
		if s.action == ActionUpdate {
			image, err = r.Images().Update(ctx, image, s.authorID)
		} else {
			image, err = r.Images().Create(ctx, image, s.authorID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, image, balance)
	return &Result{
		Image:    image,
		Balance:  balance,
		Redirect: "/transformations/" + image.ID,
	}, nil
}

func (s *Session) afterCommit(ctx context.Context, image *models.Image, balance int) {
	if s.deps.Invalidator != nil {
		s.deps.Invalidator.Invalidate(ctx, image.ID)
	}

	subject := events.ImageCreated
	if s.action == ActionUpdate {
		subject = events.ImageUpdated
	}
	s.publish(ctx, subject, events.ImagePayload{
		ImageID: image.ID, AuthorID: s.authorID, TransformationType: string(s.kind),
	})
	s.publish(ctx, events.CreditDebited, events.CreditPayload{
		UserID: s.authorID, Amount: transformations.CreditFee, Balance: balance,
	})
}

func (s *Session) publish(ctx context.Context, subject string, payload any) {
	if err := s.deps.Events.Publish(ctx, subject, payload); err != nil {
		s.deps.Log.WithError(err).WithField("subject", subject).Warn("publish failed")
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) fail(j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Failed
	s.config = j.prevCfg
	s.pending = j.prevPend
}

func (s *Session) finish(res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Done
	// applying again edits the saved record
	s.action = ActionUpdate
	s.imageID = res.Image.ID
	s.transformationURL = res.Image.TransformationURL
	s.lastSeen = s.deps.now()
}
