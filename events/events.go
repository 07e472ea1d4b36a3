package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/nats-io/nats.go"
)

const (
	ImageCreated  = "images.created"
	ImageUpdated  = "images.updated"
	ImageDeleted  = "images.deleted"
	CreditDebited = "credits.debited"
	UserCreated   = "users.created"
	UserDeleted   = "users.deleted"
)

// Publisher announces domain changes. Publishing is best effort: callers
// log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type ImagePayload struct {
	ImageID            string `json:"imageId"`
	AuthorID           string `json:"authorId"`
	TransformationType string `json:"transformationType,omitempty"`
}

type CreditPayload struct {
	UserID  string `json:"userId"`
	Amount  int    `json:"amount"`
	Balance int    `json:"balance"`
}

type UserPayload struct {
	UserID  string `json:"userId"`
	ClerkID string `json:"clerkId"`
}

type envelope struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// NATS publishes JSON envelopes on a shared connection.
type NATS struct {
	nc  *nats.Conn
	log *logger.Logger
}

func ConnectNATS(url string, log *logger.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("snap-edit"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATS{nc: nc, log: log}, nil
}

func (p *NATS) Publish(ctx context.Context, subject string, payload any) error {
	if p.nc == nil || !p.nc.IsConnected() {
		return nats.ErrConnectionClosed
	}
	b, err := json.Marshal(envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: payload})
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, b); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	p.log.WithField("subject", subject).Debug("event published")
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATS) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

type Event struct {
	Subject string
	Payload any
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Subject: subject, Payload: payload})
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Subjects lists the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Subject)
	}
	return out
}
