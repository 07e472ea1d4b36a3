package auth

import (
	"context"

	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/events"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/models"
	"github.com/krishkalaria12/snap-edit/store"
)

// Accounts keeps local users in step with the identity provider.
type Accounts struct {
	users          store.UserStore
	events         events.Publisher
	log            *logger.Logger
	initialCredits int
}

func NewAccounts(users store.UserStore, pub events.Publisher, log *logger.Logger, initialCredits int) *Accounts {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Accounts{users: users, events: pub, log: log, initialCredits: initialCredits}
}

// Resolve returns the local user for id, creating it on first sign-in.
func (a *Accounts) Resolve(ctx context.Context, id *Identity) (*models.User, error) {
	user, err := a.users.GetByClerkID(ctx, id.Subject)
	if err == nil {
		return user, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}
	return a.Provision(ctx, id.Subject, id.Profile)
}

// Provision creates the user for clerkID unless it already exists.
func (a *Accounts) Provision(ctx context.Context, clerkID string, profile models.UserProfile) (*models.User, error) {
	user, err := a.users.Create(ctx, models.NewUser(clerkID, profile, a.initialCredits))
	if err != nil {
		return nil, err
	}
	a.log.WithField("user_id", user.ID).WithField("clerk_id", clerkID).Info("user provisioned")
	if err := a.events.Publish(ctx, events.UserCreated, events.UserPayload{UserID: user.ID, ClerkID: clerkID}); err != nil {
		a.log.WithError(err).Warn("publish failed")
	}
	return user, nil
}

func (a *Accounts) Update(ctx context.Context, clerkID string, profile models.UserProfile) (*models.User, error) {
	return a.users.UpdateByClerkID(ctx, clerkID, profile)
}

// Delete removes the user. Their images are left in place.
func (a *Accounts) Delete(ctx context.Context, clerkID string) (*models.User, error) {
	user, err := a.users.DeleteByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if err := a.events.Publish(ctx, events.UserDeleted, events.UserPayload{UserID: user.ID, ClerkID: clerkID}); err != nil {
		a.log.WithError(err).Warn("publish failed")
	}
	return user, nil
}
