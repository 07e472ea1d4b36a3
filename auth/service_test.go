package auth

import (
	"context"
	"testing"
	"time"

	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/config"
	"github.com/krishkalaria12/snap-edit/events"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/models"
	"github.com/krishkalaria12/snap-edit/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	return NewService(&config.Config{JWTSecret: "test-secret", AppURL: "http://localhost:3000"})
}

func TestService_IssueAndParse(t *testing.T) {
	svc := newService()
	profile := models.UserProfile{
		Email: "ada@example.com", Username: "ada", FirstName: "Ada", LastName: "Lovelace",
	}

	tok, err := svc.Issue("user_2abc", profile)
	require.NoError(t, err)

	id, err := svc.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", id.Subject)
	assert.Equal(t, profile.Email, id.Profile.Email)
	assert.Equal(t, "Ada", id.Profile.FirstName)
	assert.Equal(t, "Lovelace", id.Profile.LastName)
}

func TestService_IssueSetsAudience(t *testing.T) {
	tok, err := newService().Issue("user_2abc", models.UserProfile{})
	require.NoError(t, err)

	claims, err := newService().auth.TokenService().Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, []string{"snap-edit"}, []string(claims.Audience))
}

func TestService_RejectsExpiredTokens(t *testing.T) {
	svc := newService()
	svc.duration = -48 * time.Hour
	tok, err := svc.Issue("user_old", models.UserProfile{})
	require.NoError(t, err)

	_, err = newService().Parse(tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestService_RejectsForeignTokens(t *testing.T) {
	other := NewService(&config.Config{JWTSecret: "other-secret"})
	tok, err := other.Issue("user_2abc", models.UserProfile{})
	require.NoError(t, err)

	_, err = newService().Parse(tok)
	assert.Error(t, err)

	_, err = newService().Parse("not-a-token")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}

func TestAccounts_ResolveProvisionsOnce(t *testing.T) {
	repo, _ := storetest.NewRepository(t)
	rec := &events.Recorder{}
	accounts := NewAccounts(repo.Users(), rec, logger.Discard(), 10)
	ctx := context.Background()
	id := &Identity{Subject: "user_new", Profile: models.UserProfile{Email: "new@example.com"}}

	first, err := accounts.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, first.CreditBalance)
	assert.Equal(t, 1, first.PlanID)

	second, err := accounts.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{events.UserCreated}, rec.Subjects())
}

func TestAccounts_UpdateAndDelete(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	storetest.SeedUser(t, db, "user_hook", 7)
	rec := &events.Recorder{}
	accounts := NewAccounts(repo.Users(), rec, logger.Discard(), 10)
	ctx := context.Background()

	updated, err := accounts.Update(ctx, "user_hook", models.UserProfile{Username: "hooked"})
	require.NoError(t, err)
	assert.Equal(t, "hooked", updated.Username)
	assert.Equal(t, 7, updated.CreditBalance)

	_, err = accounts.Delete(ctx, "user_hook")
	require.NoError(t, err)
	assert.Equal(t, []string{events.UserDeleted}, rec.Subjects())

	_, err = accounts.Delete(ctx, "user_hook")
	assert.True(t, apperrors.IsNotFound(err))
}
