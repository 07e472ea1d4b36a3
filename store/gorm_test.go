package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/models"
	"github.com/krishkalaria12/snap-edit/store"
	"github.com/krishkalaria12/snap-edit/store/storetest"
	"github.com/krishkalaria12/snap-edit/transformations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_ConcurrentDebits(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	user := storetest.SeedUser(t, db, "user_concurrent", 20)
	ctx := context.Background()

	const n = 15
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Ledger().Debit(ctx, user.ID, transformations.CreditFee)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20-n, stored.CreditBalance)
}

func TestLedger_ReturnsNewBalanceAndAllowsNegative(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	user := storetest.SeedUser(t, db, "user_negative", 1)
	ctx := context.Background()

	balance, err := repo.Ledger().Debit(ctx, user.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	balance, err = repo.Ledger().Debit(ctx, user.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, balance)
}

func TestLedger_UnknownUser(t *testing.T) {
	repo, _ := storetest.NewRepository(t)

	_, err := repo.Ledger().Debit(context.Background(), "missing", -1)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUsers_CreateIsIdempotentOnClerkID(t *testing.T) {
	repo, _ := storetest.NewRepository(t)
	ctx := context.Background()

	first, err := repo.Users().Create(ctx, models.NewUser("user_1", models.UserProfile{Email: "a@example.com"}, 10))
	require.NoError(t, err)
	second, err := repo.Users().Create(ctx, models.NewUser("user_1", models.UserProfile{Email: "b@example.com"}, 10))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a@example.com", second.Email)
	assert.Equal(t, 10, second.CreditBalance)
}

func TestUsers_UpdateAndDeleteByClerkID(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	storetest.SeedUser(t, db, "user_2", 10)
	ctx := context.Background()

	updated, err := repo.Users().UpdateByClerkID(ctx, "user_2", models.UserProfile{
		Email: "new@example.com", Username: "newname", FirstName: "New", LastName: "Name",
	})
	require.NoError(t, err)
	assert.Equal(t, "newname", updated.Username)
	assert.Equal(t, 10, updated.CreditBalance)

	_, err = repo.Users().UpdateByClerkID(ctx, "nobody", models.UserProfile{})
	assert.True(t, apperrors.IsNotFound(err))

	deleted, err := repo.Users().DeleteByClerkID(ctx, "user_2")
	require.NoError(t, err)
	assert.Equal(t, "user_2", deleted.ClerkID)

	_, err = repo.Users().GetByClerkID(ctx, "user_2")
	assert.True(t, apperrors.IsNotFound(err))
}

func newImage() *models.Image {
	return &models.Image{
		Title:              "car",
		TransformationType: transformations.Remove,
		PublicID:           "imaginify/car",
		SecureURL:          "https://res.cloudinary.com/demo/image/upload/imaginify/car.jpg",
		Width:              1000,
		Height:             1000,
		Config:             transformations.DefaultConfig(transformations.Remove),
		Prompt:             "car",
	}
}

func TestImages_CreateRequiresAuthor(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	ctx := context.Background()

	_, err := repo.Images().Create(ctx, newImage(), "missing")
	assert.True(t, apperrors.IsNotFound(err))

	author := storetest.SeedUser(t, db, "user_author", 10)
	created, err := repo.Images().Create(ctx, newImage(), author.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.Images().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, author.ID, got.AuthorID)
	require.NotNil(t, got.Author)
	assert.Equal(t, "user_author", got.Author.ClerkID)
	assert.Equal(t, transformations.DefaultConfig(transformations.Remove), got.Config)
}

func TestImages_UpdateByNonOwnerIsRejected(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	ctx := context.Background()
	owner := storetest.SeedUser(t, db, "user_owner", 10)
	other := storetest.SeedUser(t, db, "user_other", 10)

	created, err := repo.Images().Create(ctx, newImage(), owner.ID)
	require.NoError(t, err)

	changed := *created
	changed.Title = "stolen"
	_, err = repo.Images().Update(ctx, &changed, other.ID)
	assert.True(t, apperrors.IsUnauthorized(err))

	stored, err := repo.Images().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "car", stored.Title)
}

func TestImages_UpdateOverwritesMutableFields(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	ctx := context.Background()
	owner := storetest.SeedUser(t, db, "user_owner", 10)

	created, err := repo.Images().Create(ctx, newImage(), owner.ID)
	require.NoError(t, err)

	changed := *created
	changed.Title = "truck"
	changed.Prompt = ""
	changed.Config = transformations.Config{Remove: &transformations.RemoveParams{Prompt: transformations.String("truck")}}
	_, err = repo.Images().Update(ctx, &changed, owner.ID)
	require.NoError(t, err)

	stored, err := repo.Images().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "truck", stored.Title)
	assert.Empty(t, stored.Prompt)
	assert.Equal(t, "truck", *stored.Config.Remove.Prompt)
	assert.Nil(t, stored.Config.Remove.Multiple)

	missing := *created
	missing.ID = "missing"
	_, err = repo.Images().Update(ctx, &missing, owner.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestImages_Delete(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	ctx := context.Background()
	owner := storetest.SeedUser(t, db, "user_owner", 10)
	images := storetest.SeedImages(t, db, owner.ID, 1)

	require.NoError(t, repo.Images().Delete(ctx, images[0].ID))
	assert.True(t, apperrors.IsNotFound(repo.Images().Delete(ctx, images[0].ID)))
}

func TestImages_ListByAuthorPagination(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	ctx := context.Background()
	author := storetest.SeedUser(t, db, "user_pages", 10)
	other := storetest.SeedUser(t, db, "user_else", 10)
	images := storetest.SeedImages(t, db, author.ID, 20)
	storetest.SeedImages(t, db, other.ID, 3)

	page, err := repo.Images().ListByAuthor(ctx, author.ID, 3, 9)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.TotalPages)
	assert.EqualValues(t, 20, page.TotalCount)
	// oldest two land on the last page
	assert.Equal(t, images[1].ID, page.Items[0].ID)
	assert.Equal(t, images[0].ID, page.Items[1].ID)

	page, err = repo.Images().ListByAuthor(ctx, author.ID, 5, 9)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.TotalPages)

	page, err = repo.Images().ListByAuthor(ctx, author.ID, 1, 9)
	require.NoError(t, err)
	require.Len(t, page.Items, 9)
	assert.Equal(t, images[19].ID, page.Items[0].ID)
}

func TestImages_ListFiltersByPublicID(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	ctx := context.Background()
	author := storetest.SeedUser(t, db, "user_list", 10)
	images := storetest.SeedImages(t, db, author.ID, 5)

	page, err := repo.Images().List(ctx, store.ListQuery{Page: 1, PageSize: 9})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.EqualValues(t, 5, page.SavedImages)
	require.NotNil(t, page.Items[0].Author)

	page, err = repo.Images().List(ctx, store.ListQuery{
		Page: 1, PageSize: 9, FilterPublicIDs: true,
		PublicIDs: []string{images[1].PublicID, images[3].PublicID, "imaginify/elsewhere"},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, images[3].ID, page.Items[0].ID)
	assert.EqualValues(t, 2, page.TotalCount)
	assert.EqualValues(t, 5, page.SavedImages)
	assert.Equal(t, 1, page.TotalPages)

	page, err = repo.Images().List(ctx, store.ListQuery{Page: 1, FilterPublicIDs: true, PublicIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalPages)
}

func TestAtomically_RollsBackDebitWhenPersistFails(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	ctx := context.Background()
	user := storetest.SeedUser(t, db, "user_tx", 5)

	err := repo.Atomically(ctx, func(r store.Repository) error {
		if _, err := r.Ledger().Debit(ctx, user.ID, -1); err != nil {
			return err
		}
		_, err := r.Images().Create(ctx, newImage(), "missing-author")
		return err
	})
	require.Error(t, err)

	stored, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.CreditBalance)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, store.TotalPages(0, 9))
	assert.Equal(t, 1, store.TotalPages(9, 9))
	assert.Equal(t, 3, store.TotalPages(20, 9))
	assert.Equal(t, 0, store.TotalPages(5, 0))
}
