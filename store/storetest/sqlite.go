// Package storetest provides an in-memory database for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/krishkalaria12/snap-edit/models"
	"github.com/krishkalaria12/snap-edit/store"
	"github.com/krishkalaria12/snap-edit/transformations"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewRepository opens a private in-memory SQLite database, migrates it and
// wraps it in a GormRepository. One connection is kept so every query sees
// the same database.
func NewRepository(t testing.TB) (*store.GormRepository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := store.NewGormRepository(db)
	require.NoError(t, repo.Migrate())
	return repo, db
}

// SeedUser inserts a user with the given balance.
func SeedUser(t testing.TB, db *gorm.DB, clerkID string, balance int) *models.User {
	t.Helper()

	repo := store.NewGormRepository(db)
	u, err := repo.Users().Create(context.Background(), models.NewUser(clerkID, models.UserProfile{
		Email:     clerkID + "@example.com",
		Username:  clerkID,
		FirstName: "Test",
		LastName:  clerkID,
	}, balance))
	require.NoError(t, err)
	return u
}

// SeedImages inserts n images owned by authorID with strictly increasing
// update times, so the newest is images[n-1].
func SeedImages(t testing.TB, db *gorm.DB, authorID string, n int) []*models.Image {
	t.Helper()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	images := make([]*models.Image, 0, n)
	for i := 0; i < n; i++ {
		img := &models.Image{
			ID:                 uuid.NewString(),
			Title:              fmt.Sprintf("image %d", i),
			TransformationType: transformations.Restore,
			PublicID:           fmt.Sprintf("imaginify/%s-%d", authorID, i),
			SecureURL:          "https://res.cloudinary.com/demo/image/upload/sample.jpg",
			Width:              1000,
			Height:             1000,
			Config:             transformations.DefaultConfig(transformations.Restore),
			AuthorID:           authorID,
			CreatedAt:          base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:          base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(img).Error)
		images = append(images, img)
	}
	return images
}
