package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/models"
	"gorm.io/gorm"
)

// GormRepository stores users and images in a relational database.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the users and images tables.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&models.User{}, &models.Image{})
}

func (r *GormRepository) Users() UserStore {
	return &gormUsers{db: r.db}
}

func (r *GormRepository) Images() ImageStore {
	return &gormImages{db: r.db}
}

func (r *GormRepository) Ledger() Ledger {
	return &gormLedger{db: r.db}
}

func (r *GormRepository) Atomically(ctx context.Context, fn func(r Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}

type gormUsers struct {
	db *gorm.DB
}

func (s *gormUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	db := s.db.WithContext(ctx)

	existing, err := s.GetByClerkID(ctx, u.ClerkID)
	if err == nil {
		return existing, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := db.Create(u).Error; err != nil {
		// lost a race with a concurrent sign-in for the same subject
		if existing, lookupErr := s.GetByClerkID(ctx, u.ClerkID); lookupErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *gormUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *gormUsers) GetByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user", clerkID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *gormUsers) UpdateByClerkID(ctx context.Context, clerkID string, profile models.UserProfile) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("clerk_id = ?", clerkID).Updates(map[string]any{
		"email":      profile.Email,
		"username":   profile.Username,
		"photo":      profile.Photo,
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("user", clerkID)
	}
	return s.GetByClerkID(ctx, clerkID)
}

func (s *gormUsers) DeleteByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	user, err := s.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return user, nil
}

type gormLedger struct {
	db *gorm.DB
}

func (l *gormLedger) Debit(ctx context.Context, userID string, amount int) (int, error) {
	var balance int
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("credit_balance", gorm.Expr("credit_balance + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to update credits: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("user", userID)
		}
		// the row stays locked by the update until commit
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Select("credit_balance").Scan(&balance).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

type gormImages struct {
	db *gorm.DB
}

func (s *gormImages) Create(ctx context.Context, image *models.Image, authorID string) (*models.Image, error) {
	db := s.db.WithContext(ctx)

	var authors int64
	if err := db.Model(&models.User{}).Where("id = ?", authorID).Count(&authors).Error; err != nil {
		return nil, fmt.Errorf("failed to look up author: %w", err)
	}
	if authors == 0 {
		return nil, apperrors.NotFound("user", authorID)
	}

	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	image.AuthorID = authorID
	image.Author = nil
	if err := db.Create(image).Error; err != nil {
		return nil, fmt.Errorf("failed to create image: %w", err)
	}
	return image, nil
}

func (s *gormImages) Update(ctx context.Context, image *models.Image, expectedAuthorID string) (*models.Image, error) {
	db := s.db.WithContext(ctx)

	var stored models.Image
	if err := db.Where("id = ?", image.ID).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("image", image.ID)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if stored.AuthorID != expectedAuthorID {
		return nil, apperrors.Unauthorized("update", "image")
	}

	image.AuthorID = stored.AuthorID
	image.CreatedAt = stored.CreatedAt
	image.Author = nil
	if err := db.Save(image).Error; err != nil {
		return nil, fmt.Errorf("failed to update image: %w", err)
	}
	return image, nil
}

func (s *gormImages) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Image{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("image", id)
	}
	return nil
}

func (s *gormImages) GetByID(ctx context.Context, id string) (*models.Image, error) {
	db := s.db.WithContext(ctx)

	var image models.Image
	if err := db.Where("id = ?", id).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("image", id)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if err := populateAuthors(db, []*models.Image{&image}); err != nil {
		return nil, err
	}
	return &image, nil
}

func (s *gormImages) List(ctx context.Context, q ListQuery) (*ImagePage, error) {
	db := s.db.WithContext(ctx)
	page, pageSize := Normalize(q.Page, q.PageSize)

	filter := func(tx *gorm.DB) *gorm.DB {
		if q.FilterPublicIDs {
			return tx.Where("public_id IN ?", q.PublicIDs)
		}
		return tx
	}

	var total int64
	if err := db.Model(&models.Image{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	items := []*models.Image{}
	if err := db.Scopes(filter).
		Order("updated_at DESC").Order("created_at DESC").
		Offset(offset(page, pageSize)).Limit(pageSize).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if err := populateAuthors(db, items); err != nil {
		return nil, err
	}

	var saved int64
	if err := db.Model(&models.Image{}).Count(&saved).Error; err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	return &ImagePage{
		Items:       items,
		TotalPages:  TotalPages(total, pageSize),
		TotalCount:  total,
		SavedImages: saved,
	}, nil
}

func (s *gormImages) ListByAuthor(ctx context.Context, authorID string, page, pageSize int) (*ImagePage, error) {
	db := s.db.WithContext(ctx)
	page, pageSize = Normalize(page, pageSize)

	var total int64
	if err := db.Model(&models.Image{}).Where("author_id = ?", authorID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	items := []*models.Image{}
	if err := db.Where("author_id = ?", authorID).
		Order("updated_at DESC").Order("created_at DESC").
		Offset(offset(page, pageSize)).Limit(pageSize).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	return &ImagePage{
		Items:      items,
		TotalPages: TotalPages(total, pageSize),
		TotalCount: total,
	}, nil
}

func populateAuthors(db *gorm.DB, images []*models.Image) error {
	if len(images) == 0 {
		return nil
	}
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.AuthorID)
	}

	var users []models.User
	if err := db.Select("id", "first_name", "last_name", "clerk_id").
		Where("id IN ?", ids).Find(&users).Error; err != nil {
		return fmt.Errorf("failed to load authors: %w", err)
	}

	byID := make(map[string]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for _, img := range images {
		if u, ok := byID[img.AuthorID]; ok {
			img.Author = u.Author()
		}
	}
	return nil
}
