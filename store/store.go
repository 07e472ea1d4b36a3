package store

import (
	"context"

	"github.com/krishkalaria12/snap-edit/models"
)

const DefaultPageSize = 9

// UserStore persists users keyed by internal id and external subject id.
type UserStore interface {
	// Create inserts u unless a user with the same ClerkID exists, in which
	// case the stored user is returned.
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	UpdateByClerkID(ctx context.Context, clerkID string, profile models.UserProfile) (*models.User, error)
	DeleteByClerkID(ctx context.Context, clerkID string) (*models.User, error)
}

// ImageStore persists image records owned by users.
type ImageStore interface {
	Create(ctx context.Context, image *models.Image, authorID string) (*models.Image, error)
	Update(ctx context.Context, image *models.Image, expectedAuthorID string) (*models.Image, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Image, error)
	List(ctx context.Context, q ListQuery) (*ImagePage, error)
	ListByAuthor(ctx context.Context, authorID string, page, pageSize int) (*ImagePage, error)
}

// Ledger applies signed credit deltas to a user's balance. The update is a
// single increment in the database, so concurrent debits are never lost.
// Negative results are allowed.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int) (int, error)
}

// Repository groups the stores sharing one connection pool.
type Repository interface {
	Users() UserStore
	Images() ImageStore
	Ledger() Ledger
	// Atomically runs fn against stores bound to a single transaction.
	Atomically(ctx context.Context, fn func(r Repository) error) error
}

// ListQuery selects a page of images, newest update first. When
// FilterPublicIDs is set only images whose PublicID is in PublicIDs match.
type ListQuery struct {
	Page            int
	PageSize        int
	FilterPublicIDs bool
	PublicIDs       []string
}

type ImagePage struct {
	Items       []*models.Image `json:"data"`
	TotalPages  int             `json:"totalPage"`
	TotalCount  int64           `json:"totalCount"`
	SavedImages int64           `json:"savedImages,omitempty"`
}

// Normalize clamps page and pageSize to usable values.
func Normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

func offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

func TotalPages(count int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	return int((count + int64(pageSize) - 1) / int64(pageSize))
}
