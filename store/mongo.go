package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores users and images as documents in the "users" and
// "images" collections.
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
	// set while running inside Atomically
	session mongo.SessionContext
}

func NewMongoRepository(client *mongo.Client, database string) *MongoRepository {
	return &MongoRepository{client: client, db: client.Database(database)}
}

// EnsureIndexes creates the lookup indexes used by the stores.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "clerkId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to index users: %w", err)
	}
	if _, err := r.db.Collection("images").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "publicId", Value: 1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to index images: %w", err)
	}
	return nil
}

func (r *MongoRepository) Users() UserStore {
	return &mongoUsers{repo: r, col: r.db.Collection("users")}
}

func (r *MongoRepository) Images() ImageStore {
	return &mongoImages{repo: r, col: r.db.Collection("images"), users: r.db.Collection("users")}
}

func (r *MongoRepository) Ledger() Ledger {
	return &mongoLedger{repo: r, col: r.db.Collection("users")}
}

// Atomically runs fn in a multi-document transaction. The deployment must be
// a replica set or sharded cluster.
func (r *MongoRepository) Atomically(ctx context.Context, fn func(r Repository) error) error {
	if r.session != nil {
		return fn(r)
	}
	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&MongoRepository{client: r.client, db: r.db, session: sc})
	})
	return err
}

func (r *MongoRepository) ctx(ctx context.Context) context.Context {
	if r.session != nil {
		return r.session
	}
	return ctx
}

type mongoUsers struct {
	repo *MongoRepository
	col  *mongo.Collection
}

func (s *mongoUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
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
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := s.col.InsertOne(s.repo.ctx(ctx), u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return s.GetByClerkID(ctx, u.ClerkID)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *mongoUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, id)
}

func (s *mongoUsers) GetByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"clerkId": clerkID}, clerkID)
}

func (s *mongoUsers) findOne(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(s.repo.ctx(ctx), filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user", key)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *mongoUsers) UpdateByClerkID(ctx context.Context, clerkID string, profile models.UserProfile) (*models.User, error) {
	var user models.User
	err := s.col.FindOneAndUpdate(s.repo.ctx(ctx),
		bson.M{"clerkId": clerkID},
		bson.M{"$set": bson.M{
			"email":     profile.Email,
			"username":  profile.Username,
			"photo":     profile.Photo,
			"firstName": profile.FirstName,
			"lastName":  profile.LastName,
			"updatedAt": time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user", clerkID)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

func (s *mongoUsers) DeleteByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	var user models.User
	if err := s.col.FindOneAndDelete(s.repo.ctx(ctx), bson.M{"clerkId": clerkID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user", clerkID)
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return &user, nil
}

type mongoLedger struct {
	repo *MongoRepository
	col  *mongo.Collection
}

func (l *mongoLedger) Debit(ctx context.Context, userID string, amount int) (int, error) {
	var user models.User
	err := l.col.FindOneAndUpdate(l.repo.ctx(ctx),
		bson.M{"_id": userID},
		bson.M{
			"$inc": bson.M{"creditBalance": amount},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, apperrors.NotFound("user", userID)
		}
		return 0, fmt.Errorf("failed to update credits: %w", err)
	}
	return user.CreditBalance, nil
}

type mongoImages struct {
	repo  *MongoRepository
	col   *mongo.Collection
	users *mongo.Collection
}

func (s *mongoImages) Create(ctx context.Context, image *models.Image, authorID string) (*models.Image, error) {
	ctx = s.repo.ctx(ctx)

	n, err := s.users.CountDocuments(ctx, bson.M{"_id": authorID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up author: %w", err)
	}
	if n == 0 {
		return nil, apperrors.NotFound("user", authorID)
	}

	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	image.AuthorID = authorID
	image.CreatedAt, image.UpdatedAt = now, now
	image.Author = nil
	if _, err := s.col.InsertOne(ctx, image); err != nil {
		return nil, fmt.Errorf("failed to create image: %w", err)
	}
	return image, nil
}

func (s *mongoImages) Update(ctx context.Context, image *models.Image, expectedAuthorID string) (*models.Image, error) {
	ctx = s.repo.ctx(ctx)

	var stored models.Image
	if err := s.col.FindOne(ctx, bson.M{"_id": image.ID}).Decode(&stored); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("image", image.ID)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if stored.AuthorID != expectedAuthorID {
		return nil, apperrors.Unauthorized("update", "image")
	}

	image.AuthorID = stored.AuthorID
	image.CreatedAt = stored.CreatedAt
	image.UpdatedAt = time.Now().UTC()
	image.Author = nil
	if _, err := s.col.ReplaceOne(ctx, bson.M{"_id": image.ID}, image); err != nil {
		return nil, fmt.Errorf("failed to update image: %w", err)
	}
	return image, nil
}

func (s *mongoImages) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(s.repo.ctx(ctx), bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("image", id)
	}
	return nil
}

func (s *mongoImages) GetByID(ctx context.Context, id string) (*models.Image, error) {
	ctx = s.repo.ctx(ctx)

	var image models.Image
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&image); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("image", id)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if err := s.populateAuthors(ctx, []*models.Image{&image}); err != nil {
		return nil, err
	}
	return &image, nil
}

func (s *mongoImages) List(ctx context.Context, q ListQuery) (*ImagePage, error) {
	ctx = s.repo.ctx(ctx)
	page, pageSize := Normalize(q.Page, q.PageSize)

	filter := bson.M{}
	if q.FilterPublicIDs {
		ids := q.PublicIDs
		if ids == nil {
			ids = []string{}
		}
		filter["publicId"] = bson.M{"$in": ids}
	}

	items, total, err := s.find(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}
	if err := s.populateAuthors(ctx, items); err != nil {
		return nil, err
	}
	saved, err := s.col.EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	return &ImagePage{
		Items:       items,
		TotalPages:  TotalPages(total, pageSize),
		TotalCount:  total,
		SavedImages: saved,
	}, nil
}

func (s *mongoImages) ListByAuthor(ctx context.Context, authorID string, page, pageSize int) (*ImagePage, error) {
	ctx = s.repo.ctx(ctx)
	page, pageSize = Normalize(page, pageSize)

	items, total, err := s.find(ctx, bson.M{"author": authorID}, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &ImagePage{
		Items:      items,
		TotalPages: TotalPages(total, pageSize),
		TotalCount: total,
	}, nil
}

func (s *mongoImages) find(ctx context.Context, filter bson.M, page, pageSize int) ([]*models.Image, int64, error) {
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count images: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset(page, pageSize))).
		SetLimit(int64(pageSize))
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list images: %w", err)
	}
	items := []*models.Image{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode images: %w", err)
	}
	return items, total, nil
}

func (s *mongoImages) populateAuthors(ctx context.Context, images []*models.Image) error {
	if len(images) == 0 {
		return nil
	}
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.AuthorID)
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1, "firstName": 1, "lastName": 1, "clerkId": 1})
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return fmt.Errorf("failed to load authors: %w", err)
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return fmt.Errorf("failed to decode authors: %w", err)
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
