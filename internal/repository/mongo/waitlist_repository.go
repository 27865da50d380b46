// Package mongo stores waitlist entries in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clevermock-web/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// WaitlistCollection keeps the name the marketing site has always written to.
const WaitlistCollection = "users"

var _ domain.WaitlistRepository = (*WaitlistRepository)(nil)

type waitlistDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func (d waitlistDocument) entry() *domain.WaitlistEntry {
	return &domain.WaitlistEntry{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// WaitlistRepository implements domain.WaitlistRepository for MongoDB
type WaitlistRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// NewWaitlistRepository creates a repository on the given database
func NewWaitlistRepository(client *mongo.Client, database string) *WaitlistRepository {
	return &WaitlistRepository{
		client: client,
		coll:   client.Database(database).Collection(WaitlistCollection),
		now:    time.Now,
	}
}

// EnsureIndexes creates the unique email index that backs duplicate detection.
func (r *WaitlistRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create waitlist index: %w", err)
	}
	return nil
}

// Create inserts a new entry. The email must already be normalized.
func (r *WaitlistRepository) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	now := r.now().UTC().Truncate(time.Millisecond)
	doc := waitlistDocument{
		ID:        bson.NewObjectID(),
		Email:     entry.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyOnWaitlist
		}
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	*entry = *doc.entry()
	return nil
}

// GetByEmail retrieves an entry by its normalized email
func (r *WaitlistRepository) GetByEmail(ctx context.Context, email string) (*domain.WaitlistEntry, error) {
	var doc waitlistDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrWaitlistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return doc.entry(), nil
}

func (r *WaitlistRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}
