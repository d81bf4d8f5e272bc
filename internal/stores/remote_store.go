package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geodrop-app/geodrop/backend/internal/models"
)

var log = logrus.WithField("package", "stores")

// ErrHandler receives errors raised inside a live query subscription.
type ErrHandler func(error)

// RemoteStore defines the interface for the server-owned post document store.
// LiveQuery streams the full current result set, ordered by timestamp
// descending, on every change until the context is cancelled.
type RemoteStore interface {
	CreateOrReplace(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// AdjustLikeCount atomically adds delta to the post's like count,
	// never letting it drop below zero. A whole-document overwrite is the
	// wrong contract here: two devices liking concurrently would race.
	AdjustLikeCount(ctx context.Context, id string, delta int) error
	LiveQuery(ctx context.Context, onErr ErrHandler) <-chan []models.Post
}

// MongoRemoteStore implements RemoteStore for MongoDB. LiveQuery is backed
// by a change stream, which requires the server to run as a replica set.
type MongoRemoteStore struct {
	collection    *mongo.Collection
	retryInterval time.Duration
}

// NewMongoRemoteStore creates a new MongoRemoteStore
func NewMongoRemoteStore(db *mongo.Database) *MongoRemoteStore {
	return &MongoRemoteStore{
		collection:    db.Collection("posts"),
		retryInterval: 2 * time.Second,
	}
}

// CreateOrReplace upserts the full post document by ID.
func (r *MongoRemoteStore) CreateOrReplace(ctx context.Context, post *models.Post) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": post.ID}, post, opts); err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}
	return nil
}

// Delete removes the post document. Deleting an absent document is a no-op.
func (r *MongoRemoteStore) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// GetByID retrieves a post by ID, returning nil when it does not exist.
func (r *MongoRemoteStore) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

// AdjustLikeCount applies an atomic $inc to the like counter. Decrements
// carry a guard so the count is floored at zero server-side as well.
func (r *MongoRemoteStore) AdjustLikeCount(ctx context.Context, id string, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["like_count"] = bson.M{"$gte": -delta}
	}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"like_count": delta}}); err != nil {
		return fmt.Errorf("failed to adjust like count: %w", err)
	}
	return nil
}

func (r *MongoRemoteStore) fetchSnapshot(ctx context.Context) ([]models.Post, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// LiveQuery opens a change stream and delivers the full ordered result set
// once immediately and again after every change. Errors are reported through
// onErr and the stream is reopened after a short wait; the channel is closed
// only when ctx is cancelled.
func (r *MongoRemoteStore) LiveQuery(ctx context.Context, onErr ErrHandler) <-chan []models.Post {
	ch := make(chan []models.Post, 1)

	go func() {
		defer close(ch)
		for {
			if ctx.Err() != nil {
				return
			}

			stream, err := r.collection.Watch(ctx, mongo.Pipeline{})
			if err != nil {
				report(onErr, fmt.Errorf("failed to open change stream: %w", err))
				if !sleep(ctx, r.retryInterval) {
					return
				}
				continue
			}

			if snapshot, err := r.fetchSnapshot(ctx); err != nil {
				report(onErr, fmt.Errorf("failed to fetch snapshot: %w", err))
			} else if !send(ctx, ch, snapshot) {
				stream.Close(context.Background())
				return
			}

			for stream.Next(ctx) {
				snapshot, err := r.fetchSnapshot(ctx)
				if err != nil {
					report(onErr, fmt.Errorf("failed to fetch snapshot: %w", err))
					continue
				}
				if !send(ctx, ch, snapshot) {
					break
				}
			}

			err = stream.Err()
			stream.Close(context.Background())

			if ctx.Err() != nil {
				return
			}
			if err != nil {
				report(onErr, fmt.Errorf("change stream closed: %w", err))
			}
			if !sleep(ctx, r.retryInterval) {
				return
			}
		}
	}()

	return ch
}

func report(onErr ErrHandler, err error) {
	if onErr != nil {
		onErr(err)
		return
	}
	log.WithError(err).Error("live query error")
}

func send(ctx context.Context, ch chan<- []models.Post, snapshot []models.Post) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- snapshot:
		return true
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
