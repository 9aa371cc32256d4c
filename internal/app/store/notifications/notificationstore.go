package notificationstore

import (
	"context"
	"time"

	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the notification sink. Records are append-only; only the
// per-recipient read/response state changes after insert.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// Insert persists n and assigns its id.
func (s *Store) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := s.c.InsertOne(ctx, n)
	return err
}

// MarkRead flips the recipient's read flag. It reports false when the
// recipient had already read the notification.
func (s *Store) MarkRead(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "recipients": bson.M{"$elemMatch": bson.M{"user_id": userID, "read": false}}},
		bson.M{
			"$set": bson.M{"recipients.$.read": true},
			"$min": bson.M{"recipients.$.read_at": at},
		})
	if err != nil {
		return false, err
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}
	return false, s.ensureRecipient(ctx, id, userID)
}

// Respond records the recipient's first response; later responses are
// ignored and reported as unchanged. Responding also marks it read.
func (s *Store) Respond(ctx context.Context, id primitive.ObjectID, userID, response string, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "recipients": bson.M{"$elemMatch": bson.M{"user_id": userID, "responded": false}}},
		bson.M{
			"$set": bson.M{
				"recipients.$.responded":    true,
				"recipients.$.response":     response,
				"recipients.$.responded_at": at,
				"recipients.$.read":         true,
			},
			"$min": bson.M{"recipients.$.read_at": at},
		})
	if err != nil {
		return false, err
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}
	return false, s.ensureRecipient(ctx, id, userID)
}

func (s *Store) ensureRecipient(ctx context.Context, id primitive.ObjectID, userID string) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id, "recipients.user_id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListForRecipient returns the newest notifications addressed to userID.
func (s *Store) ListForRecipient(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	match := bson.M{"user_id": userID}
	if unreadOnly {
		match["read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.c.Find(ctx, bson.M{"recipients": bson.M{"$elemMatch": match}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
