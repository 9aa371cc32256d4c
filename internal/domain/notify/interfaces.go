package notify

import (
	"context"
	"time"

	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sink persists notification records.
type Sink interface {
	Insert(ctx context.Context, n *models.Notification) error
	MarkRead(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (bool, error)
	Respond(ctx context.Context, id primitive.ObjectID, userID, response string, at time.Time) (bool, error)
	ListForRecipient(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
}

// Notifier is what the domain services depend on.
type Notifier interface {
	Dispatch(ctx context.Context, ev Event)
}
