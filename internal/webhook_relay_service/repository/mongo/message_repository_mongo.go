package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aradsms/webhook_relay/internal/platform/database"
	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
)

// messageDocument is the stored shape of domain.StoredMessage.
type messageDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	PhoneNumber string             `bson:"phoneNumber"`
	Text        string             `bson:"text"`
	Timestamp   time.Time          `bson:"timestamp"`
}

type MongoMessageRepository struct {
	coll   *mongo.Collection
	logger *slog.Logger
	now    func() time.Time
}

// NewMongoMessageRepository creates a MessageRepository writing to coll.
func NewMongoMessageRepository(coll *mongo.Collection, logger *slog.Logger) *MongoMessageRepository {
	return &MongoMessageRepository{
		coll:   coll,
		logger: logger.With("component", "message_repository_mongo"),
		now:    time.Now,
	}
}

// Create inserts one message document and returns its ObjectID in hex.
func (r *MongoMessageRepository) Create(ctx context.Context, phoneNumber string, text string) (string, error) {
	if r.coll == nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorageFailure, database.ErrNotConnected)
	}

	record := domain.NewStoredMessage(phoneNumber, text, r.now())
	doc := messageDocument{
		ID:          primitive.NewObjectID(),
		PhoneNumber: record.PhoneNumber,
		Text:        record.Text,
		Timestamp:   record.Timestamp,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting message document", "error", err, "phone_number", phoneNumber)
		return "", fmt.Errorf("%w: insert message: %w", domain.ErrStorageFailure, err)
	}

	id := doc.ID.Hex()
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	r.logger.DebugContext(ctx, "Message stored", "id", id, "phone_number", phoneNumber)
	return id, nil
}
