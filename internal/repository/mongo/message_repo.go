package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	messageCollectionName = "messages"
	counterCollectionName = "counters"
	messageCounterID      = "messages"
)

type mongoMessageRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) repository.MessageRepository {
	return &mongoMessageRepository{
		collection: db.Collection(messageCollectionName),
		counters:   db.Collection(counterCollectionName),
	}
}

type messageCounter struct {
	Seq int64     `bson:"seq"`
	TS  time.Time `bson:"ts"`
}

// next atomically bumps the shared counter and returns a (timestamp, seq)
// pair. The stored timestamp only moves forward, so every instance writing
// to the log sees non-decreasing timestamps regardless of its own clock.
func (r *mongoMessageRepository) next(ctx context.Context) (messageCounter, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "seq", Value: bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$seq", 0}}}, 1}}}},
			{Key: "ts", Value: bson.D{{Key: "$max", Value: bson.A{"$ts", now}}}},
		}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var c messageCounter
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": messageCounterID}, update, opts).Decode(&c)
	return c, err
}

func (r *mongoMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	if msg.SenderID.IsZero() || msg.ReceiverID.IsZero() {
		return errors.New("message requires senderId and receiverId")
	}

	c, err := r.next(ctx)
	if err != nil {
		return err
	}
	msg.ID = primitive.NewObjectID()
	msg.Timestamp = c.TS
	msg.Seq = c.Seq

	_, err = r.collection.InsertOne(ctx, msg)
	return err
}

func (r *mongoMessageRepository) Conversation(ctx context.Context, userA, userB primitive.ObjectID) ([]domain.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": userA, "receiverId": userB},
		bson.M{"senderId": userB, "receiverId": userA},
	}}
	return r.find(ctx, filter)
}

func (r *mongoMessageRepository) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": userID},
		bson.M{"receiverId": userID},
	}}
	return r.find(ctx, filter)
}

func (r *mongoMessageRepository) find(ctx context.Context, filter bson.M) ([]domain.Message, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := make([]domain.Message, 0)
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func EnsureMessageIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "timestamp", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "seq", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
