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

const requestCollectionName = "connection_requests"

// mongoRequestRepository implements repository.RequestRepository
type mongoRequestRepository struct {
	collection *mongo.Collection
}

func NewMongoRequestRepository(db *mongo.Database) repository.RequestRepository {
	return &mongoRequestRepository{
		collection: db.Collection(requestCollectionName),
	}
}

// Create inserts a request. The partial unique index rejects a second PENDING
// request for the same pair.
func (r *mongoRequestRepository) Create(ctx context.Context, req *domain.ConnectionRequest) (primitive.ObjectID, error) {
	if req.ClientID.IsZero() || req.TrainerID.IsZero() {
		return primitive.NilObjectID, errors.New("request requires clientId and trainerId")
	}

	req.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = domain.RequestPending
	}

	result, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted request ID")
	}
	return insertedID, nil
}

func (r *mongoRequestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ConnectionRequest, error) {
	var req domain.ConnectionRequest
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// UpdateStatus is a compare-and-set on the status field.
func (r *mongoRequestRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.RequestStatus) error {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrConflict
	}
	return nil
}

func (r *mongoRequestRepository) ListByPair(ctx context.Context, clientID, trainerID primitive.ObjectID) ([]domain.ConnectionRequest, error) {
	return r.find(ctx, bson.M{"clientId": clientID, "trainerId": trainerID})
}

func (r *mongoRequestRepository) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ConnectionRequest, error) {
	return r.find(ctx, bson.M{"clientId": clientID})
}

func (r *mongoRequestRepository) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID, status domain.RequestStatus) ([]domain.ConnectionRequest, error) {
	filter := bson.M{"trainerId": trainerID}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter)
}

func (r *mongoRequestRepository) find(ctx context.Context, filter bson.M) ([]domain.ConnectionRequest, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	requests := make([]domain.ConnectionRequest, 0)
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// EnsureRequestIndexes creates necessary indexes for the requests collection.
func EnsureRequestIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// At most one PENDING request per (client, trainer)
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "trainerId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_pending_pair").
				SetPartialFilterExpression(bson.M{"status": domain.RequestPending}),
		},
		{
			Keys: bson.D{{Key: "trainerId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
