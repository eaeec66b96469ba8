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

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new Plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.ClientID.IsZero() || plan.TrainerID.IsZero() || plan.Title == "" {
		return primitive.NilObjectID, errors.New("plan requires clientId, trainerId, and title")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

func (r *mongoPlanRepository) GetActiveForClient(ctx context.Context, clientID primitive.ObjectID) (*domain.Plan, error) {
	return r.findOne(ctx, bson.M{"clientId": clientID, "status": domain.PlanActive})
}

func (r *mongoPlanRepository) findOne(ctx context.Context, filter bson.M) (*domain.Plan, error) {
	var plan domain.Plan
	if err := r.collection.FindOne(ctx, filter).Decode(&plan); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// CompleteActiveForClient must run inside a transaction together with the
// insert of the replacement plan.
func (r *mongoPlanRepository) CompleteActiveForClient(ctx context.Context, clientID primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{"clientId": clientID, "status": domain.PlanActive}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	update := bson.M{"$set": bson.M{"status": domain.PlanCompleted, "updatedAt": time.Now().UTC()}}
	if _, err = r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, update); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByClient returns plans oldest first.
func (r *mongoPlanRepository) ListByClient(ctx context.Context, clientID primitive.ObjectID, status domain.PlanStatus) ([]domain.Plan, error) {
	filter := bson.M{"clientId": clientID}
	if status != "" {
		filter["status"] = status
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := make([]domain.Plan, 0)
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// At most one active plan per client
			Keys: bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_active_plan").
				SetPartialFilterExpression(bson.M{"status": domain.PlanActive}),
		},
		{
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "trainerId", Value: 1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
