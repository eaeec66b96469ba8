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

const userCollectionName = "users"

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// Create inserts a new user into the database.
func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user email, password hash, and role are required")
	}

	user.ID = primitive.NewObjectID()
	user.EmailKey = domain.NormalizeEmail(user.Email)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByEmail retrieves a user by their email address, ignoring case.
func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"emailKey": domain.NormalizeEmail(email)})
}

// GetByID retrieves a user by their MongoDB ObjectID.
func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update writes the profile fields only; identity, role and the trainer pointer stay put.
func (r *mongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	update := bson.M{
		"$set": bson.M{
			"name":              user.Name,
			"photoUrl":          user.PhotoURL,
			"location":          user.Location,
			"bio":               user.Bio,
			"specialties":       user.Specialties,
			"hourlyRate":        user.HourlyRate,
			"preferredLanguage": user.PreferredLanguage,
			"healthData":        user.HealthData,
			"updatedAt":         time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetActiveTrainer sets the activeTrainerId field for a specific client user.
func (r *mongoUserRepository) SetActiveTrainer(ctx context.Context, clientID, trainerID primitive.ObjectID) error {
	return r.setOnClient(ctx, clientID, bson.M{"activeTrainerId": trainerID})
}

func (r *mongoUserRepository) SetTrainerNotes(ctx context.Context, clientID primitive.ObjectID, notes string) error {
	return r.setOnClient(ctx, clientID, bson.M{"trainerNotes": notes})
}

func (r *mongoUserRepository) setOnClient(ctx context.Context, clientID primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()
	filter := bson.M{"_id": clientID, "role": domain.RoleClient}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return r.find(ctx, bson.M{"role": role})
}

// ListClientsByTrainer retrieves all clients whose active trainer is trainerID.
func (r *mongoUserRepository) ListClientsByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	return r.find(ctx, bson.M{"role": domain.RoleClient, "activeTrainerId": trainerID})
}

func (r *mongoUserRepository) find(ctx context.Context, filter bson.M) ([]domain.User, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]domain.User, 0)
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// EnsureUserIndexes creates necessary indexes for the users collection.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "emailKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
		},
		{
			// Sparse because trainers and unpaired clients have no activeTrainerId
			Keys:    bson.D{{Key: "activeTrainerId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
