package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/lock"
	"github.com/fitmatch/coaching-api/internal/storage"

	"github.com/google/uuid"
	"github.com/r3labs/diff"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrUploadURLError = errors.New("failed to generate upload URL")

// UploadURLResponse structure for returning URL and object key
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"` // The key client needs to report back on confirm
}

// TrainerFilter narrows trainer discovery. Empty fields match everything.
type TrainerFilter struct {
	Name      string `form:"name"`
	Location  string `form:"location"`
	Specialty string `form:"specialty"`
}

type TrainerFacets struct {
	Locations   []string `json:"locations"`
	Specialties []string `json:"specialties"`
}

// IdentityService owns user records and their profile, health and notes sub-records.
type IdentityService interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetTrainer(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch domain.ProfilePatch) (*domain.User, error)
	UpdateClientNotes(ctx context.Context, trainerID, clientID primitive.ObjectID, notes string) error
	SearchTrainers(ctx context.Context, filter TrainerFilter) ([]domain.User, error)
	TrainerFacets(ctx context.Context) (*TrainerFacets, error)
	ClientsOf(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)

	// Profile photo upload
	RequestPhotoUpload(ctx context.Context, userID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	ConfirmPhotoUpload(ctx context.Context, userID primitive.ObjectID, objectKey string) (*domain.User, error)
}

type identityService struct {
	repos  Repositories
	locker lock.Locker
	files  storage.FileStorage
	events EventPublisher
	logger *slog.Logger
}

func NewIdentityService(repos Repositories, locker lock.Locker, files storage.FileStorage, events EventPublisher, logger *slog.Logger) IdentityService {
	return &identityService{
		repos:  repos,
		locker: locker,
		files:  files,
		events: events,
		logger: logger,
	}
}

func (s *identityService) GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return loadUser(ctx, s.repos.Users, id, "")
}

func (s *identityService) GetTrainer(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return loadUser(ctx, s.repos.Users, id, domain.RoleTrainer)
}

// profileFields is the patchable slice of a user, compared to build change sets.
type profileFields struct {
	Name              string               `diff:"name"`
	PhotoURL          string               `diff:"photoUrl"`
	Location          string               `diff:"location"`
	Bio               string               `diff:"bio"`
	Specialties       []string             `diff:"specialties"`
	HourlyRate        *float64             `diff:"hourlyRate"`
	PreferredLanguage string               `diff:"preferredLanguage"`
	HealthData        *domain.HealthRecord `diff:"healthData"`
}

func fieldsOf(u *domain.User) profileFields {
	return profileFields{
		Name:              u.Name,
		PhotoURL:          u.PhotoURL,
		Location:          u.Location,
		Bio:               u.Bio,
		Specialties:       u.Specialties,
		HourlyRate:        u.HourlyRate,
		PreferredLanguage: string(u.PreferredLanguage),
		HealthData:        u.HealthData,
	}
}

// UpdateProfile merges patch into the user's record. Role and id never change.
func (s *identityService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch domain.ProfilePatch) (*domain.User, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}
	if err := validateHealth(patch.HealthData); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lock.Key("user", userID.Hex()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := loadUser(ctx, s.repos.Users, userID, "")
	if err != nil {
		return nil, err
	}
	if user.IsTrainer() {
		if patch.HealthData != nil || patch.PreferredLanguage != nil {
			return nil, fmt.Errorf("%w: health data and language apply to clients only", domain.ErrInvalidInput)
		}
		if patch.Location != nil && strings.TrimSpace(*patch.Location) == "" {
			return nil, fmt.Errorf("%w: trainers must keep a location", domain.ErrInvalidInput)
		}
	}

	before := fieldsOf(user.Clone())
	patch.Apply(user)
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, notFound(err, "user")
	}

	if changes, err := diff.Diff(before, fieldsOf(user)); err != nil {
		s.logger.Warn("failed to diff profile", "user_id", userID.Hex(), "error", err)
	} else if len(changes) > 0 {
		publish(s.logger, s.events, domain.NewProfileUpdated(user.ID, lo.Map(changes, func(c diff.Change, _ int) domain.FieldChange {
			return domain.FieldChange{Path: c.Path, From: c.From, To: c.To}
		})))
	}
	return s.repos.Users.GetByID(ctx, userID)
}

// UpdateClientNotes is allowed only for the client's active trainer.
func (s *identityService) UpdateClientNotes(ctx context.Context, trainerID, clientID primitive.ObjectID, notes string) error {
	unlock, err := s.locker.Lock(ctx, lock.Key("client", clientID.Hex()))
	if err != nil {
		return err
	}
	defer unlock()

	return s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient)
		if err != nil {
			return err
		}
		if !client.HasActiveTrainer(trainerID) {
			return fmt.Errorf("notes: %w", domain.ErrForbidden)
		}
		return s.repos.Users.SetTrainerNotes(ctx, clientID, notes)
	})
}

func (s *identityService) SearchTrainers(ctx context.Context, filter TrainerFilter) ([]domain.User, error) {
	trainers, err := s.repos.Users.ListByRole(ctx, domain.RoleTrainer)
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(strings.TrimSpace(filter.Name))
	location := strings.TrimSpace(filter.Location)
	specialty := strings.TrimSpace(filter.Specialty)

	return lo.Filter(trainers, func(t domain.User, _ int) bool {
		if name != "" && !strings.Contains(strings.ToLower(t.Name), name) {
			return false
		}
		if location != "" && !strings.EqualFold(t.Location, location) {
			return false
		}
		if specialty != "" && !lo.ContainsBy(t.Specialties, func(sp string) bool { return strings.EqualFold(sp, specialty) }) {
			return false
		}
		return true
	}), nil
}

// TrainerFacets lists the distinct locations and specialties, sorted.
func (s *identityService) TrainerFacets(ctx context.Context) (*TrainerFacets, error) {
	trainers, err := s.repos.Users.ListByRole(ctx, domain.RoleTrainer)
	if err != nil {
		return nil, err
	}

	locations := lo.Uniq(lo.Without(lo.Map(trainers, func(t domain.User, _ int) string { return t.Location }), ""))
	specialties := lo.Uniq(lo.FlatMap(trainers, func(t domain.User, _ int) []string { return t.Specialties }))
	slices.Sort(locations)
	slices.Sort(specialties)
	return &TrainerFacets{Locations: locations, Specialties: specialties}, nil
}

// ClientsOf is the trainer's roster: clients whose active trainer is trainerID.
func (s *identityService) ClientsOf(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	if _, err := loadUser(ctx, s.repos.Users, trainerID, domain.RoleTrainer); err != nil {
		return nil, err
	}
	return s.repos.Users.ListClientsByTrainer(ctx, trainerID)
}

func photoKeyPrefix(userID primitive.ObjectID) string {
	return path.Join("profiles", userID.Hex()) + "/"
}

// RequestPhotoUpload issues a presigned PUT for a new profile photo.
func (s *identityService) RequestPhotoUpload(ctx context.Context, userID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := strings.CutPrefix(contentType, "image/")
	if !ok || ext == "" {
		return nil, fmt.Errorf("%w: photo content type must be image/*", domain.ErrInvalidInput)
	}
	if _, err := loadUser(ctx, s.repos.Users, userID, ""); err != nil {
		return nil, err
	}

	objectKey := photoKeyPrefix(userID) + fmt.Sprintf("%s.%s", uuid.NewString(), ext)
	uploadURL, err := s.files.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.logger.Error("failed to presign photo upload", "user_id", userID.Hex(), "error", err)
		return nil, ErrUploadURLError
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmPhotoUpload points photoUrl at an object the user has uploaded and
// removes the photo it replaces.
func (s *identityService) ConfirmPhotoUpload(ctx context.Context, userID primitive.ObjectID, objectKey string) (*domain.User, error) {
	if !strings.HasPrefix(objectKey, photoKeyPrefix(userID)) {
		return nil, fmt.Errorf("photo: %w", domain.ErrForbidden)
	}
	exists, err := s.files.ObjectExists(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: object %s has not been uploaded", domain.ErrInvalidInput, objectKey)
	}

	prev, err := loadUser(ctx, s.repos.Users, userID, "")
	if err != nil {
		return nil, err
	}

	photoURL := s.files.PublicURL(objectKey)
	updated, err := s.UpdateProfile(ctx, userID, domain.ProfilePatch{PhotoURL: &photoURL})
	if err != nil {
		return nil, err
	}

	if oldKey, ok := s.uploadedPhotoKey(userID, prev.PhotoURL); ok && oldKey != objectKey {
		if err := s.files.DeleteObject(ctx, oldKey); err != nil {
			s.logger.Warn("failed to delete replaced photo", "user_id", userID.Hex(), "key", oldKey, "error", err)
		}
	}
	return updated, nil
}

// uploadedPhotoKey recovers the object key behind photoURL when it points into
// the user's own upload prefix. Placeholder and external URLs return false.
func (s *identityService) uploadedPhotoKey(userID primitive.ObjectID, photoURL string) (string, bool) {
	prefix := photoKeyPrefix(userID)
	rest, ok := strings.CutPrefix(photoURL, s.files.PublicURL(prefix))
	if !ok || rest == "" {
		return "", false
	}
	return prefix + rest, true
}
