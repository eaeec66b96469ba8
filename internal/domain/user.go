package domain

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleTrainer Role = "TRAINER"
	RoleClient  Role = "CLIENT"
)

func (r Role) Valid() bool {
	return r == RoleTrainer || r == RoleClient
}

// Language is an opaque display preference passed through to the presentation layer.
type Language string

const (
	LanguageEN Language = "EN"
	LanguageDK Language = "DK"
)

// FitnessLevel is an enumerated key localized by the presentation layer.
type FitnessLevel string

const (
	FitnessBeginner     FitnessLevel = "Beginner"
	FitnessIntermediate FitnessLevel = "Intermediate"
	FitnessAdvanced     FitnessLevel = "Advanced"
)

func (l FitnessLevel) Valid() bool {
	switch l {
	case FitnessBeginner, FitnessIntermediate, FitnessAdvanced:
		return true
	}
	return false
}

// HealthRecord is owned by the client it describes. Only that client may edit it,
// and only the client's active trainer may read it.
type HealthRecord struct {
	Weight         *float64     `bson:"weight,omitempty" json:"weight,omitempty" diff:"weight"` // kg
	Height         *float64     `bson:"height,omitempty" json:"height,omitempty" diff:"height"` // cm
	FitnessLevel   FitnessLevel `bson:"fitnessLevel,omitempty" json:"fitnessLevel,omitempty" diff:"fitnessLevel"`
	Goals          string       `bson:"goals,omitempty" json:"goals,omitempty" diff:"goals"`
	MedicalHistory string       `bson:"medicalHistory,omitempty" json:"medicalHistory,omitempty" diff:"medicalHistory"`
}

// User represents a user in the system (either a Trainer or a Client).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	EmailKey     string             `bson:"emailKey" json:"-"` // lower-cased email, unique
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	PhotoURL     string             `bson:"photoUrl" json:"photoUrl"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Trainer-specific ---
	Location    string   `bson:"location,omitempty" json:"location,omitempty"`
	Bio         string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Specialties []string `bson:"specialties,omitempty" json:"specialties,omitempty"`
	HourlyRate  *float64 `bson:"hourlyRate,omitempty" json:"hourlyRate,omitempty"`

	// --- Client-specific ---
	// ActiveTrainerID is the only record of "this client has a trainer".
	// It is written exclusively when a connection request is accepted.
	ActiveTrainerID   *primitive.ObjectID `bson:"activeTrainerId,omitempty" json:"activeTrainerId,omitempty"`
	PreferredLanguage Language            `bson:"preferredLanguage,omitempty" json:"preferredLanguage,omitempty"`
	HealthData        *HealthRecord       `bson:"healthData,omitempty" json:"healthData,omitempty"`
	TrainerNotes      string              `bson:"trainerNotes,omitempty" json:"-"`
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// HasActiveTrainer reports whether trainerID is this client's active trainer.
func (u *User) HasActiveTrainer(trainerID primitive.ObjectID) bool {
	return u.ActiveTrainerID != nil && *u.ActiveTrainerID == trainerID
}

// Clone returns a deep copy so callers never share slices or pointers with a store.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Specialties != nil {
		c.Specialties = append([]string(nil), u.Specialties...)
	}
	if u.HourlyRate != nil {
		r := *u.HourlyRate
		c.HourlyRate = &r
	}
	if u.ActiveTrainerID != nil {
		id := *u.ActiveTrainerID
		c.ActiveTrainerID = &id
	}
	if u.HealthData != nil {
		h := *u.HealthData
		if h.Weight != nil {
			w := *h.Weight
			h.Weight = &w
		}
		if h.Height != nil {
			ht := *h.Height
			h.Height = &ht
		}
		c.HealthData = &h
	}
	return &c
}

// NormalizeEmail is the case-insensitive key used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeSpecialties trims entries, drops blanks and removes
// case-insensitive duplicates, keeping the first spelling seen.
func NormalizeSpecialties(specialties []string) []string {
	if specialties == nil {
		return nil
	}
	trimmed := lo.Without(lo.Map(specialties, func(s string, _ int) string { return strings.TrimSpace(s) }), "")
	return lo.UniqBy(trimmed, strings.ToLower)
}

// ProfilePatch carries the fields a user may change on their own record.
// Nil fields are left untouched. Role and ID are not patchable.
type ProfilePatch struct {
	Name              *string       `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	PhotoURL          *string       `json:"photoUrl,omitempty" validate:"omitempty,max=2048"`
	Location          *string       `json:"location,omitempty" validate:"omitempty,max=120"`
	Bio               *string       `json:"bio,omitempty" validate:"omitempty,max=4000"`
	Specialties       []string      `json:"specialties,omitempty" validate:"omitempty,dive,min=1,max=60"`
	HourlyRate        *float64      `json:"hourlyRate,omitempty" validate:"omitempty,gte=0"`
	PreferredLanguage *Language     `json:"preferredLanguage,omitempty" validate:"omitempty,oneof=EN DK"`
	HealthData        *HealthRecord `json:"healthData,omitempty"`
}

// Apply merges the patch into u.
func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PhotoURL != nil {
		u.PhotoURL = *p.PhotoURL
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Specialties != nil {
		u.Specialties = NormalizeSpecialties(p.Specialties)
	}
	if p.HourlyRate != nil {
		r := *p.HourlyRate
		u.HourlyRate = &r
	}
	if p.PreferredLanguage != nil {
		u.PreferredLanguage = *p.PreferredLanguage
	}
	if p.HealthData != nil {
		h := *p.HealthData
		u.HealthData = &h
	}
}
