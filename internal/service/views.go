package service

import (
	"github.com/fitmatch/coaching-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicProfile is what any caller may see of a user.
type PublicProfile struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Role        domain.Role        `json:"role"`
	PhotoURL    string             `json:"photoUrl"`
	Location    string             `json:"location,omitempty"`
	Bio         string             `json:"bio,omitempty"`
	Specialties []string           `json:"specialties,omitempty"`
	HourlyRate  *float64           `json:"hourlyRate,omitempty"`
}

// ClientProfile is a client as seen by their active trainer.
type ClientProfile struct {
	PublicProfile
	Email             string               `json:"email"`
	PreferredLanguage domain.Language      `json:"preferredLanguage,omitempty"`
	HealthData        *domain.HealthRecord `json:"healthData,omitempty"`
	TrainerNotes      string               `json:"trainerNotes"`
}

func NewPublicProfile(u *domain.User) PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Name:        u.Name,
		Role:        u.Role,
		PhotoURL:    u.PhotoURL,
		Location:    u.Location,
		Bio:         u.Bio,
		Specialties: u.Specialties,
		HourlyRate:  u.HourlyRate,
	}
}

func NewClientProfile(u *domain.User) ClientProfile {
	return ClientProfile{
		PublicProfile:     NewPublicProfile(u),
		Email:             u.Email,
		PreferredLanguage: u.PreferredLanguage,
		HealthData:        u.HealthData,
		TrainerNotes:      u.TrainerNotes,
	}
}

// ProfileFor applies the visibility rules: the user sees their own record
// (without notes), the active trainer sees health data and notes, everyone
// else gets the public projection.
func ProfileFor(viewerID primitive.ObjectID, subject *domain.User) any {
	switch {
	case subject.ID == viewerID:
		return subject
	case subject.IsClient() && subject.HasActiveTrainer(viewerID):
		return NewClientProfile(subject)
	default:
		return NewPublicProfile(subject)
	}
}

type TrainerCard struct {
	Trainer PublicProfile           `json:"trainer"`
	Status  domain.ConnectionStatus `json:"status"`
}

type ClientDashboard struct {
	Me            *domain.User     `json:"me"`
	ActiveTrainer *PublicProfile   `json:"activeTrainer"`
	ActivePlan    *domain.Plan     `json:"activePlan"`
	PlanHistory   []domain.Plan    `json:"planHistory"`
	Conversation  []domain.Message `json:"conversation"`
	Trainers      []TrainerCard    `json:"trainers"`
}

type PendingRequest struct {
	Request domain.ConnectionRequest `json:"request"`
	Client  PublicProfile            `json:"client"`
}

type TrainerDashboard struct {
	Me              *domain.User     `json:"me"`
	PendingRequests []PendingRequest `json:"pendingRequests"`
	Roster          []ClientProfile  `json:"roster"`
}

type ClientDetail struct {
	Client       ClientProfile    `json:"client"`
	ActivePlan   *domain.Plan     `json:"activePlan"`
	PlanHistory  []domain.Plan    `json:"planHistory"`
	Conversation []domain.Message `json:"conversation"`
}
