package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Event interface {
	Type() string
	PublishedAt() time.Time
}

const (
	EventUserRegistered  = "user.registered"
	EventProfileUpdated  = "user.profile_updated"
	EventRequestCreated  = "request.created"
	EventRequestAccepted = "request.accepted"
	EventRequestRejected = "request.rejected"
	EventPlanAssigned    = "plan.assigned"
	EventMessageSent     = "message.sent"
)

type eventMeta struct {
	At time.Time `json:"at"`
}

func (e eventMeta) PublishedAt() time.Time { return e.At }

func meta() eventMeta { return eventMeta{At: time.Now().UTC()} }

type UserRegistered struct {
	eventMeta
	UserID primitive.ObjectID `json:"userId"`
	Role   Role               `json:"role"`
}

func (UserRegistered) Type() string { return EventUserRegistered }

func NewUserRegistered(u *User) UserRegistered {
	return UserRegistered{eventMeta: meta(), UserID: u.ID, Role: u.Role}
}

// FieldChange is one changed path in a profile update.
type FieldChange struct {
	Path []string `json:"path"`
	From any      `json:"from,omitempty"`
	To   any      `json:"to,omitempty"`
}

type ProfileUpdated struct {
	eventMeta
	UserID  primitive.ObjectID `json:"userId"`
	Changes []FieldChange      `json:"changes"`
}

func (ProfileUpdated) Type() string { return EventProfileUpdated }

func NewProfileUpdated(userID primitive.ObjectID, changes []FieldChange) ProfileUpdated {
	return ProfileUpdated{eventMeta: meta(), UserID: userID, Changes: changes}
}

type RequestCreatedEvent struct {
	eventMeta
	Request ConnectionRequest `json:"request"`
}

func (RequestCreatedEvent) Type() string { return EventRequestCreated }

type RequestAcceptedEvent struct {
	eventMeta
	Request ConnectionRequest `json:"request"`
}

func (RequestAcceptedEvent) Type() string { return EventRequestAccepted }

type RequestRejectedEvent struct {
	eventMeta
	Request ConnectionRequest `json:"request"`
}

func (RequestRejectedEvent) Type() string { return EventRequestRejected }

// NewRequestEvent builds the event matching the request's current status.
func NewRequestEvent(r ConnectionRequest) Event {
	switch r.Status {
	case RequestActive:
		return RequestAcceptedEvent{eventMeta: meta(), Request: r}
	case RequestRejected:
		return RequestRejectedEvent{eventMeta: meta(), Request: r}
	default:
		return RequestCreatedEvent{eventMeta: meta(), Request: r}
	}
}

type PlanAssigned struct {
	eventMeta
	PlanID     primitive.ObjectID   `json:"planId"`
	ClientID   primitive.ObjectID   `json:"clientId"`
	TrainerID  primitive.ObjectID   `json:"trainerId"`
	Superseded []primitive.ObjectID `json:"superseded"`
}

func (PlanAssigned) Type() string { return EventPlanAssigned }

func NewPlanAssigned(p *Plan, superseded []primitive.ObjectID) PlanAssigned {
	return PlanAssigned{eventMeta: meta(), PlanID: p.ID, ClientID: p.ClientID, TrainerID: p.TrainerID, Superseded: superseded}
}

type MessageSent struct {
	eventMeta
	Message Message `json:"message"`
}

func (MessageSent) Type() string { return EventMessageSent }

func NewMessageSent(m Message) MessageSent {
	return MessageSent{eventMeta: meta(), Message: m}
}
