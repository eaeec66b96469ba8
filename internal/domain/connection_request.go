package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus tracks the connection request lifecycle.
// PENDING -> ACTIVE and PENDING -> REJECTED are the only legal transitions.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestActive   RequestStatus = "ACTIVE"
	RequestRejected RequestStatus = "REJECTED"
)

// ConnectionStatus is the per-trainer call-to-action state shown to a client.
type ConnectionStatus string

const (
	ConnectionNone     ConnectionStatus = "NONE"
	ConnectionPending  ConnectionStatus = "PENDING"
	ConnectionActive   ConnectionStatus = "ACTIVE"
	ConnectionRejected ConnectionStatus = "REJECTED"
)

// ConnectionRequest is a proposal from a client to a trainer to start coaching.
// Created by the client, mutated only by the target trainer, never deleted.
type ConnectionRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID  primitive.ObjectID `bson:"clientId" json:"clientId"`
	TrainerID primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	Status    RequestStatus      `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Transition moves the request out of PENDING. Terminal states never change.
func (r *ConnectionRequest) Transition(to RequestStatus) error {
	if r.Status != RequestPending {
		return ErrInvalidTransition
	}
	if to != RequestActive && to != RequestRejected {
		return ErrInvalidTransition
	}
	r.Status = to
	return nil
}
