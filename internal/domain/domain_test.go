package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewRequestEventFollowsStatus(t *testing.T) {
	req := ConnectionRequest{ID: primitive.NewObjectID(), Status: RequestPending}
	assert.IsType(t, RequestCreatedEvent{}, NewRequestEvent(req))
	assert.Equal(t, EventRequestCreated, NewRequestEvent(req).Type())

	req.Status = RequestActive
	assert.IsType(t, RequestAcceptedEvent{}, NewRequestEvent(req))
	assert.Equal(t, EventRequestAccepted, NewRequestEvent(req).Type())

	req.Status = RequestRejected
	assert.IsType(t, RequestRejectedEvent{}, NewRequestEvent(req))
	assert.Equal(t, EventRequestRejected, NewRequestEvent(req).Type())
}

func TestNormalizeSpecialties(t *testing.T) {
	assert.Nil(t, NormalizeSpecialties(nil))
	assert.Equal(t, []string{"Yoga"}, NormalizeSpecialties([]string{"Yoga", "Yoga", "yoga"}))
	assert.Equal(t, []string{"HIIT", "Mobility"}, NormalizeSpecialties([]string{" HIIT ", "", "  ", "Mobility", "hiit"}))
	assert.Empty(t, NormalizeSpecialties([]string{" "}))
}

func TestProfilePatchApplyNormalizesSpecialties(t *testing.T) {
	u := &User{Role: RoleTrainer, Specialties: []string{"Strength"}}
	ProfilePatch{Specialties: []string{"Yoga", "YOGA ", "Pilates"}}.Apply(u)
	assert.Equal(t, []string{"Yoga", "Pilates"}, u.Specialties)

	ProfilePatch{}.Apply(u)
	assert.Equal(t, []string{"Yoga", "Pilates"}, u.Specialties, "nil leaves specialties untouched")
}
