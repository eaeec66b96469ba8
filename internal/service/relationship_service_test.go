package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fitmatch/coaching-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConnectionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")

	req, err := f.relationship.RequestConnection(ctx, c1.ID, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, req.Status)

	status, err := f.relationship.StatusFor(ctx, c1.ID, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionPending, status)

	accepted, err := f.relationship.Accept(ctx, req.ID, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestActive, accepted.Status)

	status, err = f.relationship.StatusFor(ctx, c1.ID, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionActive, status)

	me, err := f.identity.GetUser(ctx, c1.ID)
	require.NoError(t, err)
	require.NotNil(t, me.ActiveTrainerID)
	assert.Equal(t, t1.ID, *me.ActiveTrainerID)

	assert.Contains(t, f.events.types(), domain.EventRequestCreated)
	assert.Contains(t, f.events.types(), domain.EventRequestAccepted)
}

func TestRequestConnectionTwiceIsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")

	_, err := f.relationship.RequestConnection(ctx, c1.ID, t1.ID)
	require.NoError(t, err)
	_, err = f.relationship.RequestConnection(ctx, c1.ID, t1.ID)
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
}

func TestRequestConnectionToActiveTrainer(t *testing.T) {
	f := newFixture(t)
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")
	f.connect(t, c1, t1)

	_, err := f.relationship.RequestConnection(context.Background(), c1.ID, t1.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyConnected)
}

func TestRequestConnectionUnknownParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")

	_, err := f.relationship.RequestConnection(ctx, c1.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// A client id in the trainer slot is not a trainer.
	_, err = f.relationship.RequestConnection(ctx, c1.ID, c1.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.relationship.RequestConnection(ctx, primitive.NewObjectID(), t1.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAcceptTwiceIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1, t2 := f.client(t, "C1"), f.trainer(t, "T1"), f.trainer(t, "T2")

	first, err := f.relationship.RequestConnection(ctx, c1.ID, t1.ID)
	require.NoError(t, err)
	_, err = f.relationship.Accept(ctx, first.ID, t1.ID)
	require.NoError(t, err)

	_, err = f.relationship.Accept(ctx, first.ID, t1.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.relationship.Reject(ctx, first.ID, t1.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	me, err := f.identity.GetUser(ctx, c1.ID)
	require.NoError(t, err)
	assert.True(t, me.HasActiveTrainer(t1.ID))
	assert.False(t, me.HasActiveTrainer(t2.ID))
}

func TestAcceptGuardOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1, t2 := f.client(t, "C1"), f.trainer(t, "T1"), f.trainer(t, "T2")

	_, err := f.relationship.Accept(ctx, primitive.NewObjectID(), t1.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	req, err := f.relationship.RequestConnection(ctx, c1.ID, t1.ID)
	require.NoError(t, err)
	_, err = f.relationship.Reject(ctx, req.ID, t1.ID)
	require.NoError(t, err)

	// Forbidden is reported before the terminal state.
	_, err = f.relationship.Accept(ctx, req.ID, t2.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.relationship.Accept(ctx, req.ID, t1.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRejectKeepsExistingPairing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1, t2 := f.client(t, "C1"), f.trainer(t, "T1"), f.trainer(t, "T2")
	f.connect(t, c1, t1)

	req, err := f.relationship.RequestConnection(ctx, c1.ID, t2.ID)
	require.NoError(t, err)
	rejected, err := f.relationship.Reject(ctx, req.ID, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRejected, rejected.Status)

	me, err := f.identity.GetUser(ctx, c1.ID)
	require.NoError(t, err)
	assert.True(t, me.HasActiveTrainer(t1.ID))

	status, err := f.relationship.StatusFor(ctx, c1.ID, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionRejected, status)

	// A rejected pair may ask again.
	_, err = f.relationship.RequestConnection(ctx, c1.ID, t2.ID)
	require.NoError(t, err)
	status, err = f.relationship.StatusFor(ctx, c1.ID, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionPending, status)
}

func TestAcceptLeavesOtherPendingRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1, t2 := f.client(t, "C1"), f.trainer(t, "T1"), f.trainer(t, "T2")

	r1, err := f.relationship.RequestConnection(ctx, c1.ID, t1.ID)
	require.NoError(t, err)
	_, err = f.relationship.RequestConnection(ctx, c1.ID, t2.ID)
	require.NoError(t, err)

	_, err = f.relationship.Accept(ctx, r1.ID, t1.ID)
	require.NoError(t, err)

	pending, err := f.relationship.PendingRequestsFor(ctx, t2.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, c1.ID, pending[0].ClientID)

	status, err := f.relationship.StatusFor(ctx, c1.ID, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionPending, status)

	all, err := f.relationship.RequestsByClient(ctx, c1.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStatusForWithoutRequests(t *testing.T) {
	f := newFixture(t)
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")

	status, err := f.relationship.StatusFor(context.Background(), c1.ID, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionNone, status)
}

func TestConcurrentRequestsLeaveOnePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")

	const n = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.relationship.RequestConnection(ctx, c1.ID, t1.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if errors.Is(err, domain.ErrDuplicateRequest) {
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, duplicates)

	pending, err := f.relationship.PendingRequestsFor(ctx, t1.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestConcurrentAcceptAppliesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")
	req, err := f.relationship.RequestConnection(ctx, c1.ID, t1.ID)
	require.NoError(t, err)

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.relationship.Accept(ctx, req.ID, t1.ID); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}
