package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignPlanSupersedesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")
	f.connect(t, c1, t1)

	first, err := f.plans.AssignPlan(ctx, c1.ID, t1.ID, sampleDraft("Block A"))
	require.NoError(t, err)
	active, err := f.plans.ActivePlanFor(ctx, c1.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)

	second, err := f.plans.AssignPlan(ctx, c1.ID, t1.ID, sampleDraft("Block B"))
	require.NoError(t, err)

	active, err = f.plans.ActivePlanFor(ctx, c1.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, "Block B", active.Title)

	completed, err := f.plans.CompletedPlansFor(ctx, c1.ID)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, first.ID, completed[0].ID)
	assert.Equal(t, domain.PlanCompleted, completed[0].Status)

	all, err := f.plans.PlansForClient(ctx, t1.ID, c1.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAssignPlanRequiresActiveTrainer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1, t2 := f.client(t, "C1"), f.trainer(t, "T1"), f.trainer(t, "T2")
	f.connect(t, c1, t1)

	_, err := f.plans.AssignPlan(ctx, c1.ID, t2.ID, sampleDraft("Nope"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.plans.PlansForClient(ctx, t2.ID, c1.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	active, err := f.plans.ActivePlanFor(ctx, c1.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestAssignPlanAppliesDraftDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")
	f.connect(t, c1, t1)

	plan, err := f.plans.AssignPlan(ctx, c1.ID, t1.ID, domain.PlanDraft{
		Workouts: []domain.WorkoutDraft{{Exercises: []string{"Plank"}}},
		Diet:     &domain.DietDraft{Meals: []domain.MealDraft{{Name: "Salad"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultPlanTitle, plan.Title)
	assert.Equal(t, domain.PlanActive, plan.Status)
	require.Len(t, plan.Workouts, 1)
	assert.Equal(t, domain.DefaultWorkoutDay, plan.Workouts[0].DayOfWeek)
	assert.Equal(t, domain.DefaultWorkoutTitle, plan.Workouts[0].Title)
	assert.False(t, plan.Workouts[0].ID.IsZero())
	require.NotNil(t, plan.Diet)
	assert.Equal(t, domain.DefaultDietTitle, plan.Diet.Title)
	assert.Equal(t, domain.DefaultDietFocus, plan.Diet.Focus)
	assert.Zero(t, plan.Diet.Meals[0].Calories)
	assert.Equal(t, plan.StartDate.Add(4*7*24*time.Hour), plan.EndDate)
}

func TestAssignPlanRejectsInvalidDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")
	f.connect(t, c1, t1)

	cases := map[string]domain.PlanDraft{
		"empty exercise line": {Workouts: []domain.WorkoutDraft{{Exercises: []string{"Squat", ""}}}},
		"blank exercise line": {Workouts: []domain.WorkoutDraft{{Exercises: []string{"   "}}}},
		"negative calories":   {Diet: &domain.DietDraft{Meals: []domain.MealDraft{{Name: "Oats", Calories: -1}}}},
		"meal without name":   {Diet: &domain.DietDraft{Meals: []domain.MealDraft{{Calories: 10}}}},
		"blank meal name":     {Diet: &domain.DietDraft{Meals: []domain.MealDraft{{Name: "   ", Calories: 10}}}},
		"too long":            {DurationWeeks: domain.MaxPlanDurationWeeks + 1},
	}
	for name, draft := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.plans.AssignPlan(ctx, c1.ID, t1.ID, draft)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	active, err := f.plans.ActivePlanFor(ctx, c1.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestConcurrentAssignKeepsOneActivePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")
	f.connect(t, c1, t1)

	const n = 12
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.plans.AssignPlan(ctx, c1.ID, t1.ID, sampleDraft("Block"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := f.plans.PlansForClient(ctx, t1.ID, c1.ID)
	require.NoError(t, err)
	require.Len(t, all, n)

	active := 0
	for _, p := range all {
		if p.Status == domain.PlanActive {
			active++
		}
	}
	assert.Equal(t, 1, active)

	completed, err := f.plans.CompletedPlansFor(ctx, c1.ID)
	require.NoError(t, err)
	assert.Len(t, completed, n-1)
}

func TestAssignPlanPublishesSuperseded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")
	f.connect(t, c1, t1)

	first, err := f.plans.AssignPlan(ctx, c1.ID, t1.ID, sampleDraft("A"))
	require.NoError(t, err)
	_, err = f.plans.AssignPlan(ctx, c1.ID, t1.ID, sampleDraft("B"))
	require.NoError(t, err)

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	var assigned []domain.PlanAssigned
	for _, e := range f.events.events {
		if pa, ok := e.(domain.PlanAssigned); ok {
			assigned = append(assigned, pa)
		}
	}
	require.Len(t, assigned, 2)
	assert.Empty(t, assigned[0].Superseded)
	require.Len(t, assigned[1].Superseded, 1)
	assert.Equal(t, first.ID, assigned[1].Superseded[0])
}
