package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/lock"
	"github.com/fitmatch/coaching-api/internal/repository/memory"
	"github.com/fitmatch/coaching-api/internal/storage"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordedEvents) PublishEvents(events ...domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type())
	}
	return out
}

type fixture struct {
	store        *memory.Store
	repos        Repositories
	events       *recordedEvents
	auth         AuthService
	identity     IdentityService
	relationship RelationshipService
	plans        PlanService
	messaging    MessagingService
	dashboard    DashboardService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithFiles(t, storage.Disabled{})
}

func newFixtureWithFiles(t *testing.T, files storage.FileStorage) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.NewStore()
	repos := Repositories{
		Users:    st.Users(),
		Requests: st.Requests(),
		Plans:    st.Plans(),
		Messages: st.Messages(),
		Tx:       st,
	}
	events := &recordedEvents{}
	locker := lock.NewLocal()

	return &fixture{
		store:        st,
		repos:        repos,
		events:       events,
		auth:         NewAuthService(repos.Users, BcryptHasher{Cost: bcrypt.MinCost}, events, logger, "test-secret", 0),
		identity:     NewIdentityService(repos, locker, files, events, logger),
		relationship: NewRelationshipService(repos, locker, events, logger),
		plans:        NewPlanService(repos, locker, events, logger),
		messaging:    NewMessagingService(repos, events, logger),
		dashboard:    NewDashboardService(repos),
	}
}

func (f *fixture) client(t *testing.T, name string) *domain.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "password123",
		Role:     domain.RoleClient,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) trainer(t *testing.T, name string) *domain.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Name:        name,
		Email:       strings.ToLower(name) + "@example.com",
		Password:    "password123",
		Role:        domain.RoleTrainer,
		Location:    "Copenhagen",
		Specialties: []string{"Strength"},
	})
	require.NoError(t, err)
	return u
}

// connect runs request + accept so trainer becomes client's active trainer.
func (f *fixture) connect(t *testing.T, client, trainer *domain.User) {
	t.Helper()
	ctx := context.Background()
	req, err := f.relationship.RequestConnection(ctx, client.ID, trainer.ID)
	require.NoError(t, err)
	_, err = f.relationship.Accept(ctx, req.ID, trainer.ID)
	require.NoError(t, err)
}

func sampleDraft(title string) domain.PlanDraft {
	return domain.PlanDraft{
		Title: title,
		Workouts: []domain.WorkoutDraft{{
			DayOfWeek: "Tuesday",
			Title:     "Legs",
			Exercises: domain.SplitLines("Squat 5x5\n\n  Lunges 3x10  \n"),
		}},
		Diet: &domain.DietDraft{
			Meals: []domain.MealDraft{{Name: "Oats", Calories: 350}},
		},
	}
}
