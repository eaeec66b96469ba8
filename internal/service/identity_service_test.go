package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterEmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "Anna")

	_, err := f.auth.Register(ctx, RegisterInput{
		Name: "Other", Email: "ANNA@Example.com", Password: "password123", Role: domain.RoleClient,
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestRegisterTrainerNeedsLocation(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Name: "Tom", Email: "tom@example.com", Password: "password123", Role: domain.RoleTrainer,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegisterDefaults(t *testing.T) {
	f := newFixture(t)
	tr := f.trainer(t, "Tom")
	cl := f.client(t, "Cleo")

	require.NotNil(t, tr.HourlyRate)
	assert.Equal(t, DefaultTrainerHourlyRate, *tr.HourlyRate)
	assert.True(t, strings.HasPrefix(tr.PhotoURL, "https://"))
	assert.Empty(t, tr.PasswordHash)

	assert.Nil(t, cl.HourlyRate)
	assert.Nil(t, cl.ActiveTrainerID)
	assert.Equal(t, domain.LanguageEN, cl.PreferredLanguage)
	assert.Contains(t, f.events.types(), domain.EventUserRegistered)
}

func TestRegisterDeduplicatesSpecialties(t *testing.T) {
	f := newFixture(t)

	u, err := f.auth.Register(context.Background(), RegisterInput{
		Name: "Tom", Email: "tom@example.com", Password: "password123", Role: domain.RoleTrainer,
		Location: "Aarhus", Specialties: []string{"Yoga", "Yoga", " yoga ", "  ", "Strength"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Yoga", "Strength"}, u.Specialties)
}

func TestRegisterRejectsUnknownFitnessLevel(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Name: "Cleo", Email: "cleo@example.com", Password: "password123", Role: domain.RoleClient,
		HealthData: &domain.HealthRecord{FitnessLevel: "Olympian"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.client(t, "Cleo")

	token, user, err := f.auth.Login(ctx, "CLEO@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, _, err = f.auth.Login(ctx, "cleo@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.auth.Authenticate(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUpdateProfileMergesAndKeepsRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")
	f.connect(t, c1, t1)

	weight := 72.5
	lang := domain.LanguageDK
	updated, err := f.identity.UpdateProfile(ctx, c1.ID, domain.ProfilePatch{
		PreferredLanguage: &lang,
		HealthData:        &domain.HealthRecord{Weight: &weight, FitnessLevel: domain.FitnessIntermediate, Goals: "Run 10k"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleClient, updated.Role)
	assert.Equal(t, "C1", updated.Name)
	assert.Equal(t, domain.LanguageDK, updated.PreferredLanguage)
	require.NotNil(t, updated.HealthData)
	assert.Equal(t, "Run 10k", updated.HealthData.Goals)
	assert.True(t, updated.HasActiveTrainer(t1.ID))
	assert.Contains(t, f.events.types(), domain.EventProfileUpdated)
}

func TestUpdateProfileDeduplicatesSpecialties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.trainer(t, "T1")

	updated, err := f.identity.UpdateProfile(ctx, t1.ID, domain.ProfilePatch{
		Specialties: []string{"Mobility", "MOBILITY", " ", "Strength ", "strength"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mobility", "Strength"}, updated.Specialties)

	found, err := f.identity.SearchTrainers(ctx, TrainerFilter{Specialty: "mobility"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{"Mobility", "Strength"}, found[0].Specialties)
}

func TestUpdateProfileValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")

	rate := -5.0
	_, err := f.identity.UpdateProfile(ctx, t1.ID, domain.ProfilePatch{HourlyRate: &rate})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	empty := " "
	_, err = f.identity.UpdateProfile(ctx, t1.ID, domain.ProfilePatch{Location: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.identity.UpdateProfile(ctx, t1.ID, domain.ProfilePatch{HealthData: &domain.HealthRecord{Goals: "x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.identity.UpdateProfile(ctx, c1.ID, domain.ProfilePatch{HealthData: &domain.HealthRecord{FitnessLevel: "Pro"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateClientNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, t1, t2 := f.client(t, "C1"), f.trainer(t, "T1"), f.trainer(t, "T2")
	f.connect(t, c1, t1)

	err := f.identity.UpdateClientNotes(ctx, t2.ID, c1.ID, "x")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.identity.UpdateClientNotes(ctx, t1.ID, c1.ID, "Watch the left knee"))
	stored, err := f.repos.Users.GetByID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Watch the left knee", stored.TrainerNotes)
}

func TestSearchTrainersAndFacets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, in := range []RegisterInput{
		{Name: "Maja Holm", Email: "maja@example.com", Location: "Aarhus", Specialties: []string{"Yoga", "Mobility"}},
		{Name: "Jonas Berg", Email: "jonas@example.com", Location: "Copenhagen", Specialties: []string{"Strength"}},
		{Name: "Mads Lund", Email: "mads@example.com", Location: "Copenhagen", Specialties: []string{"Strength", "Yoga"}},
	} {
		in.Password, in.Role = "password123", domain.RoleTrainer
		_, err := f.auth.Register(ctx, in)
		require.NoError(t, err)
	}
	f.client(t, "NotATrainer")

	all, err := f.identity.SearchTrainers(ctx, TrainerFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byName, err := f.identity.SearchTrainers(ctx, TrainerFilter{Name: "ma"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	yogaInCph, err := f.identity.SearchTrainers(ctx, TrainerFilter{Location: "copenhagen", Specialty: "yoga"})
	require.NoError(t, err)
	require.Len(t, yogaInCph, 1)
	assert.Equal(t, "Mads Lund", yogaInCph[0].Name)

	facets, err := f.identity.TrainerFacets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aarhus", "Copenhagen"}, facets.Locations)
	assert.Equal(t, []string{"Mobility", "Strength", "Yoga"}, facets.Specialties)
}

func TestClientsOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, c2, t1 := f.client(t, "C1"), f.client(t, "C2"), f.trainer(t, "T1")
	f.connect(t, c1, t1)
	_, err := f.relationship.RequestConnection(ctx, c2.ID, t1.ID)
	require.NoError(t, err)

	roster, err := f.identity.ClientsOf(ctx, t1.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, c1.ID, roster[0].ID)
}

type fakeFiles struct {
	uploaded  map[string]bool
	deleted   []string
	deleteErr error
}

func (f *fakeFiles) GeneratePresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://upload.example.com/" + key + "?sig=1", nil
}

func (f *fakeFiles) ObjectExists(_ context.Context, key string) (bool, error) {
	return f.uploaded[key], nil
}

func (f *fakeFiles) PublicURL(key string) string { return "https://cdn.example.com/" + key }

func (f *fakeFiles) DeleteObject(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

func TestPhotoUploadFlow(t *testing.T) {
	files := &fakeFiles{uploaded: map[string]bool{}}
	f := newFixtureWithFiles(t, files)
	ctx := context.Background()
	c1, c2 := f.client(t, "C1"), f.client(t, "C2")

	_, err := f.identity.RequestPhotoUpload(ctx, c1.ID, "application/pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	resp, err := f.identity.RequestPhotoUpload(ctx, c1.ID, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resp.ObjectKey, ".png"))
	assert.Contains(t, resp.UploadURL, resp.ObjectKey)

	_, err = f.identity.ConfirmPhotoUpload(ctx, c1.ID, resp.ObjectKey)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "not uploaded yet")

	files.uploaded[resp.ObjectKey] = true
	_, err = f.identity.ConfirmPhotoUpload(ctx, c2.ID, resp.ObjectKey)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.identity.ConfirmPhotoUpload(ctx, c1.ID, resp.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+resp.ObjectKey, updated.PhotoURL)
	assert.Empty(t, files.deleted, "placeholder photo is not ours to delete")
}

func TestPhotoUploadReplacesPreviousObject(t *testing.T) {
	files := &fakeFiles{uploaded: map[string]bool{}}
	f := newFixtureWithFiles(t, files)
	ctx := context.Background()
	c1 := f.client(t, "C1")

	upload := func() string {
		resp, err := f.identity.RequestPhotoUpload(ctx, c1.ID, "image/jpeg")
		require.NoError(t, err)
		files.uploaded[resp.ObjectKey] = true
		_, err = f.identity.ConfirmPhotoUpload(ctx, c1.ID, resp.ObjectKey)
		require.NoError(t, err)
		return resp.ObjectKey
	}

	first := upload()
	second := upload()
	assert.Equal(t, []string{first}, files.deleted)

	files.deleteErr = errors.New("bucket unavailable")
	third := upload()
	assert.Equal(t, []string{first, second}, files.deleted)

	me, err := f.identity.GetUser(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+third, me.PhotoURL, "delete failure does not undo the update")
}
