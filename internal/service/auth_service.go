package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrHashingFailed   = errors.New("failed to hash password")
	ErrTokenGeneration = errors.New("failed to generate authentication token")
)

// Registration defaults applied when the caller leaves the field empty.
const (
	DefaultTrainerHourlyRate = 500.0
	placeholderPhotoURL      = "https://picsum.photos/seed/%s/200/200"
)

// PasswordHasher is the credential-hashing collaborator. Plaintext is never stored.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher hashes with bcrypt at the given cost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(hashed), nil
}

func (BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// RegisterInput is a new user's profile plus credentials.
type RegisterInput struct {
	Name              string               `json:"name" validate:"required,max=120"`
	Email             string               `json:"email" validate:"required,email"`
	Password          string               `json:"password" validate:"required,min=8"`
	Role              domain.Role          `json:"role" validate:"required,oneof=CLIENT TRAINER"`
	PhotoURL          string               `json:"photoUrl" validate:"omitempty,url"`
	Location          string               `json:"location" validate:"max=120"`
	Bio               string               `json:"bio" validate:"max=4000"`
	Specialties       []string             `json:"specialties" validate:"omitempty,dive,min=1,max=60"`
	HourlyRate        *float64             `json:"hourlyRate" validate:"omitempty,gte=0"`
	PreferredLanguage domain.Language      `json:"preferredLanguage" validate:"omitempty,oneof=EN DK"`
	HealthData        *domain.HealthRecord `json:"healthData"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	// Authenticate returns the matching user or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	GetJWTSecret() string
}

// authService implements the AuthService interface.
type authService struct {
	users         repository.UserRepository
	hasher        PasswordHasher
	events        EventPublisher
	logger        *slog.Logger
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(users repository.UserRepository, hasher PasswordHasher, events EventPublisher, logger *slog.Logger, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour * 1 // Default to 1 hour if not set properly
	}
	return &authService{
		users:         users,
		hasher:        hasher,
		events:        events,
		logger:        logger,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register handles new user registration.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Location = strings.TrimSpace(in.Location)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Role == domain.RoleTrainer && in.Location == "" {
		return nil, fmt.Errorf("%w: trainers must provide a location", domain.ErrInvalidInput)
	}
	if err := validateHealth(in.HealthData); err != nil {
		return nil, err
	}

	// Fast path; the unique index settles races below.
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		Role:         in.Role,
		PhotoURL:     in.PhotoURL,
		Location:     in.Location,
		Bio:          in.Bio,
		Specialties:  domain.NormalizeSpecialties(in.Specialties),
		HourlyRate:   in.HourlyRate,
	}
	switch in.Role {
	case domain.RoleTrainer:
		if user.HourlyRate == nil {
			rate := DefaultTrainerHourlyRate
			user.HourlyRate = &rate
		}
	case domain.RoleClient:
		user.PreferredLanguage = in.PreferredLanguage
		if user.PreferredLanguage == "" {
			user.PreferredLanguage = domain.LanguageEN
		}
		user.HealthData = in.HealthData
	}
	if user.PhotoURL == "" {
		user.PhotoURL = fmt.Sprintf(placeholderPhotoURL, uuid.NewString())
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID.Hex(), "role", user.Role)
	publish(s.logger, s.events, domain.NewUserRegistered(user))

	// Remove password hash before returning
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials // unknown email maps to auth failure
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.generateJWT(user)
	if err != nil {
		s.logger.Error("failed to sign token", "user_id", user.ID.Hex(), "error", err)
		return "", nil, ErrTokenGeneration
	}
	return token, user, nil
}

// --- JWT Helper ---

// Claims defines the structure of the JWT payload.
type Claims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "coaching-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}

func validateHealth(h *domain.HealthRecord) error {
	if h == nil {
		return nil
	}
	if h.FitnessLevel != "" && !h.FitnessLevel.Valid() {
		return fmt.Errorf("%w: unknown fitness level %q", domain.ErrInvalidInput, h.FitnessLevel)
	}
	if (h.Weight != nil && *h.Weight <= 0) || (h.Height != nil && *h.Height <= 0) {
		return fmt.Errorf("%w: weight and height must be positive", domain.ErrInvalidInput)
	}
	return nil
}
