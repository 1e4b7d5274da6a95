package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirpyerre/hotel-reservations/internal/api/metrics"
	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
)

const minPasswordLen = 5

// ClientService implements registration and login.
type ClientService struct {
	directory  ports.ClientDirectory
	jwtSecret  string
	tokenTTL   time.Duration
	adminEmail string
	log        zerolog.Logger
}

func NewClientService(directory ports.ClientDirectory, jwtSecret string, tokenTTL time.Duration, adminEmail string, log zerolog.Logger) *ClientService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &ClientService{
		directory:  directory,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		log:        log,
	}
}

// Register creates a client account. The account whose email matches the
// configured admin email gets the admin role. A durability failure is
// returned wrapped in domain.ErrPersistence alongside the live account.
func (s *ClientService) Register(ctx context.Context, email, password string) (*domain.Client, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) < minPasswordLen {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := domain.RoleClient
	if s.adminEmail != "" && strings.EqualFold(email, s.adminEmail) {
		role = domain.RoleAdmin
	}

	created, err := s.directory.Create(ctx, &domain.Client{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if created != nil && errors.Is(err, domain.ErrPersistence) {
			metrics.PersistenceErrorsTotal.WithLabelValues("register").Inc()
			s.log.Warn().Err(err).Uint32("client_id", uint32(created.ID)).Msg("client registered but not persisted")
			return created, err
		}
		return nil, err
	}

	s.log.Info().Uint32("client_id", uint32(created.ID)).Str("role", created.Role).Msg("client registered")
	return created, nil
}

// Login checks the credentials and returns a signed token.
func (s *ClientService) Login(ctx context.Context, email, password string) (string, *domain.Client, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	// An unknown email looks the same as a wrong password to the caller.
	client, err := s.directory.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrClientNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(client)
	if err != nil {
		return "", nil, err
	}

	return token, client, nil
}

func (s *ClientService) generateToken(client *domain.Client) (string, error) {
	claims := jwt.MapClaims{
		"sub":       client.Email,
		"role":      client.Role,
		"client_id": float64(client.ID),
		"exp":       time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
