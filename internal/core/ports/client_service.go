package ports

import (
	"context"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

// ClientDirectory owns the registered clients.
type ClientDirectory interface {
	FindByEmail(ctx context.Context, email string) (*domain.Client, error)
	FindByID(ctx context.Context, id domain.ClientID) (*domain.Client, error)
	// Create assigns the next client id. Returns domain.ErrClientExists when
	// the email is taken.
	Create(ctx context.Context, c *domain.Client) (*domain.Client, error)
}

// ClientService handles registration and login.
type ClientService interface {
	Register(ctx context.Context, email, password string) (*domain.Client, error)
	Login(ctx context.Context, email, password string) (string, *domain.Client, error)
}
