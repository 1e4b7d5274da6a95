package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

var (
	ErrClientExists       = errors.New("client already exists")
	ErrClientNotFound     = errors.New("client not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
)

// ClientID identifies a registered guest.
type ClientID uint32

// Client is an account that owns reservations. Reservations reference it by id
// only, so removing a client never touches them.
type Client struct {
	ID           ClientID  `json:"client_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
