package types

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what an account is allowed to do on the platform.
type Role string

const (
	RoleReader Role = "reader"
	RoleWriter Role = "writer"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleReader, RoleWriter, RoleAdmin:
		return true
	}
	return false
}

// Account is the persisted user identity subject to lifecycle state.
// Lifecycle fields are written exclusively through the account service;
// everything else reads them.
type Account struct {
	ID                  uuid.UUID  `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Role                Role       `json:"role"`
	IsActive            bool       `json:"is_active"`
	DeactivatedAt       *time.Time `json:"deactivated_at,omitempty"`
	IsBlocked           bool       `json:"is_blocked"`
	BlockedAt           *time.Time `json:"blocked_at,omitempty"`
	BlockedBy           *uuid.UUID `json:"blocked_by,omitempty"`
	BlockReason         *string    `json:"block_reason,omitempty"`
	DeletionRequestedAt *time.Time `json:"deletion_requested_at,omitempty"`
	DeletionReason      *string    `json:"deletion_reason,omitempty"`
	EmailVerifiedAt     *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// EmailVerified reports whether the account's email address has been confirmed.
func (a *Account) EmailVerified() bool {
	return a.EmailVerifiedAt != nil
}

// DeletionPending reports whether the account is inside its deletion grace period.
func (a *Account) DeletionPending() bool {
	return a.DeletionRequestedAt != nil
}

// CreateAccountParams carries the fields needed to insert a new account.
type CreateAccountParams struct {
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	// EmailVerified is set for provider-created accounts whose email the
	// provider already confirmed.
	EmailVerified bool
}

// Generic response for simple success/error messages.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
