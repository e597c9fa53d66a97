package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/pharmanet/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

const (
	AggregateTypeAccount = "Account"

	EventTypeAccountRegistered = "AccountRegistered"
)

// Account is a pharmacist or supplier. Buyers and sellers share one record
// and are told apart by Role.
type Account struct {
	shared.BaseAggregateRoot
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Phone        string
	Address      string
	LastLoginAt  *time.Time
}

// NewAccount creates an account with a hashed password
func NewAccount(name, email, password string, role Role) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewInvalidInputError("name", "Name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewInvalidInputError("name", "Name cannot exceed 200 characters")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || len(email) > 200 {
		return nil, shared.NewInvalidInputError("email", "Invalid email format")
	}
	if !role.IsValid() {
		return nil, shared.NewInvalidInputError("role", "Unknown role")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	account := &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		PasswordHash:      string(hash),
		Role:              role,
	}
	account.Raise(NewAccountRegisteredEvent(account))

	return account, nil
}

// VerifyPassword checks a plaintext password against the stored hash
func (a *Account) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// SetContact updates phone and address
func (a *Account) SetContact(phone, address string) {
	a.Phone = strings.TrimSpace(phone)
	a.Address = strings.TrimSpace(address)
	a.Touch()
}

// RecordLogin stamps the last successful login
func (a *Account) RecordLogin() {
	now := time.Now()
	a.LastLoginAt = &now
	a.IncrementVersion()
}

// Caller returns the identity this account acts under
func (a *Account) Caller() Caller {
	return NewCaller(a.ID, a.Role)
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewInvalidInputError("password", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewInvalidInputError("password", "Password cannot exceed 72 characters")
	}
	return nil
}

// AccountRegisteredEvent is raised when a new account signs up
type AccountRegisteredEvent struct {
	shared.BaseDomainEvent
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// NewAccountRegisteredEvent creates a new AccountRegisteredEvent
func NewAccountRegisteredEvent(a *Account) *AccountRegisteredEvent {
	return &AccountRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountRegistered, AggregateTypeAccount, a.ID, a.ID),
		AccountID:       a.ID.String(),
		Email:           a.Email,
		Role:            a.Role,
	}
}
