package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is a registered identity. PasswordHash is the bcrypt string and is never serialised to clients.
type Account struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	Name         string    `json:"name" dynamodbav:"name"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	PhoneNumber  *string   `json:"phone_number,omitempty" dynamodbav:"phone_number,omitempty"`
	Role         string    `json:"role" dynamodbav:"role"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
}

// AccountSummary is the client-safe view of an Account.
type AccountSummary struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created"`
}

func (a *Account) Summary() *AccountSummary {
	return &AccountSummary{
		UserID:      a.UserID,
		Email:       a.Email,
		Name:        a.Name,
		PhoneNumber: a.PhoneNumber,
		Role:        a.Role,
		CreatedAt:   a.CreatedAt,
	}
}

// ValidRole reports whether role is one of the closed set of account roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
