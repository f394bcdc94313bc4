// Package model defines domain entities for the application.
package model

import "time"

// Account is the persistent user record. The password hash is never
// serialized into API responses.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"account_created"`
	UpdatedAt    time.Time `json:"account_updated"`
}
