// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/accountd/accountd/internal/model"
)

// CreateAccountRequest is the registration payload. The wire key set is
// validated against the create allow-list before decoding into this type.
type CreateAccountRequest struct {
	EmailAddress string `json:"emailAddress"`
	Password     string `json:"password"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
}

// UpdateAccountRequest is the self-update payload. An absent key and an
// empty string both mean "keep the existing value".
type UpdateAccountRequest struct {
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AccountResponse is the account representation returned by the API.
// The credential hash is never part of it.
type AccountResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	AccountCreated time.Time `json:"account_created"`
	AccountUpdated time.Time `json:"account_updated"`
}

// ImageResponse describes a stored profile image.
type ImageResponse struct {
	FileName   string    `json:"file_name"`
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	UploadDate time.Time `json:"upload_date"`
	UserID     string    `json:"user_id"`
}

// ToAccountResponse converts an Account model to its API representation.
func ToAccountResponse(account *model.Account) *AccountResponse {
	return &AccountResponse{
		ID:             account.ID,
		FirstName:      account.FirstName,
		LastName:       account.LastName,
		Email:          account.Email,
		AccountCreated: account.CreatedAt,
		AccountUpdated: account.UpdatedAt,
	}
}

// ToImageResponse converts an Image model to its API representation.
func ToImageResponse(image *model.Image) *ImageResponse {
	return &ImageResponse{
		FileName:   image.FileName,
		ID:         image.ID,
		URL:        image.URL,
		UploadDate: image.UploadDate,
		UserID:     image.AccountID,
	}
}
