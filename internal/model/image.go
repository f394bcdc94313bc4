package model

import "time"

// Image describes a profile image stored in the object store.
// Objects live under the "<account id>/" prefix; an account has at most one.
type Image struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	UploadDate time.Time `json:"upload_date"`
	AccountID  string    `json:"user_id"`
}
