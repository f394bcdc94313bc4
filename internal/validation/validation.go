// Package validation enforces payload format rules and per-operation field
// allow-lists before any account mutation is attempted.
package validation

import (
	"errors"
	"regexp"
)

// Validation errors.
var (
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrMissingPassword = errors.New("password is required")
	ErrFieldNotAllowed = errors.New("field is not allowed for this operation")
	ErrEmptyFieldSet   = errors.New("payload contains no fields")
)

// emailPattern matches the canonical account email format.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+$`)

// Wire field names accepted by the account endpoints.
const (
	FieldEmail     = "emailAddress"
	FieldPassword  = "password"
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
)

// CreateAllowList is the exact field set the registration payload may carry.
var CreateAllowList = []string{FieldEmail, FieldPassword, FieldFirstName, FieldLastName}

// UpdateAllowList is the exact field set a self-update payload may carry.
// Email is never mutable via update.
var UpdateAllowList = []string{FieldPassword, FieldFirstName, FieldLastName}

// ValidateEmail checks the email against the account email format.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateCreate checks a registration payload's email format and password
// presence. The email check runs first and short-circuits.
func ValidateCreate(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return ErrMissingPassword
	}
	return nil
}

// CheckCreateFields verifies the set of keys present in a registration
// payload is a subset of CreateAllowList. Extra or unknown keys are rejected.
func CheckCreateFields(present []string) error {
	return checkSubset(present, CreateAllowList, true)
}

// CheckUpdateFields verifies the set of keys present in an update payload is
// a non-empty subset of UpdateAllowList.
func CheckUpdateFields(present []string) error {
	return checkSubset(present, UpdateAllowList, false)
}

func checkSubset(present, allowed []string, allowEmpty bool) error {
	if len(present) == 0 && !allowEmpty {
		return ErrEmptyFieldSet
	}
	if len(present) > len(allowed) {
		return ErrFieldNotAllowed
	}

	for _, field := range present {
		if !containsField(allowed, field) {
			return ErrFieldNotAllowed
		}
	}
	return nil
}

func containsField(set []string, field string) bool {
	for _, f := range set {
		if f == field {
			return true
		}
	}
	return false
}
