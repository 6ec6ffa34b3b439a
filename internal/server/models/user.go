// Package models holds the server-side persistence models.
package models

import "time"

// User is an account record. PasswordHash is a bcrypt hash; the plaintext
// password never reaches storage or logs.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
