// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// The ID is normally supplied by the client at signup; the service fills in an
// xid when it is missing. Email is the login key and is unique across users.
//
// PasswordHash holds the bcrypt output and is tagged json:"-" so it can never
// leave the server through an API response, however the struct is encoded.
type User struct {
	ID           string    `json:"id"    db:"id"`
	Name         string    `json:"name"  db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-"     db:"password_hash"`
	CreatedAt    time.Time `json:"-"     db:"created_at"`
}
