package model

// DateLayout is the ISO-8601 form used for Favorite.Date (millisecond precision, UTC).
const DateLayout = "2006-01-02T15:04:05.000Z"

// Default values applied when a saved package omits optional metadata.
const (
	DefaultDescription = "No description available"
	DefaultReason      = "No reason provided"
)

// Favorite is a package a user saved from the registry together with a note.
//
// Name, Version, Description and Date are a snapshot of the registry entry at
// save time. ReasonForBeingFavorite is the only field that changes after
// creation. User is the owner's ID and is always stamped by the service from
// the authenticated identity, never taken from the request body.
//
// The JSON field names match the records the web client sends and expects.
type Favorite struct {
	ID                     string `json:"id"                     db:"id"`
	Name                   string `json:"name"                   db:"name"`
	Version                string `json:"version"                db:"version"`
	Description            string `json:"description"            db:"description"`
	ReasonForBeingFavorite string `json:"reasonForBeingFavorite" db:"reason"`
	Date                   string `json:"date"                   db:"date"`
	User                   string `json:"user"                   db:"user_id"`
}
