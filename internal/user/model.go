package user

import "time"

// User is the stored account record. Email and PasswordHash are private and
// must never reach a client; use Project to build the public view.
type User struct {
	ID           string
	Name         *string
	Email        *string
	Image        *string
	PasswordHash string
	CreatedAt    time.Time
}

// Profile is the public projection of a User.
type Profile struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}
