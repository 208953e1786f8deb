package domain

import "time"

// User is a registered account. Participants reference users by id only;
// the password hash never leaves the store and the HTTP auth handlers.
type User struct {
	ID           string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
