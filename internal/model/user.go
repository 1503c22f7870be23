package model

import "time"

// User represents an application user record as stored in the `users`
// table.  PasswordHash is never rendered; handlers serialize the struct
// directly.
//
// Fields:
//
//	ID             – primary key identifier of the user.
//	Name           – display name.
//	Email          – unique, lower-cased email address.
//	PasswordHash   – bcrypt hashed password.
//	ProfilePicture – optional reference (URL or object key) to an avatar.
//	CreatedAt      – timestamp of creation.
//	UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64    `json:"id"`             // users.id
	Name           string    `json:"name"`           // users.name
	Email          string    `json:"email"`          // users.email
	PasswordHash   string    `json:"-"`              // users.password_hash
	ProfilePicture *string   `json:"profilePicture"` // users.profile_picture (nullable)
	CreatedAt      time.Time `json:"createdAt"`      // users.created_at
	UpdatedAt      time.Time `json:"updatedAt"`      // users.updated_at
}
