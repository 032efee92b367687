package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The password column only ever holds a bcrypt hash and is never
// serialised, so a User can be returned from handlers directly.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address, stored trimmed and lower-cased.
//	Name         – display name.
//	PasswordHash – bcrypt hash of the password (users.password).
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	PasswordHash string    `gorm:"column:password;size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
