package model

import "time"

// Post is a blog entry written by a single author.  Content is nullable in
// the table but the HTTP layer refuses null values.  AuthorID is taken from
// the authenticated user at creation time and never changes afterwards.
// Author is only populated on single-post reads.
type Post struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   *string   `gorm:"type:text" json:"content"`
	Published bool      `gorm:"not null;default:false" json:"published"`
	AuthorID  uint64    `gorm:"index;not null" json:"authorId"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
