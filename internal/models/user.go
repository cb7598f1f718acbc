// Package models contains the persistent domain types and the application error taxonomy.
package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultImageFile is the image reference given to users and posts without an upload.
const DefaultImageFile = "default.jpg"

// User is a registered account. NumFollowers and NumFollowing are maintained
// by the follow repository in the same transaction as the edge mutation.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:20;uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"size:120;uniqueIndex;not null" json:"email"`
	ImageFile    string         `gorm:"size:255;not null;default:default.jpg" json:"image_file"`
	Password     string         `gorm:"size:60;not null" json:"-"`
	NumFollowers int            `gorm:"not null;default:0" json:"num_followers"`
	NumFollowing int            `gorm:"not null;default:0" json:"num_following"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate fills in the default avatar.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ImageFile == "" {
		u.ImageFile = DefaultImageFile
	}
	return nil
}
