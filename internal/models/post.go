package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a blog entry written by exactly one author.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"size:100;not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	ImageFile string         `gorm:"size:255;not null;default:default.jpg" json:"image_file"`
	Likes     int            `gorm:"not null;default:0" json:"likes"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Author    User           `gorm:"foreignKey:UserID" json:"author"`
	CreatedAt time.Time      `gorm:"index" json:"date_posted"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate fills in the default post image.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ImageFile == "" {
		p.ImageFile = DefaultImageFile
	}
	return nil
}
