package models

import "time"

// Like records that a user liked a post.
// (UserID, PostID) is indexed but deliberately not unique: duplicates are only
// prevented by a read-before-insert check in the like service.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;index:idx_likes_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
