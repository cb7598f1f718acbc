package models

import "time"

// Follow is a directed edge of the social graph: FollowerID follows FollowedID.
// The composite primary key makes each ordered pair unique. Self-loops are
// not rejected at this level.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FollowedID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}
