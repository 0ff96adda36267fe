package models

import "time"

// Challenge is a published coding problem. Challenges are never deleted;
// publishing a new one deactivates every prior challenge in the same
// transaction, so at most one row has Active set at any moment.
type Challenge struct {
	ID                string    `gorm:"primaryKey;size:64" json:"id"`
	Title             string    `gorm:"size:200;not null" json:"title"`
	Description       string    `gorm:"type:text;not null" json:"description"`
	Active            bool      `gorm:"not null;default:false;index" json:"active"`
	LeaderboardHandle string    `gorm:"size:64;not null" json:"leaderboard_handle"`
	CreatedAt         time.Time `json:"created_at"`
}
