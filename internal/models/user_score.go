package models

import "time"

// UserScore is the cumulative score aggregate for one participant across
// all challenges. The only mutation is an increment by a positive delta,
// applied in the same transaction that records the submission, so the
// value is monotonically non-decreasing.
type UserScore struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`
	Score     int       `gorm:"not null;default:0" json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}
