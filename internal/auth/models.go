package auth

import "time"

type Session struct {
	SessionID string    `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (Session) TableName() string { return "app_auth.sessions" }
