package models

import "time"

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-" gorm:"not null"`
	IsVerified   bool      `json:"is_verified" gorm:"not null;default:false"`
}

func (User) TableName() string { return "users" }

// Session stores only the sha256 of the bearer token. A session is live while
// now < ExpiresAt; logout moves ExpiresAt into the past and keeps the row.
type Session struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint      `gorm:"not null;index"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UserAgent *string
	IPAddress *string
}

func (Session) TableName() string { return "sessions" }

type EmailVerification struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UserID     uint      `gorm:"not null;index"`
	TokenHash  string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	ConsumedAt *time.Time
}

func (EmailVerification) TableName() string { return "email_verifications" }

type PasswordReset struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UserID     uint      `gorm:"not null;index"`
	TokenHash  string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	ConsumedAt *time.Time
}

func (PasswordReset) TableName() string { return "password_resets" }
