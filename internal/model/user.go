package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is an account allowed to log in and submit CRM entries.
// Username and email are unique ignoring case: the lowercased key columns
// carry the unique indexes, the display columns keep what the user typed.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:100;not null"`
	UsernameKey  string `gorm:"column:username_key;size:100;uniqueIndex;not null"`
	Email        string `gorm:"size:254;not null"`
	EmailKey     string `gorm:"column:email_key;size:254;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	CreatedAt    time.Time
}

func (User) TableName() string { return "users" }

// NormalizeKey is the form username and email are compared in.
func NormalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// BeforeSave keeps the key columns in step with the display columns.
func (u *User) BeforeSave(*gorm.DB) error {
	u.UsernameKey = NormalizeKey(u.Username)
	u.EmailKey = NormalizeKey(u.Email)
	return nil
}
