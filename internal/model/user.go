// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// PasswordHash holds the full self-describing hash string (algorithm,
// parameters and salt included). It is never rendered or serialized.
type User struct {
	ID           int64     `json:"id"        db:"id"            gorm:"primaryKey;autoIncrement"`
	Name         string    `json:"name"      db:"name"          gorm:"size:100;not null"`
	Email        string    `json:"-"         db:"email"         gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string    `json:"-"         db:"password"      gorm:"column:password;size:255;not null"`
	Socials      []Social  `json:"-"         db:"-"             gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName pins the gorm table name to the one the sqlite store creates.
func (User) TableName() string { return "users" }
