package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an identity known to the terminal. Anonymous users are created on
// first sign-in without a pre-issued credential.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Tenant    string    `gorm:"size:100;not null;index" json:"tenant"`
	Anonymous bool      `gorm:"not null;default:false" json:"anonymous"`
	TokenHash string    `gorm:"column:token_hash;type:text" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
