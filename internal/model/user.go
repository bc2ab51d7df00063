package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a staff account. Passwords are stored as bcrypt hashes only.
type User struct {
	BaseModel
	Username    string `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Password    string `gorm:"type:varchar(255);not null" json:"-"` // Hidden from JSON
	IDNumber    string `gorm:"type:varchar(50)" json:"idNumber"`
	PhoneNumber string `gorm:"type:varchar(20)" json:"phoneNumber"`
	Position    string `gorm:"type:varchar(100)" json:"position"`
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	IDNumber    string    `json:"idNumber"`
	PhoneNumber string    `json:"phoneNumber"`
	Position    string    `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		IDNumber:    u.IDNumber,
		PhoneNumber: u.PhoneNumber,
		Position:    u.Position,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
