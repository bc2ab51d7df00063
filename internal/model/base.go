package model

import "time"

// BaseModel carries the surrogate numeric ID and timestamps shared by
// mutable records. Rows are hard-deleted, so there is no DeletedAt.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
