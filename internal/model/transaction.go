package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type TransactionAction string

const (
	TxAdd    TransactionAction = "add"
	TxDeduct TransactionAction = "deduct"
)

// Notes recorded alongside the action
const (
	NoteSale       = "sale"
	NoteAdjustment = "adjustment"
)

var ErrImmutableTransaction = errors.New("transactions are append-only")

// Transaction is one immutable stock log entry. ProductName is
// denormalized and there is no foreign key, so history outlives the product.
type Transaction struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	ProductID         uint              `gorm:"not null;index" json:"product_id"`
	ProductName       string            `gorm:"type:varchar(255);not null" json:"product_name"`
	Action            TransactionAction `gorm:"type:varchar(10);not null" json:"action"`
	Quantity          int               `gorm:"not null;check:quantity > 0" json:"quantity"`
	RemainingQuantity int               `gorm:"not null;check:remaining_quantity >= 0" json:"remaining_quantity"`
	Note              string            `gorm:"type:varchar(50)" json:"note,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

func (Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableTransaction
}
