package model

import "github.com/shopspring/decimal"

// Product is a stocked item, identified by its unique name.
// Quantity changes only through the stock mutation path so that every
// change has a matching Transaction.
type Product struct {
	BaseModel
	Name        string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"type:varchar(100);index" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Quantity    int             `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
}
