package repository

import (
	"context"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	Append(tx *gorm.DB, entry *model.Transaction) error
	FindByProduct(ctx context.Context, productID uint) ([]model.Transaction, error)
	FindAll(ctx context.Context) ([]model.Transaction, error)
	FindByID(ctx context.Context, id uint) (*model.Transaction, error)
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
	GetDashboardStats(ctx context.Context, lowStockThreshold int) (*DashboardStats, error)
}

// StockMovementData untuk chart data
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalProducts     int64           `json:"total_products"`
	TotalUnits        int64           `json:"total_units"`
	LowStockCount     int64           `json:"low_stock_count"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	TotalValuation    decimal.Decimal `json:"total_valuation"`
	TransactionCount  int64           `json:"transaction_count"`
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

// Append inserts a new log entry inside the caller's transaction and
// assigns its ID. There is deliberately no update or delete counterpart.
func (r *transactionRepo) Append(tx *gorm.DB, entry *model.Transaction) error {
	return tx.Create(entry).Error
}

func (r *transactionRepo) FindByProduct(ctx context.Context, productID uint) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) FindAll(ctx context.Context) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).Order("id DESC").Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) FindByID(ctx context.Context, id uint) (*model.Transaction, error) {
	var transaction model.Transaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &transaction, nil
}

func (r *transactionRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	results := []StockMovementData{}

	// Query untuk aggregate transactions per hari
	rows, err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN action = ? THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN action = ? THEN quantity ELSE 0 END), 0) as outbound
		`, model.TxAdd, model.TxDeduct).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		var day interface{}
		if err := rows.Scan(&day, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		data.Date = formatDay(day)
		results = append(results, data)
	}

	return results, rows.Err()
}

// formatDay normalizes DATE() output, which drivers return as time.Time,
// []byte or string.
func formatDay(v interface{}) string {
	switch d := v.(type) {
	case time.Time:
		return d.Format("2006-01-02")
	case []byte:
		return string(d)
	case string:
		return d
	}
	return ""
}

func (r *transactionRepo) GetDashboardStats(ctx context.Context, lowStockThreshold int) (*DashboardStats, error) {
	stats := DashboardStats{LowStockThreshold: lowStockThreshold}
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Where("quantity < ?", lowStockThreshold).Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Select("COALESCE(SUM(quantity), 0)").Scan(&stats.TotalUnits).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Transaction{}).Count(&stats.TransactionCount).Error; err != nil {
		return nil, err
	}

	// Valuation is summed in Go to keep decimal precision across drivers
	var products []model.Product
	if err := db.Select("price", "quantity").Find(&products).Error; err != nil {
		return nil, err
	}
	stats.TotalValuation = decimal.Zero
	for _, p := range products {
		stats.TotalValuation = stats.TotalValuation.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}

	return &stats, nil
}
