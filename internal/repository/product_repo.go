package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByName(ctx context.Context, name string) (*model.Product, error)
	DeleteByName(ctx context.Context, name string) error

	// Locking reads and writes used inside a stock mutation transaction
	LockByID(tx *gorm.DB, id uint) (*model.Product, error)
	LockByName(tx *gorm.DB, name string) (*model.Product, error)
	UpdateQuantity(tx *gorm.DB, id uint, expected, newQuantity int) error
	UpdateFields(tx *gorm.DB, id uint, fields map[string]interface{}) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindByName(ctx context.Context, name string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) DeleteByName(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LockByID reads the product with SELECT ... FOR UPDATE so concurrent
// mutations of the same row queue behind this transaction.
func (r *productRepo) LockByID(tx *gorm.DB, id uint) (*model.Product, error) {
	var product model.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) LockByName(tx *gorm.DB, name string) (*model.Product, error) {
	var product model.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// UpdateQuantity menerima *gorm.DB (tx) agar bisa berjalan dalam transaksi.
// The write only applies while the row still holds expected, so a caller
// that read a stale quantity gets ErrStaleQuantity instead of a lost update.
func (r *productRepo) UpdateQuantity(tx *gorm.DB, id uint, expected, newQuantity int) error {
	if newQuantity < 0 {
		return ErrNegativeQuantity
	}
	result := tx.Model(&model.Product{}).
		Where("id = ? AND quantity = ?", id, expected).
		Update("quantity", newQuantity)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&model.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStaleQuantity
	}
	return nil
}

func (r *productRepo) UpdateFields(tx *gorm.DB, id uint, fields map[string]interface{}) error {
	if q, ok := fields["quantity"]; ok {
		if n, isInt := q.(int); isInt && n < 0 {
			return ErrNegativeQuantity
		}
	}
	// Callers lock the row first, so a missing product is already reported
	return translate(tx.Model(&model.Product{}).Where("id = ?", id).Updates(fields).Error)
}
