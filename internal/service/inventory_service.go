package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/ws"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,notblank,max=255"`
	Description string          `json:"description"`
	Category    string          `json:"category" validate:"max=100"`
	Price       decimal.Decimal `json:"price" validate:"gte=0,price"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
}

// UpdateProductRequest is a partial update; nil fields are left alone.
type UpdateProductRequest struct {
	Description *string          `json:"description"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0,price"`
	Quantity    *int             `json:"quantity" validate:"omitempty,gte=0"`
}

func (r *UpdateProductRequest) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.Category != nil {
		fields["category"] = *r.Category
	}
	if r.Price != nil {
		fields["price"] = *r.Price
	}
	return fields
}

type InventoryService interface {
	CreateProduct(ctx context.Context, req *CreateProductRequest) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, name string) (*model.Product, error)
	UpdateProduct(ctx context.Context, name string, req *UpdateProductRequest) (*MutationResult, error)
	DeleteProduct(ctx context.Context, name string) error
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id uint) (*model.Transaction, error)
}

type inventoryService struct {
	productRepo     repository.ProductRepository
	transactionRepo repository.TransactionRepository
	stock           StockService
	events          EventPublisher
	log             *zap.Logger
}

func NewInventoryService(pRepo repository.ProductRepository, tRepo repository.TransactionRepository, stock StockService, events EventPublisher, log *zap.Logger) InventoryService {
	return &inventoryService{
		productRepo:     pRepo,
		transactionRepo: tRepo,
		stock:           stock,
		events:          events,
		log:             log,
	}
}

func (s *inventoryService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*model.Product, error) {
	// Lookups trim the name, so the stored name must be trimmed too
	req.Name = strings.TrimSpace(req.Name)

	// 1. Validasi struct dasar
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Simpan ke database; unique index on name reports duplicates
	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: product '%s'", ErrConflict, req.Name)
		}
		return nil, storageError("create product", err)
	}

	s.log.Info("product created", zap.String("product", product.Name), zap.Int("quantity", product.Quantity))

	// 3. Broadcast ke WebSocket
	if s.events != nil {
		s.events.Publish(ws.Event{
			Type:    "product_update",
			Action:  "product_created",
			Product: *product,
			Message: fmt.Sprintf("created product '%s'", product.Name),
		})
	}
	return product, nil
}

func (s *inventoryService) ListProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, storageError("list products", err)
	}
	return products, nil
}

func (s *inventoryService) GetProduct(ctx context.Context, name string) (*model.Product, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	product, err := s.productRepo.FindByName(ctx, name)
	if err != nil {
		return nil, classify(err, ProductRef{Name: name}, "find product")
	}
	return product, nil
}

func (s *inventoryService) UpdateProduct(ctx context.Context, name string, req *UpdateProductRequest) (*MutationResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	return s.stock.EditProduct(ctx, name, req.fields(), req.Quantity)
}

func (s *inventoryService) DeleteProduct(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if err := s.productRepo.DeleteByName(ctx, name); err != nil {
		return classify(err, ProductRef{Name: name}, "delete product")
	}

	s.log.Info("product deleted", zap.String("product", name))
	if s.events != nil {
		s.events.Publish(ws.Event{
			Type:    "product_update",
			Action:  "product_deleted",
			Message: fmt.Sprintf("deleted product '%s'", name),
		})
	}
	return nil
}

func (s *inventoryService) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	transactions, err := s.transactionRepo.FindAll(ctx)
	if err != nil {
		return nil, storageError("list transactions", err)
	}
	return transactions, nil
}

func (s *inventoryService) GetTransaction(ctx context.Context, id uint) (*model.Transaction, error) {
	transaction, err := s.transactionRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: transaction #%d", ErrNotFound, id)
		}
		return nil, storageError("find transaction", err)
	}
	return transaction, nil
}
