package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/ws"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MutationAction string

const (
	ActionAdd    MutationAction = "add"
	ActionDeduct MutationAction = "deduct"
	ActionSell   MutationAction = "sell"
)

// ProductRef names a product either by ID or by name. ID wins when both are set.
type ProductRef struct {
	ID   uint
	Name string
}

func (r ProductRef) String() string {
	if r.ID != 0 {
		return fmt.Sprintf("#%d", r.ID)
	}
	return fmt.Sprintf("'%s'", r.Name)
}

func (r ProductRef) empty() bool {
	return r.ID == 0 && r.Name == ""
}

type MutationRequest struct {
	Product  ProductRef
	Action   MutationAction `validate:"required,oneof=add deduct sell"`
	Quantity int            `validate:"gt=0"`
}

// MutationResult is the committed state after a stock change. Transaction
// is nil when an edit left the quantity untouched.
type MutationResult struct {
	Product     model.Product      `json:"product"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

// EventPublisher receives committed stock changes. *ws.Hub implements it.
type EventPublisher interface {
	Publish(event ws.Event)
}

type StockService interface {
	ApplyMutation(ctx context.Context, req MutationRequest) (*MutationResult, error)
	SetQuantity(ctx context.Context, name string, quantity int) (*MutationResult, error)
	EditProduct(ctx context.Context, name string, fields map[string]interface{}, quantity *int) (*MutationResult, error)
	History(ctx context.Context, ref ProductRef) ([]model.Transaction, error)
}

type stockService struct {
	productRepo     repository.ProductRepository
	transactionRepo repository.TransactionRepository
	db              *gorm.DB
	events          EventPublisher
	log             *zap.Logger
	timeout         time.Duration
}

func NewStockService(pRepo repository.ProductRepository, tRepo repository.TransactionRepository, db *gorm.DB, events EventPublisher, log *zap.Logger, timeout time.Duration) StockService {
	return &stockService{
		productRepo:     pRepo,
		transactionRepo: tRepo,
		db:              db,
		events:          events,
		log:             log,
		timeout:         timeout,
	}
}

// ApplyMutation adds, deducts or sells stock as a single atomic unit:
// lock row, compute, write quantity, append log entry, commit.
func (s *stockService) ApplyMutation(ctx context.Context, req MutationRequest) (*MutationResult, error) {
	// 1. Validasi input sebelum menyentuh database
	if req.Product.empty() {
		return nil, fmt.Errorf("%w: product id or name is required", ErrInvalidInput)
	}
	if err := validate(&req); err != nil {
		return nil, err
	}

	action := model.TxAdd
	note := ""
	switch req.Action {
	case ActionDeduct:
		action = model.TxDeduct
	case ActionSell:
		action = model.TxDeduct
		note = model.NoteSale
	}

	result, err := s.inTransaction(ctx, req.Product, func(tx *gorm.DB, product *model.Product) (*model.Transaction, error) {
		return s.applyDelta(tx, product, action, req.Quantity, note)
	})
	if err != nil {
		s.logFailure("stock mutation rejected", req.Product, string(req.Action), req.Quantity, err)
		return nil, err
	}

	s.log.Info("stock mutation applied",
		zap.String("product", result.Product.Name),
		zap.String("action", string(req.Action)),
		zap.Int("quantity", req.Quantity),
		zap.Int("remaining", result.Product.Quantity),
		zap.Uint("transaction_id", result.Transaction.ID),
	)
	s.publish(string(req.Action), result)
	return result, nil
}

// SetQuantity sets an absolute stock level, logged as an adjustment of the difference.
func (s *stockService) SetQuantity(ctx context.Context, name string, quantity int) (*MutationResult, error) {
	return s.EditProduct(ctx, name, nil, &quantity)
}

// EditProduct applies descriptive field updates and an optional absolute
// quantity in one transaction.
func (s *stockService) EditProduct(ctx context.Context, name string, fields map[string]interface{}, quantity *int) (*MutationResult, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if quantity != nil && *quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}

	ref := ProductRef{Name: name}
	result, err := s.inTransaction(ctx, ref, func(tx *gorm.DB, product *model.Product) (*model.Transaction, error) {
		if len(fields) > 0 {
			if err := s.productRepo.UpdateFields(tx, product.ID, fields); err != nil {
				return nil, err
			}
		}
		if quantity == nil || *quantity == product.Quantity {
			return nil, nil
		}

		delta := *quantity - product.Quantity
		action := model.TxAdd
		if delta < 0 {
			action = model.TxDeduct
			delta = -delta
		}
		return s.applyDelta(tx, product, action, delta, model.NoteAdjustment)
	})
	if err != nil {
		s.logFailure("product edit rejected", ref, "edit", 0, err)
		return nil, err
	}

	fieldsLog := make([]string, 0, len(fields))
	for k := range fields {
		fieldsLog = append(fieldsLog, k)
	}
	s.log.Info("product edited",
		zap.String("product", result.Product.Name),
		zap.Strings("fields", fieldsLog),
		zap.Int("quantity", result.Product.Quantity),
		zap.Bool("adjusted", result.Transaction != nil),
	)
	s.publish("edit", result)
	return result, nil
}

func (s *stockService) History(ctx context.Context, ref ProductRef) ([]model.Transaction, error) {
	if ref.empty() {
		return nil, fmt.Errorf("%w: product id or name is required", ErrInvalidInput)
	}

	var (
		product *model.Product
		err     error
	)
	if ref.ID != 0 {
		product, err = s.productRepo.FindByID(ctx, ref.ID)
	} else {
		product, err = s.productRepo.FindByName(ctx, ref.Name)
	}
	if err != nil {
		return nil, classify(err, ref, "find product")
	}

	transactions, err := s.transactionRepo.FindByProduct(ctx, product.ID)
	if err != nil {
		return nil, storageError("list transactions", err)
	}
	return transactions, nil
}

// inTransaction locks the referenced product and runs fn inside one
// database transaction bounded by the mutation timeout. Any error rolls
// everything back.
func (s *stockService) inTransaction(ctx context.Context, ref ProductRef, fn func(tx *gorm.DB, product *model.Product) (*model.Transaction, error)) (*MutationResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var result MutationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Cari & lock product (pessimistic locking)
		var (
			product *model.Product
			err     error
		)
		if ref.ID != 0 {
			product, err = s.productRepo.LockByID(tx, ref.ID)
		} else {
			product, err = s.productRepo.LockByName(tx, ref.Name)
		}
		if err != nil {
			return err
		}

		// 2. Jalankan perubahan
		entry, err := fn(tx, product)
		if err != nil {
			return err
		}

		// 3. Baca ulang state yang akan di-commit
		updated, err := s.productRepo.LockByID(tx, product.ID)
		if err != nil {
			return err
		}
		result.Product = *updated
		result.Transaction = entry
		return nil
	})
	if err != nil {
		return nil, classify(err, ref, "stock mutation")
	}
	return &result, nil
}

// applyDelta computes the new quantity, writes it and appends the log entry.
func (s *stockService) applyDelta(tx *gorm.DB, product *model.Product, action model.TransactionAction, delta int, note string) (*model.Transaction, error) {
	newQuantity := product.Quantity + delta
	if action == model.TxDeduct {
		if product.Quantity < delta {
			return nil, fmt.Errorf("%w: '%s' has %d, requested %d", ErrInsufficientStock, product.Name, product.Quantity, delta)
		}
		newQuantity = product.Quantity - delta
	}

	if err := s.productRepo.UpdateQuantity(tx, product.ID, product.Quantity, newQuantity); err != nil {
		return nil, err
	}

	entry := &model.Transaction{
		ProductID:         product.ID,
		ProductName:       product.Name,
		Action:            action,
		Quantity:          delta,
		RemainingQuantity: newQuantity,
		Note:              note,
	}
	if err := s.transactionRepo.Append(tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// classify maps errors from inside a stock transaction onto the service
// taxonomy. Domain errors pass through unchanged.
func classify(err error, ref ProductRef, op string) error {
	switch {
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: product %s", ErrNotFound, ref)
	case errors.Is(err, repository.ErrNegativeQuantity):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrStaleQuantity):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return storageError(op, err)
}

func (s *stockService) logFailure(msg string, ref ProductRef, action string, quantity int, err error) {
	fields := []zap.Field{
		zap.String("product", ref.String()),
		zap.String("action", action),
		zap.Int("quantity", quantity),
		zap.Error(err),
	}
	if errors.Is(err, ErrStorage) {
		s.log.Error(msg, fields...)
		return
	}
	s.log.Info(msg, fields...)
}

// publish broadcasts a committed result; failures never reach this point.
func (s *stockService) publish(action string, result *MutationResult) {
	if s.events == nil {
		return
	}

	event := ws.Event{
		Type:    "stock_update",
		Product: result.Product,
	}
	switch action {
	case string(ActionAdd):
		event.Action = "stock_added"
		event.Message = fmt.Sprintf("added %d units of '%s'", result.Transaction.Quantity, result.Product.Name)
	case string(ActionDeduct):
		event.Action = "stock_deducted"
		event.Message = fmt.Sprintf("removed %d units of '%s'", result.Transaction.Quantity, result.Product.Name)
	case string(ActionSell):
		event.Action = "product_sold"
		event.Message = fmt.Sprintf("sold %d units of '%s'", result.Transaction.Quantity, result.Product.Name)
	default:
		event.Type = "product_update"
		event.Action = "product_updated"
		event.Message = fmt.Sprintf("updated product '%s'", result.Product.Name)
	}
	if result.Transaction != nil {
		event.Transaction = *result.Transaction
	}
	s.events.Publish(event)
}
