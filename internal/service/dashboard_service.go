package service

import (
	"context"
	"fmt"
	"time"

	"go-inventory-pos/internal/repository"
)

const maxMovementDays = 365

type DashboardService interface {
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error)
}

type dashboardService struct {
	txRepo            repository.TransactionRepository
	lowStockThreshold int
}

func NewDashboardService(txRepo repository.TransactionRepository, lowStockThreshold int) DashboardService {
	return &dashboardService{txRepo: txRepo, lowStockThreshold: lowStockThreshold}
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	if days <= 0 || days > maxMovementDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, maxMovementDays)
	}

	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	data, err := s.txRepo.GetStockMovement(ctx, startDate, endDate)
	if err != nil {
		return nil, storageError("stock movement", err)
	}
	return data, nil
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error) {
	stats, err := s.txRepo.GetDashboardStats(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, storageError("dashboard stats", err)
	}
	return stats, nil
}
