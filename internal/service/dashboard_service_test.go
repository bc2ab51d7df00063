package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService(t *testing.T) {
	f := newStockFixture(t)
	ctx := context.Background()
	f.seed(t, "Tea", 20)
	f.seed(t, "Coffee", 3)

	_, err := f.stock.ApplyMutation(ctx, MutationRequest{Product: ProductRef{Name: "Tea"}, Action: ActionAdd, Quantity: 5})
	require.NoError(t, err)
	_, err = f.stock.ApplyMutation(ctx, MutationRequest{Product: ProductRef{Name: "Tea"}, Action: ActionSell, Quantity: 2})
	require.NoError(t, err)

	svc := NewDashboardService(f.txs, 10)

	stats, err := svc.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalProducts)
	assert.EqualValues(t, 1, stats.LowStockCount)
	assert.EqualValues(t, 26, stats.TotalUnits)
	assert.EqualValues(t, 2, stats.TransactionCount)

	movement, err := svc.GetStockMovement(ctx, 7)
	require.NoError(t, err)
	require.Len(t, movement, 1)
	assert.Equal(t, 5, movement[0].Inbound)
	assert.Equal(t, 2, movement[0].Outbound)

	_, err = svc.GetStockMovement(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.GetStockMovement(ctx, 1000)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
