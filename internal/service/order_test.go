package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/last9/otelkit/internal/model"
	pkgerrors "github.com/last9/otelkit/pkg/errors"
)

func TestBuildItemsComputesTotal(t *testing.T) {
	items, total, err := Orders().BuildItems([]model.CreateOrderItem{
		{ProductID: "prod-001", Quantity: 2}, // 12999 each
		{ProductID: "prod-004", Quantity: 1}, // 3250
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, int64(2*12999+3250), total)
	assert.Equal(t, int64(12999), items[0].UnitPriceCents)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "prod-004", items[1].ProductID)
}

func TestBuildItemsEmptyOrder(t *testing.T) {
	_, _, err := Orders().BuildItems(nil)
	assert.True(t, errors.Is(err, pkgerrors.OrderEmpty))
}

func TestBuildItemsUnknownProduct(t *testing.T) {
	_, _, err := Orders().BuildItems([]model.CreateOrderItem{
		{ProductID: "prod-999", Quantity: 1},
	})
	assert.True(t, errors.Is(err, pkgerrors.ProductNotFound))
}

func TestBuildItemsRejectsNonPositiveQuantity(t *testing.T) {
	for _, qty := range []int{0, -3} {
		_, _, err := Orders().BuildItems([]model.CreateOrderItem{
			{ProductID: "prod-001", Quantity: qty},
		})
		assert.True(t, errors.Is(err, pkgerrors.InvalidRequest), "quantity %d", qty)
	}
}
