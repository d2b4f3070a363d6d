package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/last9/otelkit/internal/model"
	"github.com/last9/otelkit/internal/queue"
	pkgerrors "github.com/last9/otelkit/pkg/errors"
	"github.com/last9/otelkit/pkg/logger"
	"github.com/last9/otelkit/pkg/snowflake"
	"github.com/last9/otelkit/storage/database"
)

var (
	orderService *OrderService
	orderOnce    sync.Once
)

func Orders() *OrderService {
	orderOnce.Do(func() {
		orderService = &OrderService{products: Products()}
	})
	return orderService
}

type OrderService struct {
	products *ProductService
}

// BuildItems resolves catalog prices for the requested items and returns the
// order lines plus the total in cents.
func (s *OrderService) BuildItems(req []model.CreateOrderItem) ([]model.OrderItem, int64, error) {
	if len(req) == 0 {
		return nil, 0, pkgerrors.OrderEmpty
	}

	items := make([]model.OrderItem, 0, len(req))
	var total int64

	for _, line := range req {
		if line.Quantity <= 0 {
			return nil, 0, pkgerrors.InvalidRequest
		}

		product, err := s.products.Get(line.ProductID)
		if err != nil {
			return nil, 0, err
		}

		items = append(items, model.OrderItem{
			ProductID:      product.ID,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
		})
		total += product.PriceCents * int64(line.Quantity)
	}

	return items, total, nil
}

func (s *OrderService) Create(ctx context.Context, req model.CreateOrderRequest) (*model.Order, error) {
	if req.UserID == 0 {
		return nil, pkgerrors.InvalidRequest
	}

	var user model.User
	if err := database.DB().WithContext(ctx).First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.UserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	items, total, err := s.BuildItems(req.Items)
	if err != nil {
		return nil, err
	}

	id, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate order ID: %w", err)
	}

	order := model.Order{
		ID:         id,
		UserID:     req.UserID,
		Status:     model.OrderStatusPending,
		TotalCents: total,
		Items:      items,
	}

	if err := database.DB().WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	event := model.OrderCreatedEvent{
		EventID:    uuid.New().String(),
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalCents: order.TotalCents,
		ItemCount:  len(order.Items),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := queue.PublishOrderCreated(ctx, event); err != nil {
		// the order is already durable; the event pipeline catching up
		// later is acceptable for the demo
		logger.Logger.Error("Failed to publish order.created event",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}

	return &order, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*model.Order, error) {
	orderID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, pkgerrors.InvalidID
	}

	var order model.Order
	if err := database.DB().WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.OrderNotFound
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return &order, nil
}

func (s *OrderService) List(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := database.DB().WithContext(ctx).Preload("Items").Order("id desc").Limit(100).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// MarkProcessed is called by the worker when the created event is handled.
func (s *OrderService) MarkProcessed(ctx context.Context, orderID int64) error {
	result := database.DB().WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Update("status", model.OrderStatusProcessed)
	if result.Error != nil {
		return fmt.Errorf("failed to mark order processed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// already processed or unknown; the event is idempotent either way
		logger.Logger.Debug("Order already processed or missing",
			zap.Int64("order_id", orderID),
		)
	}
	return nil
}
