package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/last9/otelkit/internal/model"
	pkgerrors "github.com/last9/otelkit/pkg/errors"
	"github.com/last9/otelkit/pkg/logger"
	"github.com/last9/otelkit/pkg/snowflake"
	"github.com/last9/otelkit/storage/database"
	"github.com/last9/otelkit/storage/redis"
)

const userCacheTTL = 5 * time.Minute

var (
	userService *UserService
	userOnce    sync.Once
)

func Users() *UserService {
	userOnce.Do(func() {
		userService = &UserService{}
	})
	return userService
}

type UserService struct{}

// List reads through the cache: the full list is cached under one key and
// invalidated on any write.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	cacheKey := redis.Key("users")

	if cached, err := redis.Client().Get(ctx, cacheKey).Result(); err == nil {
		var users []model.User
		if err := json.Unmarshal([]byte(cached), &users); err == nil {
			return users, nil
		}
	}

	var users []model.User
	if err := database.DB().WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	if encoded, err := json.Marshal(users); err == nil {
		if err := redis.Client().Set(ctx, cacheKey, encoded, userCacheTTL).Err(); err != nil {
			logger.Logger.Warn("Failed to cache user list", zap.Error(err))
		}
	}

	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, pkgerrors.InvalidID
	}

	cacheKey := redis.Key("user", id)
	if cached, err := redis.Client().Get(ctx, cacheKey).Result(); err == nil {
		var user model.User
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			return &user, nil
		}
	}

	var user model.User
	if err := database.DB().WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.UserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if encoded, err := json.Marshal(user); err == nil {
		if err := redis.Client().Set(ctx, cacheKey, encoded, userCacheTTL).Err(); err != nil {
			logger.Logger.Warn("Failed to cache user", zap.Error(err))
		}
	}

	return &user, nil
}

func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	if req.Name == "" || req.Email == "" {
		return nil, pkgerrors.InvalidRequest
	}

	id, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	user := model.User{
		ID:    id,
		Name:  req.Name,
		Email: req.Email,
	}

	if err := database.DB().WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.UserEmailConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.invalidate(ctx, user.ID)

	return &user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return pkgerrors.InvalidID
	}

	result := database.DB().WithContext(ctx).Delete(&model.User{}, userID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.UserNotFound
	}

	s.invalidate(ctx, userID)

	return nil
}

func (s *UserService) invalidate(ctx context.Context, userID int64) {
	keys := []string{
		redis.Key("users"),
		redis.Key("user", strconv.FormatInt(userID, 10)),
	}
	if err := redis.Client().Del(ctx, keys...).Err(); err != nil {
		logger.Logger.Warn("Failed to invalidate user cache",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
