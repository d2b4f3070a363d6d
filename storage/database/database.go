package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/last9/otelkit/config"
	otelgorm "github.com/last9/otelkit/pkg/database"
	"github.com/last9/otelkit/pkg/logger"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
	dbErr  error
)

func Init() error {
	dbOnce.Do(func() {
		gormCfg := &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			PrepareStmt:                              true,
			SkipDefaultTransaction:                   true,
			// map driver unique-violation errors onto gorm.ErrDuplicatedKey
			TranslateError: true,
		}

		var gormDB *gorm.DB
		gormDB, dbErr = gorm.Open(postgres.Open(config.Cfg.GetDSN()), gormCfg)
		if dbErr != nil {
			logger.Logger.Error("Failed to open database", zap.Error(dbErr))
			return
		}

		sqlDB, err := gormDB.DB()
		if err != nil {
			dbErr = err
			logger.Logger.Error("Failed to get sql.DB from gorm", zap.Error(err))
			return
		}
		configureConnectionPool(sqlDB)

		if err := sqlDB.Ping(); err != nil {
			dbErr = err
			logger.Logger.Error("Failed to ping database", zap.Error(err))
			return
		}

		pluginCfg := otelgorm.DefaultPluginConfig()
		pluginCfg.ServiceName = config.Cfg.ServiceName
		pluginCfg.DatabaseName = config.Cfg.PostgreSQLDatabase
		if err := otelgorm.WithTracing(gormDB, pluginCfg); err != nil {
			dbErr = fmt.Errorf("failed to install tracing plugin: %w", err)
			return
		}

		db = gormDB
		if err := Migrate(); err != nil {
			dbErr = fmt.Errorf("failed to run database migration: %w", err)
			logger.Logger.Error("Failed to run database migration", zap.Error(err))
			return
		}

		logger.Logger.Info("Database initialized successfully",
			zap.String("database", config.Cfg.PostgreSQLDatabase),
		)
	})

	return dbErr
}

func DB() *gorm.DB {
	return db
}

func Close(ctx context.Context) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- sqlDB.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func configureConnectionPool(sqlDB *sql.DB) {
	sqlDB.SetMaxIdleConns(config.Cfg.PostgreSQLMaxIdle)
	sqlDB.SetMaxOpenConns(config.Cfg.PostgreSQLMaxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)
}
