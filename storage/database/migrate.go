package database

import (
	"github.com/last9/otelkit/internal/model"
)

func Migrate() error {
	return db.AutoMigrate(
		&model.User{},
		&model.Order{},
		&model.OrderItem{},
	)
}
