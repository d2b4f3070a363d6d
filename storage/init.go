package storage

import (
	"github.com/last9/otelkit/storage/database"
	"github.com/last9/otelkit/storage/mq"
	"github.com/last9/otelkit/storage/redis"
)

// Init brings up all storage backends. Callers must pair it with Close.
func Init() error {
	if err := database.Init(); err != nil {
		return err
	}

	if err := redis.Init(); err != nil {
		return err
	}

	if err := mq.Init(); err != nil {
		return err
	}

	return nil
}
