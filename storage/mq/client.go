package mq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/pkg/logger"
)

// Exchange/queue topology for the order event pipeline.
const (
	OrdersExchange      = "orders.events"
	OrderCreatedQueue   = "orders.created"
	OrderCreatedRouting = "order.created"
)

var (
	conn    *amqp.Connection
	once    sync.Once
	initErr error
)

func Init() error {
	once.Do(func() {
		c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
		if err != nil {
			initErr = err
			return
		}

		ch, err := c.Channel()
		if err != nil {
			initErr = err
			return
		}
		defer ch.Close()

		if err := declareTopology(ch); err != nil {
			initErr = err
			return
		}

		conn = c
		logger.Logger.Info("RabbitMQ initialized successfully",
			zap.String("addr", config.Cfg.RabbitMQAddr),
			zap.String("exchange", OrdersExchange),
		)
	})

	return initErr
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		OrdersExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(
		OrderCreatedQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	return ch.QueueBind(OrderCreatedQueue, OrderCreatedRouting, OrdersExchange, false, nil)
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
