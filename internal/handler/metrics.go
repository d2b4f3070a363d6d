package handler

import (
	"go.opentelemetry.io/otel/metric"
)

var diceRollsTotal metric.Int64Counter

// InitMetrics registers handler-level business instruments.
func InitMetrics(meter metric.Meter) error {
	var err error

	diceRollsTotal, err = meter.Int64Counter(
		"dice.rolls.total",
		metric.WithDescription("Total number of dice rolls"),
		metric.WithUnit("{roll}"),
	)
	if err != nil {
		return err
	}

	return nil
}
