package model

// OrderCreatedEvent is the payload published to the orders exchange when an
// order is accepted.
type OrderCreatedEvent struct {
	EventID    string `json:"event_id"`
	OrderID    int64  `json:"order_id,string"`
	UserID     int64  `json:"user_id,string"`
	TotalCents int64  `json:"total_cents"`
	ItemCount  int    `json:"item_count"`
	OccurredAt string `json:"occurred_at"`
}
