package model

// Product is a fixed catalog entry; the demo keeps the catalog in memory.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	InStock    bool   `json:"in_stock"`
}
