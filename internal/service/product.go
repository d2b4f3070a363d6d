package service

import (
	"sync"

	"github.com/last9/otelkit/internal/model"
	pkgerrors "github.com/last9/otelkit/pkg/errors"
)

var (
	productService *ProductService
	productOnce    sync.Once
)

func Products() *ProductService {
	productOnce.Do(func() {
		productService = &ProductService{catalog: defaultCatalog}
	})
	return productService
}

// ProductService serves a fixed in-memory catalog; the demo keeps products
// out of the database on purpose so request traces show a mixed workload.
type ProductService struct {
	catalog []model.Product
}

var defaultCatalog = []model.Product{
	{ID: "prod-001", Name: "Mechanical Keyboard", Category: "peripherals", PriceCents: 12999, InStock: true},
	{ID: "prod-002", Name: "USB-C Hub", Category: "peripherals", PriceCents: 4599, InStock: true},
	{ID: "prod-003", Name: "27in 4K Monitor", Category: "displays", PriceCents: 44900, InStock: false},
	{ID: "prod-004", Name: "Laptop Stand", Category: "accessories", PriceCents: 3250, InStock: true},
	{ID: "prod-005", Name: "Noise Cancelling Headset", Category: "audio", PriceCents: 19900, InStock: true},
	{ID: "prod-006", Name: "Webcam 1080p", Category: "peripherals", PriceCents: 6999, InStock: true},
}

func (s *ProductService) List() []model.Product {
	out := make([]model.Product, len(s.catalog))
	copy(out, s.catalog)
	return out
}

func (s *ProductService) Get(id string) (*model.Product, error) {
	for i := range s.catalog {
		if s.catalog[i].ID == id {
			p := s.catalog[i]
			return &p, nil
		}
	}
	return nil, pkgerrors.ProductNotFound
}
