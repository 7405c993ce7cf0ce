package listing

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
)

// Catalog lists every product on sale.
type Catalog interface {
	Products(ctx context.Context) ([]domain.CatalogProduct, error)
}

// CartAmounts reports the quantity of each product already in the cart.
type CartAmounts interface {
	Amounts() map[int]int
}

// Service builds the product listing shown on the storefront home page.
type Service struct {
	catalog Catalog
	cart    CartAmounts
}

// NewService creates a listing service.
func NewService(catalog Catalog, cart CartAmounts) *Service {
	return &Service{catalog: catalog, cart: cart}
}

// Products returns the catalog in catalog order, each product annotated with
// its quantity in the cart (0 when absent).
func (s *Service) Products(ctx context.Context) ([]domain.ListedProduct, error) {
	products, err := s.catalog.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	amounts := s.cart.Amounts()
	out := make([]domain.ListedProduct, len(products))
	for i, p := range products {
		out[i] = domain.ListedProduct{CatalogProduct: p, CartAmount: amounts[p.ID]}
	}
	return out, nil
}
