package repos

import (
	"github.com/shopspring/decimal"

	"shopfront/internal/domain"
)

// ProductRepo serves the fixed catalog the storefront ships with. It is built
// once at startup and never mutated.
type ProductRepo struct {
	list []domain.Product
	byID map[int]domain.Product
}

func NewProductRepo(products []domain.Product) *ProductRepo {
	r := &ProductRepo{list: products, byID: make(map[int]domain.Product, len(products))}
	for _, p := range products {
		r.byID[p.ID] = p
	}
	return r
}

// NewDefaultProductRepo loads the built-in catalog.
func NewDefaultProductRepo() *ProductRepo { return NewProductRepo(DefaultCatalog()) }

func (r *ProductRepo) Get(id int) (domain.Product, bool) {
	p, ok := r.byID[id]
	return p, ok
}

func (r *ProductRepo) List() []domain.Product {
	out := make([]domain.Product, len(r.list))
	copy(out, r.list)
	return out
}

func (r *ProductRepo) ListByCategory(category string) []domain.Product {
	out := []domain.Product{}
	for _, p := range r.list {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns category names in catalog order, without duplicates.
func (r *ProductRepo) Categories() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range r.list {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func oldPrice(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func DefaultCatalog() []domain.Product {
	return []domain.Product{
		{
			ID: 1, Name: "Wireless Headphones", Price: price("99.99"), OldPrice: oldPrice("149.99"),
			Image:    "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?auto=format&fit=crop&w=500&q=80",
			Category: "Electronics", Rating: 4.5, Reviews: 128, IsNew: true, IsOnSale: true, Stock: 15,
		},
		{
			ID: 2, Name: "Smart Watch Pro", Price: price("199.99"), OldPrice: oldPrice("249.99"),
			Image:    "https://images.unsplash.com/photo-1523275335684-37898b6baf30?auto=format&fit=crop&w=500&q=80",
			Category: "Electronics", Rating: 4.8, Reviews: 256, IsNew: true, Stock: 8,
		},
		{
			ID: 3, Name: "Running Shoes", Price: price("89.99"), OldPrice: oldPrice("129.99"),
			Image:    "https://images.unsplash.com/photo-1542291026-7eec264c27ff?auto=format&fit=crop&w=500&q=80",
			Category: "Fashion", Rating: 4.7, Reviews: 342, IsOnSale: true, Stock: 0,
		},
		{
			ID: 4, Name: "Bluetooth Speaker", Price: price("79.99"), OldPrice: oldPrice("99.99"),
			Image:    "https://images.unsplash.com/photo-1572569511254-d8f925fe2cbb?auto=format&fit=crop&w=500&q=80",
			Category: "Electronics", Rating: 4.3, Reviews: 87, IsNew: true, Stock: 12,
		},
		{
			ID: 5, Name: "Designer Handbag", Price: price("149.99"), OldPrice: oldPrice("199.99"),
			Image:    "https://images.unsplash.com/photo-1590874103328-eac38a683ce7?auto=format&fit=crop&w=500&q=80",
			Category: "Fashion", Rating: 4.6, Reviews: 214, IsOnSale: true, Stock: 5,
		},
		{
			ID: 6, Name: "Smartphone X", Price: price("699.99"), OldPrice: oldPrice("799.99"),
			Image:    "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9?auto=format&fit=crop&w=500&q=80",
			Category: "Electronics", Rating: 4.9, Reviews: 512, IsNew: true, Stock: 20,
		},
	}
}
