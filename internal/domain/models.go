package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID       int                 `json:"id"`
	Name     string              `json:"name"`
	Price    decimal.Decimal     `json:"price"`
	OldPrice decimal.NullDecimal `json:"oldPrice"`
	Category string              `json:"category"`
	Rating   float64             `json:"rating"`
	Reviews  int                 `json:"reviews"`
	Stock    int                 `json:"stock"`
	IsNew    bool                `json:"isNew"`
	IsOnSale bool                `json:"isOnSale"`
	Image    string              `json:"image"`
}

func (p Product) InStock() bool { return p.Stock > 0 }

// CartItem is a snapshot of the product taken when it was first added.
type CartItem struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

func (it CartItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type WishlistItem struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}
