// Package view turns domain records into the plain view-models templates
// render. Nothing here touches a request or writes markup.
package view

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"shopfront/internal/domain"
)

type Glyph string

const (
	StarFull  Glyph = "full"
	StarHalf  Glyph = "half"
	StarEmpty Glyph = "empty"
)

const maxStars = 5

// Stars renders a 0–5 rating as exactly five glyphs.
func Stars(rating float64) []Glyph {
	if math.IsNaN(rating) || rating < 0 {
		rating = 0
	}
	if rating > maxStars {
		rating = maxStars
	}
	full := int(math.Floor(rating))
	half := 0
	if rating-float64(full) >= 0.5 {
		half = 1
	}
	out := make([]Glyph, 0, maxStars)
	for i := 0; i < full; i++ {
		out = append(out, StarFull)
	}
	if half == 1 {
		out = append(out, StarHalf)
	}
	for len(out) < maxStars {
		out = append(out, StarEmpty)
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// Discount is the whole percentage saved against the old price. Callers show
// it only when positive.
func Discount(price decimal.Decimal, old decimal.NullDecimal) int {
	if !old.Valid || !old.Decimal.IsPositive() {
		return 0
	}
	return int(old.Decimal.Sub(price).Div(old.Decimal).Mul(hundred).Round(0).IntPart())
}

type Badge struct {
	Count   int
	Text    string
	Visible bool
}

// CountBadge hides the header badge entirely when there is nothing to count.
func CountBadge(n int) Badge {
	if n <= 0 {
		return Badge{}
	}
	return Badge{Count: n, Text: strconv.Itoa(n), Visible: true}
}

type ProductCard struct {
	ID            int
	Name          string
	Category      string
	Image         string
	Price         string
	OldPrice      string
	Rating        float64
	Stars         []Glyph
	Reviews       int
	Discount      int
	ShowDiscount  bool
	Badge         string // "out-of-stock", "new" or empty
	BadgeLabel    string
	OnSale        bool
	StockLabel    string
	CanAddToCart  bool
	InWishlist    bool
	WishlistTitle string
}

func Card(p domain.Product, inWishlist bool) ProductCard {
	c := ProductCard{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Image:        p.Image,
		Price:        p.Price.StringFixed(2),
		Rating:       p.Rating,
		Stars:        Stars(p.Rating),
		Reviews:      p.Reviews,
		Discount:     Discount(p.Price, p.OldPrice),
		OnSale:       p.IsOnSale,
		CanAddToCart: p.InStock(),
		InWishlist:   inWishlist,
	}
	if p.OldPrice.Valid {
		c.OldPrice = p.OldPrice.Decimal.StringFixed(2)
	}
	c.ShowDiscount = c.Discount > 0

	// stock state wins over the "new" flag
	switch {
	case !p.InStock():
		c.Badge, c.BadgeLabel = "out-of-stock", "Out of Stock"
	case p.IsNew:
		c.Badge, c.BadgeLabel = "new", "New"
	}
	if p.InStock() {
		c.StockLabel = "In Stock (" + strconv.Itoa(p.Stock) + ")"
	} else {
		c.StockLabel = "Out of Stock"
	}
	if inWishlist {
		c.WishlistTitle = "Remove from Wishlist"
	} else {
		c.WishlistTitle = "Add to Wishlist"
	}
	return c
}

// Cards maps a listing, marking products already on the wishlist.
func Cards(products []domain.Product, wishlist []domain.WishlistItem) []ProductCard {
	saved := make(map[int]bool, len(wishlist))
	for _, w := range wishlist {
		saved[w.ID] = true
	}
	out := make([]ProductCard, 0, len(products))
	for _, p := range products {
		out = append(out, Card(p, saved[p.ID]))
	}
	return out
}

type CartLine struct {
	ID       int
	Name     string
	Image    string
	Price    string
	Quantity int
	Subtotal string
}

type CartView struct {
	Lines []CartLine
	Total string
	Badge Badge
}

func Cart(items []domain.CartItem) CartView {
	total := decimal.Zero
	count := 0
	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		sub := it.Subtotal()
		total = total.Add(sub)
		count += it.Quantity
		lines = append(lines, CartLine{
			ID: it.ID, Name: it.Name, Image: it.Image,
			Price: it.Price.StringFixed(2), Quantity: it.Quantity, Subtotal: sub.StringFixed(2),
		})
	}
	return CartView{Lines: lines, Total: total.StringFixed(2), Badge: CountBadge(count)}
}

type WishlistLine struct {
	ID    int
	Name  string
	Image string
	Price string
}

func Wishlist(items []domain.WishlistItem) []WishlistLine {
	out := make([]WishlistLine, 0, len(items))
	for _, it := range items {
		out = append(out, WishlistLine{ID: it.ID, Name: it.Name, Image: it.Image, Price: it.Price.StringFixed(2)})
	}
	return out
}

// Stepper is anything with linear step bookkeeping, e.g. the registration wizard.
type Stepper interface {
	Step() int
	Total() int
	Progress() float64
}

type Panel struct {
	N      int
	Active bool
}

type WizardView struct {
	Step     int
	Total    int
	Progress float64
	ShowPrev bool
	ShowNext bool
	PrevStep int
	NextStep int
	Panels   []Panel
}

// Wizard marks exactly one panel active and derives the navigation controls.
func Wizard(s Stepper) WizardView {
	w := WizardView{
		Step:     s.Step(),
		Total:    s.Total(),
		Progress: s.Progress(),
		ShowPrev: s.Step() > 1,
		ShowNext: s.Step() < s.Total(),
		PrevStep: s.Step() - 1,
		NextStep: s.Step() + 1,
	}
	for i := 1; i <= s.Total(); i++ {
		w.Panels = append(w.Panels, Panel{N: i, Active: i == s.Step()})
	}
	return w
}
