package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"shopfront/internal/domain"
	"shopfront/internal/notify"
	"shopfront/internal/repos"
)

// Shelf is one browser session's cart and wishlist.
type Shelf struct {
	Cart     []domain.CartItem
	Wishlist []domain.WishlistItem
}

type Counts struct {
	Cart     int `json:"cart"`
	Wishlist int `json:"wishlist"`
}

// Counts sums cart quantities; the wishlist counts entries.
func (s *Shelf) Counts() Counts {
	n := 0
	for _, it := range s.Cart {
		n += it.Quantity
	}
	return Counts{Cart: n, Wishlist: len(s.Wishlist)}
}

func (s *Shelf) cartIndex(id int) int {
	for i, it := range s.Cart {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *Shelf) wishIndex(id int) int {
	for i, it := range s.Wishlist {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// ShelfResult reports what a mutation did. Changed is false for no-ops, in
// which case nothing was written.
type ShelfResult struct {
	Changed bool
	Added   bool
	Counts  Counts
	Toast   *notify.Toast
}

type ShelfService struct {
	Slots    repos.SlotStore
	Products *repos.ProductRepo
}

func NewShelfService(slots repos.SlotStore, products *repos.ProductRepo) *ShelfService {
	return &ShelfService{Slots: slots, Products: products}
}

// Load reads both slots. Missing slots are empty lists. A slot holding
// malformed JSON is reset to an empty list and reported through a
// *CorruptSlotError; the returned shelf is usable either way.
func (s *ShelfService) Load(ctx context.Context, sessionID string) (*Shelf, error) {
	cart, cartBad, err := readList[domain.CartItem](ctx, s.Slots, sessionID, repos.SlotCart)
	if err != nil {
		return nil, err
	}
	wish, wishBad, err := readList[domain.WishlistItem](ctx, s.Slots, sessionID, repos.SlotWishlist)
	if err != nil {
		return nil, err
	}
	shelf := &Shelf{Cart: cart, Wishlist: wish}

	var corrupt []string
	var causes []error
	for _, c := range []struct {
		slot string
		err  error
	}{{repos.SlotCart, cartBad}, {repos.SlotWishlist, wishBad}} {
		if c.err == nil {
			continue
		}
		corrupt = append(corrupt, c.slot)
		causes = append(causes, c.err)
		if err := s.reset(ctx, sessionID, c.slot); err != nil {
			return nil, fmt.Errorf("reset %s: %w", c.slot, err)
		}
	}
	if len(corrupt) > 0 {
		return shelf, &CorruptSlotError{Slots: corrupt, Cause: errors.Join(causes...)}
	}
	return shelf, nil
}

// readList decodes a JSON list slot. A corrupt slot yields an empty list and
// its decode failure in bad; err is reserved for storage failures.
func readList[T any](ctx context.Context, slots repos.SlotStore, sessionID, slot string) (list []T, bad, err error) {
	raw, err := slots.Get(ctx, sessionID, slot)
	if errors.Is(err, repos.ErrSlotEmpty) {
		return []T{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", slot, err)
	}
	list, bad = decodeList[T](raw)
	return list, bad, nil
}

func decodeList[T any](raw []byte) ([]T, error) {
	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return []T{}, err
	}
	// a literal null decodes fine but leaves a nil slice
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// reset rewrites a corrupt slot to an empty list unless a concurrent
// mutation has already replaced it with something readable.
func (s *ShelfService) reset(ctx context.Context, sessionID, slot string) error {
	return s.Slots.Update(ctx, sessionID, slot, func(cur []byte) ([]byte, error) {
		if cur != nil {
			if _, err := decodeList[json.RawMessage](cur); err == nil {
				return nil, repos.ErrUnchanged
			}
		}
		return []byte("[]"), nil
	})
}

// updateList runs fn on the slot's list inside one atomic slot update, so
// concurrent mutations of a session never drop each other's changes. A
// corrupt slot is treated as empty and overwritten. fn returns
// repos.ErrUnchanged to skip the write; the list returned is what the slot
// holds afterwards.
func updateList[T any](ctx context.Context, slots repos.SlotStore, sessionID, slot string, fn func([]T) ([]T, error)) ([]T, error) {
	var out []T
	err := slots.Update(ctx, sessionID, slot, func(cur []byte) ([]byte, error) {
		list := []T{}
		if cur != nil {
			list, _ = decodeList[T](cur)
		}
		out = list
		next, err := fn(list)
		if err != nil {
			return nil, err
		}
		out = next
		return json.Marshal(next)
	})
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", slot, err)
	}
	return out, nil
}

// counts pairs a freshly written list with the other slot's current size.
func (s *ShelfService) counts(ctx context.Context, sessionID string, cart []domain.CartItem, wish []domain.WishlistItem) Counts {
	if cart == nil {
		cart, _, _ = readList[domain.CartItem](ctx, s.Slots, sessionID, repos.SlotCart)
	}
	if wish == nil {
		wish, _, _ = readList[domain.WishlistItem](ctx, s.Slots, sessionID, repos.SlotWishlist)
	}
	return (&Shelf{Cart: cart, Wishlist: wish}).Counts()
}

// AddToCart adds quantity units of the product. Unknown or out-of-stock
// products are ignored.
func (s *ShelfService) AddToCart(ctx context.Context, sessionID string, productID, quantity int) (ShelfResult, error) {
	p, ok := s.Products.Get(productID)
	if !ok || !p.InStock() {
		return ShelfResult{}, nil
	}
	if quantity < 1 {
		quantity = 1
	}

	cart, err := updateList(ctx, s.Slots, sessionID, repos.SlotCart, func(cart []domain.CartItem) ([]domain.CartItem, error) {
		shelf := Shelf{Cart: cart}
		if i := shelf.cartIndex(productID); i >= 0 {
			cart[i].Quantity += quantity
			return cart, nil
		}
		return append(cart, domain.CartItem{
			ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image, Quantity: quantity,
		}), nil
	})
	if err != nil {
		return ShelfResult{}, err
	}
	t := notify.Success("Success", p.Name+" added to cart!")
	return ShelfResult{Changed: true, Added: true, Counts: s.counts(ctx, sessionID, cart, nil), Toast: &t}, nil
}

// ToggleWishlist adds the product when absent and removes it when present.
func (s *ShelfService) ToggleWishlist(ctx context.Context, sessionID string, productID int) (ShelfResult, error) {
	p, ok := s.Products.Get(productID)
	if !ok {
		return ShelfResult{}, nil
	}

	added := false
	wish, err := updateList(ctx, s.Slots, sessionID, repos.SlotWishlist, func(wish []domain.WishlistItem) ([]domain.WishlistItem, error) {
		shelf := Shelf{Wishlist: wish}
		if i := shelf.wishIndex(productID); i >= 0 {
			added = false
			return append(wish[:i], wish[i+1:]...), nil
		}
		added = true
		return append(wish, domain.WishlistItem{
			ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image,
		}), nil
	})
	if err != nil {
		return ShelfResult{}, err
	}

	t := notify.Info("Removed", p.Name+" removed from wishlist")
	if added {
		t = notify.Success("Added", p.Name+" added to wishlist")
	}
	return ShelfResult{Changed: true, Added: added, Counts: s.counts(ctx, sessionID, nil, wish), Toast: &t}, nil
}

// ClearCart empties the cart wholesale.
func (s *ShelfService) ClearCart(ctx context.Context, sessionID string) (ShelfResult, error) {
	changed := false
	cart, err := updateList(ctx, s.Slots, sessionID, repos.SlotCart, func(cart []domain.CartItem) ([]domain.CartItem, error) {
		changed = len(cart) > 0
		if !changed {
			return nil, repos.ErrUnchanged
		}
		return []domain.CartItem{}, nil
	})
	if err != nil {
		return ShelfResult{}, err
	}
	res := ShelfResult{Changed: changed, Counts: s.counts(ctx, sessionID, cart, nil)}
	if changed {
		t := notify.Info("Cart cleared", "Your cart is now empty")
		res.Toast = &t
	}
	return res, nil
}
