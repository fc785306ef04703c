package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paul-Karonji/framel-sub000/internal/catalog"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Service implements the cart aggregate: stock-checked adds, snapshot
// pricing, and the guest-to-user merge.
type Service struct {
	carts       Repository
	products    catalog.Repository
	deliveryFee float64
	logger      *logrus.Logger
}

func NewService(carts Repository, products catalog.Repository, deliveryFee float64, logger *logrus.Logger) *Service {
	return &Service{carts: carts, products: products, deliveryFee: deliveryFee, logger: logger}
}

// Get returns the owner's cart, or an empty cart when none exists yet.
// Carts are created lazily on first add.
func (s *Service) Get(ctx context.Context, ownerID string) (*Cart, error) {
	c, err := s.carts.GetCart(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if c == nil {
		c = &Cart{OwnerID: ownerID, UpdatedAt: time.Now().UTC()}
	}
	return c, nil
}

// Totals computes the charge breakdown for a cart under the configured
// delivery fee policy.
func (s *Service) Totals(c *Cart) Totals {
	return c.Totals(s.deliveryFee)
}

// Add upserts a line. An existing line has the quantity summed and its price
// snapshot refreshed to the current catalog price, so a stale price never
// silently persists.
func (s *Service) Add(ctx context.Context, ownerID, productID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	requested := quantity
	idx := -1
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			requested += c.Items[i].Quantity
			idx = i
			break
		}
	}

	if requested > p.Stock {
		return nil, &OutOfStockError{ProductID: productID, Requested: requested, Available: p.Stock}
	}

	if idx >= 0 {
		c.Items[idx].Quantity = requested
		c.Items[idx].Price = p.Price
	} else {
		c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity, Price: p.Price})
	}

	if err := s.carts.UpsertCart(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// SetQuantity replaces a line's quantity. Zero removes the line instead of
// persisting a zero-quantity line.
func (s *Service) SetQuantity(ctx context.Context, ownerID, productID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.Remove(ctx, ownerID, productID)
	}

	c, err := s.carts.GetCart(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if c == nil {
		return nil, ErrLineNotFound
	}

	idx := -1
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrLineNotFound
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Stock {
		return nil, &OutOfStockError{ProductID: productID, Requested: quantity, Available: p.Stock}
	}

	c.Items[idx].Quantity = quantity
	c.Items[idx].Price = p.Price

	if err := s.carts.UpsertCart(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Remove drops a line. Removing a line that is not there is not an error.
func (s *Service) Remove(ctx context.Context, ownerID, productID string) (*Cart, error) {
	c, err := s.carts.GetCart(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if c == nil {
		return &Cart{OwnerID: ownerID}, nil
	}

	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept

	if len(c.Items) == 0 {
		if err := s.carts.ClearCart(ctx, ownerID); err != nil {
			return nil, fmt.Errorf("clear cart: %w", err)
		}
		return c, nil
	}

	if err := s.carts.UpsertCart(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Clear empties the cart. Idempotent.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	return s.carts.ClearCart(ctx, ownerID)
}

// MergeGuestInto folds a guest cart into the authenticated user's cart:
// union by product, quantities summed, the guest's (later) price snapshot
// wins. The guest cart is deleted afterwards, which makes a second merge a
// no-op.
func (s *Service) MergeGuestInto(ctx context.Context, userID, guestID string) (*Cart, error) {
	guest, err := s.carts.GetCart(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("load guest cart: %w", err)
	}
	if guest == nil || len(guest.Items) == 0 {
		if guest != nil {
			if err := s.carts.ClearCart(ctx, guestID); err != nil {
				return nil, fmt.Errorf("drop guest cart: %w", err)
			}
		}
		return s.Get(ctx, userID)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, gi := range guest.Items {
		merged := false
		for i := range user.Items {
			if user.Items[i].ProductID == gi.ProductID {
				user.Items[i].Quantity += gi.Quantity
				user.Items[i].Price = gi.Price
				merged = true
				break
			}
		}
		if !merged {
			user.Items = append(user.Items, gi)
		}
	}

	if err := s.carts.UpsertCart(ctx, user); err != nil {
		return nil, fmt.Errorf("save merged cart: %w", err)
	}
	if err := s.carts.ClearCart(ctx, guestID); err != nil {
		return nil, fmt.Errorf("drop guest cart: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "guest_id": guestID}).
		Info("merged guest cart into user cart")
	return user, nil
}
