package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type CartRepository interface {
	// LoadCart returns an empty cart when the user has none
	LoadCart(ctx context.Context, userKey string) (domain.Cart, error)

	// SaveCart replaces the stored cart for cart.UserKey
	SaveCart(ctx context.Context, cart domain.Cart) error
}
