package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// CartService keeps per-user carts within the bounds of the ledger.
// Cart quantities are checked against stock but never debited from it.
type CartService struct {
	repo    port.CartRepository
	ledger  *InventoryLedger
	catalog port.Catalog
	policy  domain.FeePolicy
	logger  *zap.Logger
	now     func() time.Time
}

func NewCartService(
	repo port.CartRepository,
	ledger *InventoryLedger,
	catalog port.Catalog,
	policy domain.FeePolicy,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		repo:    repo,
		ledger:  ledger,
		catalog: catalog,
		policy:  policy,
		logger:  logger.Named("cart"),
		now:     time.Now,
	}
}

func (s *CartService) load(ctx context.Context, userKey string) (domain.Cart, error) {
	if userKey == "" {
		return domain.Cart{}, domain.ErrNoSession
	}
	cart, err := s.repo.LoadCart(ctx, userKey)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	cart.UserKey = userKey
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart domain.Cart) error {
	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func maxAddable(stock, inCart int) int {
	if n := stock - inCart; n > 0 {
		return n
	}
	return 0
}

// MaxAddable is how many more units of the product the user's cart can take.
func (s *CartService) MaxAddable(ctx context.Context, userKey, productID string) (int, error) {
	cart, err := s.load(ctx, userKey)
	if err != nil {
		return 0, err
	}
	stock, err := s.ledger.GetStock(ctx, productID)
	if err != nil {
		return 0, err
	}
	return maxAddable(stock, cart.QuantityOf(productID)), nil
}

// AddOrIncrement adds quantity units of the product, creating a selected line if needed.
func (s *CartService) AddOrIncrement(ctx context.Context, userKey, productID string, quantity int) (domain.CartLine, error) {
	if quantity < 1 {
		return domain.CartLine{}, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}
	cart, err := s.load(ctx, userKey)
	if err != nil {
		return domain.CartLine{}, err
	}
	stock, err := s.ledger.GetStock(ctx, productID)
	if err != nil {
		return domain.CartLine{}, err
	}

	inCart := cart.QuantityOf(productID)
	if inCart+quantity > stock {
		return domain.CartLine{}, &domain.ExceedsAvailableStockError{
			ProductID: productID,
			Requested: quantity,
			InCart:    inCart,
			Available: stock,
		}
	}

	i, ok := cart.ProductIndex(productID)
	if ok {
		cart.Lines[i].Quantity += quantity
	} else {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:        uuid.NewString(),
			ProductID: productID,
			Quantity:  quantity,
			Selected:  true,
			AddedAt:   s.now(),
		})
		i = len(cart.Lines) - 1
	}

	if err := s.save(ctx, cart); err != nil {
		return domain.CartLine{}, err
	}
	return cart.Lines[i], nil
}

// SetQuantity sets a line's quantity, clamped to the available stock.
// Quantities below 1 are rejected instead of removing the line.
func (s *CartService) SetQuantity(ctx context.Context, userKey, lineID string, quantity int) (domain.CartLine, error) {
	if quantity < 1 {
		return domain.CartLine{}, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}
	cart, i, err := s.loadLine(ctx, userKey, lineID)
	if err != nil {
		return domain.CartLine{}, err
	}

	line := cart.Lines[i]
	stock, err := s.ledger.GetStock(ctx, line.ProductID)
	if err != nil {
		return domain.CartLine{}, err
	}

	// The line's own units count toward the bound (maxAddable + inCart == stock),
	// so one line may hold the whole stock.
	if stock < 1 {
		return domain.CartLine{}, &domain.ExceedsAvailableStockError{
			ProductID: line.ProductID,
			Requested: quantity,
			InCart:    line.Quantity,
			Available: stock,
		}
	}
	if quantity > stock {
		quantity = stock
	}

	cart.Lines[i].Quantity = quantity
	if err := s.save(ctx, cart); err != nil {
		return domain.CartLine{}, err
	}
	return cart.Lines[i], nil
}

// Decrement lowers a line by one unit and drops the line when it would reach zero.
func (s *CartService) Decrement(ctx context.Context, userKey, lineID string) (line domain.CartLine, removed bool, err error) {
	cart, i, err := s.loadLine(ctx, userKey, lineID)
	if err != nil {
		return domain.CartLine{}, false, err
	}

	line = cart.Lines[i]
	if line.Quantity <= 1 {
		cart.RemoveAt(i)
		line.Quantity = 0
		removed = true
	} else {
		cart.Lines[i].Quantity--
		line = cart.Lines[i]
	}

	if err := s.save(ctx, cart); err != nil {
		return domain.CartLine{}, false, err
	}
	return line, removed, nil
}

func (s *CartService) ToggleSelected(ctx context.Context, userKey, lineID string) (domain.CartLine, error) {
	cart, i, err := s.loadLine(ctx, userKey, lineID)
	if err != nil {
		return domain.CartLine{}, err
	}
	cart.Lines[i].Selected = !cart.Lines[i].Selected
	if err := s.save(ctx, cart); err != nil {
		return domain.CartLine{}, err
	}
	return cart.Lines[i], nil
}

// SelectAll sets the checkout flag of every line.
func (s *CartService) SelectAll(ctx context.Context, userKey string, selected bool) error {
	cart, err := s.load(ctx, userKey)
	if err != nil {
		return err
	}
	for i := range cart.Lines {
		cart.Lines[i].Selected = selected
	}
	return s.save(ctx, cart)
}

func (s *CartService) RemoveLine(ctx context.Context, userKey, lineID string) error {
	cart, i, err := s.loadLine(ctx, userKey, lineID)
	if err != nil {
		return err
	}
	cart.RemoveAt(i)
	return s.save(ctx, cart)
}

// RemoveProducts drops the lines of the given products, used once they are ordered.
func (s *CartService) RemoveProducts(ctx context.Context, userKey string, productIDs []string) error {
	cart, err := s.load(ctx, userKey)
	if err != nil {
		return err
	}
	if cart.RemoveProducts(productIDs) == 0 {
		return nil
	}
	return s.save(ctx, cart)
}

// Snapshot prices the selected lines at current catalog prices.
func (s *CartService) Snapshot(ctx context.Context, userKey string) ([]domain.OrderItem, error) {
	cart, err := s.load(ctx, userKey)
	if err != nil {
		return nil, err
	}
	selected := cart.SelectedLines()
	if len(selected) == 0 {
		return nil, domain.ErrNothingSelected
	}
	return s.price(ctx, selected)
}

// ComputeTotals prices the selected lines only.
func (s *CartService) ComputeTotals(ctx context.Context, userKey string) (domain.Totals, error) {
	cart, err := s.load(ctx, userKey)
	if err != nil {
		return domain.Totals{}, err
	}
	items, err := s.price(ctx, cart.SelectedLines())
	if err != nil {
		return domain.Totals{}, err
	}
	return domain.ComputeTotals(items, s.policy), nil
}

// View resolves the cart for rendering.
func (s *CartService) View(ctx context.Context, userKey string) (domain.CartView, error) {
	cart, err := s.load(ctx, userKey)
	if err != nil {
		return domain.CartView{}, err
	}

	view := domain.CartView{UserKey: userKey, Lines: make([]domain.CartLineView, 0, len(cart.Lines))}
	var selected []domain.OrderItem
	for _, line := range cart.Lines {
		product, err := s.catalog.Product(ctx, line.ProductID)
		if err != nil {
			return domain.CartView{}, err
		}
		stock, err := s.ledger.GetStock(ctx, line.ProductID)
		if err != nil {
			return domain.CartView{}, err
		}
		item := domain.OrderItem{
			ProductID: line.ProductID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.UnitPrice,
		}
		view.Lines = append(view.Lines, domain.CartLineView{
			CartLine:   line,
			Name:       product.Name,
			UnitPrice:  product.UnitPrice,
			LineTotal:  item.LineTotal(),
			MaxAddable: maxAddable(stock, cart.QuantityOf(line.ProductID)),
			Available:  stock,
		})
		if line.Selected {
			selected = append(selected, item)
		}
	}
	view.Totals = domain.ComputeTotals(selected, s.policy)
	return view, nil
}

func (s *CartService) loadLine(ctx context.Context, userKey, lineID string) (domain.Cart, int, error) {
	cart, err := s.load(ctx, userKey)
	if err != nil {
		return domain.Cart{}, -1, err
	}
	i, ok := cart.LineIndex(lineID)
	if !ok {
		return domain.Cart{}, -1, &domain.NotFoundError{Kind: "cart line", ID: lineID}
	}
	return cart, i, nil
}

func (s *CartService) price(ctx context.Context, lines []domain.CartLine) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		product, err := s.catalog.Product(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.UnitPrice,
		})
	}
	return items, nil
}
