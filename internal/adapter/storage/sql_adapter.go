package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// SQLAdapter persists inventory, carts and orders in MySQL or SQLite.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect, now: time.Now}
}

func (s *SQLAdapter) insertIgnoreStock() string {
	if s.dialect == DialectMySQL {
		return `INSERT IGNORE INTO inventory (product_id, stock, version, updated_at) VALUES (?, ?, 0, ?)`
	}
	return `INSERT OR IGNORE INTO inventory (product_id, stock, version, updated_at) VALUES (?, ?, 0, ?)`
}

func (s *SQLAdapter) upsertIncrementStock() string {
	if s.dialect == DialectMySQL {
		return `
		INSERT INTO inventory (product_id, stock, version, updated_at) VALUES (?, ?, 0, ?)
		ON DUPLICATE KEY UPDATE stock = stock + VALUES(stock), version = version + 1, updated_at = VALUES(updated_at)`
	}
	return `
		INSERT INTO inventory (product_id, stock, version, updated_at) VALUES (?, ?, 0, ?)
		ON CONFLICT(product_id) DO UPDATE SET stock = stock + excluded.stock, version = version + 1, updated_at = excluded.updated_at`
}

func (s *SQLAdapter) GetInventory(ctx context.Context, productID string) (*domain.Inventory, error) {
	inv := domain.Inventory{ProductID: productID}
	err := s.db.QueryRowContext(ctx,
		`SELECT stock FROM inventory WHERE product_id = ?`, productID,
	).Scan(&inv.Quantity)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &inv, nil
}

func (s *SQLAdapter) InitStock(ctx context.Context, productID string, quantity int) (int, error) {
	if _, err := s.db.ExecContext(ctx, s.insertIgnoreStock(), productID, quantity, s.now().UnixMicro()); err != nil {
		return 0, fmt.Errorf("insert inventory: %w", err)
	}

	var stock int
	err := s.db.QueryRowContext(ctx,
		`SELECT stock FROM inventory WHERE product_id = ?`, productID,
	).Scan(&stock)
	if err != nil {
		return 0, fmt.Errorf("query inventory: %w", err)
	}
	return stock, nil
}

func (s *SQLAdapter) SetStock(ctx context.Context, productID string, quantity int) error {
	now := s.now().UnixMicro()
	result, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET stock = ?, version = version + 1, updated_at = ?
		WHERE product_id = ?`,
		quantity, now, productID,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, err := s.db.ExecContext(ctx, s.insertIgnoreStock(), productID, quantity, now); err != nil {
			return fmt.Errorf("insert inventory: %w", err)
		}
	}
	return nil
}

// lockOrder returns items sorted by product ID. Every multi-row stock write
// locks rows in this order so concurrent transactions cannot deadlock.
func lockOrder(items []domain.StockRequest) []domain.StockRequest {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b domain.StockRequest) int {
		return strings.Compare(a.ProductID, b.ProductID)
	})
	return sorted
}

func (s *SQLAdapter) DecrementStock(ctx context.Context, items []domain.StockRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixMicro()
	for _, item := range lockOrder(items) {
		result, err := tx.ExecContext(ctx, `
			UPDATE inventory
			SET stock = stock - ?, version = version + 1, updated_at = ?
			WHERE product_id = ? AND stock >= ?`,
			item.Quantity, now, item.ProductID, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("update inventory: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			var available int
			err := tx.QueryRowContext(ctx,
				`SELECT stock FROM inventory WHERE product_id = ?`, item.ProductID,
			).Scan(&available)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("query inventory: %w", err)
			}
			return &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: available,
			}
		}
	}

	return tx.Commit()
}

func (s *SQLAdapter) IncrementStock(ctx context.Context, items []domain.StockRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixMicro()
	for _, item := range lockOrder(items) {
		if _, err := tx.ExecContext(ctx, s.upsertIncrementStock(), item.ProductID, item.Quantity, now); err != nil {
			return fmt.Errorf("increment inventory: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLAdapter) LoadCart(ctx context.Context, userKey string) (domain.Cart, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT line_id, product_id, quantity, selected, added_at
		FROM cart_lines WHERE user_key = ?
		ORDER BY position`, userKey,
	)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	cart := domain.Cart{UserKey: userKey}
	for rows.Next() {
		var (
			line    domain.CartLine
			addedAt int64
		)
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Quantity, &line.Selected, &addedAt); err != nil {
			return domain.Cart{}, fmt.Errorf("scan cart line: %w", err)
		}
		line.AddedAt = time.UnixMicro(addedAt).UTC()
		cart.Lines = append(cart.Lines, line)
	}
	return cart, rows.Err()
}

func (s *SQLAdapter) SaveCart(ctx context.Context, cart domain.Cart) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_key = ?`, cart.UserKey); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	for i, line := range cart.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cart_lines (line_id, user_key, product_id, quantity, selected, position, added_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			line.ID, cart.UserKey, line.ProductID, line.Quantity, line.Selected, i, line.AddedAt.UnixMicro(),
		)
		if err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, remote_id, user_key, subtotal, shipping_fee, tax_fee, total, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.RemoteID, order.UserKey,
		order.Subtotal.String(), order.ShippingFee.String(), order.TaxFee.String(), order.Total.String(),
		string(order.Status), order.CreatedAt.UnixMicro(), order.UpdatedAt.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			order.ID, i, item.ProductID, item.Name, item.Quantity, item.UnitPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

const selectOrderColumns = `
	SELECT id, remote_id, user_key, subtotal, shipping_fee, tax_fee, total, status, created_at, updated_at
	FROM orders`

func (s *SQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, selectOrderColumns+` WHERE id = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := s.queryItems(ctx, `
		SELECT order_id, product_id, name, quantity, unit_price
		FROM order_items WHERE order_id = ?
		ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return &order, nil
}

func (s *SQLAdapter) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), at.UnixMicro(), orderID, string(from),
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrStatusConflict
	}
	return nil
}

func (s *SQLAdapter) ListOrdersByUser(ctx context.Context, userKey string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, selectOrderColumns+` WHERE user_key = ? ORDER BY created_at, id`, userKey)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Release the connection before the item query; SQLite runs on a single one.
	rows.Close()
	if len(orders) == 0 {
		return nil, nil
	}

	items, err := s.queryItems(ctx, `
		SELECT oi.order_id, oi.product_id, oi.name, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_key = ?
		ORDER BY oi.order_id, oi.position`, userKey)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (s *SQLAdapter) queryItems(ctx context.Context, query string, arg string) (map[string][]domain.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order                domain.Order
		status               string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&order.ID, &order.RemoteID, &order.UserKey,
		&order.Subtotal, &order.ShippingFee, &order.TaxFee, &order.Total,
		&status, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	if !order.Status.Valid() {
		return domain.Order{}, fmt.Errorf("order %s has unknown status %q", order.ID, status)
	}
	order.CreatedAt = time.UnixMicro(createdAt).UTC()
	order.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	return order, nil
}
