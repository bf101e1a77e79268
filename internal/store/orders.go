package store

import (
	"context"

	"github.com/alextreichler/shopkeeper/internal/models"
)

// CreateOrder places one order row: one unit of one item. Placing the same
// item twice creates two independent rows. The item reference is verified
// inside the same transaction so the order never points at a missing item.
func (s *Store) CreateOrder(ctx context.Context, q Querier, userID, itemID int) (*models.Order, error) {
	var exists int
	if err := q.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, itemID).Scan(&exists); err != nil {
		return nil, mapErr(err)
	}

	query := `
		INSERT INTO orders (user_id, item_id, status, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`
	res, err := q.ExecContext(ctx, query, userID, itemID, models.StatusPending)
	if err != nil {
		return nil, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Order{ID: int(id), UserID: userID, ItemID: itemID, Status: models.StatusPending}, nil
}

// ListOrdersForUser returns the user's orders joined with item display data.
func (s *Store) ListOrdersForUser(ctx context.Context, userID int) ([]models.Order, error) {
	query := `
		SELECT o.id, o.user_id, o.item_id, o.status, o.created_at, i.name, i.image_file, i.price
		FROM orders o
		JOIN items i ON o.item_id = i.id
		WHERE o.user_id = ?
		ORDER BY o.id
	`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.ItemID, &o.Status, &o.CreatedAt, &o.ItemName, &o.ItemImageFile, &o.ItemPrice); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListAllOrders returns every order joined with item and user display data.
func (s *Store) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	query := `
		SELECT o.id, o.user_id, o.item_id, o.status, o.created_at, i.name, i.image_file, i.price, u.username, u.email
		FROM orders o
		JOIN items i ON o.item_id = i.id
		JOIN users u ON o.user_id = u.id
		ORDER BY o.id
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.ItemID, &o.Status, &o.CreatedAt, &o.ItemName, &o.ItemImageFile, &o.ItemPrice, &o.Username, &o.UserEmail); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SetOrderStatus overwrites the status. Unknown order ids surface as
// ErrNotFound and leave existing rows untouched.
func (s *Store) SetOrderStatus(ctx context.Context, q Querier, id int, status string) error {
	res, err := q.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
