package store

import (
	"context"

	"github.com/alextreichler/shopkeeper/internal/models"
)

const itemColumns = `id, name, main_description, points_description, image_file, price, created_at`

// ListItems returns the whole catalog in insertion order.
func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var i models.Item
		if err := rows.Scan(&i.ID, &i.Name, &i.MainDescription, &i.PointsDescription, &i.ImageFile, &i.Price, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *Store) GetItemByID(ctx context.Context, id int) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	var i models.Item
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&i.ID, &i.Name, &i.MainDescription, &i.PointsDescription, &i.ImageFile, &i.Price, &i.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &i, nil
}

func (s *Store) CreateItem(ctx context.Context, q Querier, item *models.Item) error {
	query := `
		INSERT INTO items (name, main_description, points_description, image_file, price, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	res, err := q.ExecContext(ctx, query, item.Name, item.MainDescription, item.PointsDescription, item.ImageFile, item.Price)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = int(id)
	return nil
}

// CountOrdersForItem reports how many orders reference the item. Items with
// orders cannot be deleted.
func (s *Store) CountOrdersForItem(ctx context.Context, itemID int) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE item_id = ?`, itemID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteItem removes the item row. Items still referenced by orders are
// refused with ErrItemInUse; the check runs inside the same transaction as
// the delete so a concurrent order cannot slip between them.
func (s *Store) DeleteItem(ctx context.Context, q Querier, id int) error {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE item_id = ?`, id).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrItemInUse
	}

	res, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
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
