package store

import (
	"context"
	"database/sql"
	"errors"
)

type ShopStats struct {
	TotalItems     int
	TotalOrders    int
	TotalCustomers int
	OrdersByStatus map[string]int
}

// GetShopStats gathers the counts shown on the shop management page.
func (s *Store) GetShopStats(ctx context.Context) (*ShopStats, error) {
	stats := &ShopStats{
		OrdersByStatus: make(map[string]int),
	}

	err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&stats.TotalItems)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&stats.TotalOrders)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE is_admin = 0").Scan(&stats.TotalCustomers)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.OrdersByStatus[status] = count
	}

	return stats, rows.Err()
}
