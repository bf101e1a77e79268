package store

import (
	"context"
	"database/sql"

	"github.com/alextreichler/shopkeeper/internal/models"
)

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Address, &u.Phone, &u.ImageFile, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

const userColumns = `id, username, email, password, address, phone, image_file, is_admin, created_at`

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(s.DB.QueryRowContext(ctx, query, email))
}

func (s *Store) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(s.DB.QueryRowContext(ctx, query, id))
}

// CreateUser persists a registration. The password must already be hashed.
// A taken username or email surfaces as ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, q Querier, u *models.User) error {
	query := `
		INSERT INTO users (username, email, password, address, phone, image_file, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	image := u.ImageFile
	if image == "" {
		image = models.DefaultProfileImage
	}
	res, err := q.ExecContext(ctx, query, u.Username, u.Email, u.Password, u.Address, u.Phone, image, u.IsAdmin)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = int(id)
	u.ImageFile = image
	return nil
}

// UpdateUserProfile overwrites the self-service fields. Username and email
// uniqueness is re-checked by the schema; a collision with another user's row
// surfaces as ErrDuplicate instead of silently breaking the invariant.
func (s *Store) UpdateUserProfile(ctx context.Context, q Querier, id int, username, email, address, phone string) error {
	query := `UPDATE users SET username = ?, email = ?, address = ?, phone = ? WHERE id = ?`
	res, err := q.ExecContext(ctx, query, username, email, address, phone, id)
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

func (s *Store) UpdateUserImage(ctx context.Context, q Querier, id int, imageFile string) error {
	query := `UPDATE users SET image_file = ? WHERE id = ?`
	res, err := q.ExecContext(ctx, query, imageFile, id)
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

// UsernameOrEmailTaken reports whether another user (excluding excludeID)
// already holds the username or email. Used to validate profile updates
// before attempting the write.
func (s *Store) UsernameOrEmailTaken(ctx context.Context, username, email string, excludeID int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE (username = ? OR email = ?) AND id != ?`
	if err := s.DB.QueryRowContext(ctx, query, username, email, excludeID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
