package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/alextreichler/shopkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	// Unique in-memory database per test to avoid cross-test collisions.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema())
	t.Cleanup(func() { s.DB.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, username, email string, admin bool) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    email,
		Password: "not-a-real-hash",
		IsAdmin:  admin,
	}
	err := s.Tx(context.Background(), func(tx *sql.Tx) error {
		return s.CreateUser(context.Background(), tx, u)
	})
	require.NoError(t, err)
	return u
}

func createTestItem(t *testing.T, s *Store, name string, price float64) *models.Item {
	t.Helper()
	item := &models.Item{
		Name:      name,
		ImageFile: "test.jpg",
		Price:     price,
	}
	err := s.Tx(context.Background(), func(tx *sql.Tx) error {
		return s.CreateItem(context.Background(), tx, item)
	})
	require.NoError(t, err)
	return item
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := createTestUser(t, s, "alice", "alice@example.com", false)

	dup := &models.User{Username: "alice2", Email: "alice@example.com", Password: "x"}
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		return s.CreateUser(ctx, tx, dup)
	})
	require.ErrorIs(t, err, ErrDuplicate)

	second := createTestUser(t, s, "bob", "bob@example.com", false)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Positive(t, first.ID)
	assert.Positive(t, second.ID)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "alice", "alice@example.com", false)

	dup := &models.User{Username: "alice", Email: "other@example.com", Password: "x"}
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		return s.CreateUser(ctx, tx, dup)
	})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestGetUserByEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created := createTestUser(t, s, "alice", "alice@example.com", true)

	user, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsAdmin)
	assert.Equal(t, models.DefaultProfileImage, user.ImageFile)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserProfileUniqueness(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "alice", "alice@example.com", false)
	bob := createTestUser(t, s, "bob", "bob@example.com", false)

	taken, err := s.UsernameOrEmailTaken(ctx, "alice", "bob@example.com", bob.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	// Keeping your own values is not a collision.
	taken, err = s.UsernameOrEmailTaken(ctx, "bob", "bob@example.com", bob.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	// The schema still backstops the check.
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return s.UpdateUserProfile(ctx, tx, bob.ID, "alice", "bob@example.com", "", "")
	})
	require.ErrorIs(t, err, ErrDuplicate)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return s.UpdateUserProfile(ctx, tx, bob.ID, "bobby", "bobby@example.com", "1 Main St", "555-0100")
	})
	require.NoError(t, err)

	updated, err := s.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bobby", updated.Username)
	assert.Equal(t, "1 Main St", updated.Address)
}

func TestItemCreateListDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	item := createTestItem(t, s, "Mug", 9.99)
	require.Positive(t, item.ID)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Mug", items[0].Name)
	assert.Equal(t, item.ID, items[0].ID)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return s.DeleteItem(ctx, tx, item.ID)
	})
	require.NoError(t, err)

	items, err = s.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return s.DeleteItem(ctx, tx, item.ID)
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteItemWithOrders(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "alice", "alice@example.com", false)
	item := createTestItem(t, s, "Mug", 9.99)

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := s.CreateOrder(ctx, tx, user.ID, item.ID)
		return err
	})
	require.NoError(t, err)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return s.DeleteItem(ctx, tx, item.ID)
	})
	require.ErrorIs(t, err, ErrItemInUse)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCreateOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "alice", "alice@example.com", false)
	item := createTestItem(t, s, "Mug", 9.99)

	before, err := s.ListOrdersForUser(ctx, user.ID)
	require.NoError(t, err)

	var order *models.Order
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = s.CreateOrder(ctx, tx, user.ID, item.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)

	after, err := s.ListOrdersForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, item.ID, after[len(after)-1].ItemID)
	assert.Equal(t, "Mug", after[len(after)-1].ItemName)
	assert.Equal(t, 9.99, after[len(after)-1].ItemPrice)

	// Ordering twice creates two independent rows.
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := s.CreateOrder(ctx, tx, user.ID, item.ID)
		return err
	})
	require.NoError(t, err)
	again, err := s.ListOrdersForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, again, len(before)+2)
}

func TestCreateOrderMissingItem(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "alice", "alice@example.com", false)

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := s.CreateOrder(ctx, tx, user.ID, 9999)
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)

	orders, err := s.ListOrdersForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSetOrderStatus(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "alice", "alice@example.com", false)
	item := createTestItem(t, s, "Mug", 9.99)

	var order *models.Order
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = s.CreateOrder(ctx, tx, user.ID, item.ID)
		return err
	})
	require.NoError(t, err)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return s.SetOrderStatus(ctx, tx, order.ID, models.StatusShipped)
	})
	require.NoError(t, err)

	all, err := s.ListAllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.StatusShipped, all[0].Status)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "alice@example.com", all[0].UserEmail)

	// Unknown order: ErrNotFound, nothing changes.
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return s.SetOrderStatus(ctx, tx, 9999, models.StatusCancelled)
	})
	require.ErrorIs(t, err, ErrNotFound)

	all, err = s.ListAllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.StatusShipped, all[0].Status)
}

func TestCountOrdersForItem(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "alice", "alice@example.com", false)
	item := createTestItem(t, s, "Mug", 9.99)
	other := createTestItem(t, s, "Plate", 14.50)

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := s.CreateOrder(ctx, tx, user.ID, item.ID)
		return err
	})
	require.NoError(t, err)

	count, err := s.CountOrdersForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.CountOrdersForItem(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetShopStats(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "alice", "alice@example.com", false)
	createTestUser(t, s, "root", "root@example.com", true)
	item := createTestItem(t, s, "Mug", 9.99)

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := s.CreateOrder(ctx, tx, user.ID, item.ID)
		return err
	})
	require.NoError(t, err)

	stats, err := s.GetShopStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalItems)
	assert.Equal(t, 1, stats.TotalOrders)
	assert.Equal(t, 1, stats.TotalCustomers)
	assert.Equal(t, 1, stats.OrdersByStatus[models.StatusPending])
}

func TestTxRollsBackOnError(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "alice", "alice@example.com", false)
	item := createTestItem(t, s, "Mug", 9.99)

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := s.CreateOrder(ctx, tx, user.ID, item.ID); err != nil {
			return err
		}
		// Second mutation fails: the first must not survive.
		return s.SetOrderStatus(ctx, tx, 9999, models.StatusShipped)
	})
	require.ErrorIs(t, err, ErrNotFound)

	orders, err := s.ListOrdersForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
