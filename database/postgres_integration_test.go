//go:build integration

package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cartControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/cart"
	orderControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/order"
	productcontroller "github.com/DelightGeorge/Ikeya-Backend/controllers/product"
	"github.com/DelightGeorge/Ikeya-Backend/database"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/DelightGeorge/Ikeya-Backend/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// setupPostgres starts a throwaway PostgreSQL container and returns a
// migrated connection plus its DSN.
func setupPostgres(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ikeya"),
		postgres.WithUsername("ikeya"),
		postgres.WithPassword("ikeya"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db, dsn
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notifications.Message
}

func (s *recordingSender) Send(_ context.Context, msg notifications.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestPostgres(t *testing.T) {
	db, dsn := setupPostgres(t)

	user := models.User{Name: "Ada", Email: "ada@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)
	category, _, err := productcontroller.UpsertCategory(db, "Menswear", "")
	require.NoError(t, err)

	t.Run("category upsert is idempotent", func(t *testing.T) {
		again, created, err := productcontroller.UpsertCategory(db, "Menswear", "")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, category.ID, again.ID)
	})

	t.Run("concurrent checkouts of one cart", func(t *testing.T) {
		product := models.Product{Name: "Agbada", Description: "d", Price: 500000, ImageURL: "x", Type: "Menswear", CategoryID: category.ID}
		require.NoError(t, db.Create(&product).Error)
		_, _, err := cartControllers.AddToCart(db, user.ID, product.ID, 2)
		require.NoError(t, err)

		deps := orderControllers.Deps{Outbox: notifications.NewOutbox("admin@ikeya.shop", 5), DeliveryFee: 250000}
		req := orderControllers.CreateOrderRequest{Address: "1 Marina, Lagos", Phone: "0801"}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = orderControllers.CreateOrder(db, deps, user.ID, req)
			}(i)
		}
		wg.Wait()

		succeeded, empty := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, orderControllers.ErrEmptyCart):
				empty++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, empty)

		var orders int64
		db.Model(&models.Order{}).Where("user_id = ?", user.ID).Count(&orders)
		assert.Equal(t, int64(1), orders)
	})

	t.Run("notify wakes the outbox worker", func(t *testing.T) {
		require.NoError(t, db.Where("1 = 1").Delete(&models.OutboxMessage{}).Error)

		sender := &recordingSender{}
		worker := outbox.NewWorker(db, sender, 10, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go worker.Run(ctx)
		go outbox.Listen(ctx, dsn, worker)

		// Give the listener time to issue LISTEN before the commit.
		time.Sleep(time.Second)

		msg, err := notifications.NewsletterWelcome("fan@example.com")
		require.NoError(t, err)
		require.NoError(t, notifications.NewOutbox("", 5).Enqueue(db, msg))

		assert.Eventually(t, func() bool { return sender.count() == 1 }, 10*time.Second, 100*time.Millisecond)
	})
}
