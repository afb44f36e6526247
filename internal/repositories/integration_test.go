//go:build integration

package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"wingo-backend/internal/database"
	"wingo-backend/internal/db"
	"wingo-backend/internal/models"
	"wingo-backend/internal/repositories"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "wingo_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn := fmt.Sprintf("postgres://postgres:password@%s:%s/wingo_test?sslmode=disable", host, port.Port())

	pool, err = db.Connect(ctx, dsn)
	if err != nil {
		panic(err)
	}
	migrator := database.NewMigrator(pool, database.Migrations(), zap.NewNop())
	if err := migrator.RunMigrations(ctx); err != nil {
		panic(err)
	}
	// second run is a no-op
	if err := migrator.RunMigrations(ctx); err != nil {
		panic(err)
	}

	code := m.Run()
	pool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newUser(t *testing.T, ctx context.Context, phone string) *models.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &models.User{PhoneNumber: phone, IsVerified: true, LastLogin: &now}
	require.NoError(t, repositories.NewUserRepository(pool).Create(ctx, u))
	return u
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := repositories.NewUserRepository(pool)

	u := newUser(t, ctx, "+919800000001")
	require.NotEqual(t, uuid.Nil, u.ID)

	dup := &models.User{PhoneNumber: u.PhoneNumber}
	assert.ErrorIs(t, users.Create(ctx, dup), models.ErrPhoneTaken)

	byPhone, err := users.GetByPhone(ctx, u.PhoneNumber)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byPhone.ID)
	assert.Nil(t, byPhone.Address)

	_, err = users.GetByPhone(ctx, "+919800009999")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	_, err = users.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	later := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	touched, err := users.TouchLastLogin(ctx, u.ID, later)
	require.NoError(t, err)
	require.NotNil(t, touched.LastLogin)
	assert.True(t, later.Equal(*touched.LastLogin))

	name := "Asha"
	updated, err := users.UpdateProfile(ctx, u.ID, &models.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Asha", updated.Name)
	assert.Equal(t, u.PhoneNumber, updated.PhoneNumber)

	addr := &models.Address{Street: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001"}
	updated, err = users.UpdateProfile(ctx, u.ID, &models.UpdateProfileRequest{Address: addr})
	require.NoError(t, err)
	assert.Equal(t, "Asha", updated.Name, "name untouched by address-only update")
	assert.Equal(t, addr, updated.Address)

	require.NoError(t, users.SetPasswordHash(ctx, u.ID, "hash"))
	got, err := users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	assert.ErrorIs(t, users.SetPasswordHash(ctx, uuid.New(), "hash"), models.ErrUserNotFound)
}

func TestUserRepository_ConcurrentCreateSamePhone(t *testing.T) {
	ctx := context.Background()
	users := repositories.NewUserRepository(pool)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		taken   int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := users.Create(ctx, &models.User{PhoneNumber: "+919800000050"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, models.ErrPhoneTaken):
				taken++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 7, taken)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	orders := repositories.NewOrderRepository(pool)
	owner := newUser(t, ctx, "+919800000002")

	o := &models.Order{
		UserID: owner.ID,
		Items: []models.OrderItem{
			{Name: "Rice", Category: models.CategoryGrocery, Quantity: 2, Price: 60},
			{Name: "Insulin", Category: models.CategoryMedical, Quantity: 1, Price: 450.5},
		},
		Pickup:  models.Location{Address: "Store", Coordinates: &models.Coordinates{Lat: 12.9, Lng: 77.5}},
		Dropoff: models.Location{Address: "Home"},
		Payment: models.Payment{Method: models.PaymentMethodRazorpay, Amount: 570.5, Status: models.PaymentStatusPending},
		Status:  models.OrderStatusPending,
	}
	require.NoError(t, orders.Create(ctx, o))

	got, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.UserID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Rice", got.Items[0].Name)
	assert.Equal(t, 450.5, got.Items[1].Price)
	assert.Equal(t, 570.5, got.Payment.Amount)
	require.NotNil(t, got.Pickup.Coordinates)
	assert.Nil(t, got.Dropoff.Coordinates)

	list, err := orders.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 2)

	_, err = orders.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrOrderNotFound)

	require.NoError(t, orders.SetGatewayOrderID(ctx, o.ID, "order_test_1"))
	byGateway, err := orders.GetByGatewayOrderID(ctx, "order_test_1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byGateway.ID)

	paid, err := orders.UpdatePayment(ctx, o.ID, models.PaymentStatusPending,
		models.PaymentResult{TransactionID: "pay_1", Status: models.PaymentStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, paid.Payment.Status)
	require.NotNil(t, paid.Payment.TransactionID)
	assert.Equal(t, "pay_1", *paid.Payment.TransactionID)

	_, err = orders.UpdatePayment(ctx, o.ID, models.PaymentStatusPending,
		models.PaymentResult{Status: models.PaymentStatusFailed})
	assert.ErrorIs(t, err, models.ErrInvalidStatusTransition)

	confirmed, err := orders.UpdateStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, confirmed.Status)

	_, err = orders.UpdateStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, models.ErrInvalidStatusTransition, "stale from-status loses")

	_, err = orders.UpdateStatus(ctx, uuid.New(), models.OrderStatusPending, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)

	_, err = pool.Exec(ctx, `UPDATE orders SET user_id=$2 WHERE id=$1`, o.ID, newUser(t, ctx, "+919800000003").ID)
	assert.Error(t, err, "owner cannot change")
}

func TestResetData(t *testing.T) {
	ctx := context.Background()
	u := newUser(t, ctx, "+919800000099")

	require.NoError(t, database.ResetData(ctx, pool))

	_, err := repositories.NewUserRepository(pool).Get(ctx, u.ID)
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count))
	assert.Zero(t, count)
}
