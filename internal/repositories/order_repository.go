package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wingo-backend/internal/models"
)

type OrderRepository struct {
	DB *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{DB: db}
}

const orderColumns = `id, user_id,
	pickup_address, pickup_lat, pickup_lng,
	dropoff_address, dropoff_lat, dropoff_lng,
	payment_method, payment_amount, payment_status, transaction_id, gateway_order_id,
	status, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o                      models.Order
		pickupLat, pickupLng   *float64
		dropoffLat, dropoffLng *float64
	)
	err := row.Scan(&o.ID, &o.UserID,
		&o.Pickup.Address, &pickupLat, &pickupLng,
		&o.Dropoff.Address, &dropoffLat, &dropoffLng,
		&o.Payment.Method, &o.Payment.Amount, &o.Payment.Status, &o.Payment.TransactionID, &o.Payment.GatewayOrderID,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}
	o.Pickup.Coordinates = coordinates(pickupLat, pickupLng)
	o.Dropoff.Coordinates = coordinates(dropoffLat, dropoffLng)
	return &o, nil
}

func coordinates(lat, lng *float64) *models.Coordinates {
	if lat == nil || lng == nil {
		return nil
	}
	return &models.Coordinates{Lat: *lat, Lng: *lng}
}

func splitCoordinates(c *models.Coordinates) (*float64, *float64) {
	if c == nil {
		return nil, nil
	}
	lat, lng := c.Lat, c.Lng
	return &lat, &lng
}

// Create inserts the order and its items in one transaction
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	pickupLat, pickupLng := splitCoordinates(o.Pickup.Coordinates)
	dropoffLat, dropoffLng := splitCoordinates(o.Dropoff.Coordinates)

	err := pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO orders(id, user_id,
                pickup_address, pickup_lat, pickup_lng,
                dropoff_address, dropoff_lat, dropoff_lng,
                payment_method, payment_amount, payment_status, transaction_id, gateway_order_id, status)
             VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
             RETURNING created_at, updated_at`,
			o.ID, o.UserID,
			o.Pickup.Address, pickupLat, pickupLng,
			o.Dropoff.Address, dropoffLat, dropoffLng,
			o.Payment.Method, o.Payment.Amount, o.Payment.Status, o.Payment.TransactionID, o.Payment.GatewayOrderID,
			o.Status,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, item := range o.Items {
			batch.Queue(
				`INSERT INTO order_items(order_id, position, name, category, quantity, price)
                 VALUES($1, $2, $3, $4, $5, $6)`,
				o.ID, i, item.Name, item.Category, item.Quantity, item.Price)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := r.loadItems(ctx, []*models.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE gateway_order_id=$1`, gatewayOrderID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get order by gateway id: %w", err)
	}
	if err := r.loadItems(ctx, []*models.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*models.Order, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		o.Items = []models.OrderItem{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.DB.Query(ctx,
		`SELECT order_id, name, category, quantity, price
         FROM order_items WHERE order_id = ANY($1)
         ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			item    models.OrderItem
		)
		if err := rows.Scan(&orderID, &item.Name, &item.Category, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

// UpdateStatus moves the order from one status to another only if it is
// still in the from status. A lost race returns ErrInvalidStatusTransition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.Order, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE orders SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`,
		id, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.missOrConflict(ctx, id, models.ErrInvalidStatusTransition)
	}
	return r.Get(ctx, id)
}

// UpdatePayment records a settled payment if the payment is still in the
// from status.
func (r *OrderRepository) UpdatePayment(ctx context.Context, id uuid.UUID, from models.PaymentStatus, result models.PaymentResult) (*models.Order, error) {
	var txnID *string
	if result.TransactionID != "" {
		txnID = &result.TransactionID
	}
	tag, err := r.DB.Exec(ctx,
		`UPDATE orders SET payment_status=$3, transaction_id=COALESCE($4, transaction_id), updated_at=NOW()
         WHERE id=$1 AND payment_status=$2`,
		id, from, result.Status, txnID)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.missOrConflict(ctx, id, models.ErrInvalidStatusTransition)
	}
	return r.Get(ctx, id)
}

func (r *OrderRepository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE orders SET gateway_order_id=$2, updated_at=NOW() WHERE id=$1`, id, gatewayOrderID)
	if err != nil {
		return fmt.Errorf("failed to set gateway order id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) missOrConflict(ctx context.Context, id uuid.UUID, conflict error) error {
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return models.ErrOrderNotFound
	}
	return conflict
}
