// Package testutil provides in-memory stores with the same contracts as the
// Postgres repositories, for service and handler tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wingo-backend/internal/models"
)

type UserStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*models.User
	byPhone map[string]uuid.UUID
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[uuid.UUID]*models.User),
		byPhone: make(map[string]uuid.UUID),
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.Address != nil {
		a := *u.Address
		c.Address = &a
	}
	return &c
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPhone[u.PhoneNumber]; ok {
		return models.ErrPhoneTaken
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	s.users[u.ID] = copyUser(u)
	s.byPhone[u.PhoneNumber] = u.ID
	return nil
}

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *UserStore) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.byPhone[phone]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return s.Get(ctx, id)
}

func (s *UserStore) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	u.LastLogin = &at
	return copyUser(u), nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Address != nil {
		a := *req.Address
		u.Address = &a
	}
	return copyUser(u), nil
}

func (s *UserStore) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

// Len returns the number of stored users
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

type OrderStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*models.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[uuid.UUID]*models.Order)}
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	return &c
}

func (s *OrderStore) Create(ctx context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	s.orders[o.ID] = copyOrder(o)
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (s *OrderStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.Payment.GatewayOrderID != nil && *o.Payment.GatewayOrderID == gatewayOrderID {
			return copyOrder(o), nil
		}
	}
	return nil, models.ErrOrderNotFound
}

func (s *OrderStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []*models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, models.ErrInvalidStatusTransition
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return copyOrder(o), nil
}

func (s *OrderStore) UpdatePayment(ctx context.Context, id uuid.UUID, from models.PaymentStatus, result models.PaymentResult) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	if o.Payment.Status != from {
		return nil, models.ErrInvalidStatusTransition
	}
	o.Payment.Status = result.Status
	if result.TransactionID != "" {
		txn := result.TransactionID
		o.Payment.TransactionID = &txn
	}
	o.UpdatedAt = time.Now()
	return copyOrder(o), nil
}

func (s *OrderStore) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	o.Payment.GatewayOrderID = &gatewayOrderID
	return nil
}
