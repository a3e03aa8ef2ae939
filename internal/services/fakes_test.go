package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"delivery_api/internal/events"
	"delivery_api/internal/models"
	"delivery_api/internal/pricing"
	"delivery_api/internal/repository"
	"delivery_api/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memStore is an in-memory OrderRepository. One mutex stands in for the row
// locks of the SQL store, so every call is atomic.
type memStore struct {
	mu        sync.Mutex
	nextID    uint
	addresses map[uint]models.Address
	products  map[uint]*models.Product
	coupons   map[string]*models.Coupon
	couriers  map[uint]bool
	orders    map[uint]*models.Order
}

func newMemStore() *memStore {
	return &memStore{
		addresses: map[uint]models.Address{},
		products:  map[uint]*models.Product{},
		coupons:   map[string]*models.Coupon{},
		couriers:  map[uint]bool{},
		orders:    map[uint]*models.Order{},
	}
}

func (m *memStore) addAddress(id, userID uint) {
	m.addresses[id] = models.Address{ID: id, UserID: userID, IsActive: true}
}

func (m *memStore) addProduct(id uint, price string, stock int) {
	m.products[id] = &models.Product{
		ID:       id,
		Name:     "product",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
}

func (m *memStore) stock(id uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memStore) CreateOrder(ctx context.Context, req repository.CreateOrderRequest) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	address, ok := m.addresses[req.Cart.AddressID]
	if !ok || address.UserID != req.CustomerID || !address.IsActive {
		return nil, apperrors.NewAddressNotOwnedError()
	}

	lines := make([]pricing.Line, 0, len(req.Cart.Items))
	for _, item := range req.Cart.Items {
		p, ok := m.products[item.ProductID]
		if !ok || !p.IsActive {
			return nil, apperrors.NewValidationError("product is not available").WithCode("PRODUCT_UNAVAILABLE")
		}
		if p.Stock < item.Quantity {
			return nil, apperrors.NewInsufficientStockError(p.ID, p.Stock, item.Quantity)
		}
		lines = append(lines, pricing.Line{ProductID: p.ID, Quantity: item.Quantity, UnitPrice: p.EffectivePrice()})
	}

	var coupon *models.Coupon
	if req.Cart.CouponCode != "" {
		coupon, ok = m.coupons[req.Cart.CouponCode]
		if !ok {
			return nil, pricing.UnknownCoupon(req.Cart.CouponCode)
		}
		if err := pricing.CheckCoupon(coupon, req.Rules.Quote(lines, nil).Subtotal, req.Now); err != nil {
			return nil, err
		}
	}
	quote := req.Rules.Quote(lines, coupon)

	for _, line := range lines {
		m.products[line.ProductID].Stock -= line.Quantity
	}
	if coupon != nil {
		coupon.UsedCount++
	}

	m.nextID++
	order := &models.Order{
		ID:            m.nextID,
		CustomerID:    req.CustomerID,
		AddressID:     req.Cart.AddressID,
		TrackingCode:  pricing.NewTrackingCode(req.Now),
		Status:        models.StatusPending,
		Subtotal:      quote.Subtotal,
		Discount:      quote.Discount,
		DeliveryFee:   quote.DeliveryFee,
		Total:         quote.Total,
		CouponCode:    req.Cart.CouponCode,
		PaymentMethod: req.Cart.PaymentMethod,
		Notes:         req.Cart.Notes,
		CreatedAt:     req.Now,
		UpdatedAt:     req.Now,
	}
	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal(),
		})
	}
	order.History = []models.OrderStatusHistory{{OrderID: order.ID, ToStatus: models.StatusPending, ChangedBy: req.CustomerID}}
	m.orders[order.ID] = order
	return cloneOrder(order), nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, change repository.StatusChange) (*repository.StatusChangeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[change.OrderID]
	if !ok {
		return nil, apperrors.NewNotFoundError("order not found")
	}
	if change.OwnerID != 0 && stored.CustomerID != change.OwnerID {
		return nil, apperrors.NewForbiddenError("order belongs to another customer")
	}
	if change.CourierID != nil && !m.couriers[*change.CourierID] {
		return nil, apperrors.NewValidationError("not a courier").WithCode("INVALID_COURIER")
	}

	order := cloneOrder(stored)
	from := order.Status
	if err := order.Transition(change.To, change.At, change.Reason); err != nil {
		return nil, err
	}
	if change.CourierID != nil {
		order.CourierID = change.CourierID
	}
	if change.To == models.StatusCancelled {
		for _, item := range order.Items {
			m.products[item.ProductID].Stock += item.Quantity
		}
	}
	order.History = append(order.History, models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   change.To,
		ChangedBy:  change.ChangedBy,
		Note:       change.Reason,
	})
	m.orders[order.ID] = order
	return &repository.StatusChangeResult{Order: cloneOrder(order), From: from}, nil
}

func (m *memStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("order not found")
	}
	return cloneOrder(order), nil
}

func (m *memStore) GetByTrackingCode(ctx context.Context, code string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.TrackingCode == code {
			return cloneOrder(order), nil
		}
	}
	return nil, apperrors.NewNotFoundError("order not found")
}

func (m *memStore) ListByCustomer(ctx context.Context, customerID uint, page repository.Page) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []models.Order
	for id := m.nextID; id > 0; id-- {
		if order, ok := m.orders[id]; ok && order.CustomerID == customerID {
			orders = append(orders, *cloneOrder(order))
		}
	}
	if page.Offset >= len(orders) {
		return nil, nil
	}
	orders = orders[page.Offset:]
	if len(orders) > page.Limit {
		orders = orders[:page.Limit]
	}
	return orders, nil
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	c.History = append([]models.OrderStatusHistory(nil), o.History...)
	return &c
}

// slowStore blocks every write until its context is done.
type slowStore struct {
	*memStore
	deadlineSet bool
}

func (s *slowStore) CreateOrder(ctx context.Context, req repository.CreateOrderRequest) (*models.Order, error) {
	_, s.deadlineSet = ctx.Deadline()
	<-ctx.Done()
	return nil, apperrors.NewTransactionFailedError("order outcome unknown, re-query before retrying", ctx.Err())
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(e events.OrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) all() []events.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderEvent(nil), p.events...)
}

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	mu      sync.Mutex
	nextID  uint
	users   map[uint]*models.User
	touched map[uint]time.Time
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uint]*models.User{}, touched: map[uint]time.Time{}}
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User, groupName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperrors.NewConflictError("email is already registered").WithCode("EMAIL_TAKEN").WithStatus(400)
		}
	}
	for _, g := range models.DefaultGroups() {
		if g.Name == groupName {
			user.Groups = []models.Group{g}
		}
	}
	f.nextID++
	user.ID = f.nextID
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("user not found")
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError("user not found")
}

func (f *fakeUsers) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[id] = at
	return nil
}

func (f *fakeUsers) EnsureGroups(ctx context.Context, groups []models.Group) error {
	return nil
}

func (f *fakeUsers) AddToGroup(ctx context.Context, userID uint, groupName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperrors.NewNotFoundError("user not found")
	}
	for _, g := range models.DefaultGroups() {
		if g.Name == groupName {
			u.Groups = append(u.Groups, g)
		}
	}
	return nil
}
