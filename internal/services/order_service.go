package services

import (
	"context"
	"fmt"
	"time"

	"delivery_api/internal/auth"
	"delivery_api/internal/events"
	"delivery_api/internal/metrics"
	"delivery_api/internal/models"
	"delivery_api/internal/pricing"
	"delivery_api/internal/repository"
	"delivery_api/pkg/apperrors"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100

	maxReasonLength = 500

	customerCancelReason = "Customer requested cancellation"
	staffCancelReason    = "Cancelled by staff"
)

type StatusUpdate struct {
	Status    string `json:"status" binding:"required"`
	CourierID *uint  `json:"courier_id"`
	Reason    string `json:"reason" binding:"max=500"`
}

// OrderService is the order workflow. All stock and status mutation goes
// through a single store transaction per call.
type OrderService interface {
	CreateOrder(ctx context.Context, caller auth.Caller, cart models.CartSubmission) (*models.Order, error)
	GetOrder(ctx context.Context, caller auth.Caller, id uint) (*models.Order, error)
	ListOrders(ctx context.Context, caller auth.Caller, page repository.Page) ([]models.Order, error)
	UpdateStatus(ctx context.Context, caller auth.Caller, id uint, update StatusUpdate) (*models.Order, error)
	CancelOrder(ctx context.Context, caller auth.Caller, id uint, reason string) (*models.Order, error)
	TrackOrder(ctx context.Context, code string) (*models.TrackingView, error)
}

type OrderServiceConfig struct {
	Rules        pricing.Rules
	StoreTimeout time.Duration
}

type orderService struct {
	orders    repository.OrderRepository
	publisher events.Publisher
	cfg       OrderServiceConfig
	logger    *logrus.Logger
	now       func() time.Time
}

func NewOrderService(orders repository.OrderRepository, publisher events.Publisher, cfg OrderServiceConfig, logger *logrus.Logger) OrderService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}
	return &orderService{
		orders:    orders,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func requireCaller(caller auth.Caller) error {
	if caller.UserID == 0 {
		return apperrors.NewUnauthenticatedError("")
	}
	return nil
}

func (s *orderService) CreateOrder(ctx context.Context, caller auth.Caller, cart models.CartSubmission) (*models.Order, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := cart.Validate(); err != nil {
		metrics.OrderFailed(apperrors.KindCode(err))
		return nil, err
	}

	now := s.now().UTC()
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	created, err := s.orders.CreateOrder(storeCtx, repository.CreateOrderRequest{
		CustomerID: caller.UserID,
		Cart:       cart.Normalized(),
		Rules:      s.cfg.Rules,
		Now:        now,
	})
	cancel()
	if err != nil {
		return nil, s.fail(err, "create", logrus.Fields{"customer_id": caller.UserID})
	}

	metrics.OrderCreated()
	s.publisher.Publish(events.NewOrderCreated(created, now))
	s.logger.WithFields(logrus.Fields{
		"order_id":      created.ID,
		"tracking_code": created.TrackingCode,
		"customer_id":   caller.UserID,
		"total":         created.Total.StringFixed(2),
	}).Info("Order created")

	// The order is committed at this point; a failed re-read must not make
	// the client think it can safely place it again.
	full, err := s.orders.GetOrder(ctx, created.ID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", created.ID).Warn("Failed to reload created order")
		return created, nil
	}
	return full, nil
}

func (s *orderService) GetOrder(ctx context.Context, caller auth.Caller, id uint) (*models.Order, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, apperrors.From(err)
	}
	if order.CustomerID != caller.UserID && !caller.IsManager() {
		return nil, apperrors.NewForbiddenError("order belongs to another customer")
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, caller auth.Caller, page repository.Page) ([]models.Order, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if page.Limit <= 0 {
		page.Limit = DefaultPageSize
	}
	if page.Limit > MaxPageSize {
		page.Limit = MaxPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	orders, err := s.orders.ListByCustomer(ctx, caller.UserID, page)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, caller auth.Caller, id uint, update StatusUpdate) (*models.Order, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !caller.IsManager() {
		return nil, apperrors.NewForbiddenError("only managers can change order status")
	}

	status, ok := models.ParseOrderStatus(update.Status)
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", update.Status))
	}
	if update.CourierID != nil && *update.CourierID == 0 {
		return nil, apperrors.NewValidationError("courier_id must be a user id").WithCode("INVALID_COURIER")
	}

	reason := update.Reason
	if status == models.StatusCancelled && reason == "" {
		reason = staffCancelReason
	}
	if len(reason) > maxReasonLength {
		return nil, apperrors.NewValidationError("reason must be at most 500 characters")
	}

	return s.transition(ctx, repository.StatusChange{
		OrderID:   id,
		To:        status,
		ChangedBy: caller.UserID,
		CourierID: update.CourierID,
		Reason:    reason,
	})
}

func (s *orderService) CancelOrder(ctx context.Context, caller auth.Caller, id uint, reason string) (*models.Order, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if len(reason) > maxReasonLength {
		return nil, apperrors.NewValidationError("reason must be at most 500 characters")
	}

	change := repository.StatusChange{
		OrderID:   id,
		To:        models.StatusCancelled,
		ChangedBy: caller.UserID,
		Reason:    reason,
	}
	if !caller.IsManager() {
		change.OwnerID = caller.UserID
	}
	if change.Reason == "" {
		change.Reason = customerCancelReason
		if caller.IsManager() {
			change.Reason = staffCancelReason
		}
	}
	return s.transition(ctx, change)
}

func (s *orderService) transition(ctx context.Context, change repository.StatusChange) (*models.Order, error) {
	change.At = s.now().UTC()

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	result, err := s.orders.UpdateOrderStatus(storeCtx, change)
	cancel()
	if err != nil {
		return nil, s.fail(err, "transition", logrus.Fields{
			"order_id": change.OrderID,
			"to":       change.To,
			"user_id":  change.ChangedBy,
		})
	}

	order := result.Order
	metrics.OrderTransitioned(string(order.Status))
	s.publisher.Publish(events.NewStatusChanged(order, result.From, change.ChangedBy, change.Reason, change.At))
	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"from":     result.From,
		"to":       order.Status,
		"user_id":  change.ChangedBy,
	}).Info("Order status changed")

	full, err := s.orders.GetOrder(ctx, order.ID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("Failed to reload order")
		return order, nil
	}
	return full, nil
}

func (s *orderService) TrackOrder(ctx context.Context, code string) (*models.TrackingView, error) {
	if code == "" || len(code) > 40 {
		return nil, apperrors.NewNotFoundError("order not found")
	}
	order, err := s.orders.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, apperrors.From(err)
	}
	view := order.Tracking()
	return &view, nil
}

// fail records the failure and logs anything that is not an expected
// business rejection.
func (s *orderService) fail(err error, op string, fields logrus.Fields) error {
	appErr := apperrors.From(err)
	metrics.OrderFailed(appErr.Code)

	entry := s.logger.WithFields(fields).WithField("op", op).WithField("code", appErr.Code)
	if appErr.StatusCode >= 500 {
		cause := err
		if appErr.Cause != nil {
			cause = appErr.Cause
		}
		entry.WithError(cause).Error("Order store operation failed")
	} else {
		entry.Debug("Order operation rejected")
	}
	return appErr
}
