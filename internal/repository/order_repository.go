package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delivery_api/internal/models"
	"delivery_api/internal/pricing"
	"delivery_api/pkg/apperrors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository is the transactional order store. CreateOrder and
// UpdateOrderStatus are atomic; every other method is a plain read.
type OrderRepository interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, change StatusChange) (*StatusChangeResult, error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uint, page Page) ([]models.Order, error)
}

type CreateOrderRequest struct {
	CustomerID uint
	// Cart must already be validated and normalized.
	Cart  models.CartSubmission
	Rules pricing.Rules
	Now   time.Time
}

type StatusChange struct {
	OrderID uint
	To      models.OrderStatus
	// ChangedBy is recorded in the history row.
	ChangedBy uint
	// OwnerID, when non zero, restricts the change to orders of that customer.
	OwnerID   uint
	CourierID *uint
	Reason    string
	At        time.Time
}

type StatusChangeResult struct {
	Order *models.Order
	From  models.OrderStatus
}

type Page struct {
	Limit  int
	Offset int
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// maxCreateAttempts bounds retries after a tracking code collision.
const maxCreateAttempts = 3

// CreateOrder runs the whole order write in one transaction. The tracking
// code is the only unique column it writes, so a duplicate key means a code
// collision; the rolled back transaction is then replayed with a fresh code.
func (r *orderRepository) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	var order *models.Order
	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		order, err = r.createOrder(ctx, req)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return nil, storeError(ctx, err)
	}
	return order, nil
}

func (r *orderRepository) createOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	var order *models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkOwnedAddress(tx, req.CustomerID, req.Cart.AddressID); err != nil {
			return err
		}

		products, err := lockProducts(tx, req.Cart.ProductIDs())
		if err != nil {
			return err
		}

		lines := make([]pricing.Line, 0, len(req.Cart.Items))
		for _, item := range req.Cart.Items {
			p := products[item.ProductID]
			if p.Stock < item.Quantity {
				return apperrors.NewInsufficientStockError(p.ID, p.Stock, item.Quantity)
			}
			lines = append(lines, pricing.Line{
				ProductID: p.ID,
				Quantity:  item.Quantity,
				UnitPrice: p.EffectivePrice(),
			})
		}

		var coupon *models.Coupon
		if req.Cart.CouponCode != "" {
			coupon, err = lockCoupon(tx, req.Cart.CouponCode)
			if err != nil {
				return err
			}
			subtotal := req.Rules.Quote(lines, nil).Subtotal
			if err := pricing.CheckCoupon(coupon, subtotal, req.Now); err != nil {
				return err
			}
		}
		quote := req.Rules.Quote(lines, coupon)

		for _, line := range lines {
			if err := decrementStock(tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		if coupon != nil {
			if err := tx.Model(coupon).UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
				return err
			}
		}

		order = &models.Order{
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
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  line.Subtotal(),
				CreatedAt: req.Now,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return err
		}
		order.Items = items

		return tx.Create(&models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: req.CustomerID,
			Note:      "order placed",
			CreatedAt: req.Now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, change StatusChange) (*StatusChangeResult, error) {
	var order models.Order
	var from models.OrderStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, change.OrderID).Error
		if err != nil {
			return notFound(err, "order not found")
		}
		if change.OwnerID != 0 && order.CustomerID != change.OwnerID {
			return apperrors.NewForbiddenError("order belongs to another customer")
		}

		if change.CourierID != nil {
			if err := checkCourier(tx, *change.CourierID); err != nil {
				return err
			}
		}

		from = order.Status
		if err := order.Transition(change.To, change.At, change.Reason); err != nil {
			return err
		}
		if change.CourierID != nil {
			order.CourierID = change.CourierID
		}

		err = tx.Model(&order).
			Select("status", "courier_id", "confirmed_at", "delivered_at", "cancelled_at",
				"cancellation_reason", "updated_at").
			Updates(&order).Error
		if err != nil {
			return err
		}

		if change.To == models.StatusCancelled {
			if err := restock(tx, order.ID); err != nil {
				return err
			}
		}

		return tx.Create(&models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   change.To,
			ChangedBy:  change.ChangedBy,
			Note:       change.Reason,
			CreatedAt:  change.At,
		}).Error
	})
	if err != nil {
		return nil, storeError(ctx, err)
	}
	return &StatusChangeResult{Order: &order, From: from}, nil
}

func (r *orderRepository) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.withDetails(r.db.WithContext(ctx)).First(&order, id).Error
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	return &order, nil
}

func (r *orderRepository) GetByTrackingCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("tracking_code = ?", code).First(&order).Error
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	return &order, nil
}

// ListByCustomer pages through a customer's orders, newest first. The id
// tie-break keeps pages stable when creation times collide.
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uint, page Page) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderByID).
		Preload("Items.Product").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", orderByID).
		Preload("Items.Product").
		Preload("Address").
		Preload("Customer").
		Preload("History", orderByID)
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// checkOwnedAddress fails with AddressNotOwned unless the address exists, is
// active and belongs to the customer.
func checkOwnedAddress(tx *gorm.DB, customerID, addressID uint) error {
	var address models.Address
	err := tx.Where("id = ? AND user_id = ? AND is_active = ?", addressID, customerID, true).
		First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewAddressNotOwnedError()
	}
	return err
}

// lockProducts takes row locks in id order so concurrent orders over the same
// products queue up instead of deadlocking.
func lockProducts(tx *gorm.DB, ids []uint) (map[uint]*models.Product, error) {
	var products []models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.IsActive {
			return nil, apperrors.NewValidationError(fmt.Sprintf("product %d is not available", id)).
				WithCode("PRODUCT_UNAVAILABLE").
				WithDetail("product_id", id)
		}
	}
	return byID, nil
}

func lockCoupon(tx *gorm.DB, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pricing.UnknownCoupon(code)
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// decrementStock is conditional so stock can never go negative even if a
// row lock was not honored by the driver.
func decrementStock(tx *gorm.DB, productID uint, quantity int) error {
	result := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var current models.Product
		if err := tx.Select("id", "stock").First(&current, productID).Error; err != nil {
			return err
		}
		return apperrors.NewInsufficientStockError(productID, current.Stock, quantity)
	}
	return nil
}

func restock(tx *gorm.DB, orderID uint) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Order("product_id ASC").Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		err := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// checkCourier requires an active user holding an active group of courier
// level or above.
func checkCourier(tx *gorm.DB, courierID uint) error {
	var count int64
	err := tx.Model(&models.User{}).
		Joins("JOIN user_groups ON user_groups.user_id = users.id").
		Joins("JOIN access_groups ON access_groups.id = user_groups.group_id").
		Where("users.id = ? AND users.is_active = ?", courierID, true).
		Where("access_groups.is_active = ? AND access_groups.access_level >= ?", true, models.CourierAccessLevel).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("user %d cannot be assigned as courier", courierID)).
			WithCode("INVALID_COURIER").
			WithDetail("courier_id", courierID)
	}
	return nil
}
