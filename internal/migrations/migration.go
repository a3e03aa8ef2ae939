package migrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"delivery_api/internal/models"
	"delivery_api/internal/repository"
	"delivery_api/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Options struct {
	AdminEmail    string
	AdminPassword string
	SeedCatalog   bool
	// HashPassword hashes the seeded admin password.
	HashPassword func(password string) (string, error)
}

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&models.Group{},
		&models.User{},
		&models.Address{},
		&models.Category{},
		&models.Product{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
	}
}

// RunMigrations creates or updates the schema and the default data. It never
// drops tables and is safe to run on every start.
func RunMigrations(ctx context.Context, db *gorm.DB, logger *logrus.Logger, opts Options) error {
	logger.Info("Running database migrations...")

	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	ensureIndexes(db.WithContext(ctx), logger)

	users := repository.NewUserRepository(db)
	if err := users.EnsureGroups(ctx, models.DefaultGroups()); err != nil {
		return fmt.Errorf("failed to seed groups: %w", err)
	}

	if err := seedAdmin(ctx, users, logger, opts); err != nil {
		logger.WithError(err).Warn("Failed to create admin user")
	}

	if opts.SeedCatalog {
		if err := seedCatalog(db.WithContext(ctx), logger); err != nil {
			logger.WithError(err).Warn("Failed to seed catalog")
		}
	}

	logger.Info("Database migrations completed successfully!")
	return nil
}

type index struct {
	model   interface{}
	table   string
	name    string
	columns []string
}

// Indexes that gorm tags cannot express portably. Failures are logged and do
// not stop the service.
var extraIndexes = []index{
	{&models.Product{}, "products", "idx_products_active_category", []string{"is_active", "category_id"}},
	{&models.Address{}, "addresses", "idx_addresses_user_active", []string{"user_id", "is_active"}},
	{&models.OrderItem{}, "order_items", "idx_order_items_product", []string{"product_id"}},
	{&models.Order{}, "orders", "idx_orders_status_created", []string{"status", "created_at"}},
}

func ensureIndexes(db *gorm.DB, logger *logrus.Logger) {
	migrator := db.Migrator()
	for _, idx := range extraIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}
		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			logger.WithError(err).WithField("index", idx.name).Warn("Failed to create index")
			continue
		}
		logger.WithField("index", idx.name).Info("Created index")
	}
}

func seedAdmin(ctx context.Context, users repository.UserRepository, logger *logrus.Logger, opts Options) error {
	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		return nil
	}

	existing, err := users.GetByEmail(ctx, opts.AdminEmail)
	if err == nil {
		if existing.AccessLevel() >= models.AdminAccessLevel {
			logger.WithField("email", existing.Email).Info("Admin user already exists")
			return nil
		}
		logger.WithField("email", existing.Email).Info("Promoting existing user to admin")
		return users.AddToGroup(ctx, existing.ID, models.GroupAdmin)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	if opts.HashPassword == nil {
		return errors.New("no password hasher configured")
	}
	hashed, err := opts.HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:          "Administrator",
		Email:         opts.AdminEmail,
		PasswordHash:  hashed,
		IsActive:      true,
		EmailVerified: true,
	}
	if err := users.Create(ctx, admin, models.GroupAdmin); err != nil {
		return err
	}
	logger.WithField("email", admin.Email).Info("Created admin user")
	return nil
}

func seedCatalog(db *gorm.DB, logger *logrus.Logger) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Debug("Catalog already seeded")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, seed := range catalogSeed() {
			category := seed.category
			if err := tx.Create(&category).Error; err != nil {
				return err
			}
			for _, product := range seed.products {
				product.CategoryID = category.ID
				if err := tx.Create(&product).Error; err != nil {
					return err
				}
			}
		}

		coupon := models.Coupon{
			Code:          "WELCOME10",
			Kind:          models.CouponPercent,
			Value:         decimal.NewFromInt(10),
			MinOrderValue: decimal.NewFromInt(20),
			IsActive:      true,
		}
		if err := tx.Where(models.Coupon{Code: coupon.Code}).FirstOrCreate(&coupon).Error; err != nil {
			return err
		}

		logger.Info("Seeded demo catalog")
		return nil
	})
}

type categorySeed struct {
	category models.Category
	products []models.Product
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func catalogSeed() []categorySeed {
	return []categorySeed{
		{
			category: models.Category{Name: "Pizzas", DisplayOrder: 1, IsActive: true},
			products: []models.Product{
				{Name: "Margherita", Description: "Tomato, mozzarella and basil", Price: price("39.90"), Stock: 50, MinStock: 5, IsActive: true, Featured: true, PrepMinutes: 25},
				{Name: "Pepperoni", Description: "Mozzarella and pepperoni", Price: price("44.90"), PromotionalPrice: decimal.NewNullDecimal(price("39.90")), Stock: 50, MinStock: 5, IsActive: true, PrepMinutes: 25},
			},
		},
		{
			category: models.Category{Name: "Burgers", DisplayOrder: 2, IsActive: true},
			products: []models.Product{
				{Name: "Classic Burger", Description: "Beef patty, cheese and pickles", Price: price("29.90"), Stock: 40, MinStock: 5, IsActive: true, Featured: true, PrepMinutes: 15},
			},
		},
		{
			category: models.Category{Name: "Drinks", DisplayOrder: 3, IsActive: true},
			products: []models.Product{
				{Name: "Soda", Description: "350ml can", Price: price("6.00"), Stock: 200, MinStock: 20, IsActive: true, PrepMinutes: 1},
				{Name: "Orange Juice", Description: "Freshly squeezed, 500ml", Price: price("12.50"), Stock: 60, MinStock: 10, IsActive: true, PrepMinutes: 5},
			},
		},
	}
}
