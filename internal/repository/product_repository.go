package repository

import (
	"context"
	"strings"

	"delivery_api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository is read only. Stock is written exclusively by the order
// store.
type ProductRepository interface {
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		InnerJoins("Category", r.db.Where(&models.Category{IsActive: true})).
		Where("products.is_active = ?", true)

	if filter.CategoryID != 0 {
		query = query.Where("products.category_id = ?", filter.CategoryID)
	}
	if filter.Featured {
		query = query.Where("products.featured = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := containsPattern(search)
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
	}

	var products []models.Product
	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Table: "Category", Name: "display_order"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "products", Name: "name"}}).
		Find(&products).Error
	return products, err
}

// likeEscaper neutralizes LIKE wildcards in user input. Backslash is the
// default LIKE escape character in both postgres and mysql.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive substring pattern that matches
// search literally.
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Joins("Category").
		Where("products.is_active = ?", true).
		First(&product, "products.id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "product not found")
	}
	return &product, nil
}

func (r *productRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order ASC, name ASC").
		Find(&categories).Error
	return categories, err
}
