package repository

import (
	"context"

	"delivery_api/internal/models"

	"gorm.io/gorm"
)

type AddressRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.Address, error)
	GetOwned(ctx context.Context, userID, id uint) (*models.Address, error)
	Create(ctx context.Context, address *models.Address) error
	Update(ctx context.Context, address *models.Address) error
	Deactivate(ctx context.Context, userID, id uint) error
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

// ListByUser returns active addresses, primary first.
func (r *addressRepository) ListByUser(ctx context.Context, userID uint) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_primary DESC, id ASC").
		Find(&addresses).Error
	return addresses, err
}

func (r *addressRepository) GetOwned(ctx context.Context, userID, id uint) (*models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		First(&address).Error
	if err != nil {
		return nil, notFound(err, "address not found")
	}
	return &address, nil
}

func (r *addressRepository) Create(ctx context.Context, address *models.Address) error {
	address.IsActive = true
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsPrimary {
			if err := clearPrimary(tx, address.UserID, 0); err != nil {
				return err
			}
		}
		return tx.Create(address).Error
	})
}

func (r *addressRepository) Update(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsPrimary {
			if err := clearPrimary(tx, address.UserID, address.ID); err != nil {
				return err
			}
		}
		return tx.Model(address).
			Select("title", "zip_code", "street", "number", "complement", "district",
				"city", "state", "reference", "is_primary", "updated_at").
			Updates(address).Error
	})
}

// Deactivate hides the address. Orders keep referencing it.
func (r *addressRepository) Deactivate(ctx context.Context, userID, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Updates(map[string]interface{}{"is_active": false, "is_primary": false})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "address not found")
	}
	return nil
}

func clearPrimary(tx *gorm.DB, userID, keepID uint) error {
	return tx.Model(&models.Address{}).
		Where("user_id = ? AND id <> ? AND is_primary = ?", userID, keepID, true).
		UpdateColumn("is_primary", false).Error
}
