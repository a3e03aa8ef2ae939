package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"delivery_api/internal/models"
	"delivery_api/pkg/apperrors"

	"gorm.io/gorm"
)

type UserRepository interface {
	// Create stores the user and adds it to the named group in one transaction.
	Create(ctx context.Context, user *models.User, groupName string) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	EnsureGroups(ctx context.Context, groups []models.Group) error
	AddToGroup(ctx context.Context, userID uint, groupName string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User, groupName string) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.Where("name = ?", groupName).First(&group).Error; err != nil {
			return notFound(err, "group "+groupName+" not found")
		}

		user.Groups = nil
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return emailTaken()
			}
			return err
		}
		if err := tx.Model(user).Association("Groups").Append(&group); err != nil {
			return err
		}
		user.Groups = []models.Group{group}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.NewInternalError(err)
	}
	return nil
}

func emailTaken() *apperrors.AppError {
	return apperrors.NewConflictError("email is already registered").
		WithCode("EMAIL_TAKEN").
		WithStatus(400)
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Groups").First(&user, id).Error
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Groups").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return &user, nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// EnsureGroups creates missing groups by name and leaves existing ones alone.
func (r *userRepository) EnsureGroups(ctx context.Context, groups []models.Group) error {
	db := r.db.WithContext(ctx)
	for _, g := range groups {
		group := g
		if err := db.Where(models.Group{Name: group.Name}).FirstOrCreate(&group).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepository) AddToGroup(ctx context.Context, userID uint, groupName string) error {
	db := r.db.WithContext(ctx)

	var group models.Group
	if err := db.Where("name = ?", groupName).First(&group).Error; err != nil {
		return notFound(err, "group "+groupName+" not found")
	}
	user := models.User{ID: userID}
	return db.Model(&user).Association("Groups").Append(&group)
}
