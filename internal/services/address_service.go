package services

import (
	"context"
	"strings"

	"delivery_api/internal/models"
	"delivery_api/internal/repository"
	"delivery_api/internal/validation"
	"delivery_api/pkg/apperrors"
)

type AddressInput struct {
	Title      string `json:"title" binding:"max=50"`
	ZipCode    string `json:"zip_code" binding:"required,zipcode"`
	Street     string `json:"street" binding:"required,notblank,max=255"`
	Number     string `json:"number" binding:"required,notblank,max=10"`
	Complement string `json:"complement" binding:"max=100"`
	District   string `json:"district" binding:"required,notblank,max=100"`
	City       string `json:"city" binding:"required,notblank,max=100"`
	State      string `json:"state" binding:"required,len=2,alpha"`
	Reference  string `json:"reference" binding:"max=500"`
	IsPrimary  bool   `json:"is_primary"`
}

func (in *AddressInput) Validate() error {
	return validation.Struct(in)
}

func (in *AddressInput) apply(a *models.Address) {
	a.Title = strings.TrimSpace(in.Title)
	a.ZipCode = strings.TrimSpace(in.ZipCode)
	a.Street = strings.TrimSpace(in.Street)
	a.Number = strings.TrimSpace(in.Number)
	a.Complement = strings.TrimSpace(in.Complement)
	a.District = strings.TrimSpace(in.District)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.ToUpper(strings.TrimSpace(in.State))
	a.Reference = strings.TrimSpace(in.Reference)
	a.IsPrimary = in.IsPrimary
}

// AddressService only ever touches the caller's own addresses.
type AddressService interface {
	List(ctx context.Context, userID uint) ([]models.Address, error)
	Create(ctx context.Context, userID uint, in AddressInput) (*models.Address, error)
	Update(ctx context.Context, userID, id uint, in AddressInput) (*models.Address, error)
	Delete(ctx context.Context, userID, id uint) error
}

type addressService struct {
	addresses repository.AddressRepository
}

func NewAddressService(addresses repository.AddressRepository) AddressService {
	return &addressService{addresses: addresses}
}

func (s *addressService) List(ctx context.Context, userID uint) ([]models.Address, error) {
	addresses, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if addresses == nil {
		addresses = []models.Address{}
	}
	return addresses, nil
}

func (s *addressService) Create(ctx context.Context, userID uint, in AddressInput) (*models.Address, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	address := &models.Address{UserID: userID}
	in.apply(address)
	if err := s.addresses.Create(ctx, address); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return address, nil
}

func (s *addressService) Update(ctx context.Context, userID, id uint, in AddressInput) (*models.Address, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	address, err := s.addresses.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, apperrors.From(err)
	}
	in.apply(address)
	if err := s.addresses.Update(ctx, address); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return address, nil
}

func (s *addressService) Delete(ctx context.Context, userID, id uint) error {
	if err := s.addresses.Deactivate(ctx, userID, id); err != nil {
		return apperrors.From(err)
	}
	return nil
}
