package repositories

import (
	"errors"

	"domus/internal/models"

	"gorm.io/gorm"
)

type VendorRepository interface {
	Create(v *models.Vendor) error
	GetByID(id uint) (*models.Vendor, error)
	Update(v *models.Vendor) error
	List(opts ListOptions) ([]models.Vendor, int64, error)
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(v *models.Vendor) error {
	return r.db.Create(v).Error
}

func (r *vendorRepository) GetByID(id uint) (*models.Vendor, error) {
	var v models.Vendor
	if err := r.db.First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *vendorRepository) Update(v *models.Vendor) error {
	return r.db.Save(v).Error
}

func (r *vendorRepository) List(opts ListOptions) ([]models.Vendor, int64, error) {
	var total int64
	if err := r.db.Model(&models.Vendor{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var vendors []models.Vendor
	if err := opts.Apply(r.db.Model(&models.Vendor{})).Find(&vendors).Error; err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}
