package repositories

import (
	"errors"

	"domus/internal/models"

	"gorm.io/gorm"
)

type PropertyRepository interface {
	Create(p *models.Property) error
	GetByID(id uint) (*models.Property, error)
	Update(p *models.Property) error
	List(propertyIDs []uint, opts ListOptions) ([]models.Property, int64, error)
	// Archive soft-archives the property and cascades to its units, leases
	// and templates. HardDelete removes only the property row (admin-only;
	// audit entries survive).
	Archive(id uint) error
	HardDelete(id uint) error

	CreateUnit(u *models.Unit) error
	GetUnit(id uint) (*models.Unit, error)
	UpdateUnit(u *models.Unit) error
	ListUnits(propertyID uint, opts ListOptions) ([]models.Unit, int64, error)
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) Create(p *models.Property) error {
	if err := r.db.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

func (r *propertyRepository) GetByID(id uint) (*models.Property, error) {
	var p models.Property
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *propertyRepository) Update(p *models.Property) error {
	if err := r.db.Save(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

// List returns properties restricted to the given IDs; a nil slice means no
// restriction (admin scope). An empty non-nil slice yields an empty page so
// an unauthorized scope can never leak rows.
func (r *propertyRepository) List(propertyIDs []uint, opts ListOptions) ([]models.Property, int64, error) {
	q := r.db.Model(&models.Property{})
	if propertyIDs != nil {
		q = q.Where("id IN ?", propertyIDs)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var props []models.Property
	if err := opts.Apply(q).Find(&props).Error; err != nil {
		return nil, 0, err
	}
	return props, total, nil
}

func (r *propertyRepository) Archive(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Property{}).Where("id = ?", id).Update("active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPropertyNotFound
		}
		if err := tx.Model(&models.Unit{}).Where("property_id = ?", id).
			Update("active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Lease{}).
			Where("property_id = ? AND status = ?", id, models.LeaseActive).
			Updates(map[string]interface{}{"status": models.LeaseTerminated}).Error; err != nil {
			return err
		}
		return tx.Model(&models.ScheduledMaintenance{}).
			Where("property_id = ? AND status = ?", id, models.TemplateActive).
			Update("status", models.TemplateCanceled).Error
	})
}

func (r *propertyRepository) HardDelete(id uint) error {
	res := r.db.Unscoped().Delete(&models.Property{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

func (r *propertyRepository) CreateUnit(u *models.Unit) error {
	if err := r.db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

func (r *propertyRepository) GetUnit(id uint) (*models.Unit, error) {
	var u models.Unit
	if err := r.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *propertyRepository) UpdateUnit(u *models.Unit) error {
	if err := r.db.Save(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

func (r *propertyRepository) ListUnits(propertyID uint, opts ListOptions) ([]models.Unit, int64, error) {
	q := r.db.Model(&models.Unit{}).Where("property_id = ?", propertyID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var units []models.Unit
	if err := opts.Apply(q).Find(&units).Error; err != nil {
		return nil, 0, err
	}
	return units, total, nil
}
