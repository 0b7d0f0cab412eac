package repositories

import (
	"errors"
	"time"

	"domus/internal/models"

	"gorm.io/gorm"
)

// LeaseFilter narrows lease listings. Zero values mean "any".
type LeaseFilter struct {
	PropertyIDs []uint // nil = unrestricted, empty = nothing
	UnitID      uint
	TenantID    uint
	Status      string
}

type LeaseRepository interface {
	Create(lease *models.Lease) error
	GetByID(id uint) (*models.Lease, error)
	Update(lease *models.Lease) error
	List(filter LeaseFilter, opts ListOptions) ([]models.Lease, int64, error)
	Terminate(id uint, at time.Time) (*models.Lease, error)
	// Activate flips a draft lease to active; the partial unique index on
	// unit_id where status='active' rejects a second activation.
	Activate(id uint) (*models.Lease, error)
}

type leaseRepository struct {
	db *gorm.DB
}

func NewLeaseRepository(db *gorm.DB) LeaseRepository {
	return &leaseRepository{db: db}
}

func (r *leaseRepository) Create(lease *models.Lease) error {
	if err := r.db.Create(lease).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrActiveLeaseExists
		}
		return err
	}
	return nil
}

func (r *leaseRepository) GetByID(id uint) (*models.Lease, error) {
	var lease models.Lease
	if err := r.db.First(&lease, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeaseNotFound
		}
		return nil, err
	}
	return &lease, nil
}

func (r *leaseRepository) Update(lease *models.Lease) error {
	if err := r.db.Save(lease).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrActiveLeaseExists
		}
		return err
	}
	return nil
}

func (r *leaseRepository) List(filter LeaseFilter, opts ListOptions) ([]models.Lease, int64, error) {
	q := r.db.Model(&models.Lease{})
	if filter.PropertyIDs != nil {
		q = q.Where("property_id IN ?", filter.PropertyIDs)
	}
	if filter.UnitID != 0 {
		q = q.Where("unit_id = ?", filter.UnitID)
	}
	if filter.TenantID != 0 {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var leases []models.Lease
	if err := opts.Apply(q).Find(&leases).Error; err != nil {
		return nil, 0, err
	}
	return leases, total, nil
}

func (r *leaseRepository) Terminate(id uint, at time.Time) (*models.Lease, error) {
	lease, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	lease.Status = models.LeaseTerminated
	lease.TerminatedAt = &at
	if err := r.db.Save(lease).Error; err != nil {
		return nil, err
	}
	return lease, nil
}

func (r *leaseRepository) Activate(id uint) (*models.Lease, error) {
	lease, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	lease.Status = models.LeaseActive
	if err := r.db.Save(lease).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrActiveLeaseExists
		}
		return nil, err
	}
	return lease, nil
}
