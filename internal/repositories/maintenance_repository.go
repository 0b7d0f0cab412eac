package repositories

import (
	"errors"
	"time"

	"domus/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestFilter narrows maintenance request listings.
type RequestFilter struct {
	PropertyIDs []uint // nil = unrestricted, empty = nothing
	UnitID      uint
	CreatedByID uint
	AssigneeID  uint
	AssigneeKind string
	Status      string
}

type MaintenanceRepository interface {
	CreateRequest(req *models.MaintenanceRequest) error
	// CreateGeneratedRequest inserts a template-spawned request unless the
	// (template, scheduledFor) pair already exists; created=false on skip.
	CreateGeneratedRequest(req *models.MaintenanceRequest) (created bool, err error)
	GetRequest(id uint) (*models.MaintenanceRequest, error)
	GetRequestByTokenHash(hash string) (*models.MaintenanceRequest, error)
	UpdateRequest(req *models.MaintenanceRequest) error
	ListRequests(filter RequestFilter, opts ListOptions) ([]models.MaintenanceRequest, int64, error)

	CreateTemplate(t *models.ScheduledMaintenance) error
	GetTemplate(id uint) (*models.ScheduledMaintenance, error)
	GetTemplateByTokenHash(hash string) (*models.ScheduledMaintenance, error)
	UpdateTemplate(t *models.ScheduledMaintenance) error
	ListTemplates(propertyIDs []uint, opts ListOptions) ([]models.ScheduledMaintenance, int64, error)
	// ListDueTemplates returns active templates with nextDueDate <= now.
	ListDueTemplates(now time.Time) ([]models.ScheduledMaintenance, error)

	CreateComment(c *models.Comment) error
	ListComments(resourceKind string, resourceID uint) ([]models.Comment, error)
}

type maintenanceRepository struct {
	db *gorm.DB
}

func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

func (r *maintenanceRepository) CreateRequest(req *models.MaintenanceRequest) error {
	return r.db.Create(req).Error
}

func (r *maintenanceRepository) CreateGeneratedRequest(req *models.MaintenanceRequest) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "generated_from_template_id"}, {Name: "scheduled_for"}},
		DoNothing: true,
	}).Create(req)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *maintenanceRepository) GetRequest(id uint) (*models.MaintenanceRequest, error) {
	var req models.MaintenanceRequest
	if err := r.db.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *maintenanceRepository) GetRequestByTokenHash(hash string) (*models.MaintenanceRequest, error) {
	var req models.MaintenanceRequest
	err := r.db.Where("public_token_hash = ?", hash).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *maintenanceRepository) UpdateRequest(req *models.MaintenanceRequest) error {
	return r.db.Save(req).Error
}

func (r *maintenanceRepository) ListRequests(filter RequestFilter, opts ListOptions) ([]models.MaintenanceRequest, int64, error) {
	q := r.db.Model(&models.MaintenanceRequest{})
	if filter.PropertyIDs != nil {
		q = q.Where("property_id IN ?", filter.PropertyIDs)
	}
	if filter.UnitID != 0 {
		q = q.Where("unit_id = ?", filter.UnitID)
	}
	if filter.CreatedByID != 0 {
		q = q.Where("created_by_id = ?", filter.CreatedByID)
	}
	if filter.AssigneeID != 0 {
		q = q.Where("assigned_to_id = ? AND assigned_to_kind = ?", filter.AssigneeID, filter.AssigneeKind)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var reqs []models.MaintenanceRequest
	if err := opts.Apply(q).Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (r *maintenanceRepository) CreateTemplate(t *models.ScheduledMaintenance) error {
	return r.db.Create(t).Error
}

func (r *maintenanceRepository) GetTemplate(id uint) (*models.ScheduledMaintenance, error) {
	var t models.ScheduledMaintenance
	if err := r.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *maintenanceRepository) GetTemplateByTokenHash(hash string) (*models.ScheduledMaintenance, error) {
	var t models.ScheduledMaintenance
	err := r.db.Where("public_token_hash = ?", hash).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *maintenanceRepository) UpdateTemplate(t *models.ScheduledMaintenance) error {
	return r.db.Save(t).Error
}

func (r *maintenanceRepository) ListTemplates(propertyIDs []uint, opts ListOptions) ([]models.ScheduledMaintenance, int64, error) {
	q := r.db.Model(&models.ScheduledMaintenance{})
	if propertyIDs != nil {
		q = q.Where("property_id IN ?", propertyIDs)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var templates []models.ScheduledMaintenance
	if err := opts.Apply(q).Find(&templates).Error; err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

func (r *maintenanceRepository) ListDueTemplates(now time.Time) ([]models.ScheduledMaintenance, error) {
	var templates []models.ScheduledMaintenance
	err := r.db.
		Where("status = ? AND next_due_date <= ?", models.TemplateActive, now).
		Find(&templates).Error
	return templates, err
}

func (r *maintenanceRepository) CreateComment(c *models.Comment) error {
	return r.db.Create(c).Error
}

func (r *maintenanceRepository) ListComments(resourceKind string, resourceID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.
		Where("resource_kind = ? AND resource_id = ?", resourceKind, resourceID).
		Order("created_at asc").
		Find(&comments).Error
	return comments, err
}
