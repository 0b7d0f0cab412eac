package repositories

import (
	"time"

	"domus/internal/models"

	"gorm.io/gorm"
)

// AuditFilter narrows audit log reads.
type AuditFilter struct {
	ActorID      uint
	Action       string
	ResourceKind string
	ResourceID   uint
	Status       string
	From         time.Time
	To           time.Time
}

// AuditRepository is append-only: Insert and List are the whole surface.
type AuditRepository interface {
	Insert(entry *models.AuditEntry) error
	List(filter AuditFilter, opts ListOptions) ([]models.AuditEntry, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Insert(entry *models.AuditEntry) error {
	return r.db.Create(entry).Error
}

func (r *auditRepository) List(filter AuditFilter, opts ListOptions) ([]models.AuditEntry, int64, error) {
	q := r.db.Model(&models.AuditEntry{})
	if filter.ActorID != 0 {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.ResourceKind != "" {
		q = q.Where("resource_kind = ?", filter.ResourceKind)
	}
	if filter.ResourceID != 0 {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at <= ?", filter.To)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.AuditEntry
	if err := opts.Apply(q).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
