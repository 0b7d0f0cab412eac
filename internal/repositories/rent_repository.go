package repositories

import (
	"errors"
	"time"

	"domus/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RentRepository interface {
	CreateSchedule(s *models.RentSchedule) error
	GetSchedule(id uint) (*models.RentSchedule, error)
	UpdateSchedule(s *models.RentSchedule) error
	ListSchedules(leaseID uint, opts ListOptions) ([]models.RentSchedule, int64, error)
	// ListGeneratable returns active auto-generating schedules whose
	// effective window includes now.
	ListGeneratable(now time.Time) ([]models.RentSchedule, error)
	// OverlappingSchedules counts active schedules of the lease whose
	// effective window intersects [start, end]; end nil means open-ended.
	OverlappingSchedules(leaseID uint, start time.Time, end *time.Time, excludeID uint) (int64, error)

	// UpsertRecord inserts the obligation unless (lease, billing period)
	// already exists; created=false on the silent skip.
	UpsertRecord(rec *models.RentRecord) (created bool, err error)
	GetRecord(id uint) (*models.RentRecord, error)
	UpdateRecord(rec *models.RentRecord) error
	ListRecords(filter RentFilter, opts ListOptions) ([]models.RentRecord, int64, error)
	// MarkOverdue bulk-flips due records whose due date has passed.
	MarkOverdue(now time.Time) (int64, error)
}

// RentFilter narrows rent record listings.
type RentFilter struct {
	LeaseIDs []uint // nil = unrestricted, empty = nothing
	Status   string
	Period   string
}

type rentRepository struct {
	db *gorm.DB
}

func NewRentRepository(db *gorm.DB) RentRepository {
	return &rentRepository{db: db}
}

func (r *rentRepository) CreateSchedule(s *models.RentSchedule) error {
	return r.db.Create(s).Error
}

func (r *rentRepository) GetSchedule(id uint) (*models.RentSchedule, error) {
	var s models.RentSchedule
	if err := r.db.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *rentRepository) UpdateSchedule(s *models.RentSchedule) error {
	return r.db.Save(s).Error
}

func (r *rentRepository) ListSchedules(leaseID uint, opts ListOptions) ([]models.RentSchedule, int64, error) {
	q := r.db.Model(&models.RentSchedule{})
	if leaseID != 0 {
		q = q.Where("lease_id = ?", leaseID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var schedules []models.RentSchedule
	if err := opts.Apply(q).Find(&schedules).Error; err != nil {
		return nil, 0, err
	}
	return schedules, total, nil
}

func (r *rentRepository) ListGeneratable(now time.Time) ([]models.RentSchedule, error) {
	var schedules []models.RentSchedule
	err := r.db.
		Where("active AND auto_generate AND effective_start_date <= ?", now).
		Where("effective_end_date IS NULL OR effective_end_date >= ?", now).
		Find(&schedules).Error
	return schedules, err
}

func (r *rentRepository) OverlappingSchedules(leaseID uint, start time.Time, end *time.Time, excludeID uint) (int64, error) {
	q := r.db.Model(&models.RentSchedule{}).
		Where("lease_id = ? AND active", leaseID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	// Existing window [s, e] intersects [start, end] unless it ends before
	// start or begins after end.
	if end != nil {
		q = q.Where("effective_start_date <= ?", *end)
	}
	q = q.Where("effective_end_date IS NULL OR effective_end_date >= ?", start)
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (r *rentRepository) UpsertRecord(rec *models.RentRecord) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "lease_id"}, {Name: "billing_period"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *rentRepository) GetRecord(id uint) (*models.RentRecord, error) {
	var rec models.RentRecord
	if err := r.db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRentNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *rentRepository) UpdateRecord(rec *models.RentRecord) error {
	return r.db.Save(rec).Error
}

func (r *rentRepository) MarkOverdue(now time.Time) (int64, error) {
	res := r.db.Model(&models.RentRecord{}).
		Where("status = ? AND due_date <= ?", models.RentDue, now).
		Update("status", models.RentOverdue)
	return res.RowsAffected, res.Error
}

func (r *rentRepository) ListRecords(filter RentFilter, opts ListOptions) ([]models.RentRecord, int64, error) {
	q := r.db.Model(&models.RentRecord{})
	if filter.LeaseIDs != nil {
		q = q.Where("lease_id IN ?", filter.LeaseIDs)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Period != "" {
		q = q.Where("billing_period = ?", filter.Period)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var recs []models.RentRecord
	if err := opts.Apply(q).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}
