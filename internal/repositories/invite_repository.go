package repositories

import (
	"errors"
	"time"

	"domus/internal/models"

	"gorm.io/gorm"
)

type InviteRepository interface {
	Create(inv *models.Invite) error
	GetByID(id uint) (*models.Invite, error)
	GetByTokenHash(hash string) (*models.Invite, error)
	Update(inv *models.Invite) error
	List(propertyIDs []uint, status string, opts ListOptions) ([]models.Invite, int64, error)
	// ExpireStale flips pending invites past their expiry to expired. The
	// periodic generation run calls this in lieu of a store-side TTL index.
	ExpireStale(now time.Time) (int64, error)
}

type inviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

func (r *inviteRepository) Create(inv *models.Invite) error {
	return r.db.Create(inv).Error
}

func (r *inviteRepository) GetByID(id uint) (*models.Invite, error) {
	var inv models.Invite
	if err := r.db.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *inviteRepository) GetByTokenHash(hash string) (*models.Invite, error) {
	var inv models.Invite
	if err := r.db.Where("token_hash = ?", hash).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *inviteRepository) Update(inv *models.Invite) error {
	return r.db.Save(inv).Error
}

func (r *inviteRepository) List(propertyIDs []uint, status string, opts ListOptions) ([]models.Invite, int64, error) {
	q := r.db.Model(&models.Invite{})
	if propertyIDs != nil {
		q = q.Where("property_id IN ?", propertyIDs)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var invites []models.Invite
	if err := opts.Apply(q).Find(&invites).Error; err != nil {
		return nil, 0, err
	}
	return invites, total, nil
}

func (r *inviteRepository) ExpireStale(now time.Time) (int64, error) {
	res := r.db.Model(&models.Invite{}).
		Where("status = ? AND expires_at <= ?", models.InvitePending, now).
		Update("status", models.InviteExpired)
	return res.RowsAffected, res.Error
}
