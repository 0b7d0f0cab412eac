package repositories

import (
	"context"
	"errors"
	"log"

	"domus/internal/models"
	"domus/internal/repositories/cache"

	"gorm.io/gorm"
)

// AssociationRepository is the relational half of the association store.
// Deactivation is always soft so audit entries stay resolvable.
type AssociationRepository interface {
	Associate(assoc *models.PropertyUserAssociation) error
	Deactivate(id uint) error
	GetByID(id uint) (*models.PropertyUserAssociation, error)
	ListForUser(userID uint) ([]models.PropertyUserAssociation, error)
	ListUsersOfProperty(propertyID uint, roleFilter string) ([]models.PropertyUserAssociation, error)
}

type associationRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

func NewAssociationRepository(db *gorm.DB, cache *cache.CacheService) AssociationRepository {
	return &associationRepository{db: db, cache: cache}
}

// Associate inserts an active association. The partial unique index over
// (user, property, unit) where active serializes concurrent grants; a NULL
// unit is additionally checked in-transaction because SQL unique indexes do
// not compare NULLs equal.
func (r *associationRepository) Associate(assoc *models.PropertyUserAssociation) error {
	assoc.Active = true
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if assoc.UnitID == nil {
			var count int64
			tx.Model(&models.PropertyUserAssociation{}).
				Where("user_id = ? AND property_id = ? AND unit_id IS NULL AND active", assoc.UserID, assoc.PropertyID).
				Count(&count)
			if count > 0 {
				return ErrDuplicateAssoc
			}
		}
		if err := tx.Create(assoc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateAssoc
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidate(assoc.UserID)
	return nil
}

func (r *associationRepository) Deactivate(id uint) error {
	assoc, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if err := r.db.Model(assoc).Update("active", false).Error; err != nil {
		return err
	}
	r.invalidate(assoc.UserID)
	return nil
}

func (r *associationRepository) GetByID(id uint) (*models.PropertyUserAssociation, error) {
	var assoc models.PropertyUserAssociation
	if err := r.db.First(&assoc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssocNotFound
		}
		return nil, err
	}
	return &assoc, nil
}

// ListForUser returns the user's active associations, cached per user since
// every authorized request needs them.
func (r *associationRepository) ListForUser(userID uint) ([]models.PropertyUserAssociation, error) {
	if r.cache != nil {
		if assocs, ok := r.cache.GetAssociations(context.Background(), userID); ok {
			return assocs, nil
		}
	}

	var assocs []models.PropertyUserAssociation
	err := r.db.Where("user_id = ? AND active", userID).Find(&assocs).Error
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.CacheAssociations(context.Background(), userID, assocs); err != nil {
			log.Printf("failed to cache associations for user %d: %v", userID, err)
		}
	}
	return assocs, nil
}

func (r *associationRepository) ListUsersOfProperty(propertyID uint, roleFilter string) ([]models.PropertyUserAssociation, error) {
	q := r.db.Where("property_id = ? AND active", propertyID)
	if roleFilter != "" {
		// Roles are a comma-joined set; match the element, not a substring.
		q = q.Where(
			"roles = ? OR roles LIKE ? OR roles LIKE ? OR roles LIKE ?",
			roleFilter, roleFilter+",%", "%,"+roleFilter, "%,"+roleFilter+",%",
		)
	}
	var assocs []models.PropertyUserAssociation
	if err := q.Find(&assocs).Error; err != nil {
		return nil, err
	}
	return assocs, nil
}

func (r *associationRepository) invalidate(userID uint) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateAssociations(context.Background(), userID); err != nil {
		log.Printf("failed to invalidate association cache for user %d: %v", userID, err)
	}
}
