package repositories

import "domus/internal/models"

// UserRepository is the identity half of the association store.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	SetStatus(id uint, status string) error
	IncrementTokenVersion(id uint) error
	List(opts ListOptions) ([]models.User, int64, error)
	Delete(id uint) error
}
