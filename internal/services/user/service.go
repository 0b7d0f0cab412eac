package user

import (
	"errors"
	"strings"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateEmail = errors.New("email already in use")
	ErrNotFound       = errors.New("user not found")
	ErrWeakPassword   = errors.New("password does not meet complexity policy")
	ErrBadCredentials = errors.New("invalid credentials")
)

// CreateInput carries the fields accepted on registration. A legacy single
// "name" field is rejected at the handler; only the split form writes.
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	Status    string
}

type Service interface {
	Create(input CreateInput) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) (*models.User, error)
	SetStatus(id uint, status string) error
	ChangePassword(id uint, oldPassword, newPassword string) error
	VerifyPassword(user *models.User, password string) error
	List(opts repositories.ListOptions) ([]models.User, int64, error)
	Delete(id uint) error
	Associations(userID uint) ([]models.PropertyUserAssociation, error)
}

type service struct {
	users  repositories.UserRepository
	assocs repositories.AssociationRepository
}

func NewService(users repositories.UserRepository, assocs repositories.AssociationRepository) Service {
	if users == nil {
		panic("user repo is required")
	}
	return &service{users: users, assocs: assocs}
}

func (s *service) Create(input CreateInput) (*models.User, error) {
	if err := validation.CheckPassword(input.Password); err != nil {
		return nil, ErrWeakPassword
	}
	role := input.Role
	if role == "" {
		role = models.RoleTenant
	}
	if !models.ValidUserRole(role) {
		return nil, errors.New("unknown role " + role)
	}
	status := input.Status
	if status == "" {
		status = models.RegistrationPendingAdminApproval
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:              models.NormalizeEmail(input.Email),
		PasswordHash:       string(hash),
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		Phone:              strings.TrimSpace(input.Phone),
		Role:               role,
		RegistrationStatus: status,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

func (s *service) GetByID(id uint) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

func (s *service) GetByEmail(email string) (*models.User, error) {
	user, err := s.users.GetByEmail(email)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

func (s *service) Update(user *models.User) (*models.User, error) {
	if err := s.users.Update(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

func (s *service) SetStatus(id uint, status string) error {
	if !models.ValidRegistrationStatus(status) {
		return errors.New("unknown registration status " + status)
	}
	return s.users.SetStatus(id, status)
}

func (s *service) ChangePassword(id uint, oldPassword, newPassword string) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.VerifyPassword(user, oldPassword); err != nil {
		return ErrBadCredentials
	}
	if err := validation.CheckPassword(newPassword); err != nil {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.TokenVersion++ // invalidate existing sessions
	_, err = s.Update(user)
	return err
}

// VerifyPassword compares in constant time via bcrypt.
func (s *service) VerifyPassword(user *models.User, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

func (s *service) List(opts repositories.ListOptions) ([]models.User, int64, error) {
	return s.users.List(opts)
}

func (s *service) Delete(id uint) error {
	err := s.users.Delete(id)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *service) Associations(userID uint) ([]models.PropertyUserAssociation, error) {
	return s.assocs.ListForUser(userID)
}
