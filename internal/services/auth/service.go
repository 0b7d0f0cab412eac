package auth

import (
	"errors"
	"log"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
)

type Service interface {
	Login(email, password string) (*models.User, string, string, error)
	RefreshTokens(refreshToken string) (string, string, error)
	Logout(userID uint) error
	GetUserByID(id uint) (*models.User, error)
	GetUserTokenVersion(id uint) (int, error)
	// IssueTokens mints a session for an already-authenticated user
	// (invite acceptance).
	IssueTokens(user *models.User) (string, string, error)
}

type service struct {
	users repositories.UserRepository
}

func NewService(users repositories.UserRepository) Service {
	return &service{users: users}
}

func (s *service) Login(email, password string) (*models.User, string, string, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		log.Printf("login failed: no user for %s", models.NormalizeEmail(email))
		return nil, "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Printf("login failed: bad password for user %d", user.ID)
		return nil, "", "", ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, "", "", ErrAccountInactive
	}

	accessToken, refreshToken, err := s.IssueTokens(user)
	if err != nil {
		return nil, "", "", err
	}
	return user, accessToken, refreshToken, nil
}

func (s *service) IssueTokens(user *models.User) (string, string, error) {
	return utils.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
}

func (s *service) RefreshTokens(refreshToken string) (string, string, error) {
	_, claims, err := utils.ParseToken(refreshToken)
	if err != nil {
		return "", "", errors.New("invalid refresh token")
	}

	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return "", "", errors.New("user not found")
	}
	if user.TokenVersion != claims.TokenVersion {
		return "", "", errors.New("token version mismatch")
	}
	if !user.IsActive() {
		return "", "", ErrAccountInactive
	}

	return s.IssueTokens(user)
}

func (s *service) Logout(userID uint) error {
	return s.users.IncrementTokenVersion(userID)
}

func (s *service) GetUserByID(id uint) (*models.User, error) {
	return s.users.GetByID(id)
}

func (s *service) GetUserTokenVersion(id uint) (int, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return 0, err
	}
	return user.TokenVersion, nil
}
