package auth

import (
	"path/filepath"
	"testing"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	return NewService(repositories.NewUserRepository(db, nil)), db
}

func seedUser(t *testing.T, db *gorm.DB, status string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ngpass"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Email:              "lena@example.com",
		PasswordHash:       string(hash),
		FirstName:          "Lena",
		Role:               models.RoleLandlord,
		RegistrationStatus: status,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestLogin(t *testing.T) {
	s, db := newTestService(t)
	seedUser(t, db, models.RegistrationActive)

	user, access, refresh, err := s.Login("Lena@Example.com", "Str0ngpass")
	require.NoError(t, err)
	assert.Equal(t, "lena@example.com", user.Email)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	_, claims, err := utils.ParseToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.TokenVersion, claims.TokenVersion)

	_, _, _, err = s.Login("lena@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = s.Login("nobody@example.com", "Str0ngpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials,
		"unknown email and bad password must be indistinguishable to the caller")
}

func TestLogin_InactiveAccount(t *testing.T) {
	s, db := newTestService(t)
	seedUser(t, db, models.RegistrationPendingAdminApproval)

	_, _, _, err := s.Login("lena@example.com", "Str0ngpass")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogout_InvalidatesOutstandingTokens(t *testing.T) {
	s, db := newTestService(t)
	user := seedUser(t, db, models.RegistrationActive)

	_, _, refresh, err := s.Login(user.Email, "Str0ngpass")
	require.NoError(t, err)

	require.NoError(t, s.Logout(user.ID))

	version, err := s.GetUserTokenVersion(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.TokenVersion+1, version)

	_, _, err = s.RefreshTokens(refresh)
	assert.Error(t, err, "a pre-logout refresh token must be rejected")
}

func TestRefreshTokens(t *testing.T) {
	s, db := newTestService(t)
	user := seedUser(t, db, models.RegistrationActive)

	_, _, refresh, err := s.Login(user.Email, "Str0ngpass")
	require.NoError(t, err)

	access, _, err := s.RefreshTokens(refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	_, _, err = s.RefreshTokens("garbage")
	assert.Error(t, err)
}
