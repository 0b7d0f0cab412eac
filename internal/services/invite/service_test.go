package invite

import (
	"path/filepath"
	"testing"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	return &service{
		invites: repositories.NewInviteRepository(db),
		db:      db,
		now:     time.Now,
	}, db
}

func tenantInvite(t *testing.T, s *service) (string, *models.Invite) {
	t.Helper()
	unit := uint(4)
	prop := uint(3)
	raw, inv, err := s.Create(CreateInput{
		Email:         "New.Tenant@Example.com",
		Roles:         []string{models.AssocRoleTenant},
		PropertyID:    &prop,
		UnitID:        &unit,
		GeneratedByID: 1,
	})
	require.NoError(t, err)
	return raw, inv
}

func TestCreate_OnlyTheHashIsAtRest(t *testing.T) {
	s, db := newTestService(t)
	raw, inv := tenantInvite(t, s)

	require.NotEmpty(t, raw)
	assert.Equal(t, utils.HashToken(raw), inv.TokenHash)
	assert.Equal(t, "new.tenant@example.com", inv.Email, "emails are case-folded at rest")
	assert.Equal(t, models.InvitePending, inv.Status)

	var count int64
	require.NoError(t, db.Model(&models.Invite{}).Where("token_hash = ?", raw).Count(&count).Error)
	assert.Zero(t, count, "the raw token must never be persisted")
}

func TestCreate_Validation(t *testing.T) {
	s, _ := newTestService(t)

	_, _, err := s.Create(CreateInput{Email: "not-an-email", Roles: []string{models.AssocRoleTenant}, GeneratedByID: 1})
	assert.Error(t, err)

	prop := uint(3)
	_, _, err = s.Create(CreateInput{
		Email:         "t@example.com",
		Roles:         []string{models.AssocRoleTenant},
		PropertyID:    &prop,
		GeneratedByID: 1,
	})
	assert.ErrorIs(t, err, ErrTenantNeedsUnit)

	_, _, err = s.Create(CreateInput{Email: "t@example.com", Roles: []string{"superuser"}, GeneratedByID: 1})
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	s, db := newTestService(t)
	raw, inv := tenantInvite(t, s)

	got, err := s.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, 1, got.AttemptCount)

	_, err = s.Verify("wrong-token")
	assert.ErrorIs(t, err, ErrNotFound)

	// Expired invites still count the attempt.
	require.NoError(t, db.Model(inv).Update("expires_at", time.Now().Add(-time.Hour)).Error)
	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrNotPending)

	require.NoError(t, db.First(inv, inv.ID).Error)
	assert.Equal(t, 2, inv.AttemptCount)
}

func TestAccept_CreatesUserAssociationAndClosesInvite(t *testing.T) {
	s, db := newTestService(t)
	raw, inv := tenantInvite(t, s)

	res, err := s.Accept(AcceptInput{
		Token:     raw,
		Password:  "Str0ngpass",
		FirstName: "Nadia",
		LastName:  "Benali",
	})
	require.NoError(t, err)
	assert.True(t, res.UserCreated)
	require.NotNil(t, res.User)
	assert.Equal(t, "new.tenant@example.com", res.User.Email)
	assert.Equal(t, models.RoleTenant, res.User.Role)
	assert.Equal(t, models.RegistrationActive, res.User.RegistrationStatus,
		"the invite itself is the approval; no admin step follows")
	assert.NotEqual(t, "Str0ngpass", res.User.PasswordHash)

	var assoc models.PropertyUserAssociation
	require.NoError(t, db.Where("user_id = ?", res.User.ID).First(&assoc).Error)
	assert.Equal(t, *inv.PropertyID, assoc.PropertyID)
	require.NotNil(t, assoc.UnitID)
	assert.Equal(t, *inv.UnitID, *assoc.UnitID)
	assert.True(t, assoc.Active)
	assert.True(t, assoc.HasRole(models.AssocRoleTenant))
	require.NotNil(t, assoc.InvitedByID)
	assert.Equal(t, inv.GeneratedByID, *assoc.InvitedByID)

	require.NoError(t, db.First(inv, inv.ID).Error)
	assert.Equal(t, models.InviteAccepted, inv.Status)
	require.NotNil(t, inv.AcceptedByID)
	assert.Equal(t, res.User.ID, *inv.AcceptedByID)
	assert.NotNil(t, inv.AcceptedAt)

	// The token is single-use.
	_, err = s.Accept(AcceptInput{Token: raw, Password: "Str0ngpass"})
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestAccept_ExistingUserIsAssociatedNotRecreated(t *testing.T) {
	s, db := newTestService(t)
	existing := &models.User{
		Email:              "new.tenant@example.com",
		PasswordHash:       "irrelevant",
		FirstName:          "Nadia",
		Role:               models.RoleTenant,
		RegistrationStatus: models.RegistrationActive,
	}
	require.NoError(t, db.Create(existing).Error)

	raw, _ := tenantInvite(t, s)
	res, err := s.Accept(AcceptInput{Token: raw})
	require.NoError(t, err)
	assert.False(t, res.UserCreated)
	assert.Equal(t, existing.ID, res.User.ID)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 1, users)
}

func TestAccept_DeactivatedExistingUserIsRejected(t *testing.T) {
	s, db := newTestService(t)
	deactivated := &models.User{
		Email:              "new.tenant@example.com",
		PasswordHash:       "irrelevant",
		FirstName:          "Nadia",
		Role:               models.RoleTenant,
		RegistrationStatus: models.RegistrationDeactivated,
	}
	require.NoError(t, db.Create(deactivated).Error)

	raw, inv := tenantInvite(t, s)
	_, err := s.Accept(AcceptInput{Token: raw})
	assert.ErrorIs(t, err, ErrUserInactive)

	// No association materialized and the invite did not close.
	var assocs int64
	require.NoError(t, db.Model(&models.PropertyUserAssociation{}).Count(&assocs).Error)
	assert.Zero(t, assocs, "a deactivated account must not gain access through an invite")

	require.NoError(t, db.First(inv, inv.ID).Error)
	assert.Equal(t, models.InvitePending, inv.Status)
	assert.Nil(t, inv.AcceptedByID)
}

func TestAccept_WeakPasswordRollsBackEverything(t *testing.T) {
	s, db := newTestService(t)
	raw, inv := tenantInvite(t, s)

	_, err := s.Accept(AcceptInput{Token: raw, Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	var users, assocs int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.PropertyUserAssociation{}).Count(&assocs).Error)
	assert.Zero(t, users)
	assert.Zero(t, assocs)

	require.NoError(t, db.First(inv, inv.ID).Error)
	assert.Equal(t, models.InvitePending, inv.Status, "a failed accept leaves the invite usable")
}

func TestAccept_ManagerRoleCarriesOver(t *testing.T) {
	s, _ := newTestService(t)
	prop := uint(3)
	raw, _, err := s.Create(CreateInput{
		Email:         "pm@example.com",
		Roles:         []string{models.AssocRolePropertyManager},
		PropertyID:    &prop,
		GeneratedByID: 1,
	})
	require.NoError(t, err)

	res, err := s.Accept(AcceptInput{Token: raw, Password: "Str0ngpass", FirstName: "Omar"})
	require.NoError(t, err)
	assert.Equal(t, models.RolePropertyManager, res.User.Role)
}

func TestDeclineAndCancel(t *testing.T) {
	s, _ := newTestService(t)

	raw, _ := tenantInvite(t, s)
	inv, err := s.Decline(raw, "moved elsewhere")
	require.NoError(t, err)
	assert.Equal(t, models.InviteDeclined, inv.Status)
	assert.Equal(t, "moved elsewhere", inv.DeclineReason)

	_, second := tenantInvite(t, s)
	got, err := s.Cancel(second.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InviteCancelled, got.Status)
	require.NotNil(t, got.RevokedByID)
	assert.EqualValues(t, 1, *got.RevokedByID)

	_, err = s.Cancel(second.ID, 1)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestResend_RotatesTokenAndEnforcesLimits(t *testing.T) {
	s, db := newTestService(t)
	raw, inv := tenantInvite(t, s)

	newRaw, got, err := s.Resend(inv.ID)
	require.NoError(t, err)
	assert.NotEqual(t, raw, newRaw)
	assert.Equal(t, utils.HashToken(newRaw), got.TokenHash)
	assert.Equal(t, 1, got.ResendCount)

	// The earlier email's link is dead.
	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Verify(newRaw)
	assert.NoError(t, err)

	_, _, err = s.Resend(inv.ID)
	assert.ErrorIs(t, err, ErrResendTooSoon)

	// Past the cooldown but at the cap.
	require.NoError(t, db.Model(inv).Updates(map[string]interface{}{
		"resend_count":   models.MaxInviteResends,
		"last_resend_at": time.Now().Add(-48 * time.Hour),
	}).Error)
	_, _, err = s.Resend(inv.ID)
	assert.ErrorIs(t, err, ErrResendLimit)
}
