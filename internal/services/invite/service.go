package invite

import (
	"errors"
	"strings"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/utils"
	"domus/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("invite not found")
	ErrNotPending     = errors.New("invite is no longer pending")
	ErrTenantNeedsUnit = errors.New("tenant invites require a unit")
	ErrResendLimit    = errors.New("invite resend limit reached")
	ErrResendTooSoon  = errors.New("invite was re-sent too recently")
	ErrWeakPassword   = errors.New("password does not meet complexity policy")
	ErrEmailMismatch  = errors.New("invite was issued for a different email")
	ErrUserInactive   = errors.New("account is not active")
)

// DefaultExpiry is used when INVITE_EXPIRY is unset.
const DefaultExpiry = 7 * 24 * time.Hour

// resendCooldown is the minimum gap between resends of the same invite.
const resendCooldown = 24 * time.Hour

// CreateInput carries the fields accepted when issuing an invite.
type CreateInput struct {
	Email         string
	Roles         []string
	PropertyID    *uint
	UnitID        *uint
	GeneratedByID uint
	Expiry        time.Duration
}

// AcceptInput is what an invitee supplies alongside the raw token. The
// password and names are only used when the email is not yet registered.
type AcceptInput struct {
	Token     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// AcceptResult reports what accepting the invite produced.
type AcceptResult struct {
	Invite      *models.Invite
	User        *models.User
	UserCreated bool
}

type Service interface {
	// Create mints an invite and returns the raw token exactly once; only
	// its hash is stored.
	Create(input CreateInput) (raw string, inv *models.Invite, err error)
	Get(id uint) (*models.Invite, error)
	List(propertyIDs []uint, status string, opts repositories.ListOptions) ([]models.Invite, int64, error)

	// Verify resolves a raw token to its pending invite, counting the
	// attempt either way.
	Verify(raw string) (*models.Invite, error)
	// Accept atomically materializes the invite: find-or-create the user,
	// grant the association, and mark the invite accepted.
	Accept(input AcceptInput) (*AcceptResult, error)
	Decline(raw string, reason string) (*models.Invite, error)
	Cancel(id uint, revokedByID uint) (*models.Invite, error)
	// Resend extends the expiry; at most MaxInviteResends times, no more
	// than once per day.
	Resend(id uint) (raw string, inv *models.Invite, err error)
}

type service struct {
	invites repositories.InviteRepository
	db      *gorm.DB
	now     func() time.Time
}

// NewService needs the raw handle besides the repository because Accept
// spans three tables in one transaction.
func NewService(invites repositories.InviteRepository, db *gorm.DB) Service {
	if invites == nil || db == nil {
		panic("invite repo and db are required")
	}
	return &service{invites: invites, db: db, now: time.Now}
}

func (s *service) Create(input CreateInput) (string, *models.Invite, error) {
	if !validation.ValidEmail(input.Email) {
		return "", nil, errors.New("invalid email")
	}
	if err := validation.CheckAssociationRoles(input.Roles); err != nil {
		return "", nil, err
	}
	roles := models.RoleList(input.Roles)
	if roles.Contains(models.AssocRoleTenant) && input.UnitID == nil {
		return "", nil, ErrTenantNeedsUnit
	}

	raw, err := utils.GenerateSecureCode()
	if err != nil {
		return "", nil, err
	}
	expiry := input.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	inv := &models.Invite{
		Email:         models.NormalizeEmail(input.Email),
		Roles:         roles,
		PropertyID:    input.PropertyID,
		UnitID:        input.UnitID,
		TokenHash:     utils.HashToken(raw),
		GeneratedByID: input.GeneratedByID,
		Status:        models.InvitePending,
		ExpiresAt:     s.now().Add(expiry),
	}
	if err := s.invites.Create(inv); err != nil {
		return "", nil, err
	}
	return raw, inv, nil
}

func (s *service) Get(id uint) (*models.Invite, error) {
	inv, err := s.invites.GetByID(id)
	if errors.Is(err, repositories.ErrInviteNotFound) {
		return nil, ErrNotFound
	}
	return inv, err
}

func (s *service) List(propertyIDs []uint, status string, opts repositories.ListOptions) ([]models.Invite, int64, error) {
	return s.invites.List(propertyIDs, status, opts)
}

func (s *service) Verify(raw string) (*models.Invite, error) {
	inv, err := s.invites.GetByTokenHash(utils.HashToken(raw))
	if err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	inv.AttemptCount++
	if err := s.invites.Update(inv); err != nil {
		return nil, err
	}
	if !inv.Pending(s.now()) {
		return nil, ErrNotPending
	}
	return inv, nil
}

func (s *service) Accept(input AcceptInput) (*AcceptResult, error) {
	inv, err := s.Verify(input.Token)
	if err != nil {
		return nil, err
	}

	result := &AcceptResult{Invite: inv}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		users := repositories.NewUserRepository(tx, nil)
		assocs := repositories.NewAssociationRepository(tx, nil)

		user, err := users.GetByEmail(inv.Email)
		switch {
		case err == nil:
			// A deactivated account must not regain access through an
			// invite; reactivation is an admin decision.
			if !user.IsActive() {
				return ErrUserInactive
			}
		case errors.Is(err, repositories.ErrUserNotFound):
			user, err = s.registerInvitee(users, inv, input)
			if err != nil {
				return err
			}
			result.UserCreated = true
		default:
			return err
		}
		result.User = user

		if inv.PropertyID != nil {
			assoc := &models.PropertyUserAssociation{
				UserID:      user.ID,
				PropertyID:  *inv.PropertyID,
				UnitID:      inv.UnitID,
				Roles:       inv.Roles,
				InvitedByID: &inv.GeneratedByID,
			}
			if err := assocs.Associate(assoc); err != nil &&
				!errors.Is(err, repositories.ErrDuplicateAssoc) {
				return err
			}
		}

		now := s.now()
		inv.Status = models.InviteAccepted
		inv.AcceptedByID = &user.ID
		inv.AcceptedAt = &now
		return repositories.NewInviteRepository(tx).Update(inv)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// registerInvitee creates an account for an email with no existing user.
// Invited users skip admin approval: the invite itself is the approval.
func (s *service) registerInvitee(users repositories.UserRepository, inv *models.Invite, input AcceptInput) (*models.User, error) {
	if err := validation.CheckPassword(input.Password); err != nil {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	// Association roles that double as global roles carry over; everything
	// else defaults to tenant.
	role := models.RoleTenant
	switch {
	case inv.Roles.Contains(models.AssocRoleLandlord):
		role = models.RoleLandlord
	case inv.Roles.Contains(models.AssocRolePropertyManager):
		role = models.RolePropertyManager
	}
	user := &models.User{
		Email:              inv.Email,
		PasswordHash:       string(hash),
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		Phone:              strings.TrimSpace(input.Phone),
		Role:               role,
		RegistrationStatus: models.RegistrationActive,
	}
	if err := users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Decline(raw string, reason string) (*models.Invite, error) {
	inv, err := s.Verify(raw)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InviteDeclined
	inv.DeclineReason = reason
	if err := s.invites.Update(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *service) Cancel(id uint, revokedByID uint) (*models.Invite, error) {
	inv, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvitePending {
		return nil, ErrNotPending
	}
	now := s.now()
	inv.Status = models.InviteCancelled
	inv.RevokedByID = &revokedByID
	inv.RevokedAt = &now
	if err := s.invites.Update(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Resend rotates the token so earlier emails stop working, then extends the
// expiry window.
func (s *service) Resend(id uint) (string, *models.Invite, error) {
	inv, err := s.Get(id)
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	if !inv.Pending(now) {
		return "", nil, ErrNotPending
	}
	if inv.ResendCount >= models.MaxInviteResends {
		return "", nil, ErrResendLimit
	}
	if inv.LastResendAt != nil && now.Sub(*inv.LastResendAt) < resendCooldown {
		return "", nil, ErrResendTooSoon
	}

	raw, err := utils.GenerateSecureCode()
	if err != nil {
		return "", nil, err
	}
	inv.TokenHash = utils.HashToken(raw)
	inv.ExpiresAt = now.Add(DefaultExpiry)
	inv.ResendCount++
	inv.LastResendAt = &now
	if err := s.invites.Update(inv); err != nil {
		return "", nil, err
	}
	return raw, inv, nil
}
