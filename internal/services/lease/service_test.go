package lease

import (
	"path/filepath"
	"testing"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	return NewService(repositories.NewLeaseRepository(db), repositories.NewRentRepository(db)), db
}

func leaseInput(unitID, tenantID uint, activate bool) CreateInput {
	return CreateInput{
		PropertyID:    3,
		UnitID:        unitID,
		TenantID:      tenantID,
		StartDate:     time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
		MonthlyRent:   1500,
		PaymentDueDay: 1,
		Activate:      activate,
	}
}

func TestCreate_Validation(t *testing.T) {
	s, _ := newTestService(t)

	in := leaseInput(4, 2, false)
	in.EndDate = in.StartDate
	_, err := s.Create(in)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	in = leaseInput(4, 2, false)
	in.PaymentDueDay = 32
	_, err = s.Create(in)
	assert.Error(t, err)
}

func TestCreate_DefaultsAndSchedule(t *testing.T) {
	s, db := newTestService(t)

	draft, err := s.Create(leaseInput(4, 2, false))
	require.NoError(t, err)
	assert.Equal(t, models.LeaseDraft, draft.Status)
	assert.Equal(t, "USD", draft.Currency)

	var scheds int64
	require.NoError(t, db.Model(&models.RentSchedule{}).Count(&scheds).Error)
	assert.Zero(t, scheds, "draft leases do not generate obligations")

	active, err := s.Create(leaseInput(5, 2, true))
	require.NoError(t, err)
	assert.Equal(t, models.LeaseActive, active.Status)

	var sched models.RentSchedule
	require.NoError(t, db.Where("lease_id = ?", active.ID).First(&sched).Error)
	assert.True(t, sched.Active)
	assert.True(t, sched.AutoGenerate)
	assert.Equal(t, models.BillingMonthly, sched.BillingPeriod)
	assert.Equal(t, active.MonthlyRent, sched.Amount)
	assert.Equal(t, active.TenantID, sched.TenantID)
}

func TestActiveLeaseExclusivityPerUnit(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Create(leaseInput(4, 2, true))
	require.NoError(t, err)

	// A second active lease on the same unit loses at the index regardless
	// of how the two creates interleave.
	_, err = s.Create(leaseInput(4, 6, true))
	assert.ErrorIs(t, err, ErrActiveLeaseExists)

	// Drafting is fine; activating the draft hits the same wall.
	draft, err := s.Create(leaseInput(4, 6, false))
	require.NoError(t, err)
	_, err = s.Activate(draft.ID)
	assert.ErrorIs(t, err, ErrActiveLeaseExists)

	// Other units are unaffected.
	_, err = s.Create(leaseInput(9, 6, true))
	assert.NoError(t, err)
}

func TestTerminate_ReleasesUnitAndStopsSchedules(t *testing.T) {
	s, db := newTestService(t)

	active, err := s.Create(leaseInput(4, 2, true))
	require.NoError(t, err)

	got, err := s.Terminate(active.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseTerminated, got.Status)
	require.NotNil(t, got.TerminatedAt)

	var sched models.RentSchedule
	require.NoError(t, db.Where("lease_id = ?", active.ID).First(&sched).Error)
	assert.False(t, sched.Active, "termination deactivates the lease's schedules")

	// The unit is free for the next tenancy.
	_, err = s.Create(leaseInput(4, 6, true))
	assert.NoError(t, err)
}

func TestSchedules_OverlapRejected(t *testing.T) {
	s, _ := newTestService(t)

	active, err := s.Create(leaseInput(4, 2, true))
	require.NoError(t, err)

	// The activation already installed a schedule covering the lease term.
	end := time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)
	_, err = s.CreateSchedule(&models.RentSchedule{
		LeaseID:            active.ID,
		Amount:             900,
		DueDateDay:         1,
		BillingPeriod:      models.BillingMonthly,
		EffectiveStartDate: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEndDate:   &end,
	})
	assert.ErrorIs(t, err, ErrScheduleOverlap)

	_, err = s.CreateSchedule(&models.RentSchedule{
		LeaseID:       9999,
		DueDateDay:    1,
		BillingPeriod: models.BillingMonthly,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSchedules_DisjointWindowsCoexist(t *testing.T) {
	s, db := newTestService(t)

	draft, err := s.Create(leaseInput(4, 2, false))
	require.NoError(t, err)

	firstEnd := time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)
	first, err := s.CreateSchedule(&models.RentSchedule{
		LeaseID:            draft.ID,
		Amount:             1500,
		DueDateDay:         1,
		BillingPeriod:      models.BillingMonthly,
		EffectiveStartDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEndDate:   &firstEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, draft.TenantID, first.TenantID, "schedule inherits the lease parties")

	_, err = s.CreateSchedule(&models.RentSchedule{
		LeaseID:            draft.ID,
		Amount:             1600,
		DueDateDay:         1,
		BillingPeriod:      models.BillingMonthly,
		EffectiveStartDate: time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var total int64
	require.NoError(t, db.Model(&models.RentSchedule{}).Where("lease_id = ?", draft.ID).Count(&total).Error)
	assert.EqualValues(t, 2, total)
}
