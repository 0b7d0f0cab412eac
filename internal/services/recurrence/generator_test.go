package recurrence

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

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	return db
}

func newGenerator(t *testing.T, db *gorm.DB) *Generator {
	t.Helper()
	return NewGenerator(
		repositories.NewRentRepository(db),
		repositories.NewMaintenanceRepository(db),
		repositories.NewInviteRepository(db),
		nil, nil,
	)
}

func monthlySchedule(db *gorm.DB, t *testing.T, start time.Time) *models.RentSchedule {
	t.Helper()
	s := &models.RentSchedule{
		LeaseID:            1,
		TenantID:           2,
		PropertyID:         3,
		UnitID:             4,
		Amount:             1200,
		Currency:           "USD",
		DueDateDay:         1,
		BillingPeriod:      models.BillingMonthly,
		EffectiveStartDate: start,
		AutoGenerate:       true,
		Active:             true,
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

func TestGenerateRent_MaterializesEveryElapsedPeriod(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db)
	monthlySchedule(db, t, date(2026, time.January, 1))

	now := date(2026, time.March, 20)
	created, err := gen.GenerateRent(now)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	var recs []models.RentRecord
	require.NoError(t, db.Order("due_date asc").Find(&recs).Error)
	require.Len(t, recs, 3)
	assert.Equal(t, "2026-01", recs[0].BillingPeriod)
	assert.Equal(t, "2026-02", recs[1].BillingPeriod)
	assert.Equal(t, "2026-03", recs[2].BillingPeriod)
	for _, rec := range recs {
		assert.Equal(t, models.RentDue, rec.Status)
		assert.Equal(t, float64(1200), rec.AmountDue)
	}
}

func TestGenerateRent_RerunIsANoOp(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db)
	monthlySchedule(db, t, date(2026, time.January, 1))

	now := date(2026, time.March, 20)
	created, err := gen.GenerateRent(now)
	require.NoError(t, err)
	require.Equal(t, 3, created)

	created, err = gen.GenerateRent(now)
	require.NoError(t, err)
	assert.Zero(t, created, "already materialized periods must be skipped")

	var total int64
	require.NoError(t, db.Model(&models.RentRecord{}).Count(&total).Error)
	assert.EqualValues(t, 3, total)
}

func TestGenerateRent_AdvancingTheClockOnlyAddsNewPeriods(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db)
	monthlySchedule(db, t, date(2026, time.January, 1))

	created, err := gen.GenerateRent(date(2026, time.February, 15))
	require.NoError(t, err)
	require.Equal(t, 2, created)

	created, err = gen.GenerateRent(date(2026, time.April, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestGenerateRent_InactiveScheduleIsSkipped(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db)
	s := monthlySchedule(db, t, date(2026, time.January, 1))
	require.NoError(t, db.Model(s).Update("active", false).Error)

	created, err := gen.GenerateRent(date(2026, time.March, 20))
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestGenerateRent_DueDayClampedToShortMonths(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db)
	s := monthlySchedule(db, t, date(2026, time.January, 1))
	require.NoError(t, db.Model(s).Update("due_date_day", 31).Error)

	created, err := gen.GenerateRent(date(2026, time.February, 28))
	require.NoError(t, err)
	require.Equal(t, 2, created)

	var rec models.RentRecord
	require.NoError(t, db.Where("billing_period = ?", "2026-02").First(&rec).Error)
	assert.Equal(t, date(2026, time.February, 28), rec.DueDate.UTC())
}

func template(db *gorm.DB, t *testing.T, due time.Time, freq models.Frequency, recurring bool) *models.ScheduledMaintenance {
	t.Helper()
	tpl := &models.ScheduledMaintenance{
		Title:         "Filter replacement",
		Category:      "hvac",
		PropertyID:    3,
		CreatedByID:   2,
		ScheduledDate: due,
		Recurring:     recurring,
		Frequency:     freq,
		Status:        models.TemplateActive,
		NextDueDate:   due,
	}
	require.NoError(t, db.Create(tpl).Error)
	return tpl
}

func TestGenerateScheduled_OccurrenceCapCompletesTemplate(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db)
	occurrences := 2
	tpl := template(db, t, date(2026, time.January, 1),
		models.Frequency{Type: models.FreqMonthly, Interval: 1, Occurrences: &occurrences}, true)

	created, completed, err := gen.GenerateScheduled(date(2026, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, created, "the cap bounds emission even when more periods elapsed")
	assert.Equal(t, 1, completed)

	require.NoError(t, db.First(tpl, tpl.ID).Error)
	assert.Equal(t, models.TemplateCompleted, tpl.Status)
	assert.Equal(t, 2, tpl.OccurrenceCount)

	var reqs []models.MaintenanceRequest
	require.NoError(t, db.Order("scheduled_for asc").Find(&reqs).Error)
	require.Len(t, reqs, 2)
	assert.Equal(t, models.RequestNew, reqs[0].Status)
	assert.Equal(t, tpl.ID, *reqs[0].GeneratedFromTemplateID)
	assert.Equal(t, date(2026, time.January, 1), reqs[0].ScheduledFor.UTC())
	assert.Equal(t, date(2026, time.February, 1), reqs[1].ScheduledFor.UTC())
}

func TestGenerateScheduled_OneShotCompletesAfterFiring(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db)
	tpl := template(db, t, date(2026, time.January, 1), models.Frequency{}, false)

	created, completed, err := gen.GenerateScheduled(date(2026, time.January, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, completed)

	// A later pass finds nothing due.
	created, completed, err = gen.GenerateScheduled(date(2026, time.March, 1))
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Zero(t, completed)

	require.NoError(t, db.First(tpl, tpl.ID).Error)
	assert.Equal(t, models.TemplateCompleted, tpl.Status)
}

func TestGenerateScheduled_PausedTemplateNeverFires(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db)
	tpl := template(db, t, date(2026, time.January, 1),
		models.Frequency{Type: models.FreqMonthly, Interval: 1}, true)
	require.NoError(t, db.Model(tpl).Update("status", models.TemplatePaused).Error)

	created, completed, err := gen.GenerateScheduled(date(2026, time.June, 1))
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Zero(t, completed)

	var total int64
	require.NoError(t, db.Model(&models.MaintenanceRequest{}).Count(&total).Error)
	assert.Zero(t, total)
}

func TestGenerateScheduled_PreAssignedTemplateEmitsAssignedRequests(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db)
	tpl := template(db, t, date(2026, time.January, 1), models.Frequency{}, false)
	vendorID := uint(12)
	require.NoError(t, db.Model(tpl).Updates(map[string]interface{}{
		"assigned_to_id":   vendorID,
		"assigned_to_kind": models.AssigneeVendor,
	}).Error)

	_, _, err := gen.GenerateScheduled(date(2026, time.January, 2))
	require.NoError(t, err)

	var req models.MaintenanceRequest
	require.NoError(t, db.First(&req).Error)
	assert.Equal(t, models.RequestAssigned, req.Status)
	assert.Equal(t, vendorID, *req.AssignedToID)
	assert.Equal(t, models.AssigneeVendor, req.AssignedToKind)
}

func TestRun_FlipsElapsedRentToOverdue(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db).WithClock(func() time.Time { return date(2026, time.March, 15) })
	monthlySchedule(db, t, date(2026, time.January, 1))

	stats := gen.Run()
	assert.Equal(t, 3, stats.RentRecordsCreated)
	assert.EqualValues(t, 3, stats.RentOverdueFlipped,
		"records materialized with an elapsed due date flip in the same pass")

	var due int64
	require.NoError(t, db.Model(&models.RentRecord{}).
		Where("status = ?", models.RentDue).Count(&due).Error)
	assert.Zero(t, due)

	var overdue int64
	require.NoError(t, db.Model(&models.RentRecord{}).
		Where("status = ?", models.RentOverdue).Count(&overdue).Error)
	assert.EqualValues(t, 3, overdue)

	// The next tick has nothing left to flip.
	stats = gen.Run()
	assert.Zero(t, stats.RentOverdueFlipped)
}

func TestRun_ExpiresStaleInvites(t *testing.T) {
	db := newTestDB(t)
	gen := newGenerator(t, db).WithClock(func() time.Time { return date(2026, time.June, 1) })

	stale := &models.Invite{
		Email:         "a@example.com",
		Roles:         models.RoleList{models.AssocRoleTenant},
		TokenHash:     "hash-a",
		GeneratedByID: 1,
		Status:        models.InvitePending,
		ExpiresAt:     date(2026, time.May, 1),
	}
	fresh := &models.Invite{
		Email:         "b@example.com",
		Roles:         models.RoleList{models.AssocRoleTenant},
		TokenHash:     "hash-b",
		GeneratedByID: 1,
		Status:        models.InvitePending,
		ExpiresAt:     date(2026, time.July, 1),
	}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Create(fresh).Error)

	stats := gen.Run()
	assert.EqualValues(t, 1, stats.InvitesExpired)

	require.NoError(t, db.First(stale, stale.ID).Error)
	require.NoError(t, db.First(fresh, fresh.ID).Error)
	assert.Equal(t, models.InviteExpired, stale.Status)
	assert.Equal(t, models.InvitePending, fresh.Status)
}
