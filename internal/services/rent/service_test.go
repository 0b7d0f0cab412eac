package rent

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
	return NewService(repositories.NewRentRepository(db)), db
}

func record(t *testing.T, db *gorm.DB, period string, due time.Time, amount float64) *models.RentRecord {
	t.Helper()
	rec := &models.RentRecord{
		LeaseID:       1,
		BillingPeriod: period,
		AmountDue:     amount,
		DueDate:       due,
		Status:        models.RentDue,
	}
	require.NoError(t, db.Create(rec).Error)
	return rec
}

func TestRecordPayment_DerivesStatusFromAmounts(t *testing.T) {
	s, db := newTestService(t)
	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rec := record(t, db, "2026-03", due, 1200)

	_, err := s.RecordPayment(rec.ID, PaymentInput{Amount: -5})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	got, err := s.RecordPayment(rec.ID, PaymentInput{Amount: 500, Method: "bank_transfer", TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.Equal(t, models.RentPartiallyPaid, got.Status)
	assert.Equal(t, float64(500), got.AmountPaid)
	assert.NotNil(t, got.PaymentDate)

	got, err = s.RecordPayment(rec.ID, PaymentInput{Amount: 700, Method: "bank_transfer", TransactionID: "tx-2"})
	require.NoError(t, err)
	assert.Equal(t, models.RentPaid, got.Status)
	assert.Equal(t, float64(1200), got.AmountPaid)

	_, err = s.RecordPayment(rec.ID, PaymentInput{Amount: 1})
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestWaive(t *testing.T) {
	s, db := newTestService(t)
	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rec := record(t, db, "2026-03", due, 1200)

	got, err := s.Waive(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RentWaived, got.Status)

	// Waived records accept no further payments.
	_, err = s.RecordPayment(rec.ID, PaymentInput{Amount: 100})
	assert.ErrorIs(t, err, ErrAlreadySettled)

	paid := record(t, db, "2026-04", due.AddDate(0, 1, 0), 1200)
	_, err = s.RecordPayment(paid.ID, PaymentInput{Amount: 1200})
	require.NoError(t, err)
	_, err = s.Waive(paid.ID)
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestMarkOverdue(t *testing.T) {
	s, db := newTestService(t)
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	past := record(t, db, "2026-02", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), 1200)
	future := record(t, db, "2026-04", time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), 1200)
	partial := record(t, db, "2026-01", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), 1200)
	_, err := s.RecordPayment(partial.ID, PaymentInput{Amount: 100})
	require.NoError(t, err)

	flipped, err := s.MarkOverdue(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, flipped)

	require.NoError(t, db.First(past, past.ID).Error)
	require.NoError(t, db.First(future, future.ID).Error)
	require.NoError(t, db.First(partial, partial.ID).Error)
	assert.Equal(t, models.RentOverdue, past.Status)
	assert.Equal(t, models.RentDue, future.Status, "not yet due records are left alone")
	assert.Equal(t, models.RentPartiallyPaid, partial.Status, "partial payments are not flipped")
}
