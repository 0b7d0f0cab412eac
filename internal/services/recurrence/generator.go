package recurrence

import (
	"fmt"
	"log"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/services/audit"
	"domus/internal/services/notification"
)

// RunStats summarizes one generation pass.
type RunStats struct {
	RentRecordsCreated int   `json:"rentRecordsCreated"`
	RentOverdueFlipped int64 `json:"rentOverdueFlipped"`
	RequestsCreated    int   `json:"requestsCreated"`
	TemplatesCompleted int   `json:"templatesCompleted"`
	InvitesExpired     int64 `json:"invitesExpired"`
}

// Generator materializes obligations. It is safe to run concurrently with
// itself and with request handling: rent records are keyed by
// (lease, billing period) and spawned requests by (template, scheduled-for),
// so a concurrent duplicate is silently skipped at the index.
type Generator struct {
	rents    repositories.RentRepository
	maint    repositories.MaintenanceRepository
	invites  repositories.InviteRepository
	auditSvc audit.Service
	notifier *notification.Service
	now      func() time.Time
}

func NewGenerator(
	rents repositories.RentRepository,
	maint repositories.MaintenanceRepository,
	invites repositories.InviteRepository,
	auditSvc audit.Service,
	notifier *notification.Service,
) *Generator {
	if rents == nil || maint == nil {
		panic("rent and maintenance repos are required")
	}
	return &Generator{
		rents:    rents,
		maint:    maint,
		invites:  invites,
		auditSvc: auditSvc,
		notifier: notifier,
		now:      time.Now,
	}
}

// WithClock overrides the generator's clock. Test hook.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Run performs one full generation pass: rent obligations, overdue flipping,
// template-spawned requests and stale-invite expiry. Errors in one section do
// not stop the others.
func (g *Generator) Run() RunStats {
	now := g.now()
	var stats RunStats

	created, err := g.GenerateRent(now)
	if err != nil {
		log.Printf("rent generation failed: %v", err)
	}
	stats.RentRecordsCreated = created

	// Freshly materialized records with a past due date flip in the same
	// pass as everything already sitting at due.
	flipped, err := g.rents.MarkOverdue(now)
	if err != nil {
		log.Printf("overdue flipping failed: %v", err)
	}
	stats.RentOverdueFlipped = flipped

	reqs, completed, err := g.GenerateScheduled(now)
	if err != nil {
		log.Printf("scheduled maintenance generation failed: %v", err)
	}
	stats.RequestsCreated = reqs
	stats.TemplatesCompleted = completed

	if g.invites != nil {
		expired, err := g.invites.ExpireStale(now)
		if err != nil {
			log.Printf("invite expiry failed: %v", err)
		}
		stats.InvitesExpired = expired
	}

	if g.auditSvc != nil {
		g.auditSvc.Record(audit.Entry{
			Action:       models.ActionGenerate,
			ResourceKind: models.ResourceRentRecord,
			Description:  fmt.Sprintf("generation run: %d rents, %d flipped overdue, %d requests, %d templates completed", stats.RentRecordsCreated, stats.RentOverdueFlipped, stats.RequestsCreated, stats.TemplatesCompleted),
			After:        stats,
		})
	}
	return stats
}

// cadenceMonths maps a schedule cadence to its month step. Obligations are
// keyed one-per-month by (lease, "YYYY-MM"), so sub-monthly cadences
// materialize at the monthly anchor.
func cadenceMonths(cadence string) int {
	switch cadence {
	case models.BillingQuarterly:
		return 3
	case models.BillingBiAnnually:
		return 6
	case models.BillingAnnually:
		return 12
	default:
		return 1
	}
}

// GenerateRent materializes every due rent obligation up to now. The upsert
// on (lease, billing period) makes re-runs and concurrent runs no-ops.
func (g *Generator) GenerateRent(now time.Time) (int, error) {
	schedules, err := g.rents.ListGeneratable(now)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range schedules {
		n, err := g.generateForSchedule(&schedules[i], now)
		if err != nil {
			log.Printf("rent generation for schedule %d failed: %v", schedules[i].ID, err)
			continue
		}
		created += n
	}
	return created, nil
}

func (g *Generator) generateForSchedule(s *models.RentSchedule, now time.Time) (int, error) {
	step := cadenceMonths(s.BillingPeriod)
	created := 0

	// Walk billing anchors from the effective start. Anchors already
	// materialized are skipped by the unique key, so no cursor arithmetic
	// is needed for correctness; LastGeneratedDate only short-circuits
	// future runs.
	anchor := time.Date(s.EffectiveStartDate.Year(), s.EffectiveStartDate.Month(), 1,
		0, 0, 0, 0, time.UTC)
	var lastDue time.Time
	for !anchor.After(now) {
		due := time.Date(anchor.Year(), anchor.Month(),
			clampDay(s.DueDateDay, anchor.Year(), anchor.Month()),
			0, 0, 0, 0, time.UTC)
		if due.After(now) {
			break
		}
		if s.EffectiveEndDate != nil && due.After(*s.EffectiveEndDate) {
			break
		}

		rec := &models.RentRecord{
			LeaseID:       s.LeaseID,
			BillingPeriod: models.BillingPeriodOf(due),
			AmountDue:     s.Amount,
			DueDate:       due,
			Status:        models.RentDue,
		}
		ok, err := g.rents.UpsertRecord(rec)
		if err != nil {
			return created, err
		}
		if ok {
			created++
			if g.notifier != nil {
				g.notifier.Enqueue(notification.SideEffect{
					Kind:      notification.KindNotification,
					Recipient: fmt.Sprintf("user:%d", s.TenantID),
					Subject:   "Rent due",
					Body:      fmt.Sprintf("Rent of %.2f %s is due on %s", rec.AmountDue, s.Currency, due.Format("2006-01-02")),
				})
			}
		}
		lastDue = due
		anchor = anchor.AddDate(0, step, 0)
	}

	if !lastDue.IsZero() && (s.LastGeneratedDate == nil || lastDue.After(*s.LastGeneratedDate)) {
		s.LastGeneratedDate = &lastDue
		if err := g.rents.UpdateSchedule(s); err != nil {
			return created, err
		}
	}
	return created, nil
}

// GenerateScheduled materializes maintenance requests for every active
// template whose next due date has passed, advancing the due date as it
// goes. Returns requests created and templates completed.
func (g *Generator) GenerateScheduled(now time.Time) (int, int, error) {
	templates, err := g.maint.ListDueTemplates(now)
	if err != nil {
		return 0, 0, err
	}

	created, completed := 0, 0
	for i := range templates {
		n, done, err := g.fireTemplate(&templates[i], now)
		if err != nil {
			log.Printf("template %d generation failed: %v", templates[i].ID, err)
			continue
		}
		created += n
		if done {
			completed++
		}
	}
	return created, completed, nil
}

func (g *Generator) fireTemplate(t *models.ScheduledMaintenance, now time.Time) (int, bool, error) {
	created := 0
	completedHere := false

	for t.Status == models.TemplateActive && !t.NextDueDate.After(now) {
		fireAt := t.NextDueDate
		req := &models.MaintenanceRequest{
			Title:                   t.Title,
			Description:             t.Description,
			Category:                t.Category,
			PropertyID:              t.PropertyID,
			UnitID:                  t.UnitID,
			CreatedByID:             t.CreatedByID,
			AssignedToID:            t.AssignedToID,
			AssignedToKind:          t.AssignedToKind,
			Status:                  models.RequestNew,
			GeneratedFromTemplateID: &t.ID,
			ScheduledFor:            &fireAt,
		}
		if t.AssignedToID != nil {
			req.Status = models.RequestAssigned
		}

		ok, err := g.maint.CreateGeneratedRequest(req)
		if err != nil {
			return created, completedHere, err
		}
		if ok {
			created++
			t.OccurrenceCount++
			t.LastGeneratedRequestID = &req.ID
			at := now
			t.LastExecutedAt = &at
		}

		if !t.Recurring {
			t.Status = models.TemplateCompleted
			completedHere = true
			break
		}
		if t.Frequency.Occurrences != nil && t.OccurrenceCount >= *t.Frequency.Occurrences {
			t.Status = models.TemplateCompleted
			completedHere = true
			break
		}
		next, more := Next(t.NextDueDate, t.Frequency)
		if !more {
			t.Status = models.TemplateCompleted
			completedHere = true
			break
		}
		t.NextDueDate = next
	}

	if err := g.maint.UpdateTemplate(t); err != nil {
		return created, completedHere, err
	}
	return created, completedHere, nil
}
