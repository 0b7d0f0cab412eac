package lease

import (
	"errors"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/validation"
)

var (
	ErrNotFound          = errors.New("lease not found")
	ErrInvalidPeriod     = errors.New("lease end must be after start")
	ErrActiveLeaseExists = errors.New("unit already has an active lease")
	ErrScheduleNotFound  = errors.New("rent schedule not found")
	ErrScheduleOverlap   = errors.New("active schedules for a lease may not overlap")
)

// CreateInput carries the fields accepted when drafting a lease.
type CreateInput struct {
	PropertyID      uint
	UnitID          uint
	TenantID        uint
	StartDate       time.Time
	EndDate         time.Time
	MonthlyRent     float64
	Currency        string
	PaymentDueDay   int
	SecurityDeposit float64
	Terms           string
	Activate        bool
}

type Service interface {
	Create(input CreateInput) (*models.Lease, error)
	Get(id uint) (*models.Lease, error)
	List(filter repositories.LeaseFilter, opts repositories.ListOptions) ([]models.Lease, int64, error)
	Activate(id uint) (*models.Lease, error)
	Terminate(id uint) (*models.Lease, error)

	CreateSchedule(sched *models.RentSchedule) (*models.RentSchedule, error)
	GetSchedule(id uint) (*models.RentSchedule, error)
	UpdateSchedule(sched *models.RentSchedule) (*models.RentSchedule, error)
	ListSchedules(leaseID uint, opts repositories.ListOptions) ([]models.RentSchedule, int64, error)
}

type service struct {
	leases repositories.LeaseRepository
	rents  repositories.RentRepository
}

func NewService(leases repositories.LeaseRepository, rents repositories.RentRepository) Service {
	if leases == nil || rents == nil {
		panic("lease and rent repos are required")
	}
	return &service{leases: leases, rents: rents}
}

// Create drafts a lease and, when requested, activates it in the same call.
// The one-active-lease-per-unit invariant rides on the partial unique index,
// so a losing racer gets ErrActiveLeaseExists no matter how the requests
// interleave.
func (s *service) Create(input CreateInput) (*models.Lease, error) {
	if !input.EndDate.After(input.StartDate) {
		return nil, ErrInvalidPeriod
	}
	if err := validation.CheckDueDay(input.PaymentDueDay); err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}
	lease := &models.Lease{
		PropertyID:      input.PropertyID,
		UnitID:          input.UnitID,
		TenantID:        input.TenantID,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		MonthlyRent:     input.MonthlyRent,
		Currency:        currency,
		PaymentDueDay:   input.PaymentDueDay,
		SecurityDeposit: input.SecurityDeposit,
		Terms:           input.Terms,
		Status:          models.LeaseDraft,
	}
	if input.Activate {
		lease.Status = models.LeaseActive
	}
	if err := s.leases.Create(lease); err != nil {
		if errors.Is(err, repositories.ErrActiveLeaseExists) {
			return nil, ErrActiveLeaseExists
		}
		return nil, err
	}

	// An activated lease gets a default auto-generating monthly schedule so
	// obligations start materializing without a second call.
	if lease.Status == models.LeaseActive {
		sched := &models.RentSchedule{
			LeaseID:            lease.ID,
			TenantID:           lease.TenantID,
			PropertyID:         lease.PropertyID,
			UnitID:             lease.UnitID,
			Amount:             lease.MonthlyRent,
			Currency:           lease.Currency,
			DueDateDay:         lease.PaymentDueDay,
			BillingPeriod:      models.BillingMonthly,
			EffectiveStartDate: lease.StartDate,
			EffectiveEndDate:   &lease.EndDate,
			AutoGenerate:       true,
			Active:             true,
		}
		if err := s.rents.CreateSchedule(sched); err != nil {
			return nil, err
		}
	}
	return lease, nil
}

func (s *service) Get(id uint) (*models.Lease, error) {
	lease, err := s.leases.GetByID(id)
	if errors.Is(err, repositories.ErrLeaseNotFound) {
		return nil, ErrNotFound
	}
	return lease, err
}

func (s *service) List(filter repositories.LeaseFilter, opts repositories.ListOptions) ([]models.Lease, int64, error) {
	return s.leases.List(filter, opts)
}

func (s *service) Activate(id uint) (*models.Lease, error) {
	lease, err := s.leases.Activate(id)
	if err != nil {
		if errors.Is(err, repositories.ErrActiveLeaseExists) {
			return nil, ErrActiveLeaseExists
		}
		if errors.Is(err, repositories.ErrLeaseNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return lease, nil
}

// Terminate ends the lease and deactivates its schedules so generation
// stops with it.
func (s *service) Terminate(id uint) (*models.Lease, error) {
	lease, err := s.leases.Terminate(id, time.Now())
	if err != nil {
		if errors.Is(err, repositories.ErrLeaseNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	schedules, _, err := s.rents.ListSchedules(id, repositories.ListOptions{Limit: repositories.MaxPageSize})
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		if !schedules[i].Active {
			continue
		}
		schedules[i].Active = false
		if err := s.rents.UpdateSchedule(&schedules[i]); err != nil {
			return nil, err
		}
	}
	return lease, nil
}

func (s *service) CreateSchedule(sched *models.RentSchedule) (*models.RentSchedule, error) {
	lease, err := s.Get(sched.LeaseID)
	if err != nil {
		return nil, err
	}
	if err := validation.CheckDueDay(sched.DueDateDay); err != nil {
		return nil, err
	}
	if !models.ValidBillingCadence(sched.BillingPeriod) {
		return nil, errors.New("unknown billing cadence " + sched.BillingPeriod)
	}

	overlap, err := s.rents.OverlappingSchedules(sched.LeaseID, sched.EffectiveStartDate, sched.EffectiveEndDate, 0)
	if err != nil {
		return nil, err
	}
	if overlap > 0 {
		return nil, ErrScheduleOverlap
	}

	sched.TenantID = lease.TenantID
	sched.PropertyID = lease.PropertyID
	sched.UnitID = lease.UnitID
	sched.Active = true
	if err := s.rents.CreateSchedule(sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *service) GetSchedule(id uint) (*models.RentSchedule, error) {
	sched, err := s.rents.GetSchedule(id)
	if errors.Is(err, repositories.ErrScheduleNotFound) {
		return nil, ErrScheduleNotFound
	}
	return sched, err
}

func (s *service) UpdateSchedule(sched *models.RentSchedule) (*models.RentSchedule, error) {
	if sched.Active {
		overlap, err := s.rents.OverlappingSchedules(sched.LeaseID, sched.EffectiveStartDate, sched.EffectiveEndDate, sched.ID)
		if err != nil {
			return nil, err
		}
		if overlap > 0 {
			return nil, ErrScheduleOverlap
		}
	}
	if err := s.rents.UpdateSchedule(sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *service) ListSchedules(leaseID uint, opts repositories.ListOptions) ([]models.RentSchedule, int64, error) {
	return s.rents.ListSchedules(leaseID, opts)
}
