package rent

import (
	"errors"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"
)

var (
	ErrNotFound       = errors.New("rent record not found")
	ErrInvalidAmount  = errors.New("invalid payment amount")
	ErrAlreadySettled = errors.New("rent record is already settled")
)

// PaymentInput is a tenant-submitted payment against an obligation.
type PaymentInput struct {
	Amount        float64
	Method        string
	TransactionID string
	ProofMediaRef string
}

type Service interface {
	Get(id uint) (*models.RentRecord, error)
	List(filter repositories.RentFilter, opts repositories.ListOptions) ([]models.RentRecord, int64, error)
	// RecordPayment applies a payment and derives the status from the
	// amounts: paid when amountPaid >= amountDue, partially_paid when
	// something but not everything has been paid.
	RecordPayment(id uint, input PaymentInput) (*models.RentRecord, error)
	Waive(id uint) (*models.RentRecord, error)
	// MarkOverdue flips unpaid records whose due date has passed. The
	// periodic generation tick runs the same flip through the repository.
	MarkOverdue(now time.Time) (int64, error)
}

type service struct {
	rents repositories.RentRepository
}

func NewService(rents repositories.RentRepository) Service {
	if rents == nil {
		panic("rent repo is required")
	}
	return &service{rents: rents}
}

func (s *service) Get(id uint) (*models.RentRecord, error) {
	rec, err := s.rents.GetRecord(id)
	if errors.Is(err, repositories.ErrRentNotFound) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *service) List(filter repositories.RentFilter, opts repositories.ListOptions) ([]models.RentRecord, int64, error) {
	return s.rents.ListRecords(filter, opts)
}

func (s *service) RecordPayment(id uint, input PaymentInput) (*models.RentRecord, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.RentPaid || rec.Status == models.RentWaived {
		return nil, ErrAlreadySettled
	}

	now := time.Now()
	rec.AmountPaid += input.Amount
	rec.PaymentDate = &now
	rec.PaymentMethod = input.Method
	rec.TransactionID = input.TransactionID
	if input.ProofMediaRef != "" {
		rec.ProofMediaRef = input.ProofMediaRef
	}
	if rec.AmountPaid >= rec.AmountDue {
		rec.Status = models.RentPaid
	} else {
		rec.Status = models.RentPartiallyPaid
	}

	if err := s.rents.UpdateRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) Waive(id uint) (*models.RentRecord, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.RentPaid {
		return nil, ErrAlreadySettled
	}
	rec.Status = models.RentWaived
	if err := s.rents.UpdateRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) MarkOverdue(now time.Time) (int64, error) {
	return s.rents.MarkOverdue(now)
}
