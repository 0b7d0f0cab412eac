package property

import (
	"errors"

	"domus/internal/models"
	"domus/internal/repositories"
)

var (
	ErrNotFound      = errors.New("property not found")
	ErrUnitNotFound  = errors.New("unit not found")
	ErrDuplicateName = errors.New("name already in use")
	ErrMissingFields = errors.New("city and country are required")
	ErrUnitMismatch  = errors.New("unit does not belong to property")
)

type Service interface {
	Create(p *models.Property, creatorID uint) (*models.Property, error)
	Get(id uint) (*models.Property, error)
	Update(p *models.Property) (*models.Property, error)
	List(propertyIDs []uint, opts repositories.ListOptions) ([]models.Property, int64, error)
	Archive(id uint) error
	HardDelete(id uint) error

	CreateUnit(u *models.Unit) (*models.Unit, error)
	GetUnit(propertyID, unitID uint) (*models.Unit, error)
	UpdateUnit(u *models.Unit) (*models.Unit, error)
	ListUnits(propertyID uint, opts repositories.ListOptions) ([]models.Unit, int64, error)
}

type service struct {
	props  repositories.PropertyRepository
	assocs repositories.AssociationRepository
}

func NewService(props repositories.PropertyRepository, assocs repositories.AssociationRepository) Service {
	if props == nil {
		panic("property repo is required")
	}
	return &service{props: props, assocs: assocs}
}

// Create stores the property and grants the creator a landlord association:
// ownership of a newly created property implies landlord access to it.
func (s *service) Create(p *models.Property, creatorID uint) (*models.Property, error) {
	if p.City == "" || p.Country == "" {
		return nil, ErrMissingFields
	}
	p.Active = true
	p.CreatedBy = creatorID
	if err := s.props.Create(p); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}

	assoc := &models.PropertyUserAssociation{
		UserID:     creatorID,
		PropertyID: p.ID,
		Roles:      models.RoleList{models.AssocRoleLandlord},
	}
	if err := s.assocs.Associate(assoc); err != nil &&
		!errors.Is(err, repositories.ErrDuplicateAssoc) {
		return nil, err
	}
	return p, nil
}

func (s *service) Get(id uint) (*models.Property, error) {
	p, err := s.props.GetByID(id)
	if errors.Is(err, repositories.ErrPropertyNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *service) Update(p *models.Property) (*models.Property, error) {
	if p.City == "" || p.Country == "" {
		return nil, ErrMissingFields
	}
	if err := s.props.Update(p); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return p, nil
}

func (s *service) List(propertyIDs []uint, opts repositories.ListOptions) ([]models.Property, int64, error) {
	return s.props.List(propertyIDs, opts)
}

func (s *service) Archive(id uint) error {
	err := s.props.Archive(id)
	if errors.Is(err, repositories.ErrPropertyNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *service) HardDelete(id uint) error {
	err := s.props.HardDelete(id)
	if errors.Is(err, repositories.ErrPropertyNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *service) CreateUnit(u *models.Unit) (*models.Unit, error) {
	if _, err := s.Get(u.PropertyID); err != nil {
		return nil, err
	}
	u.Active = true
	if u.Status == "" {
		u.Status = models.UnitVacant
	}
	if err := s.props.CreateUnit(u); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return u, nil
}

// GetUnit resolves a unit within its parent property; a unit reached through
// the wrong property is a mismatch, not a lookup hit.
func (s *service) GetUnit(propertyID, unitID uint) (*models.Unit, error) {
	u, err := s.props.GetUnit(unitID)
	if err != nil {
		if errors.Is(err, repositories.ErrUnitNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	if u.PropertyID != propertyID {
		return nil, ErrUnitMismatch
	}
	return u, nil
}

func (s *service) UpdateUnit(u *models.Unit) (*models.Unit, error) {
	if u.Status != "" && !models.ValidUnitStatus(u.Status) {
		return nil, errors.New("unknown unit status " + u.Status)
	}
	if err := s.props.UpdateUnit(u); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return u, nil
}

func (s *service) ListUnits(propertyID uint, opts repositories.ListOptions) ([]models.Unit, int64, error) {
	return s.props.ListUnits(propertyID, opts)
}
