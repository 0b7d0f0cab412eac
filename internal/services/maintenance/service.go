package maintenance

import (
	"errors"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/utils"
	"domus/internal/validation"
)

var (
	ErrNotFound           = errors.New("maintenance request not found")
	ErrTemplateNotFound   = errors.New("scheduled maintenance not found")
	ErrBadTransition      = errors.New("illegal status transition")
	ErrGuardViolation     = errors.New("transition not permitted for this actor")
	ErrMissingAssignee    = errors.New("assignment requires an assignee")
	ErrVendorAssignment   = errors.New("vendor assignment requires a manager")
	ErrFeedbackState      = errors.New("feedback is only accepted on completed requests")
	ErrTokenExpired       = errors.New("public link has expired")
	ErrTemplateNotPaused  = errors.New("template is not paused")
	ErrTemplateNotActive  = errors.New("template is not active")
	ErrTemplateTerminal   = errors.New("template is in a terminal state")
	ErrFrequencyRequired  = errors.New("recurring template requires a frequency")
)

type Service interface {
	CreateRequest(req *models.MaintenanceRequest) (*models.MaintenanceRequest, error)
	GetRequest(id uint) (*models.MaintenanceRequest, error)
	UpdateRequest(req *models.MaintenanceRequest) (*models.MaintenanceRequest, error)
	ListRequests(filter repositories.RequestFilter, opts repositories.ListOptions) ([]models.MaintenanceRequest, int64, error)

	// Transition moves a request through the state machine under guard.
	Transition(id uint, to string, ctx TransitionContext) (*models.MaintenanceRequest, error)
	// Assign is the only path into the assigned state. Vendor-kind
	// assignees require a manager actor.
	Assign(id uint, assignee models.Assignee, ctx TransitionContext) (*models.MaintenanceRequest, error)
	// SubmitFeedback records tenant feedback on a completed or verified
	// request; ownership is authorized by the caller.
	SubmitFeedback(id uint, rating int, comment string) (*models.MaintenanceRequest, error)

	CreateTemplate(t *models.ScheduledMaintenance) (*models.ScheduledMaintenance, error)
	GetTemplate(id uint) (*models.ScheduledMaintenance, error)
	UpdateTemplate(t *models.ScheduledMaintenance) (*models.ScheduledMaintenance, error)
	ListTemplates(propertyIDs []uint, opts repositories.ListOptions) ([]models.ScheduledMaintenance, int64, error)
	// Pause suppresses generation without touching NextDueDate; Resume
	// re-bases NextDueDate to max(NextDueDate, now).
	PauseTemplate(id uint) (*models.ScheduledMaintenance, error)
	ResumeTemplate(id uint) (*models.ScheduledMaintenance, error)
	CancelTemplate(id uint) (*models.ScheduledMaintenance, error)

	// IssueRequestToken / IssueTemplateToken mint a public link token. The
	// raw token is returned once; only its hash is stored.
	IssueRequestToken(id uint, ttl time.Duration) (string, *models.MaintenanceRequest, error)
	IssueTemplateToken(id uint, ttl time.Duration) (string, *models.ScheduledMaintenance, error)
	// ResolveRequestToken verifies an unexpired public token.
	ResolveRequestToken(raw string) (*models.MaintenanceRequest, error)
	ResolveTemplateToken(raw string) (*models.ScheduledMaintenance, error)

	AddComment(c *models.Comment) (*models.Comment, error)
	ListComments(resourceKind string, resourceID uint) ([]models.Comment, error)
}

type service struct {
	repo repositories.MaintenanceRepository
	now  func() time.Time
}

func NewService(repo repositories.MaintenanceRepository) Service {
	if repo == nil {
		panic("maintenance repo is required")
	}
	return &service{repo: repo, now: time.Now}
}

func (s *service) CreateRequest(req *models.MaintenanceRequest) (*models.MaintenanceRequest, error) {
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(req.Priority) {
		return nil, errors.New("unknown priority " + req.Priority)
	}
	req.Status = models.RequestNew
	if err := s.repo.CreateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) GetRequest(id uint) (*models.MaintenanceRequest, error) {
	req, err := s.repo.GetRequest(id)
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return nil, ErrNotFound
	}
	return req, err
}

func (s *service) UpdateRequest(req *models.MaintenanceRequest) (*models.MaintenanceRequest, error) {
	if err := s.repo.UpdateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) ListRequests(filter repositories.RequestFilter, opts repositories.ListOptions) ([]models.MaintenanceRequest, int64, error) {
	return s.repo.ListRequests(filter, opts)
}

func (s *service) Transition(id uint, to string, ctx TransitionContext) (*models.MaintenanceRequest, error) {
	if !models.ValidRequestStatus(to) {
		return nil, errors.New("unknown request status " + to)
	}
	req, err := s.GetRequest(id)
	if err != nil {
		return nil, err
	}
	if to == models.RequestAssigned {
		// Assignment carries an assignee and goes through Assign.
		return nil, ErrBadTransition
	}
	if !CanTransition(req.Status, to) {
		return nil, ErrBadTransition
	}
	if err := checkGuards(to, ctx); err != nil {
		return nil, errors.Join(ErrGuardViolation, err)
	}

	switch to {
	case models.RequestCompleted:
		at := s.now()
		req.ResolvedAt = &at
	case models.RequestReopened:
		req.ResolvedAt = nil
	}
	req.Status = to
	if err := s.repo.UpdateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) Assign(id uint, assignee models.Assignee, ctx TransitionContext) (*models.MaintenanceRequest, error) {
	if assignee.ID == 0 || assignee.Kind == "" {
		return nil, ErrMissingAssignee
	}
	if assignee.Kind == models.AssigneeVendor && !ctx.Manager {
		return nil, ErrVendorAssignment
	}
	req, err := s.GetRequest(id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(req.Status, models.RequestAssigned) {
		return nil, ErrBadTransition
	}
	req.SetAssignee(assignee)
	req.Status = models.RequestAssigned
	if err := s.repo.UpdateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) SubmitFeedback(id uint, rating int, comment string) (*models.MaintenanceRequest, error) {
	if err := validation.CheckRating(rating); err != nil {
		return nil, err
	}
	req, err := s.GetRequest(id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestCompleted && req.Status != models.RequestVerified {
		return nil, ErrFeedbackState
	}
	r := rating
	req.FeedbackRating = &r
	req.FeedbackComment = comment
	if err := s.repo.UpdateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) CreateTemplate(t *models.ScheduledMaintenance) (*models.ScheduledMaintenance, error) {
	if t.Recurring {
		if err := t.Frequency.Validate(); err != nil {
			return nil, errors.Join(ErrFrequencyRequired, err)
		}
	}
	t.Status = models.TemplateActive
	t.NextDueDate = t.ScheduledDate
	if err := s.repo.CreateTemplate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) GetTemplate(id uint) (*models.ScheduledMaintenance, error) {
	t, err := s.repo.GetTemplate(id)
	if errors.Is(err, repositories.ErrTemplateNotFound) {
		return nil, ErrTemplateNotFound
	}
	return t, err
}

// UpdateTemplate applies edits and, when the schedule basis changed while
// due, recomputes NextDueDate from the new frequency.
func (s *service) UpdateTemplate(t *models.ScheduledMaintenance) (*models.ScheduledMaintenance, error) {
	if t.Recurring {
		if err := t.Frequency.Validate(); err != nil {
			return nil, errors.Join(ErrFrequencyRequired, err)
		}
	}
	if t.NextDueDate.Before(t.ScheduledDate) {
		t.NextDueDate = t.ScheduledDate
	}
	if err := s.repo.UpdateTemplate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) ListTemplates(propertyIDs []uint, opts repositories.ListOptions) ([]models.ScheduledMaintenance, int64, error) {
	return s.repo.ListTemplates(propertyIDs, opts)
}

func (s *service) PauseTemplate(id uint) (*models.ScheduledMaintenance, error) {
	t, err := s.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TemplateActive {
		return nil, ErrTemplateNotActive
	}
	t.Status = models.TemplatePaused
	if err := s.repo.UpdateTemplate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) ResumeTemplate(id uint) (*models.ScheduledMaintenance, error) {
	t, err := s.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TemplatePaused {
		return nil, ErrTemplateNotPaused
	}
	if now := s.now(); t.NextDueDate.Before(now) {
		t.NextDueDate = now
	}
	t.Status = models.TemplateActive
	if err := s.repo.UpdateTemplate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) CancelTemplate(id uint) (*models.ScheduledMaintenance, error) {
	t, err := s.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TemplateCompleted || t.Status == models.TemplateCanceled {
		return nil, ErrTemplateTerminal
	}
	t.Status = models.TemplateCanceled
	if err := s.repo.UpdateTemplate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) IssueRequestToken(id uint, ttl time.Duration) (string, *models.MaintenanceRequest, error) {
	req, err := s.GetRequest(id)
	if err != nil {
		return "", nil, err
	}
	raw, err := utils.GenerateSecureCode()
	if err != nil {
		return "", nil, err
	}
	expires := s.now().Add(ttl)
	req.PublicTokenHash = utils.HashToken(raw)
	req.PublicLinkExpiresAt = &expires
	if err := s.repo.UpdateRequest(req); err != nil {
		return "", nil, err
	}
	return raw, req, nil
}

func (s *service) IssueTemplateToken(id uint, ttl time.Duration) (string, *models.ScheduledMaintenance, error) {
	t, err := s.GetTemplate(id)
	if err != nil {
		return "", nil, err
	}
	raw, err := utils.GenerateSecureCode()
	if err != nil {
		return "", nil, err
	}
	expires := s.now().Add(ttl)
	t.PublicTokenHash = utils.HashToken(raw)
	t.PublicLinkExpiresAt = &expires
	if err := s.repo.UpdateTemplate(t); err != nil {
		return "", nil, err
	}
	return raw, t, nil
}

func (s *service) ResolveRequestToken(raw string) (*models.MaintenanceRequest, error) {
	req, err := s.repo.GetRequestByTokenHash(utils.HashToken(raw))
	if err != nil {
		return nil, ErrNotFound
	}
	if req.PublicLinkExpiresAt == nil || s.now().After(*req.PublicLinkExpiresAt) {
		return nil, ErrTokenExpired
	}
	return req, nil
}

func (s *service) ResolveTemplateToken(raw string) (*models.ScheduledMaintenance, error) {
	t, err := s.repo.GetTemplateByTokenHash(utils.HashToken(raw))
	if err != nil {
		return nil, ErrTemplateNotFound
	}
	if t.PublicLinkExpiresAt == nil || s.now().After(*t.PublicLinkExpiresAt) {
		return nil, ErrTokenExpired
	}
	return t, nil
}

func (s *service) AddComment(c *models.Comment) (*models.Comment, error) {
	if err := s.repo.CreateComment(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) ListComments(resourceKind string, resourceID uint) ([]models.Comment, error) {
	return s.repo.ListComments(resourceKind, resourceID)
}
