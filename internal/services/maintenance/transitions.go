package maintenance

import "domus/internal/models"

// requestTransitions is the request state machine. Archived is reachable
// from every state and handled separately.
var requestTransitions = map[string][]string{
	models.RequestNew:        {models.RequestTriaged},
	models.RequestTriaged:    {models.RequestAssigned},
	models.RequestAssigned:   {models.RequestInProgress},
	models.RequestInProgress: {models.RequestCompleted, models.RequestOnHold},
	models.RequestOnHold:     {models.RequestInProgress, models.RequestCanceled},
	models.RequestCompleted:  {models.RequestVerified, models.RequestReopened},
	models.RequestVerified:   {models.RequestReopened},
	models.RequestReopened:   {models.RequestAssigned},
}

// CanTransition reports whether from -> to is a legal request transition.
func CanTransition(from, to string) bool {
	if to == models.RequestArchived {
		return from != models.RequestArchived
	}
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionContext captures who is driving a transition so the guards can
// be evaluated without reaching back into storage.
type TransitionContext struct {
	ActorID uint
	// Manager is true for admins and for landlord/propertymanager actors
	// already authorized on the request's property.
	Manager bool
	// Assignee is true when the actor is the request's assigned user.
	Assignee bool
	// Public is true for public-token callers, who may only move a request
	// to in_progress or completed.
	Public bool
}

// guardErr is a human-readable guard violation; the audit log records it
// verbatim while the caller gets a generic Forbidden.
type guardErr string

func (g guardErr) Error() string { return string(g) }

// checkGuards enforces the per-transition actor requirements. Assignment
// guards (non-nil assignee, vendor-kind restrictions) are checked by the
// Assign operation itself, which is the only path into assigned.
func checkGuards(to string, ctx TransitionContext) error {
	if ctx.Public {
		if to == models.RequestInProgress || to == models.RequestCompleted {
			return nil
		}
		return guardErr("public callers may only start or complete a request")
	}
	switch to {
	case models.RequestCompleted:
		if !ctx.Manager && !ctx.Assignee {
			return guardErr("only the assignee or a property manager may complete")
		}
	case models.RequestVerified:
		if !ctx.Manager {
			return guardErr("only a property manager may verify")
		}
	case models.RequestReopened:
		if !ctx.Manager {
			return guardErr("only a property manager may reopen")
		}
	case models.RequestCanceled, models.RequestArchived:
		if !ctx.Manager {
			return guardErr("only a property manager may cancel or archive")
		}
	}
	return nil
}
