package maintenance

import (
	"testing"

	"domus/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{models.RequestNew, models.RequestTriaged, true},
		{models.RequestNew, models.RequestCompleted, false},
		{models.RequestNew, models.RequestInProgress, false},
		{models.RequestTriaged, models.RequestAssigned, true},
		{models.RequestTriaged, models.RequestCompleted, false},
		{models.RequestAssigned, models.RequestInProgress, true},
		{models.RequestAssigned, models.RequestTriaged, false},
		{models.RequestInProgress, models.RequestCompleted, true},
		{models.RequestInProgress, models.RequestOnHold, true},
		{models.RequestOnHold, models.RequestInProgress, true},
		{models.RequestOnHold, models.RequestCanceled, true},
		{models.RequestOnHold, models.RequestCompleted, false},
		{models.RequestCompleted, models.RequestVerified, true},
		{models.RequestCompleted, models.RequestReopened, true},
		{models.RequestVerified, models.RequestReopened, true},
		{models.RequestVerified, models.RequestCompleted, false},
		{models.RequestReopened, models.RequestAssigned, true},
		{models.RequestReopened, models.RequestInProgress, false},
		// Archiving is reachable from anywhere but itself.
		{models.RequestNew, models.RequestArchived, true},
		{models.RequestVerified, models.RequestArchived, true},
		{models.RequestArchived, models.RequestArchived, false},
		{models.RequestArchived, models.RequestReopened, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCheckGuards(t *testing.T) {
	manager := TransitionContext{ActorID: 1, Manager: true}
	assignee := TransitionContext{ActorID: 2, Assignee: true}
	tenant := TransitionContext{ActorID: 3}
	public := TransitionContext{Public: true}

	tests := []struct {
		name string
		to   string
		ctx  TransitionContext
		ok   bool
	}{
		{"manager may complete", models.RequestCompleted, manager, true},
		{"assignee may complete", models.RequestCompleted, assignee, true},
		{"tenant may not complete", models.RequestCompleted, tenant, false},
		{"only manager verifies", models.RequestVerified, assignee, false},
		{"manager verifies", models.RequestVerified, manager, true},
		{"only manager reopens", models.RequestReopened, assignee, false},
		{"only manager cancels", models.RequestCanceled, assignee, false},
		{"only manager archives", models.RequestArchived, tenant, false},
		{"anyone moves forward into triaged", models.RequestTriaged, tenant, true},
		{"public caller may start", models.RequestInProgress, public, true},
		{"public caller may complete", models.RequestCompleted, public, true},
		{"public caller may not verify", models.RequestVerified, public, false},
		{"public caller may not cancel", models.RequestCanceled, public, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkGuards(tt.to, tt.ctx)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
