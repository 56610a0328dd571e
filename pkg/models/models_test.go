package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"NCR_REVIEW", true},
		{"SUBMIT_FOR_REVIEW", true},
		{"A", true},
		{"V2_RELEASE", true},
		{"ncr_review", false},
		{"NCR-REVIEW", false},
		{"2FAST", false},
		{"", false},
		{"WITH SPACE", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidCode(tt.code))
		})
	}
}

func TestStateType(t *testing.T) {
	assert.True(t, StateTypeInitial.Valid())
	assert.True(t, StateTypeRejected.Valid())
	assert.False(t, StateType("OPEN").Valid())

	assert.True(t, StateTypeFinal.Terminal())
	assert.True(t, StateTypeCancelled.Terminal())
	assert.True(t, StateTypeRejected.Terminal())
	assert.False(t, StateTypeInitial.Terminal())
	assert.False(t, StateTypeIntermediate.Terminal())
}

func TestOperatorValid(t *testing.T) {
	for _, op := range []Operator{
		OperatorEquals, OperatorNotEquals, OperatorIn, OperatorNotIn,
		OperatorGreaterThan, OperatorLessThan, OperatorContains,
	} {
		assert.True(t, op.Valid(), string(op))
	}

	assert.False(t, Operator("matches").Valid())
	assert.False(t, Operator("").Valid())
}

func TestTransitionConditionsEmpty(t *testing.T) {
	var nilConds *TransitionConditions

	assert.True(t, nilConds.Empty())
	assert.True(t, (&TransitionConditions{}).Empty())
	assert.False(t, (&TransitionConditions{RequiredRoles: []string{"QA"}}).Empty())
	assert.False(t, (&TransitionConditions{RequiredFields: []string{"root_cause"}}).Empty())
	assert.False(t, (&TransitionConditions{Rules: []ConditionRule{{Field: "severity", Operator: OperatorEquals, Value: "HIGH"}}}).Empty())
}

func TestApprovalStatus(t *testing.T) {
	assert.True(t, ApprovalStatusPending.Valid())
	assert.True(t, ApprovalStatusEscalated.Valid())
	assert.False(t, ApprovalStatus("OPEN").Valid())

	assert.False(t, ApprovalStatusPending.Resolved())
	assert.True(t, ApprovalStatusApproved.Resolved())
	assert.True(t, ApprovalStatusCancelled.Resolved())
}

func TestApprovalPriorityWeight(t *testing.T) {
	assert.Greater(t, PriorityCritical.Weight(), PriorityHigh.Weight())
	assert.Greater(t, PriorityHigh.Weight(), PriorityMedium.Weight())
	assert.Greater(t, PriorityMedium.Weight(), PriorityLow.Weight())
	assert.Equal(t, 0, ApprovalPriority("").Weight())
}

func TestApprovalOverdue(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	pendingPast := &Approval{Status: ApprovalStatusPending, DueAt: &past}
	pendingFuture := &Approval{Status: ApprovalStatusPending, DueAt: &future}
	pendingNoDue := &Approval{Status: ApprovalStatusPending}
	resolvedPast := &Approval{Status: ApprovalStatusApproved, DueAt: &past}

	assert.True(t, pendingPast.Overdue(now))
	assert.False(t, pendingFuture.Overdue(now))
	assert.False(t, pendingNoDue.Overdue(now))
	assert.False(t, resolvedPast.Overdue(now))
}

func TestApprovalAssigned(t *testing.T) {
	assert.False(t, (&Approval{}).Assigned())
	assert.True(t, (&Approval{ApproverUserID: "u-1"}).Assigned())
	assert.True(t, (&Approval{ApproverRole: "QUALITY_MANAGER"}).Assigned())
}

func TestEntityType(t *testing.T) {
	assert.True(t, EntityTypeNCR.Valid())
	assert.True(t, EntityTypeWorkOrder.Valid())
	assert.False(t, EntityType("invoice").Valid())

	assert.NoError(t, ValidateEntityType(EntityTypeMaterial))
	assert.Error(t, ValidateEntityType(EntityType("invoice")))
}

func TestFieldRegistry(t *testing.T) {
	registry := NewFieldRegistry()
	registry.RegisterFields(EntityTypeNCR, "severity", "root_cause")

	assert.True(t, registry.KnownField(EntityTypeNCR, "severity"))
	assert.False(t, registry.KnownField(EntityTypeNCR, "color"))

	// Entity types with no registered fields accept anything.
	assert.True(t, registry.KnownField(EntityTypeDocument, "anything"))

	assert.ElementsMatch(t, []string{"severity", "root_cause"}, registry.Fields(EntityTypeNCR))
}

func TestDefaultFieldRegistry(t *testing.T) {
	registry := DefaultFieldRegistry()

	assert.True(t, registry.KnownField(EntityTypeNCR, "root_cause"))
	assert.True(t, registry.KnownField(EntityTypeWorkOrder, "priority"))
	assert.False(t, registry.KnownField(EntityTypeNCR, "unit_cost"))
}

func TestHistoryEventTypeValid(t *testing.T) {
	assert.True(t, HistoryEventTransition.Valid())
	assert.True(t, HistoryEventApprovalEscalated.Valid())
	assert.False(t, HistoryEventType("created").Valid())
}
