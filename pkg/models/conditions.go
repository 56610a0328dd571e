package models

// Operator is the closed set of comparison operators a condition rule may
// use. Anything outside this set is a configuration error.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorIn          Operator = "in"
	OperatorNotIn       Operator = "not_in"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
)

func (o Operator) Valid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorIn, OperatorNotIn,
		OperatorGreaterThan, OperatorLessThan, OperatorContains:
		return true
	default:
		return false
	}
}

// ConditionRule is one field/operator/value predicate evaluated against the
// entity data supplied by the caller.
type ConditionRule struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    any      `json:"value"`
}

// TransitionConditions gates whether a transition is permitted. A nil
// conditions object permits unconditionally.
type TransitionConditions struct {
	RequiredRoles  []string        `json:"required_roles,omitempty"`
	RequiredFields []string        `json:"required_fields,omitempty"`
	Rules          []ConditionRule `json:"rules,omitempty"`
}

// Empty reports whether the conditions impose no constraints at all.
func (c *TransitionConditions) Empty() bool {
	return c == nil || (len(c.RequiredRoles) == 0 && len(c.RequiredFields) == 0 && len(c.Rules) == 0)
}
