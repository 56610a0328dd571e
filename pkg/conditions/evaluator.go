// Package conditions evaluates transition gating rules against entity data
// and actor roles. Evaluation is pure: same inputs, same verdict.
package conditions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mfgworks/flowgate/pkg/models"
)

// Result is the outcome of evaluating a transition's conditions.
type Result struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allowed() Result {
	return Result{Allowed: true}
}

func denied(format string, args ...any) Result {
	return Result{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Evaluate decides whether a transition is permitted. Checks run in order and
// short-circuit on the first failure: required roles, required fields, then
// custom rules. A nil or empty conditions object permits unconditionally.
func Evaluate(conds *models.TransitionConditions, entityData map[string]any, actorRoles []string) Result {
	if conds.Empty() {
		return allowed()
	}

	if len(conds.RequiredRoles) > 0 && !holdsAnyRole(actorRoles, conds.RequiredRoles) {
		return denied("You need one of the following roles to perform this action: %s",
			strings.Join(conds.RequiredRoles, ", "))
	}

	for _, field := range conds.RequiredFields {
		if !present(entityData, field) {
			return denied("Required field '%s' is missing or empty", field)
		}
	}

	for _, rule := range conds.Rules {
		if result := evaluateRule(rule, entityData); !result.Allowed {
			return result
		}
	}

	return allowed()
}

func holdsAnyRole(actorRoles, required []string) bool {
	for _, have := range actorRoles {
		for _, want := range required {
			if have == want {
				return true
			}
		}
	}

	return false
}

func present(entityData map[string]any, field string) bool {
	value, ok := entityData[field]
	if !ok || value == nil {
		return false
	}

	if s, isString := value.(string); isString && s == "" {
		return false
	}

	return true
}

func evaluateRule(rule models.ConditionRule, entityData map[string]any) Result {
	actual := entityData[rule.Field]

	switch rule.Operator {
	case models.OperatorEquals:
		if !looselyEqual(actual, rule.Value) {
			return denied("Field '%s' must equal '%v'", rule.Field, rule.Value)
		}
	case models.OperatorNotEquals:
		if looselyEqual(actual, rule.Value) {
			return denied("Field '%s' must not equal '%v'", rule.Field, rule.Value)
		}
	case models.OperatorIn:
		if !member(actual, rule.Value) {
			return denied("Field '%s' must be one of %v", rule.Field, rule.Value)
		}
	case models.OperatorNotIn:
		if member(actual, rule.Value) {
			return denied("Field '%s' must not be one of %v", rule.Field, rule.Value)
		}
	case models.OperatorGreaterThan:
		ok, err := compareGreater(actual, rule.Value)
		if err != nil || !ok {
			return denied("Field '%s' must be greater than '%v'", rule.Field, rule.Value)
		}
	case models.OperatorLessThan:
		ok, err := compareLess(actual, rule.Value)
		if err != nil || !ok {
			return denied("Field '%s' must be less than '%v'", rule.Field, rule.Value)
		}
	case models.OperatorContains:
		if !strings.Contains(stringify(actual), stringify(rule.Value)) {
			return denied("Field '%s' must contain '%v'", rule.Field, rule.Value)
		}
	default:
		// An unrecognized operator is a misconfigured workflow, not an
		// implicit grant.
		return denied("Condition on field '%s' uses unknown operator '%s'", rule.Field, rule.Operator)
	}

	return allowed()
}

// looselyEqual compares after string-casting both sides so JSON-decoded
// numbers compare equal to their configured counterparts.
func looselyEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	aNum, aOK := toFloat(a)
	bNum, bOK := toFloat(b)

	if aOK && bOK {
		return aNum == bNum
	}

	return stringify(a) == stringify(b)
}

func member(actual, collection any) bool {
	switch values := collection.(type) {
	case []any:
		for _, v := range values {
			if looselyEqual(actual, v) {
				return true
			}
		}
	case []string:
		for _, v := range values {
			if looselyEqual(actual, v) {
				return true
			}
		}
	}

	return false
}

// compareGreater and compareLess use strict comparison: equal values fail.
// A nil actual value always fails.
func compareGreater(actual, expected any) (bool, error) {
	a, b, err := numericPair(actual, expected)
	if err != nil {
		return false, err
	}

	return a > b, nil
}

func compareLess(actual, expected any) (bool, error) {
	a, b, err := numericPair(actual, expected)
	if err != nil {
		return false, err
	}

	return a < b, nil
}

func numericPair(actual, expected any) (float64, float64, error) {
	if actual == nil {
		return 0, 0, fmt.Errorf("cannot compare nil value")
	}

	a, ok := toFloat(actual)
	if !ok {
		return 0, 0, fmt.Errorf("value %v is not numeric", actual)
	}

	b, ok := toFloat(expected)
	if !ok {
		return 0, 0, fmt.Errorf("value %v is not numeric", expected)
	}

	return a, b, nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)

		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(value any) string {
	if value == nil {
		return ""
	}

	return fmt.Sprintf("%v", value)
}
