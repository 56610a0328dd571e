package conditions

import (
	"fmt"

	"github.com/mfgworks/flowgate/pkg/models"
)

// ValidateRules checks a conditions structure at definition time so a
// misconfigured workflow is rejected when it is written, not when an entity
// tries to move. Rules must use known operators and, when the entity type has
// a registered field set, known fields.
func ValidateRules(conds *models.TransitionConditions, entityType models.EntityType, registry *models.FieldRegistry) error {
	if conds.Empty() {
		return nil
	}

	for _, field := range conds.RequiredFields {
		if field == "" {
			return fmt.Errorf("required field name cannot be empty")
		}

		if registry != nil && !registry.KnownField(entityType, field) {
			return fmt.Errorf("field %q is not defined for entity type %q", field, entityType)
		}
	}

	for _, rule := range conds.Rules {
		if rule.Field == "" {
			return fmt.Errorf("condition rule field cannot be empty")
		}

		if !rule.Operator.Valid() {
			return fmt.Errorf("condition on field %q uses unknown operator %q", rule.Field, rule.Operator)
		}

		if registry != nil && !registry.KnownField(entityType, rule.Field) {
			return fmt.Errorf("field %q is not defined for entity type %q", rule.Field, entityType)
		}
	}

	return nil
}
