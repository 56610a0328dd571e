package models

import (
	"fmt"
	"sort"
)

// EntityType identifies the kind of ERP record a workflow governs. The set
// is fixed; tenants pick workflows per type rather than inventing types.
type EntityType string

const (
	EntityTypeNCR           EntityType = "ncr"
	EntityTypeWorkOrder     EntityType = "work_order"
	EntityTypeMaterial      EntityType = "material"
	EntityTypePurchaseOrder EntityType = "purchase_order"
	EntityTypeDocument      EntityType = "document"
)

// AllEntityTypes returns every supported entity type.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityTypeNCR,
		EntityTypeWorkOrder,
		EntityTypeMaterial,
		EntityTypePurchaseOrder,
		EntityTypeDocument,
	}
}

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeNCR, EntityTypeWorkOrder, EntityTypeMaterial,
		EntityTypePurchaseOrder, EntityTypeDocument:
		return true
	default:
		return false
	}
}

// ValidateEntityType returns a descriptive error for unsupported types.
func ValidateEntityType(t EntityType) error {
	if !t.Valid() {
		return fmt.Errorf("unsupported entity type %q", string(t))
	}

	return nil
}

// EntityRef identifies one ERP record by type and external id. The engine
// never dereferences it; entity data is always supplied by the caller.
type EntityRef struct {
	Type EntityType `json:"type" validate:"required"`
	ID   string     `json:"id"   validate:"required"`
}

func (r EntityRef) String() string {
	return string(r.Type) + "/" + r.ID
}

// FieldRegistry records which entity fields condition rules may reference.
// An entity type with no registered fields accepts any field name, so hosts
// can opt in per type.
type FieldRegistry struct {
	fields map[EntityType]map[string]struct{}
}

func NewFieldRegistry() *FieldRegistry {
	return &FieldRegistry{fields: make(map[EntityType]map[string]struct{})}
}

func (r *FieldRegistry) RegisterFields(entityType EntityType, names ...string) {
	known, ok := r.fields[entityType]
	if !ok {
		known = make(map[string]struct{})
		r.fields[entityType] = known
	}

	for _, name := range names {
		known[name] = struct{}{}
	}
}

// KnownField reports whether a condition rule may reference the field.
func (r *FieldRegistry) KnownField(entityType EntityType, name string) bool {
	known, ok := r.fields[entityType]
	if !ok || len(known) == 0 {
		return true
	}

	_, found := known[name]

	return found
}

// Fields returns the registered field names for an entity type, sorted.
func (r *FieldRegistry) Fields(entityType EntityType) []string {
	known := r.fields[entityType]

	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// DefaultFieldRegistry covers the field surface of the stock ERP entities.
func DefaultFieldRegistry() *FieldRegistry {
	registry := NewFieldRegistry()

	registry.RegisterFields(EntityTypeNCR,
		"severity", "root_cause", "disposition", "quantity_affected",
		"defect_code", "supplier_id", "inspector_id", "resolution", "closed")
	registry.RegisterFields(EntityTypeWorkOrder,
		"priority", "quantity", "due_date", "work_center", "operation",
		"material_id", "assigned_to", "completed_quantity")
	registry.RegisterFields(EntityTypeMaterial,
		"material_group", "unit_cost", "stock_quantity", "reorder_point",
		"hazard_class", "supplier_id")
	registry.RegisterFields(EntityTypePurchaseOrder,
		"total_amount", "currency", "supplier_id", "payment_terms",
		"delivery_date", "buyer_id")

	// Documents intentionally stay open: any field may gate a document
	// workflow.

	return registry
}
