package schema

import "strings"

// Registry maps entity names to storage definitions. It is built once at
// startup and never mutated afterwards, so lookups are safe for concurrent
// use without locking.
type Registry struct {
	byAlias map[string]*Entity
	all     []*Entity
}

// NewRegistry builds the registry of all known entities with their
// singular and plural aliases.
func NewRegistry() *Registry {
	r := &Registry{byAlias: make(map[string]*Entity)}

	r.add(categoryEntity(), "category", "categories")
	r.add(inventoryEntity(), "inventory", "inventories")
	r.add(customerEntity(), "customer", "customers")
	r.add(saleEntity(), "sale", "sales")
	r.add(saleItemEntity(), "saleitem", "saleitems")
	r.add(supportTicketEntity(), "supportticket", "supporttickets")
	r.add(auditLogEntity(), "auditlog", "auditlogs")
	r.add(migrationTrackingEntity(), "migrationtracking", "migrationtrackings")

	return r
}

// Resolve looks up an entity by name, case-insensitively, accepting both
// singular and plural forms. Returns nil when the name is unknown.
func (r *Registry) Resolve(name string) *Entity {
	return r.byAlias[strings.ToLower(name)]
}

// All returns every registered entity.
func (r *Registry) All() []*Entity {
	return r.all
}

func (r *Registry) add(e *Entity, aliases ...string) {
	r.all = append(r.all, e)
	for _, a := range aliases {
		r.byAlias[a] = e
	}
}

func categoryEntity() *Entity {
	return &Entity{
		Name:       "Category",
		Table:      "category",
		PrimaryKey: PrimaryKey{Field: "id", Generated: true},
		Fields: []Field{
			{Name: "name", Type: "string", Required: true, MaxLen: 255},
			{Name: "description", Type: "text"},
		},
	}
}

func inventoryEntity() *Entity {
	return &Entity{
		Name:       "Inventory",
		Table:      "inventory",
		PrimaryKey: PrimaryKey{Field: "id", Generated: true},
		Fields: []Field{
			{Name: "sku", Type: "string", Required: true, Unique: true, MaxLen: 100},
			{Name: "name", Type: "string", Required: true, MaxLen: 255},
			{Name: "quantity", Type: "int", Required: true, Min: minOf(0)},
			{Name: "price", Type: "decimal", Required: true, Min: minOf(0)},
			{Name: "category_id", Type: "int", Required: true},
			{Name: "created_at", Type: "timestamp", Auto: "create"},
			{Name: "updated_at", Type: "timestamp", Auto: "update"},
		},
	}
}

func customerEntity() *Entity {
	return &Entity{
		Name:       "Customer",
		Table:      "customer",
		PrimaryKey: PrimaryKey{Field: "id", Generated: true},
		Fields: []Field{
			{Name: "first_name", Type: "string", Required: true, MaxLen: 100},
			{Name: "last_name", Type: "string", Required: true, MaxLen: 100},
			{Name: "email", Type: "string", Required: true, Unique: true, MaxLen: 255, Email: true},
			{Name: "phone", Type: "string", MaxLen: 20},
			{Name: "created_at", Type: "timestamp", Auto: "create"},
		},
	}
}

func saleEntity() *Entity {
	return &Entity{
		Name:       "Sale",
		Table:      "sale",
		PrimaryKey: PrimaryKey{Field: "id", Generated: true},
		Fields: []Field{
			{Name: "customer_id", Type: "int", Required: true},
			{Name: "sale_date", Type: "date", Required: true},
			{Name: "total_amount", Type: "decimal", Required: true, Min: minOf(0)},
		},
	}
}

func saleItemEntity() *Entity {
	return &Entity{
		Name:       "SaleItem",
		Table:      "sale_item",
		PrimaryKey: PrimaryKey{Field: "id", Generated: true},
		Fields: []Field{
			{Name: "sale_id", Type: "int", Required: true},
			{Name: "inventory_id", Type: "int", Required: true},
			{Name: "quantity", Type: "int", Required: true, Min: minOf(1)},
			{Name: "unit_price", Type: "decimal", Required: true, Min: minOf(0)},
		},
	}
}

func supportTicketEntity() *Entity {
	return &Entity{
		Name:       "SupportTicket",
		Table:      "support_ticket",
		PrimaryKey: PrimaryKey{Field: "id", Generated: true},
		Fields: []Field{
			{Name: "customer_id", Type: "int", Required: true},
			{Name: "subject", Type: "string", Required: true, MaxLen: 255},
			{Name: "description", Type: "text"},
			{Name: "status", Type: "string", Required: true, Enum: []string{"open", "closed", "pending"}},
			{Name: "created_at", Type: "timestamp", Auto: "create"},
			{Name: "updated_at", Type: "timestamp", Auto: "update"},
		},
	}
}

func auditLogEntity() *Entity {
	return &Entity{
		Name:       "AuditLog",
		Table:      "audit_log",
		PrimaryKey: PrimaryKey{Field: "id", Generated: true},
		Internal:   true,
		Fields: []Field{
			{Name: "entity", Type: "string"},
			{Name: "entity_id", Type: "int"},
			{Name: "action", Type: "string"},
			{Name: "performed_by", Type: "string"},
			{Name: "performed_at", Type: "timestamp", Auto: "create"},
			{Name: "details", Type: "text"},
			{Name: "request_id", Type: "string"},
		},
	}
}

func migrationTrackingEntity() *Entity {
	return &Entity{
		Name:       "MigrationTracking",
		Table:      "migration_tracking",
		PrimaryKey: PrimaryKey{Field: "id", Generated: true},
		Internal:   true,
		Fields: []Field{
			{Name: "legacy_id", Type: "string"},
			{Name: "new_id", Type: "int"},
			{Name: "entity", Type: "string"},
			{Name: "migrated_at", Type: "timestamp", Auto: "create"},
			{Name: "status", Type: "string"},
		},
	}
}
