package schema

type Entity struct {
	Name       string     // canonical name, e.g. "Category"
	Table      string
	PrimaryKey PrimaryKey
	// Internal entities (AuditLog, MigrationTracking) are written only by the
	// engine itself: no validation schema, no user mutations.
	Internal bool
	Fields   []Field
}

type PrimaryKey struct {
	Field     string
	Generated bool
}

type Field struct {
	Name     string
	Type     string // string, text, int, decimal, date, timestamp
	Required bool
	Unique   bool
	MaxLen   int
	Min      *float64 // numeric minimum, nil when unbounded
	Enum     []string
	Email    bool
	Auto     string // "create" or "update": managed by the storage layer
}

// IsAuto returns true if the field is auto-managed and never client-settable.
func (f Field) IsAuto() bool {
	return f.Auto == "create" || f.Auto == "update"
}

// GetField returns a pointer to the field with the given name, or nil.
func (e *Entity) GetField(name string) *Field {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}
	return nil
}

// HasField returns true if the entity has a field with the given name.
func (e *Entity) HasField(name string) bool {
	return e.GetField(name) != nil
}

// FieldNames returns all field names, primary key first.
func (e *Entity) FieldNames() []string {
	names := make([]string, 0, len(e.Fields)+1)
	names = append(names, e.PrimaryKey.Field)
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	return names
}

// WritableFields returns fields that can be set by the client.
func (e *Entity) WritableFields() []Field {
	var fields []Field
	for _, f := range e.Fields {
		if f.IsAuto() {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func minOf(v float64) *float64 { return &v }
