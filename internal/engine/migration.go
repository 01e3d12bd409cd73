package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gofiber/fiber/v2"

	"dataservice/internal/schema"
)

// migrationRequest is the body shape shared by import and export.
type migrationRequest struct {
	Source  string         `json:"source"`
	Target  string         `json:"target"`
	Options map[string]any `json:"options"`
}

// Import handles POST /migration/import — bulk insert with per-record
// migration tracking, one transaction for the whole batch.
func (h *Handler) Import(c *fiber.Ctx) error {
	var body migrationRequest
	if err := c.BodyParser(&body); err != nil {
		return ValidationMessage("Invalid JSON body")
	}
	if body.Source == "" || body.Target == "" {
		return ValidationMessage("source and target are required")
	}

	target := h.registry.Resolve(body.Target)
	if target == nil {
		return ValidationMessage("Unknown target entity")
	}
	if target.Internal {
		return ForbiddenError(fmt.Sprintf("%s is read-only", target.Name))
	}

	records, err := recordList(body.Options)
	if err != nil {
		return err
	}

	count, err := h.engine.Import(c.Context(), target, body.Source, records, actor(c), requestID(c))
	if err != nil {
		return err
	}
	return c.JSON(Success(fiber.Map{"imported": count}))
}

// Export handles POST /migration/export — read-only, capped, with optional
// equality filters and a row filter expression.
func (h *Handler) Export(c *fiber.Ctx) error {
	var body migrationRequest
	if err := c.BodyParser(&body); err != nil {
		return ValidationMessage("Invalid JSON body")
	}

	name := body.Source
	if name == "" {
		name = body.Target
	}
	ent := h.registry.Resolve(name)
	if ent == nil {
		return ValidationMessage("Unknown entity")
	}

	where, err := whereClauses(ent, body.Options)
	if err != nil {
		return err
	}
	filter, err := filterProgram(body.Options)
	if err != nil {
		return err
	}

	rows, err := h.engine.Export(c.Context(), ent, where, filter, actor(c), requestID(c))
	if err != nil {
		return err
	}
	return c.JSON(Success(fiber.Map{"exported": len(rows), "rows": rows}))
}

func recordList(options map[string]any) ([]map[string]any, error) {
	raw, ok := options["records"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, ValidationMessage("options.records must be an array of objects")
	}
	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, ValidationMessage("options.records must be an array of objects")
		}
		records = append(records, record)
	}
	return records, nil
}

func whereClauses(ent *schema.Entity, options map[string]any) (map[string]any, error) {
	raw, ok := options["where"]
	if !ok || raw == nil {
		return nil, nil
	}
	where, ok := raw.(map[string]any)
	if !ok {
		return nil, ValidationMessage("options.where must be an object")
	}
	for key := range where {
		if key != "id" && !ent.HasField(key) {
			return nil, ValidationMessage(fmt.Sprintf("Unknown filter field: %s", key))
		}
	}
	return where, nil
}

// filterProgram compiles the optional options.filter expression, evaluated
// per exported row.
func filterProgram(options map[string]any) (*vm.Program, error) {
	raw, ok := options["filter"]
	if !ok || raw == nil {
		return nil, nil
	}
	src, ok := raw.(string)
	if !ok {
		return nil, ValidationMessage("options.filter must be a string expression")
	}
	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, ValidationMessage(fmt.Sprintf("Invalid filter expression: %v", err))
	}
	return program, nil
}
