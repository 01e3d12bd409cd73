package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"dataservice/internal/schema"
	"dataservice/internal/store"
)

type Handler struct {
	store    *store.Store
	registry *schema.Registry
	engine   *Engine
}

func NewHandler(s *store.Store, reg *schema.Registry, eng *Engine) *Handler {
	return &Handler{store: s, registry: reg, engine: eng}
}

// List handles GET /:entity
func (h *Handler) List(c *fiber.Ctx) error {
	ent, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	limit := listCap
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v < listCap {
			limit = v
		}
	}

	sql, params := BuildSelectSQL(h.store.Dialect, ent, nil, limit)
	rows, err := store.QueryRows(c.Context(), h.store.DB, sql, params...)
	if err != nil {
		return fmt.Errorf("list %s: %w", ent.Name, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(Success(rows))
}

// GetByID handles GET /:entity/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	ent, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	row, err := fetchRecord(c.Context(), h.store.DB, h.store.Dialect, ent, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("Record not found")
		}
		return fmt.Errorf("get %s/%d: %w", ent.Name, id, err)
	}
	return c.JSON(Success(row))
}

// Create handles POST /:entity
func (h *Handler) Create(c *fiber.Ctx) error {
	ent, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	if ent.Internal {
		return ForbiddenError(fmt.Sprintf("%s is read-only", ent.Name))
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return ValidationMessage("Invalid JSON body")
	}

	fields, validationErrs := schema.Validate(ent, body)
	if len(validationErrs) > 0 {
		return ValidationError(validationErrs)
	}

	record, err := h.engine.Create(c.Context(), ent, fields, actor(c), requestID(c))
	if err != nil {
		return err
	}
	return c.Status(201).JSON(Success(record))
}

// Update handles PUT /:entity/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	ent, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	if ent.Internal {
		return ForbiddenError(fmt.Sprintf("%s is read-only", ent.Name))
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return ValidationMessage("Invalid JSON body")
	}

	fields, validationErrs := schema.Validate(ent, body)
	if len(validationErrs) > 0 {
		return ValidationError(validationErrs)
	}

	// Not-found is detected before any transaction opens.
	if _, err := fetchRecord(c.Context(), h.store.DB, h.store.Dialect, ent, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("Record not found")
		}
		return fmt.Errorf("fetch %s/%d: %w", ent.Name, id, err)
	}

	record, err := h.engine.Update(c.Context(), ent, id, fields, actor(c), requestID(c))
	if err != nil {
		return err
	}
	return c.JSON(Success(record))
}

// Delete handles DELETE /:entity/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	ent, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	if ent.Internal {
		return ForbiddenError(fmt.Sprintf("%s is read-only", ent.Name))
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if _, err := fetchRecord(c.Context(), h.store.DB, h.store.Dialect, ent, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("Record not found")
		}
		return fmt.Errorf("fetch %s/%d: %w", ent.Name, id, err)
	}

	if err := h.engine.Delete(c.Context(), ent, id, actor(c), requestID(c)); err != nil {
		return err
	}
	return c.SendStatus(204)
}

// ValidateOnly handles POST /validation/:entity — runs the entity schema
// against an arbitrary payload without touching storage.
func (h *Handler) ValidateOnly(c *fiber.Ctx) error {
	ent, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	if ent.Internal {
		return NotFoundError("Entity not found or no validation schema")
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return ValidationMessage("Invalid JSON body")
	}
	payload := body
	if data, ok := body["data"].(map[string]any); ok {
		payload = data
	}

	normalized, validationErrs := schema.Validate(ent, payload)
	if len(validationErrs) > 0 {
		return c.JSON(Success(fiber.Map{"valid": false, "errors": validationErrs}))
	}
	return c.JSON(Success(fiber.Map{"valid": true, "data": normalized}))
}

func (h *Handler) resolveEntity(c *fiber.Ctx) (*schema.Entity, error) {
	name := c.Params("entity")
	ent := h.registry.Resolve(name)
	if ent == nil {
		return nil, NotFoundError("Entity not found")
	}
	return ent, nil
}

// parseID maps a malformed id segment to NOT_FOUND: no record can have it.
func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, NotFoundError("Record not found")
	}
	return id, nil
}

func actor(c *fiber.Ctx) string {
	user, _ := c.Locals("user").(*schema.UserContext)
	if user == nil {
		return ""
	}
	return user.ID
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}
