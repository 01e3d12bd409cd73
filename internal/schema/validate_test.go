package schema

import (
	"strings"
	"testing"
	"time"
)

func inventoryPayload() map[string]any {
	return map[string]any{
		"sku":         "WID-1",
		"name":        "Widget",
		"quantity":    float64(10),
		"price":       9.99,
		"category_id": float64(1),
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	ent := NewRegistry().Resolve("inventory")

	payload := inventoryPayload()
	payload["quantity"] = float64(-1)
	payload["price"] = float64(-5)

	_, errs := Validate(ent, payload)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	joined := strings.Join(errs, "; ")
	if !strings.Contains(joined, `"quantity"`) || !strings.Contains(joined, `"price"`) {
		t.Errorf("expected both quantity and price violations, got: %s", joined)
	}
}

func TestValidate_Normalizes(t *testing.T) {
	ent := NewRegistry().Resolve("inventory")

	fields, errs := Validate(ent, inventoryPayload())
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got, ok := fields["quantity"].(int64); !ok || got != 10 {
		t.Errorf("quantity = %v (%T), want int64 10", fields["quantity"], fields["quantity"])
	}
	if got, ok := fields["price"].(float64); !ok || got != 9.99 {
		t.Errorf("price = %v, want 9.99", fields["price"])
	}
}

func TestValidate_RequiredAndUnknown(t *testing.T) {
	ent := NewRegistry().Resolve("category")

	_, errs := Validate(ent, map[string]any{"color": "red"})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0] != `"name" is required` {
		t.Errorf("unexpected message: %s", errs[0])
	}
	if errs[1] != `"color" is not allowed` {
		t.Errorf("unexpected message: %s", errs[1])
	}
}

func TestValidate_EmailFormat(t *testing.T) {
	ent := NewRegistry().Resolve("customer")

	payload := map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "not-an-email",
	}
	_, errs := Validate(ent, payload)
	if len(errs) != 1 || !strings.Contains(errs[0], "valid email") {
		t.Fatalf("expected email violation, got %v", errs)
	}

	payload["email"] = "ada@example.com"
	if _, errs := Validate(ent, payload); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidate_Enum(t *testing.T) {
	ent := NewRegistry().Resolve("supporttickets")

	payload := map[string]any{
		"customer_id": float64(1),
		"subject":     "Broken widget",
		"status":      "escalated",
	}
	_, errs := Validate(ent, payload)
	if len(errs) != 1 || !strings.Contains(errs[0], "must be one of") {
		t.Fatalf("expected enum violation, got %v", errs)
	}

	payload["status"] = "open"
	if _, errs := Validate(ent, payload); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidate_Date(t *testing.T) {
	ent := NewRegistry().Resolve("sales")

	payload := map[string]any{
		"customer_id":  float64(1),
		"sale_date":    "2026-08-30",
		"total_amount": 42.5,
	}
	fields, errs := Validate(ent, payload)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if _, ok := fields["sale_date"].(time.Time); !ok {
		t.Errorf("sale_date = %T, want time.Time", fields["sale_date"])
	}

	payload["sale_date"] = "yesterday"
	if _, errs := Validate(ent, payload); len(errs) != 1 {
		t.Fatalf("expected date violation, got %v", errs)
	}
}

func TestValidate_MaxLen(t *testing.T) {
	ent := NewRegistry().Resolve("categories")

	_, errs := Validate(ent, map[string]any{"name": strings.Repeat("x", 256)})
	if len(errs) != 1 || !strings.Contains(errs[0], "255") {
		t.Fatalf("expected length violation, got %v", errs)
	}
}

func TestValidate_InternalEntityAcceptsAnything(t *testing.T) {
	ent := NewRegistry().Resolve("auditlog")

	payload := map[string]any{"whatever": true}
	fields, errs := Validate(ent, payload)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if fields["whatever"] != true {
		t.Error("internal entity payload should pass through unchanged")
	}
}
