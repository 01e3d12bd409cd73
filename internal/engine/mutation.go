package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/expr-lang/expr/vm"

	"dataservice/internal/schema"
	"dataservice/internal/store"
)

// listCap bounds list results; exportCap bounds export results.
const (
	listCap   = 500
	exportCap = 5000
)

// Engine performs every mutation inside a single transaction paired with its
// audit row: both commit together or neither does.
type Engine struct {
	store    *store.Store
	recorder *Recorder
}

func NewEngine(s *store.Store, recorder *Recorder) *Engine {
	return &Engine{store: s, recorder: recorder}
}

// Create inserts a validated record and its audit row, returning the
// persisted record.
func (e *Engine) Create(ctx context.Context, ent *schema.Entity, fields map[string]any, actor, requestID string) (map[string]any, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sql, params := BuildInsertSQL(e.store.Dialect, ent, fields)
	row, err := store.QueryRow(ctx, tx, sql, params...)
	if err != nil {
		return nil, mutationFailed("CREATE_FAILED", e.store.Dialect.MapError(err))
	}
	id := toInt64(row[ent.PrimaryKey.Field])

	err = e.recorder.Record(ctx, tx, AuditRecord{
		Entity:      ent.Name,
		EntityID:    id,
		Action:      ActionCreate,
		PerformedBy: actor,
		RequestID:   requestID,
		Details:     map[string]any{"body": fields},
	})
	if err != nil {
		return nil, mutationFailed("CREATE_FAILED", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mutationFailed("CREATE_FAILED", err)
	}
	return row, nil
}

// Update merges the validated fields into an existing record. The caller has
// already confirmed the record exists; a vanished row still maps to NOT_FOUND.
func (e *Engine) Update(ctx context.Context, ent *schema.Entity, id int64, fields map[string]any, actor, requestID string) (map[string]any, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sql, params := BuildUpdateSQL(e.store.Dialect, ent, id, fields)
	row, err := store.QueryRow(ctx, tx, sql, params...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError("Record not found")
		}
		return nil, mutationFailed("UPDATE_FAILED", e.store.Dialect.MapError(err))
	}

	err = e.recorder.Record(ctx, tx, AuditRecord{
		Entity:      ent.Name,
		EntityID:    id,
		Action:      ActionUpdate,
		PerformedBy: actor,
		RequestID:   requestID,
		Details:     map[string]any{"body": fields},
	})
	if err != nil {
		return nil, mutationFailed("UPDATE_FAILED", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mutationFailed("UPDATE_FAILED", err)
	}
	return row, nil
}

// Delete removes a record and writes its audit row in the same transaction.
func (e *Engine) Delete(ctx context.Context, ent *schema.Entity, id int64, actor, requestID string) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sql, params := BuildDeleteSQL(e.store.Dialect, ent, id)
	affected, err := store.Exec(ctx, tx, sql, params...)
	if err != nil {
		return mutationFailed("DELETE_FAILED", e.store.Dialect.MapError(err))
	}
	if affected == 0 {
		return NotFoundError("Record not found")
	}

	err = e.recorder.Record(ctx, tx, AuditRecord{
		Entity:      ent.Name,
		EntityID:    id,
		Action:      ActionDelete,
		PerformedBy: actor,
		RequestID:   requestID,
		Details:     map[string]any{},
	})
	if err != nil {
		return mutationFailed("DELETE_FAILED", err)
	}

	if err := tx.Commit(); err != nil {
		return mutationFailed("DELETE_FAILED", err)
	}
	return nil
}

// Import bulk-inserts records into the target entity, writing one
// migration-tracking row per inserted record. The whole batch is a single
// transaction; partial success is not distinguished.
func (e *Engine) Import(ctx context.Context, target *schema.Entity, source string, records []map[string]any, actor, requestID string) (int, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	count := 0
	for _, record := range records {
		fields := writableSubset(target, record)
		sql, params := BuildInsertSQL(e.store.Dialect, target, fields)
		row, err := store.QueryRow(ctx, tx, sql, params...)
		if err != nil {
			return 0, mutationFailed("MIGRATION_FAILED", e.store.Dialect.MapError(err))
		}

		newID := toInt64(row[target.PrimaryKey.Field])
		if err := e.trackMigration(ctx, tx, target.Name, legacyID(record), newID); err != nil {
			return 0, mutationFailed("MIGRATION_FAILED", err)
		}
		count++
	}

	err = e.recorder.Record(ctx, tx, AuditRecord{
		Entity:      "migration",
		EntityID:    0,
		Action:      ActionImport,
		PerformedBy: actor,
		RequestID:   requestID,
		Details:     map[string]any{"source": source, "target": target.Name, "count": count},
	})
	if err != nil {
		return 0, mutationFailed("MIGRATION_FAILED", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, mutationFailed("MIGRATION_FAILED", err)
	}
	return count, nil
}

// Export reads rows matching the equality filters, optionally narrowed by a
// compiled row filter expression. Read-only: no transaction. The audit row is
// best-effort and cannot fail the export.
func (e *Engine) Export(ctx context.Context, ent *schema.Entity, where map[string]any, filter *vm.Program, actor, requestID string) ([]map[string]any, error) {
	sql, params := BuildSelectSQL(e.store.Dialect, ent, where, exportCap)
	rows, err := store.QueryRows(ctx, e.store.DB, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", ent.Name, err)
	}

	if filter != nil {
		kept := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			out, err := vm.Run(filter, row)
			if err != nil {
				return nil, ValidationMessage(fmt.Sprintf("filter expression failed: %v", err))
			}
			if keep, ok := out.(bool); ok && keep {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	e.recorder.TryRecord(ctx, e.store.DB, AuditRecord{
		Entity:      "migration",
		EntityID:    0,
		Action:      ActionExport,
		PerformedBy: actor,
		RequestID:   requestID,
		Details:     map[string]any{"entity": ent.Name, "count": len(rows)},
	})

	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

func (e *Engine) trackMigration(ctx context.Context, q store.Querier, entity, legacyID string, newID int64) error {
	pb := e.store.Dialect.NewParamBuilder()
	sql := fmt.Sprintf(
		"INSERT INTO migration_tracking (legacy_id, new_id, entity, status) VALUES (%s, %s, %s, %s)",
		pb.Add(legacyID), pb.Add(newID), pb.Add(entity), pb.Add("completed"))
	if _, err := store.Exec(ctx, q, sql, pb.Params()...); err != nil {
		return fmt.Errorf("track migration: %w", err)
	}
	return nil
}

// writableSubset keeps only columns the target entity can accept; import
// payloads carry extra keys like legacy_id.
func writableSubset(ent *schema.Entity, record map[string]any) map[string]any {
	fields := make(map[string]any, len(record))
	for _, f := range ent.WritableFields() {
		if v, ok := record[f.Name]; ok {
			fields[f.Name] = v
		}
	}
	return fields
}

func legacyID(record map[string]any) string {
	if v, ok := record["legacy_id"]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	if v, ok := record["id"]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return "unknown"
}
