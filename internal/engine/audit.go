package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"dataservice/internal/store"
)

const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionImport = "IMPORT"
	ActionExport = "EXPORT"
)

// maxDetailsBytes bounds the serialized details blob stored per audit row.
const maxDetailsBytes = 65535

// AuditRecord describes one mutation attempt's outcome.
type AuditRecord struct {
	Entity      string
	EntityID    int64 // 0 for operations without a natural subject id
	Action      string
	PerformedBy string
	RequestID   string
	Details     any
}

// Recorder appends audit rows and console-logs every audit event. When
// persistence is disabled it still logs to the console.
type Recorder struct {
	dialect store.Dialect
	persist bool
	log     zerolog.Logger
}

func NewRecorder(dialect store.Dialect, persist bool, log zerolog.Logger) *Recorder {
	return &Recorder{dialect: dialect, persist: persist, log: log}
}

// Record writes one audit row through q. Callers on the write path pass
// their open transaction so the mutation and its audit row commit together
// or not at all.
func (r *Recorder) Record(ctx context.Context, q store.Querier, rec AuditRecord) error {
	if rec.PerformedBy == "" {
		rec.PerformedBy = "system"
	}

	if r.persist {
		pb := r.dialect.NewParamBuilder()
		sql := fmt.Sprintf(
			"INSERT INTO audit_log (entity, entity_id, action, performed_by, details, request_id) VALUES (%s, %s, %s, %s, %s, %s)",
			pb.Add(rec.Entity), pb.Add(rec.EntityID), pb.Add(rec.Action),
			pb.Add(rec.PerformedBy), pb.Add(serializeDetails(rec.Details)), pb.Add(rec.RequestID))
		if _, err := store.Exec(ctx, q, sql, pb.Params()...); err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}
	}

	r.log.Info().
		Str("action", rec.Action).
		Str("entity", rec.Entity).
		Int64("entity_id", rec.EntityID).
		Str("performed_by", rec.PerformedBy).
		Str("request_id", rec.RequestID).
		Msg("audit")
	return nil
}

// TryRecord is the read-path variant: an audit failure is logged and
// swallowed so it cannot fail the request.
func (r *Recorder) TryRecord(ctx context.Context, q store.Querier, rec AuditRecord) {
	if err := r.Record(ctx, q, rec); err != nil {
		r.log.Error().Err(err).
			Str("action", rec.Action).
			Str("entity", rec.Entity).
			Msg("failed to write audit log")
	}
}

func serializeDetails(details any) any {
	if details == nil {
		return nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	if len(b) > maxDetailsBytes {
		b = b[:maxDetailsBytes]
	}
	return string(b)
}
