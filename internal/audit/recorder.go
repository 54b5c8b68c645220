// Package audit writes append-only before/after snapshots for every
// mutation to an audited table. A record is always written inside the same
// transaction as the mutation it describes: if the transaction aborts,
// neither the mutation nor the record persist.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Recorder appends audit rows. It never updates or deletes them.
type Recorder struct {
	logger *slog.Logger
}

func NewRecorder(log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{logger: log.With(slog.String("service", "audit"))}
}

// Record writes one audit row on tx. Old and new row images follow the
// firing rules: INSERT carries only newRow, DELETE only oldRow, UPDATE
// both. Images must be the actual row structs read back from the database,
// not request payloads.
func (r *Recorder) Record(ctx context.Context, tx pgx.Tx, table string, recordID pgtype.UUID, op Operation, oldRow, newRow any) error {
	var oldData, newData []byte
	var err error

	switch op {
	case OpInsert:
		if newRow == nil {
			return fmt.Errorf("audit %s on %s: new row image is required", op, table)
		}
		oldRow = nil
	case OpDelete:
		if oldRow == nil {
			return fmt.Errorf("audit %s on %s: old row image is required", op, table)
		}
		newRow = nil
	case OpUpdate:
		if oldRow == nil || newRow == nil {
			return fmt.Errorf("audit %s on %s: both row images are required", op, table)
		}
	default:
		return fmt.Errorf("audit on %s: unknown operation %q", table, op)
	}

	if oldRow != nil {
		if oldData, err = json.Marshal(oldRow); err != nil {
			return fmt.Errorf("encode old row image: %w", err)
		}
	}
	if newRow != nil {
		if newData, err = json.Marshal(newRow); err != nil {
			return fmt.Errorf("encode new row image: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO audit_records (table_name, record_id, operation, old_data, new_data)
		 VALUES ($1, $2, $3, $4, $5)`,
		table, recordID, string(op), oldData, newData,
	)
	if err != nil {
		return fmt.Errorf("write audit record for %s: %w", table, err)
	}
	return nil
}
