package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/associahq/associa/internal/db"
)

type row struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// captureTx records the insert the recorder issues so tests can inspect
// the row images it writes.
type captureTx struct {
	pgx.Tx
	sql  string
	args []any
}

func (t *captureTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.sql = sql
	t.args = args
	return pgconn.CommandTag{}, nil
}

func TestRecordRejectsMissingImages(t *testing.T) {
	recorder := NewRecorder(nil)
	id := db.NewUUID()

	tests := []struct {
		name   string
		op     Operation
		oldRow any
		newRow any
	}{
		{name: "insert without new image", op: OpInsert},
		{name: "delete without old image", op: OpDelete},
		{name: "update without old image", op: OpUpdate, newRow: row{ID: "1"}},
		{name: "update without new image", op: OpUpdate, oldRow: row{ID: "1"}},
		{name: "unknown operation", op: Operation("TRUNCATE"), oldRow: row{ID: "1"}, newRow: row{ID: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Firing-rule violations fail before the transaction is touched.
			err := recorder.Record(context.Background(), nil, "members", id, tt.op, tt.oldRow, tt.newRow)
			assert.Error(t, err)
		})
	}
}

func TestRecordWritesRowImages(t *testing.T) {
	recorder := NewRecorder(nil)
	id := db.NewUUID()
	old := row{ID: "1", Name: "before"}
	updated := row{ID: "1", Name: "after"}

	tests := []struct {
		name    string
		op      Operation
		oldRow  any
		newRow  any
		wantOld *row
		wantNew *row
	}{
		{name: "insert carries only new image", op: OpInsert, newRow: updated, wantNew: &updated},
		{name: "delete carries only old image", op: OpDelete, oldRow: old, wantOld: &old},
		{name: "update carries both images", op: OpUpdate, oldRow: old, newRow: updated, wantOld: &old, wantNew: &updated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &captureTx{}
			err := recorder.Record(context.Background(), tx, "members", id, tt.op, tt.oldRow, tt.newRow)
			require.NoError(t, err)

			assert.Contains(t, tx.sql, "INSERT INTO audit_records")
			require.Len(t, tx.args, 5)
			assert.Equal(t, "members", tx.args[0])
			assert.Equal(t, id, tx.args[1].(pgtype.UUID))
			assert.Equal(t, string(tt.op), tx.args[2])

			assertImage(t, tx.args[3], tt.wantOld)
			assertImage(t, tx.args[4], tt.wantNew)
		})
	}
}

func assertImage(t *testing.T, arg any, want *row) {
	t.Helper()
	data, ok := arg.([]byte)
	require.True(t, ok)
	if want == nil {
		assert.Nil(t, data)
		return
	}
	var got row
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *want, got)
}
