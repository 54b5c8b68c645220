// Package registry persists the membership registry: members, their
// addresses, contact channels, legal representatives and payments. Every
// mutation to an audited table runs in a transaction that also writes the
// matching audit record; a mutation can never commit without it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/associahq/associa/internal/audit"
	"github.com/associahq/associa/internal/db"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// DB is the slice of the connection pool the store needs; *pgxpool.Pool
// satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool   DB
	audit  *audit.Recorder
	logger *slog.Logger
}

func NewStore(log *slog.Logger, pool DB, recorder *audit.Recorder) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		audit:  recorder,
		logger: log.With(slog.String("service", "registry")),
	}
}

const memberColumns = `id::text, registration_id, full_name, cpf, birth_date, pronouns,
	expelled, deceased, transferred, joined_at, created_at, updated_at`

func (s *Store) GetMember(ctx context.Context, memberID string) (Member, error) {
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return Member{}, fmt.Errorf("%w: %s", ErrNotFound, "member")
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, pgID)
	if err != nil {
		return Member{}, fmt.Errorf("query member: %w", err)
	}
	member, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Member])
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	if err != nil {
		return Member{}, fmt.Errorf("scan member: %w", err)
	}
	return member, nil
}

func (s *Store) GetMemberByRegistrationID(ctx context.Context, registrationID string) (Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE registration_id = $1`, registrationID)
	if err != nil {
		return Member{}, fmt.Errorf("query member by registration id: %w", err)
	}
	member, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Member])
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	if err != nil {
		return Member{}, fmt.Errorf("scan member: %w", err)
	}
	return member, nil
}

// UpdatePronouns writes the member's pronouns, capturing before/after row
// images for the audit trail.
func (s *Store) UpdatePronouns(ctx context.Context, memberID, pronouns string) (Member, error) {
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return Member{}, ErrNotFound
	}
	var updated Member
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`, pgID)
		if err != nil {
			return fmt.Errorf("lock member: %w", err)
		}
		old, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Member])
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("scan member: %w", err)
		}

		rows, err = tx.Query(ctx,
			`UPDATE members SET pronouns = $2, updated_at = now() WHERE id = $1
			 RETURNING `+memberColumns, pgID, pronouns)
		if err != nil {
			return fmt.Errorf("update member pronouns: %w", err)
		}
		updated, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[Member])
		if err != nil {
			return fmt.Errorf("scan updated member: %w", err)
		}
		return s.audit.Record(ctx, tx, "members", pgID, audit.OpUpdate, old, updated)
	})
	if err != nil {
		return Member{}, err
	}
	return updated, nil
}
