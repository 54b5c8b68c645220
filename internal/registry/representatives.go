package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/associahq/associa/internal/audit"
	"github.com/associahq/associa/internal/db"
)

const representativeColumns = `id::text, member_id::text, full_name, cpf, created_at, updated_at`

func (s *Store) ListRepresentatives(ctx context.Context, memberID string) ([]LegalRepresentative, error) {
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+representativeColumns+` FROM legal_representatives
		 WHERE member_id = $1 ORDER BY created_at`, pgID)
	if err != nil {
		return nil, fmt.Errorf("query representatives: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[LegalRepresentative])
	if err != nil {
		return nil, fmt.Errorf("scan representatives: %w", err)
	}
	return items, nil
}

func (s *Store) GetRepresentative(ctx context.Context, repID string) (LegalRepresentative, error) {
	pgID, err := db.ParseUUID(repID)
	if err != nil {
		return LegalRepresentative{}, ErrNotFound
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+representativeColumns+` FROM legal_representatives WHERE id = $1`, pgID)
	if err != nil {
		return LegalRepresentative{}, fmt.Errorf("query representative: %w", err)
	}
	rep, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[LegalRepresentative])
	if errors.Is(err, pgx.ErrNoRows) {
		return LegalRepresentative{}, ErrNotFound
	}
	if err != nil {
		return LegalRepresentative{}, fmt.Errorf("scan representative: %w", err)
	}
	return rep, nil
}

// CreateRepresentative inserts a representative for the member. CPF must
// already be canonical.
func (s *Store) CreateRepresentative(ctx context.Context, memberID, fullName, cpf string) (LegalRepresentative, error) {
	pgMemberID, err := db.ParseUUID(memberID)
	if err != nil {
		return LegalRepresentative{}, ErrNotFound
	}
	var created LegalRepresentative
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM legal_representatives WHERE member_id = $1 AND cpf = $2)`,
			pgMemberID, cpf).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check duplicate representative: %w", err)
		}
		if exists {
			return ErrDuplicate
		}

		rows, err := tx.Query(ctx,
			`INSERT INTO legal_representatives (member_id, full_name, cpf)
			 VALUES ($1, $2, $3)
			 RETURNING `+representativeColumns, pgMemberID, fullName, cpf)
		if err != nil {
			return fmt.Errorf("insert representative: %w", err)
		}
		created, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[LegalRepresentative])
		if err != nil {
			return fmt.Errorf("scan inserted representative: %w", err)
		}
		createdID, err := db.ParseUUID(created.ID)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "legal_representatives", createdID, audit.OpInsert, nil, created)
	})
	if err != nil {
		return LegalRepresentative{}, err
	}
	return created, nil
}

func (s *Store) UpdateRepresentative(ctx context.Context, repID, fullName, cpf string) (LegalRepresentative, error) {
	pgID, err := db.ParseUUID(repID)
	if err != nil {
		return LegalRepresentative{}, ErrNotFound
	}
	var updated LegalRepresentative
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+representativeColumns+` FROM legal_representatives WHERE id = $1 FOR UPDATE`, pgID)
		if err != nil {
			return fmt.Errorf("lock representative: %w", err)
		}
		old, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[LegalRepresentative])
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("scan representative: %w", err)
		}

		rows, err = tx.Query(ctx,
			`UPDATE legal_representatives SET full_name = $2, cpf = $3, updated_at = now()
			 WHERE id = $1 RETURNING `+representativeColumns, pgID, fullName, cpf)
		if err != nil {
			return fmt.Errorf("update representative: %w", err)
		}
		updated, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[LegalRepresentative])
		if err != nil {
			return fmt.Errorf("scan updated representative: %w", err)
		}
		return s.audit.Record(ctx, tx, "legal_representatives", pgID, audit.OpUpdate, old, updated)
	})
	if err != nil {
		return LegalRepresentative{}, err
	}
	return updated, nil
}

// DeleteRepresentative removes the representative row and its contact
// channels. The channels are deleted explicitly, not left to the cascade,
// so each one gets its own audit row in the same transaction.
func (s *Store) DeleteRepresentative(ctx context.Context, repID string) error {
	pgID, err := db.ParseUUID(repID)
	if err != nil {
		return ErrNotFound
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`DELETE FROM contact_channels WHERE representative_id = $1 RETURNING `+channelColumns, pgID)
		if err != nil {
			return fmt.Errorf("delete representative channels: %w", err)
		}
		channels, err := pgx.CollectRows(rows, pgx.RowToStructByName[ContactChannel])
		if err != nil {
			return fmt.Errorf("scan deleted channels: %w", err)
		}
		for _, channel := range channels {
			channelID, err := db.ParseUUID(channel.ID)
			if err != nil {
				return err
			}
			if err := s.audit.Record(ctx, tx, "contact_channels", channelID, audit.OpDelete, channel, nil); err != nil {
				return err
			}
		}

		rows, err = tx.Query(ctx,
			`DELETE FROM legal_representatives WHERE id = $1 RETURNING `+representativeColumns, pgID)
		if err != nil {
			return fmt.Errorf("delete representative: %w", err)
		}
		old, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[LegalRepresentative])
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("scan deleted representative: %w", err)
		}
		return s.audit.Record(ctx, tx, "legal_representatives", pgID, audit.OpDelete, old, nil)
	})
}
