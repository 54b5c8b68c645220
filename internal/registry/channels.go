package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/associahq/associa/internal/audit"
	"github.com/associahq/associa/internal/db"
)

const channelColumns = `id::text, COALESCE(member_id::text, '') AS member_id,
	COALESCE(representative_id::text, '') AS representative_id,
	kind, value, active, created_at, updated_at`

// ChannelOwner names the single owning row of a contact channel: exactly
// one of MemberID or RepresentativeID is set.
type ChannelOwner struct {
	MemberID         string
	RepresentativeID string
}

func (o ChannelOwner) ids() (pgtype.UUID, pgtype.UUID, error) {
	if (o.MemberID == "") == (o.RepresentativeID == "") {
		return pgtype.UUID{}, pgtype.UUID{}, fmt.Errorf("channel owner must be exactly one of member or representative")
	}
	if o.MemberID != "" {
		id, err := db.ParseUUID(o.MemberID)
		return id, pgtype.UUID{}, err
	}
	id, err := db.ParseUUID(o.RepresentativeID)
	return pgtype.UUID{}, id, err
}

func (s *Store) ListPhoneChannels(ctx context.Context, memberID string) ([]ContactChannel, error) {
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM contact_channels
		 WHERE member_id = $1 AND kind = $2 AND active ORDER BY created_at`,
		pgID, ChannelKindPhone)
	if err != nil {
		return nil, fmt.Errorf("query phone channels: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[ContactChannel])
	if err != nil {
		return nil, fmt.Errorf("scan phone channels: %w", err)
	}
	return items, nil
}

// FindActivePhoneChannels returns every active phone channel whose stored
// canonical value equals the given one. The caller decides what more than
// one match means; this query never picks.
func (s *Store) FindActivePhoneChannels(ctx context.Context, canonicalValue string) ([]ContactChannel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM contact_channels
		 WHERE kind = $1 AND value = $2 AND active ORDER BY created_at`,
		ChannelKindPhone, canonicalValue)
	if err != nil {
		return nil, fmt.Errorf("query channels by value: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[ContactChannel])
	if err != nil {
		return nil, fmt.Errorf("scan channels: %w", err)
	}
	return items, nil
}

// CreatePhoneChannel inserts an active phone channel for the owner. The
// value must already be canonical. An active channel with the same owner
// and value is a duplicate.
func (s *Store) CreatePhoneChannel(ctx context.Context, owner ChannelOwner, canonicalValue string) (ContactChannel, error) {
	memberID, repID, err := owner.ids()
	if err != nil {
		return ContactChannel{}, err
	}
	var created ContactChannel
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (
			   SELECT 1 FROM contact_channels
			   WHERE kind = $1 AND value = $2 AND active
			     AND member_id IS NOT DISTINCT FROM $3
			     AND representative_id IS NOT DISTINCT FROM $4)`,
			ChannelKindPhone, canonicalValue, memberID, repID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check duplicate channel: %w", err)
		}
		if exists {
			return ErrDuplicate
		}

		rows, err := tx.Query(ctx,
			`INSERT INTO contact_channels (member_id, representative_id, kind, value)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+channelColumns,
			memberID, repID, ChannelKindPhone, canonicalValue)
		if err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
		created, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[ContactChannel])
		if err != nil {
			return fmt.Errorf("scan inserted channel: %w", err)
		}
		createdID, err := db.ParseUUID(created.ID)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "contact_channels", createdID, audit.OpInsert, nil, created)
	})
	if err != nil {
		return ContactChannel{}, err
	}
	return created, nil
}

// ReplacePhoneChannel sets the owner's phone to the canonical value: the
// existing active phone row is updated in place when present, otherwise a
// new row is inserted. Used by the server-to-server update-data path.
func (s *Store) ReplacePhoneChannel(ctx context.Context, owner ChannelOwner, canonicalValue string) (ContactChannel, error) {
	memberID, repID, err := owner.ids()
	if err != nil {
		return ContactChannel{}, err
	}
	var result ContactChannel
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+channelColumns+` FROM contact_channels
			 WHERE kind = $1 AND active
			   AND member_id IS NOT DISTINCT FROM $2
			   AND representative_id IS NOT DISTINCT FROM $3
			 ORDER BY created_at LIMIT 1 FOR UPDATE`,
			ChannelKindPhone, memberID, repID)
		if err != nil {
			return fmt.Errorf("lock phone channel: %w", err)
		}
		old, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[ContactChannel])
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			rows, err := tx.Query(ctx,
				`INSERT INTO contact_channels (member_id, representative_id, kind, value)
				 VALUES ($1, $2, $3, $4)
				 RETURNING `+channelColumns,
				memberID, repID, ChannelKindPhone, canonicalValue)
			if err != nil {
				return fmt.Errorf("insert channel: %w", err)
			}
			result, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[ContactChannel])
			if err != nil {
				return fmt.Errorf("scan inserted channel: %w", err)
			}
			resultID, err := db.ParseUUID(result.ID)
			if err != nil {
				return err
			}
			return s.audit.Record(ctx, tx, "contact_channels", resultID, audit.OpInsert, nil, result)
		case err != nil:
			return fmt.Errorf("scan channel: %w", err)
		}

		oldID, err := db.ParseUUID(old.ID)
		if err != nil {
			return err
		}
		rows, err = tx.Query(ctx,
			`UPDATE contact_channels SET value = $2, updated_at = now() WHERE id = $1
			 RETURNING `+channelColumns, oldID, canonicalValue)
		if err != nil {
			return fmt.Errorf("update channel: %w", err)
		}
		result, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[ContactChannel])
		if err != nil {
			return fmt.Errorf("scan updated channel: %w", err)
		}
		return s.audit.Record(ctx, tx, "contact_channels", oldID, audit.OpUpdate, old, result)
	})
	if err != nil {
		return ContactChannel{}, err
	}
	return result, nil
}

func (s *Store) DeleteChannel(ctx context.Context, channelID string) error {
	pgID, err := db.ParseUUID(channelID)
	if err != nil {
		return ErrNotFound
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`DELETE FROM contact_channels WHERE id = $1 RETURNING `+channelColumns, pgID)
		if err != nil {
			return fmt.Errorf("delete channel: %w", err)
		}
		old, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[ContactChannel])
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("scan deleted channel: %w", err)
		}
		return s.audit.Record(ctx, tx, "contact_channels", pgID, audit.OpDelete, old, nil)
	})
}
