package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/associahq/associa/internal/audit"
	"github.com/associahq/associa/internal/db"
)

const addressColumns = `id::text, member_id::text, street, number, complement, district,
	city, state, postal_code, created_at, updated_at`

func (s *Store) ListAddresses(ctx context.Context, memberID string) ([]Address, error) {
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE member_id = $1 ORDER BY created_at`, pgID)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[Address])
	if err != nil {
		return nil, fmt.Errorf("scan addresses: %w", err)
	}
	return items, nil
}

func (s *Store) GetAddress(ctx context.Context, addressID string) (Address, error) {
	pgID, err := db.ParseUUID(addressID)
	if err != nil {
		return Address{}, ErrNotFound
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1`, pgID)
	if err != nil {
		return Address{}, fmt.Errorf("query address: %w", err)
	}
	address, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Address])
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, ErrNotFound
	}
	if err != nil {
		return Address{}, fmt.Errorf("scan address: %w", err)
	}
	return address, nil
}

func (s *Store) CreateAddress(ctx context.Context, memberID string, req CreateAddressRequest) (Address, error) {
	pgMemberID, err := db.ParseUUID(memberID)
	if err != nil {
		return Address{}, ErrNotFound
	}
	var created Address
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`INSERT INTO addresses (member_id, street, number, complement, district, city, state, postal_code)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+addressColumns,
			pgMemberID, req.Street, req.Number, req.Complement, req.District, req.City, req.State, req.PostalCode)
		if err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
		created, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[Address])
		if err != nil {
			return fmt.Errorf("scan inserted address: %w", err)
		}
		createdID, err := db.ParseUUID(created.ID)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "addresses", createdID, audit.OpInsert, nil, created)
	})
	if err != nil {
		return Address{}, err
	}
	return created, nil
}

func (s *Store) UpdateAddress(ctx context.Context, addressID string, req UpdateAddressRequest) (Address, error) {
	pgID, err := db.ParseUUID(addressID)
	if err != nil {
		return Address{}, ErrNotFound
	}
	var updated Address
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+addressColumns+` FROM addresses WHERE id = $1 FOR UPDATE`, pgID)
		if err != nil {
			return fmt.Errorf("lock address: %w", err)
		}
		old, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Address])
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("scan address: %w", err)
		}

		rows, err = tx.Query(ctx,
			`UPDATE addresses
			 SET street = $2, number = $3, complement = $4, district = $5,
			     city = $6, state = $7, postal_code = $8, updated_at = now()
			 WHERE id = $1
			 RETURNING `+addressColumns,
			pgID, req.Street, req.Number, req.Complement, req.District, req.City, req.State, req.PostalCode)
		if err != nil {
			return fmt.Errorf("update address: %w", err)
		}
		updated, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[Address])
		if err != nil {
			return fmt.Errorf("scan updated address: %w", err)
		}
		return s.audit.Record(ctx, tx, "addresses", pgID, audit.OpUpdate, old, updated)
	})
	if err != nil {
		return Address{}, err
	}
	return updated, nil
}

func (s *Store) DeleteAddress(ctx context.Context, addressID string) error {
	pgID, err := db.ParseUUID(addressID)
	if err != nil {
		return ErrNotFound
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`DELETE FROM addresses WHERE id = $1 RETURNING `+addressColumns, pgID)
		if err != nil {
			return fmt.Errorf("delete address: %w", err)
		}
		old, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Address])
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("scan deleted address: %w", err)
		}
		return s.audit.Record(ctx, tx, "addresses", pgID, audit.OpDelete, old, nil)
	})
}
