package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/associahq/associa/internal/db"
)

// ErrNoPayment reports a member with no payment rows at all, which the
// eligibility policy treats the same as an expired one.
var ErrNoPayment = errors.New("no membership payment on record")

const paymentColumns = `id::text, member_id::text, payment_date, expiration_date, created_at, updated_at`

// LatestPayment returns the member's most recent payment: highest
// expiration date, ties broken by the latest payment date.
func (s *Store) LatestPayment(ctx context.Context, memberID string) (MembershipPayment, error) {
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return MembershipPayment{}, ErrNoPayment
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM membership_payments
		 WHERE member_id = $1
		 ORDER BY expiration_date DESC, payment_date DESC
		 LIMIT 1`, pgID)
	if err != nil {
		return MembershipPayment{}, fmt.Errorf("query latest payment: %w", err)
	}
	payment, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[MembershipPayment])
	if errors.Is(err, pgx.ErrNoRows) {
		return MembershipPayment{}, ErrNoPayment
	}
	if err != nil {
		return MembershipPayment{}, fmt.Errorf("scan payment: %w", err)
	}
	return payment, nil
}
