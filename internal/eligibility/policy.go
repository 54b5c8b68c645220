// Package eligibility decides whether a member's standing and payment
// status permit messaging-channel access.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/associahq/associa/internal/registry"
)

// ErrNotActive means the member exists but channel access is denied:
// lapsed payment or a terminal standing flag. Distinct from "not found" so
// callers can tell a wrong number from a lapsed membership.
var ErrNotActive = errors.New("member is not active")

// PaymentReader is the slice of the registry store the policy needs.
type PaymentReader interface {
	LatestPayment(ctx context.Context, memberID string) (registry.MembershipPayment, error)
}

type Policy struct {
	payments PaymentReader
	now      func() time.Time
	logger   *slog.Logger
}

func NewPolicy(log *slog.Logger, payments PaymentReader) *Policy {
	if log == nil {
		log = slog.Default()
	}
	return &Policy{
		payments: payments,
		now:      time.Now,
		logger:   log.With(slog.String("service", "eligibility")),
	}
}

// Check returns nil when the member may use the messaging channel. A
// representative inherits the eligibility of the member it represents, so
// callers always pass the owning member.
func (p *Policy) Check(ctx context.Context, member registry.Member) error {
	if member.Expelled || member.Deceased || member.Transferred {
		return ErrNotActive
	}

	payment, err := p.payments.LatestPayment(ctx, member.ID)
	if err != nil {
		if errors.Is(err, registry.ErrNoPayment) {
			return ErrNotActive
		}
		return fmt.Errorf("load latest payment: %w", err)
	}

	today := p.now().UTC().Truncate(24 * time.Hour)
	if payment.ExpirationDate.Before(today) {
		return ErrNotActive
	}
	return nil
}
