package eligibility

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/associahq/associa/internal/registry"
)

type fakePayments struct {
	payment registry.MembershipPayment
	err     error
}

func (f *fakePayments) LatestPayment(context.Context, string) (registry.MembershipPayment, error) {
	return f.payment, f.err
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
}

func newTestPolicy(payments PaymentReader) *Policy {
	p := NewPolicy(nil, payments)
	p.now = fixedNow
	return p
}

func TestCheckActiveMember(t *testing.T) {
	policy := newTestPolicy(&fakePayments{
		payment: registry.MembershipPayment{ExpirationDate: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)},
	})

	err := policy.Check(context.Background(), registry.Member{ID: "m-1"})
	assert.NoError(t, err)
}

func TestCheckExpiresToday(t *testing.T) {
	// An expiration date equal to today is still active: access lapses the
	// day after.
	policy := newTestPolicy(&fakePayments{
		payment: registry.MembershipPayment{ExpirationDate: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)},
	})

	err := policy.Check(context.Background(), registry.Member{ID: "m-1"})
	assert.NoError(t, err)
}

func TestCheckLapsedPayment(t *testing.T) {
	policy := newTestPolicy(&fakePayments{
		payment: registry.MembershipPayment{ExpirationDate: time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)},
	})

	err := policy.Check(context.Background(), registry.Member{ID: "m-1"})
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestCheckNoPaymentHistory(t *testing.T) {
	policy := newTestPolicy(&fakePayments{err: registry.ErrNoPayment})

	err := policy.Check(context.Background(), registry.Member{ID: "m-1"})
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestCheckStandingFlags(t *testing.T) {
	// A terminal flag denies access before payments are even consulted.
	policy := newTestPolicy(&fakePayments{err: assert.AnError})

	tests := []struct {
		name   string
		member registry.Member
	}{
		{name: "expelled", member: registry.Member{ID: "m-1", Expelled: true}},
		{name: "deceased", member: registry.Member{ID: "m-1", Deceased: true}},
		{name: "transferred", member: registry.Member{ID: "m-1", Transferred: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, policy.Check(context.Background(), tt.member), ErrNotActive)
		})
	}
}

func TestCheckStoreFailurePropagates(t *testing.T) {
	policy := newTestPolicy(&fakePayments{err: assert.AnError})

	err := policy.Check(context.Background(), registry.Member{ID: "m-1"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotActive)
}
