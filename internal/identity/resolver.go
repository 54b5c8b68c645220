// Package identity maps untrusted external identifiers (phone numbers,
// claimed registration attributes) to registry rows.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/associahq/associa/internal/identifier"
	"github.com/associahq/associa/internal/registry"
)

var (
	// ErrNotFound means no active channel matches the phone. Surfaced as a
	// 404-equivalent to the messaging provider.
	ErrNotFound = errors.New("member not found")
	// ErrAmbiguous means more than one active channel carries the same
	// canonical value. That is a data-integrity fault, never resolved by
	// picking a row.
	ErrAmbiguous = errors.New("ambiguous phone match")
	// ErrValidationFailed means the claimed attributes do not match the
	// resolved member record.
	ErrValidationFailed = errors.New("claimed attributes do not match member record")
)

// RegistryReader is the slice of the registry store the resolver needs.
type RegistryReader interface {
	FindActivePhoneChannels(ctx context.Context, canonicalValue string) ([]registry.ContactChannel, error)
	GetMember(ctx context.Context, memberID string) (registry.Member, error)
	GetMemberByRegistrationID(ctx context.Context, registrationID string) (registry.Member, error)
	GetRepresentative(ctx context.Context, repID string) (registry.LegalRepresentative, error)
	ListRepresentatives(ctx context.Context, memberID string) ([]registry.LegalRepresentative, error)
}

// Resolution is a resolved inbound correspondent. Representative is nil
// when the member's own channel matched; otherwise it names the
// representative whose channel matched and Member is the owning member.
type Resolution struct {
	Member         registry.Member
	Representative *registry.LegalRepresentative
	// CanonicalPhone is the normalized lookup value, when resolution came
	// from a phone.
	CanonicalPhone string
}

// DisplayName returns the name of whoever is actually typing.
func (r Resolution) DisplayName() string {
	if r.Representative != nil {
		return r.Representative.FullName
	}
	return r.Member.FullName
}

// UpdateClaim carries the attributes a server-to-server caller asserts
// about a member before an update is allowed.
type UpdateClaim struct {
	RegistrationID   string
	CPF              string
	BirthDate        time.Time
	IsRepresentative bool
}

type Resolver struct {
	store  RegistryReader
	logger *slog.Logger
}

func NewResolver(log *slog.Logger, store RegistryReader) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store:  store,
		logger: log.With(slog.String("service", "identity")),
	}
}

// ResolveByPhone normalizes the raw phone and maps it to its single owning
// member or representative. Results are never cached: channel ownership
// can change between messages.
func (r *Resolver) ResolveByPhone(ctx context.Context, rawPhone string) (Resolution, error) {
	canonical, err := identifier.NormalizePhone(rawPhone)
	if err != nil {
		return Resolution{}, err
	}

	channels, err := r.store.FindActivePhoneChannels(ctx, canonical)
	if err != nil {
		return Resolution{}, fmt.Errorf("find channels: %w", err)
	}
	switch len(channels) {
	case 0:
		return Resolution{}, ErrNotFound
	case 1:
	default:
		ids := make([]string, 0, len(channels))
		for _, ch := range channels {
			ids = append(ids, ch.ID)
		}
		r.logger.Error("duplicate active channels for canonical phone",
			slog.String("canonical_value", canonical),
			slog.String("channel_ids", strings.Join(ids, ",")),
		)
		return Resolution{}, ErrAmbiguous
	}

	channel := channels[0]
	if channel.RepresentativeID != "" {
		rep, err := r.store.GetRepresentative(ctx, channel.RepresentativeID)
		if err != nil {
			return Resolution{}, fmt.Errorf("load representative: %w", err)
		}
		member, err := r.store.GetMember(ctx, rep.MemberID)
		if err != nil {
			return Resolution{}, fmt.Errorf("load represented member: %w", err)
		}
		return Resolution{Member: member, Representative: &rep, CanonicalPhone: canonical}, nil
	}

	member, err := r.store.GetMember(ctx, channel.MemberID)
	if err != nil {
		return Resolution{}, fmt.Errorf("load member: %w", err)
	}
	return Resolution{Member: member, CanonicalPhone: canonical}, nil
}

// ResolveForUpdate resolves the claimed registration id and checks the
// claimed CPF (and birth date, unless the caller acts as a representative)
// against the resolved row. A resolved row with mismatched attributes is
// ErrValidationFailed, not ErrNotFound.
func (r *Resolver) ResolveForUpdate(ctx context.Context, claim UpdateClaim) (Resolution, error) {
	member, err := r.store.GetMemberByRegistrationID(ctx, strings.TrimSpace(claim.RegistrationID))
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return Resolution{}, ErrNotFound
		}
		return Resolution{}, fmt.Errorf("resolve registration id: %w", err)
	}

	claimedCPF, err := identifier.NormalizeCPF(claim.CPF)
	if err != nil {
		return Resolution{}, err
	}

	if claim.IsRepresentative {
		reps, err := r.store.ListRepresentatives(ctx, member.ID)
		if err != nil {
			return Resolution{}, fmt.Errorf("list representatives: %w", err)
		}
		for i := range reps {
			if reps[i].CPF == claimedCPF {
				return Resolution{Member: member, Representative: &reps[i]}, nil
			}
		}
		return Resolution{}, ErrValidationFailed
	}

	if member.CPF != claimedCPF {
		return Resolution{}, ErrValidationFailed
	}
	if !sameDate(member.BirthDate, claim.BirthDate) {
		return Resolution{}, ErrValidationFailed
	}
	return Resolution{Member: member}, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
