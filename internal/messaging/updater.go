package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/associahq/associa/internal/identifier"
	"github.com/associahq/associa/internal/identity"
	"github.com/associahq/associa/internal/registry"
)

const birthDateLayout = "2006-01-02"

// UpdateResolver checks claimed attributes against the registry.
type UpdateResolver interface {
	ResolveForUpdate(ctx context.Context, claim identity.UpdateClaim) (identity.Resolution, error)
}

// ChannelWriter replaces a contact channel's phone value.
type ChannelWriter interface {
	ReplacePhoneChannel(ctx context.Context, owner registry.ChannelOwner, canonicalValue string) (registry.ContactChannel, error)
}

// Updater serves the server-to-server update-data path: a caller that
// authenticated with the static key asserts registration id, CPF and birth
// date, and on a full match the stored phone is replaced with the
// submitted value's canonical form.
type Updater struct {
	resolver UpdateResolver
	channels ChannelWriter
	logger   *slog.Logger
}

func NewUpdater(log *slog.Logger, resolver UpdateResolver, channels ChannelWriter) *Updater {
	if log == nil {
		log = slog.Default()
	}
	return &Updater{
		resolver: resolver,
		channels: channels,
		logger:   log.With(slog.String("service", "messaging_updater")),
	}
}

// UpdateData validates the claim and stores the canonical phone. Returns
// the confirmation message for the caller's mode.
func (u *Updater) UpdateData(ctx context.Context, req UpdateDataRequest) (string, error) {
	claim := identity.UpdateClaim{
		RegistrationID:   req.RegistrationID,
		CPF:              req.CPF,
		IsRepresentative: req.IsRepresentative,
	}
	if !req.IsRepresentative {
		birthDate, err := time.Parse(birthDateLayout, req.BirthDate)
		if err != nil {
			return "", fmt.Errorf("parse birth date: %w", identifier.ErrInvalidFormat)
		}
		claim.BirthDate = birthDate
	}

	canonicalPhone, err := identifier.NormalizePhone(req.Phone)
	if err != nil {
		return "", err
	}

	resolution, err := u.resolver.ResolveForUpdate(ctx, claim)
	if err != nil {
		return "", err
	}

	owner := registry.ChannelOwner{MemberID: resolution.Member.ID}
	confirmation := "Dados do associado atualizados com sucesso."
	if resolution.Representative != nil {
		owner = registry.ChannelOwner{RepresentativeID: resolution.Representative.ID}
		confirmation = "Dados do representante legal atualizados com sucesso."
	}

	if _, err := u.channels.ReplacePhoneChannel(ctx, owner, canonicalPhone); err != nil {
		return "", fmt.Errorf("replace phone channel: %w", err)
	}

	u.logger.Info("member data updated",
		slog.String("member_id", resolution.Member.ID),
		slog.Bool("representative", resolution.Representative != nil),
	)
	return confirmation, nil
}
