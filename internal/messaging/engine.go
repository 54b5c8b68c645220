// Package messaging is the inbound messaging session engine: it resolves
// webhook deliveries to a member, enforces eligibility, routes control
// commands and delegates everything else to the reasoning backend.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/associahq/associa/internal/assistant"
	"github.com/associahq/associa/internal/identity"
	"github.com/associahq/associa/internal/registry"
	"github.com/associahq/associa/internal/session"
)

// IdentityResolver resolves an inbound phone to a registry row.
type IdentityResolver interface {
	ResolveByPhone(ctx context.Context, rawPhone string) (identity.Resolution, error)
}

// EligibilityPolicy decides channel access for a resolved member.
type EligibilityPolicy interface {
	Check(ctx context.Context, member registry.Member) error
}

// SessionStore is the per-member conversation lifecycle.
type SessionStore interface {
	GetOrCreate(ctx context.Context, memberID string) (session.Session, error)
	Reset(ctx context.Context, memberID string) (session.Session, error)
}

// Delegate forwards a message to the reasoning backend.
type Delegate interface {
	Send(ctx context.Context, threadID string, member assistant.MemberContext, text string) (string, error)
}

type Engine struct {
	resolver   IdentityResolver
	policy     EligibilityPolicy
	sessions   SessionStore
	delegate   Delegate
	dispatcher Dispatcher
	logger     *slog.Logger

	resetCommand      string
	resetConfirmation string
	unavailableReply  string
}

func NewEngine(
	log *slog.Logger,
	resolver IdentityResolver,
	policy EligibilityPolicy,
	sessions SessionStore,
	delegate Delegate,
	dispatcher Dispatcher,
	resetCommand, resetConfirmation string,
) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(resetCommand) == "" {
		resetCommand = "reiniciar"
	}
	if strings.TrimSpace(resetConfirmation) == "" {
		resetConfirmation = "Conversa reiniciada."
	}
	return &Engine{
		resolver:          resolver,
		policy:            policy,
		sessions:          sessions,
		delegate:          delegate,
		dispatcher:        dispatcher,
		logger:            log.With(slog.String("service", "messaging")),
		resetCommand:      strings.ToLower(strings.TrimSpace(resetCommand)),
		resetConfirmation: resetConfirmation,
		unavailableReply:  "Não consegui responder agora. Tente novamente em alguns minutos.",
	}
}

// HandleInbound processes one webhook delivery end to end and returns the
// reply text for the provider's synchronous response. Terminal identity
// and eligibility failures propagate as identity.ErrNotFound /
// eligibility-policy errors for the handler to map onto status codes; a
// reasoning-backend outage does not, because the provider must still get a
// well-formed response instead of a retry storm.
func (e *Engine) HandleInbound(ctx context.Context, msg InboundMessage) (string, error) {
	resolution, err := e.resolver.ResolveByPhone(ctx, msg.SenderPhone())
	if err != nil {
		return "", err
	}
	if err := e.policy.Check(ctx, resolution.Member); err != nil {
		return "", err
	}

	log := e.logger.With(
		slog.String("member_id", resolution.Member.ID),
		slog.String("message_sid", msg.MessageSID),
	)

	// Control commands run only after resolution and eligibility: a
	// non-member can never trigger a reset or consume delegate quota.
	if e.isResetCommand(msg.Body) {
		if _, err := e.sessions.Reset(ctx, resolution.Member.ID); err != nil {
			return "", fmt.Errorf("reset session: %w", err)
		}
		log.Info("session reset by command")
		e.dispatch(ctx, resolution.CanonicalPhone, e.resetConfirmation, log)
		return e.resetConfirmation, nil
	}

	sess, err := e.sessions.GetOrCreate(ctx, resolution.Member.ID)
	if err != nil {
		if errors.Is(err, assistant.ErrUnavailable) {
			log.Error("thread creation unavailable", slog.Any("error", err))
			return e.unavailableReply, nil
		}
		return "", fmt.Errorf("get or create session: %w", err)
	}

	reply, err := e.delegate.Send(ctx, sess.ThreadID, assistant.MemberContext{
		MemberID:    resolution.Member.ID,
		DisplayName: resolution.DisplayName(),
	}, msg.Body)
	if err != nil {
		if errors.Is(err, assistant.ErrUnavailable) {
			log.Error("delegate unavailable", slog.Any("error", err))
			return e.unavailableReply, nil
		}
		return "", fmt.Errorf("delegate send: %w", err)
	}

	e.dispatch(ctx, resolution.CanonicalPhone, reply, log)
	return reply, nil
}

func (e *Engine) isResetCommand(body string) bool {
	return strings.ToLower(strings.TrimSpace(body)) == e.resetCommand
}

// dispatch attempts outbound delivery exactly once. A transport failure is
// logged and swallowed: the provider still gets the reply in the webhook
// response body.
func (e *Engine) dispatch(ctx context.Context, toCanonical, text string, log *slog.Logger) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.Send(ctx, toCanonical, text); err != nil {
		log.Warn("outbound delivery failed", slog.Any("error", err))
	}
}
