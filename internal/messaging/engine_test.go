package messaging

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/associahq/associa/internal/assistant"
	"github.com/associahq/associa/internal/eligibility"
	"github.com/associahq/associa/internal/identity"
	"github.com/associahq/associa/internal/registry"
	"github.com/associahq/associa/internal/session"
)

const (
	testMemberID  = "6f1c0a52-6a2e-4a6e-9dd8-8f0f6f9f1a01"
	testCanonical = "5511912345678"
)

type fakeResolver struct {
	resolution identity.Resolution
	err        error
	gotPhone   string
}

func (f *fakeResolver) ResolveByPhone(_ context.Context, rawPhone string) (identity.Resolution, error) {
	f.gotPhone = rawPhone
	return f.resolution, f.err
}

type fakePolicy struct {
	err error
}

func (f *fakePolicy) Check(context.Context, registry.Member) error { return f.err }

type fakeSessions struct {
	threadID       string
	resets         int
	getOrCreates   int
	getOrCreateErr error
	resetErr       error
}

func (f *fakeSessions) GetOrCreate(_ context.Context, memberID string) (session.Session, error) {
	f.getOrCreates++
	if f.getOrCreateErr != nil {
		return session.Session{}, f.getOrCreateErr
	}
	return session.Session{MemberID: memberID, ThreadID: f.threadID}, nil
}

func (f *fakeSessions) Reset(_ context.Context, memberID string) (session.Session, error) {
	f.resets++
	if f.resetErr != nil {
		return session.Session{}, f.resetErr
	}
	return session.Session{MemberID: memberID, ThreadID: fmt.Sprintf("thread-reset-%d", f.resets)}, nil
}

type fakeDelegate struct {
	reply       string
	err         error
	gotThreadID string
	gotText     string
	gotMember   assistant.MemberContext
}

func (f *fakeDelegate) Send(_ context.Context, threadID string, member assistant.MemberContext, text string) (string, error) {
	f.gotThreadID = threadID
	f.gotMember = member
	f.gotText = text
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeDispatcher struct {
	sent []string
	to   []string
	err  error
}

func (f *fakeDispatcher) Send(_ context.Context, to, text string) error {
	f.to = append(f.to, to)
	f.sent = append(f.sent, text)
	return f.err
}

func memberResolution() identity.Resolution {
	return identity.Resolution{
		Member: registry.Member{
			ID:       testMemberID,
			FullName: "Ana Souza",
		},
		CanonicalPhone: testCanonical,
	}
}

func TestHandleInboundDelegatesAndDispatches(t *testing.T) {
	sessions := &fakeSessions{threadID: "thread-1"}
	delegate := &fakeDelegate{reply: "Olá, Ana!"}
	dispatcher := &fakeDispatcher{}
	engine := NewEngine(nil, &fakeResolver{resolution: memberResolution()}, &fakePolicy{}, sessions, delegate, dispatcher, "", "")

	reply, err := engine.HandleInbound(context.Background(), InboundMessage{From: "+5511912345678", Body: "oi"})
	require.NoError(t, err)
	assert.Equal(t, "Olá, Ana!", reply)

	assert.Equal(t, "thread-1", delegate.gotThreadID)
	assert.Equal(t, "oi", delegate.gotText)
	assert.Equal(t, testMemberID, delegate.gotMember.MemberID)
	assert.Equal(t, "Ana Souza", delegate.gotMember.DisplayName)

	// Outbound delivery goes to the canonical number, not the raw header.
	require.Len(t, dispatcher.to, 1)
	assert.Equal(t, testCanonical, dispatcher.to[0])
	assert.Equal(t, []string{"Olá, Ana!"}, dispatcher.sent)
}

func TestHandleInboundStripsChannelAddressing(t *testing.T) {
	// The provider delivers From=whatsapp:+55...; the qualifier must never
	// reach phone normalization.
	resolver := &fakeResolver{resolution: memberResolution()}
	engine := NewEngine(nil, resolver, &fakePolicy{}, &fakeSessions{threadID: "thread-1"}, &fakeDelegate{reply: "Olá!"}, &fakeDispatcher{}, "", "")

	reply, err := engine.HandleInbound(context.Background(), InboundMessage{From: "whatsapp:+5511912345678", Body: "oi"})
	require.NoError(t, err)
	assert.Equal(t, "Olá!", reply)
	assert.Equal(t, "+5511912345678", resolver.gotPhone)
}

func TestHandleInboundResetCommand(t *testing.T) {
	sessions := &fakeSessions{threadID: "thread-1"}
	delegate := &fakeDelegate{reply: "never"}
	dispatcher := &fakeDispatcher{}
	engine := NewEngine(nil, &fakeResolver{resolution: memberResolution()}, &fakePolicy{}, sessions, delegate, dispatcher, "reiniciar", "Conversa reiniciada.")

	// Case and surrounding whitespace must not matter, and the message is
	// never forwarded to the delegate.
	for _, body := range []string{"reiniciar", "  REINICIAR  "} {
		reply, err := engine.HandleInbound(context.Background(), InboundMessage{From: "+5511912345678", Body: body})
		require.NoError(t, err)
		assert.Equal(t, "Conversa reiniciada.", reply)
	}

	assert.Equal(t, 2, sessions.resets)
	assert.Equal(t, 0, sessions.getOrCreates)
	assert.Empty(t, delegate.gotText)
	assert.Equal(t, []string{"Conversa reiniciada.", "Conversa reiniciada."}, dispatcher.sent)
}

func TestHandleInboundResetNeverRunsForUnknownSender(t *testing.T) {
	sessions := &fakeSessions{}
	engine := NewEngine(nil, &fakeResolver{err: identity.ErrNotFound}, &fakePolicy{}, sessions, &fakeDelegate{}, &fakeDispatcher{}, "reiniciar", "")

	_, err := engine.HandleInbound(context.Background(), InboundMessage{From: "+5511999990000", Body: "reiniciar"})
	assert.ErrorIs(t, err, identity.ErrNotFound)
	assert.Equal(t, 0, sessions.resets)
}

func TestHandleInboundResetNeverRunsForInactiveMember(t *testing.T) {
	sessions := &fakeSessions{}
	engine := NewEngine(nil, &fakeResolver{resolution: memberResolution()}, &fakePolicy{err: eligibility.ErrNotActive}, sessions, &fakeDelegate{}, &fakeDispatcher{}, "reiniciar", "")

	_, err := engine.HandleInbound(context.Background(), InboundMessage{From: "+5511912345678", Body: "reiniciar"})
	assert.ErrorIs(t, err, eligibility.ErrNotActive)
	assert.Equal(t, 0, sessions.resets)
}

func TestHandleInboundDelegateUnavailable(t *testing.T) {
	sessions := &fakeSessions{threadID: "thread-1"}
	delegate := &fakeDelegate{err: fmt.Errorf("run timed out: %w", assistant.ErrUnavailable)}
	dispatcher := &fakeDispatcher{}
	engine := NewEngine(nil, &fakeResolver{resolution: memberResolution()}, &fakePolicy{}, sessions, delegate, dispatcher, "", "")

	reply, err := engine.HandleInbound(context.Background(), InboundMessage{From: "+5511912345678", Body: "oi"})
	// An outage never bubbles an error to the webhook: the provider gets a
	// fallback reply and does not retry.
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	assert.Empty(t, dispatcher.sent)
}

func TestHandleInboundThreadCreationUnavailable(t *testing.T) {
	sessions := &fakeSessions{getOrCreateErr: fmt.Errorf("create thread: %w", assistant.ErrUnavailable)}
	engine := NewEngine(nil, &fakeResolver{resolution: memberResolution()}, &fakePolicy{}, sessions, &fakeDelegate{}, &fakeDispatcher{}, "", "")

	reply, err := engine.HandleInbound(context.Background(), InboundMessage{From: "+5511912345678", Body: "oi"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
}

func TestHandleInboundDispatchFailureIsSwallowed(t *testing.T) {
	dispatcher := &fakeDispatcher{err: assert.AnError}
	engine := NewEngine(nil, &fakeResolver{resolution: memberResolution()}, &fakePolicy{}, &fakeSessions{threadID: "thread-1"}, &fakeDelegate{reply: "Olá!"}, dispatcher, "", "")

	reply, err := engine.HandleInbound(context.Background(), InboundMessage{From: "+5511912345678", Body: "oi"})
	require.NoError(t, err)
	assert.Equal(t, "Olá!", reply)
}
