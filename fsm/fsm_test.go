package fsm

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

func newTestFSM(t *testing.T, profile authclient.EquipmentProfile, graceSeconds int) (*FSM, *hardware.MockFacade, *hardware.MockClock, *authclient.MockClient) {
	t.Helper()
	facade := hardware.NewMockFacade()
	clock := hardware.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	auth := authclient.NewMockClient()
	auth.Profile = profile
	disp := display.New(facade, clock, auth, zerolog.Nop())

	ext := &Collaborators{
		Auth:         auth,
		Display:      disp,
		Relay:        facade,
		Buzzer:       facade,
		Clock:        clock,
		Profile:      profile,
		GraceSeconds: graceSeconds,
		Logger:       zerolog.Nop(),
	}
	f := New(context.Background(), ext)
	return f, facade, clock, auth
}

func noCardFrame() InputFrame {
	return InputFrame{CardID: -1}
}

func TestHappyPath(t *testing.T) {
	profile := authclient.EquipmentProfile{EquipmentID: 1, TypeID: 2, AllowProxy: false, TimeoutMinutes: 0}
	f, facade, _, auth := newTestFSM(t, profile, 10)
	ctx := context.Background()

	if got := f.Dispatch(ctx, noCardFrame()); got != StateIdleNoCard {
		t.Fatalf("expected IdleNoCard after Setup, got %s", got)
	}

	cardFrame := InputFrame{CardID: 0xA1, CardType: authclient.CardUser, UserIsAuthorized: true, UserAuthorityLevel: 1}
	if got := f.Dispatch(ctx, cardFrame); got != StateIdleUnknownCard {
		t.Fatalf("expected IdleUnknownCard, got %s", got)
	}
	if got := f.Dispatch(ctx, cardFrame); got != StateRunningAuthUser {
		t.Fatalf("expected RunningAuthUser, got %s", got)
	}

	if !facade.RelayOn {
		t.Errorf("expected relay ON in RunningAuthUser")
	}
	if len(auth.AccessAttempts) != 1 || !auth.AccessAttempts[0].Successful || auth.AccessAttempts[0].CardID != 0xA1 {
		t.Errorf("expected exactly one successful access attempt for 0xA1, got %+v", auth.AccessAttempts)
	}
}

func TestUnauthorizedCardNeverEnergizesRelay(t *testing.T) {
	profile := authclient.EquipmentProfile{EquipmentID: 1}
	f, facade, _, auth := newTestFSM(t, profile, 10)
	ctx := context.Background()

	f.Dispatch(ctx, noCardFrame())

	cardFrame := InputFrame{CardID: 0xB2, CardType: authclient.CardUser, UserIsAuthorized: false}
	f.Dispatch(ctx, cardFrame)
	if got := f.Dispatch(ctx, cardFrame); got != StateIdleUnauthCard {
		t.Fatalf("expected IdleUnauthCard, got %s", got)
	}
	if facade.RelayOn {
		t.Errorf("relay must never energize for an unauthorized card")
	}
	if len(auth.AccessAttempts) != 1 || auth.AccessAttempts[0].Successful {
		t.Errorf("expected exactly one failed access attempt, got %+v", auth.AccessAttempts)
	}

	if got := f.Dispatch(ctx, noCardFrame()); got != StateIdleNoCard {
		t.Fatalf("expected return to IdleNoCard on card removal, got %s", got)
	}
}

func TestGraceThenReturn(t *testing.T) {
	profile := authclient.EquipmentProfile{EquipmentID: 1}
	f, _, clock, auth := newTestFSM(t, profile, 10)
	ctx := context.Background()

	f.Dispatch(ctx, noCardFrame())
	cardFrame := InputFrame{CardID: 0xA1, CardType: authclient.CardUser, UserIsAuthorized: true, UserAuthorityLevel: 1}
	f.Dispatch(ctx, cardFrame)
	f.Dispatch(ctx, cardFrame)
	if f.State() != StateRunningAuthUser {
		t.Fatalf("setup failed, in state %s", f.State())
	}

	if got := f.Dispatch(ctx, noCardFrame()); got != StateRunningNoCard {
		t.Fatalf("expected RunningNoCard after card removal, got %s", got)
	}

	clock.Advance(4 * time.Second)
	if got := f.Dispatch(ctx, cardFrame); got != StateRunningAuthUser {
		t.Fatalf("expected resumed RunningAuthUser within grace, got %s", got)
	}
	if len(auth.AccessCompletions) != 0 {
		t.Errorf("resuming within grace must not log a completion yet, got %+v", auth.AccessCompletions)
	}
}

func TestGraceExpiry(t *testing.T) {
	profile := authclient.EquipmentProfile{EquipmentID: 1}
	f, facade, clock, auth := newTestFSM(t, profile, 10)
	ctx := context.Background()

	f.Dispatch(ctx, noCardFrame())
	cardFrame := InputFrame{CardID: 0xA1, CardType: authclient.CardUser, UserIsAuthorized: true, UserAuthorityLevel: 1}
	f.Dispatch(ctx, cardFrame)
	f.Dispatch(ctx, cardFrame)

	f.Dispatch(ctx, noCardFrame())
	clock.Advance(10 * time.Second)
	if got := f.Dispatch(ctx, noCardFrame()); got != StateAccessComplete {
		t.Fatalf("expected AccessComplete after grace expiry, got %s", got)
	}
	if facade.RelayOn {
		t.Errorf("relay must be off in AccessComplete")
	}
	if len(auth.AccessCompletions) != 1 || auth.AccessCompletions[0] != 0xA1 {
		t.Errorf("expected exactly one completion for 0xA1, got %+v", auth.AccessCompletions)
	}

	if got := f.Dispatch(ctx, noCardFrame()); got != StateIdleNoCard {
		t.Fatalf("expected IdleNoCard after AccessComplete with no card, got %s", got)
	}
}

func TestTrainingTransition(t *testing.T) {
	profile := authclient.EquipmentProfile{EquipmentID: 1}
	f, _, clock, auth := newTestFSM(t, profile, 10)
	ctx := context.Background()

	f.Dispatch(ctx, noCardFrame())
	adminFrame := InputFrame{CardID: 0xAD01, CardType: authclient.CardUser, UserIsAuthorized: true, UserAuthorityLevel: 3}
	f.Dispatch(ctx, adminFrame)
	if got := f.Dispatch(ctx, adminFrame); got != StateRunningAuthUser {
		t.Fatalf("expected admin card to start RunningAuthUser, got %s", got)
	}

	if got := f.Dispatch(ctx, noCardFrame()); got != StateRunningNoCard {
		t.Fatalf("expected RunningNoCard after admin card removed, got %s", got)
	}

	clock.Advance(2 * time.Second)
	traineeFrame := InputFrame{CardID: 0x7001, CardType: authclient.CardUser, UserIsAuthorized: false}
	if got := f.Dispatch(ctx, traineeFrame); got != StateRunningTrainingCard {
		t.Fatalf("expected training transition, got %s", got)
	}

	clock.Advance(1 * time.Second)
	if got := f.Dispatch(ctx, noCardFrame()); got != StateRunningNoCard {
		t.Fatalf("expected RunningNoCard after trainee removed, got %s", got)
	}

	clock.Advance(10 * time.Second)
	if got := f.Dispatch(ctx, noCardFrame()); got != StateAccessComplete {
		t.Fatalf("expected AccessComplete after trainee grace expiry, got %s", got)
	}
	if len(auth.AccessCompletions) == 0 || auth.AccessCompletions[len(auth.AccessCompletions)-1] != 0x7001 {
		t.Errorf("expected completion logged against trainee id, got %+v", auth.AccessCompletions)
	}
}

func TestShutdownCard(t *testing.T) {
	profile := authclient.EquipmentProfile{EquipmentID: 1}
	f, facade, _, auth := newTestFSM(t, profile, 10)
	ctx := context.Background()

	f.Dispatch(ctx, noCardFrame())
	shutdownFrame := InputFrame{CardID: 0xFF, CardType: authclient.CardShutdown}
	f.Dispatch(ctx, shutdownFrame)
	if got := f.Dispatch(ctx, shutdownFrame); got != StateShutdown {
		t.Fatalf("expected Shutdown, got %s", got)
	}
	if facade.RelayOn {
		t.Errorf("relay must be off in Shutdown")
	}
	if len(auth.ShutdownCalls) != 1 {
		t.Errorf("expected one shutdown log call, got %d", len(auth.ShutdownCalls))
	}
	if !f.Terminal() {
		t.Errorf("expected FSM to report terminal after Shutdown")
	}
}

func TestPINPropertyRejectsCardWithoutUsablePIN(t *testing.T) {
	// Exercises the domain rule directly: a server-authorized card with
	// no usable PIN must not be treated as PIN-verified by the Input
	// Fuser before it ever reaches the Session State Machine.
	d := authclient.CardDetails{UserIsAuthorized: true, PIN: nil}
	if d.HasUsablePIN() {
		t.Fatalf("nil PIN must not count as usable")
	}
	sentinel := authclient.NoPIN
	d.PIN = &sentinel
	if d.HasUsablePIN() {
		t.Fatalf("sentinel PIN must not count as usable")
	}
}

func TestProxyDisallowedStaysInRunningNoCard(t *testing.T) {
	profile := authclient.EquipmentProfile{EquipmentID: 1, AllowProxy: false}
	f, _, clock, _ := newTestFSM(t, profile, 10)
	ctx := context.Background()

	f.Dispatch(ctx, noCardFrame())
	adminFrame := InputFrame{CardID: 0xAD01, CardType: authclient.CardUser, UserIsAuthorized: true, UserAuthorityLevel: 3}
	f.Dispatch(ctx, adminFrame)
	f.Dispatch(ctx, adminFrame)
	f.Dispatch(ctx, noCardFrame())

	clock.Advance(1 * time.Second)
	proxyFrame := InputFrame{CardID: 0xCAFE, CardType: authclient.CardProxy, UserIsAuthorized: true}
	if got := f.Dispatch(ctx, proxyFrame); got != StateRunningNoCard {
		t.Fatalf("expected proxy card to be ignored when AllowProxy=false, got %s", got)
	}
}
