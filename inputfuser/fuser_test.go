package inputfuser

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/fsm"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

func newTestFuser() (*Fuser, *hardware.MockFacade, *authclient.MockClient) {
	facade := hardware.NewMockFacade()
	clock := hardware.NewMockClock(time.Now())
	auth := authclient.NewMockClient()
	disp := display.New(facade, clock, auth, zerolog.Nop())
	palette := display.Palette{}
	profile := authclient.EquipmentProfile{EquipmentID: 1, TypeID: 7}
	f := New(facade, auth, disp, palette, profile, zerolog.Nop())
	return f, facade, auth
}

func TestTickFetchesDetailsOnlyForNewCard(t *testing.T) {
	f, facade, auth := newTestFuser()
	auth.CardDetails[0x10] = authclient.CardDetails{CardType: authclient.CardUser, UserIsAuthorized: false}

	facade.SetCard(0x10)
	frame, _ := f.Tick(context.Background(), fsm.StateIdleNoCard)
	if frame.CardType != authclient.CardUser {
		t.Fatalf("expected CardUser, got %v", frame.CardType)
	}

	// Second tick, same card: must reuse cached details, not re-fetch.
	auth.CardDetails[0x10] = authclient.CardDetails{CardType: authclient.CardProxy}
	frame2, _ := f.Tick(context.Background(), fsm.StateIdleNoCard)
	if frame2.CardType != authclient.CardUser {
		t.Fatalf("expected cached CardUser classification to persist, got %v", frame2.CardType)
	}
}

func TestTickDetectsCardRemoval(t *testing.T) {
	f, facade, auth := newTestFuser()
	auth.CardDetails[0x10] = authclient.CardDetails{CardType: authclient.CardUser}

	facade.SetCard(0x10)
	f.Tick(context.Background(), fsm.StateIdleNoCard)

	facade.SetCard(-1)
	frame, _ := f.Tick(context.Background(), fsm.StateIdleNoCard)
	if !frame.CardRemoval {
		t.Errorf("expected CardRemoval=true after card taken away")
	}
}

func TestStarFromIdleRequestsCardReaderMode(t *testing.T) {
	f, facade, _ := newTestFuser()
	facade.PressKeys(hardware.KeyStar)

	frame, modeReq := f.Tick(context.Background(), fsm.StateIdleNoCard)
	if !modeReq.EnterCardReader {
		t.Errorf("expected EnterCardReader request")
	}
	if frame.CardID > 0 {
		t.Errorf("expected card processing suppressed this tick")
	}
}

func TestHashFromIdleRequestsCertificationMode(t *testing.T) {
	f, facade, _ := newTestFuser()
	facade.PressKeys(hardware.KeyHash)

	_, modeReq := f.Tick(context.Background(), fsm.StateIdleNoCard)
	if !modeReq.EnterCertification {
		t.Errorf("expected EnterCertification request")
	}
}

func TestForcedReVerificationRefetchesSameCard(t *testing.T) {
	f, facade, auth := newTestFuser()
	auth.CardDetails[0x10] = authclient.CardDetails{CardType: authclient.CardUser}
	facade.SetCard(0x10)
	f.Tick(context.Background(), fsm.StateIdleUnknownCard)

	auth.CardDetails[0x10] = authclient.CardDetails{CardType: authclient.CardProxy}
	f.NotifyStateTransition(fsm.StateAccessComplete, fsm.StateIdleUnknownCard)

	frame, _ := f.Tick(context.Background(), fsm.StateIdleUnknownCard)
	if frame.CardType != authclient.CardProxy {
		t.Errorf("expected forced refresh to re-fetch details for the same card, got %v", frame.CardType)
	}
}

func TestGraceSuppressesPINVerification(t *testing.T) {
	f, facade, auth := newTestFuser()
	pin := "1234"
	auth.CardDetails[0x10] = authclient.CardDetails{CardType: authclient.CardUser, UserIsAuthorized: true, PIN: &pin}
	facade.SetCard(0x10)

	// No keys pressed, so a real PIN prompt would block forever; in
	// RunningNoCard (grace), PIN verification must be skipped entirely
	// so UserIsAuthorized passes through unmodified.
	frame, _ := f.Tick(context.Background(), fsm.StateRunningNoCard)
	if !frame.UserIsAuthorized {
		t.Errorf("expected UserIsAuthorized to pass through unverified during grace")
	}
}
