package fsm

import (
	"context"
	"time"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

// FSM holds the current State plus the SessionContext it mutates on
// entry. The main loop owns one FSM for the process lifetime and calls
// Dispatch once per tick (spec.md §5 "poll inputs -> dispatch FSM ->
// update display -> update buzzer effects -> sleep").
type FSM struct {
	state State
	sc    SessionContext
	ext   *Collaborators
}

// New creates an FSM starting in Setup, with AllowProxy copied from the
// equipment profile (spec.md §3 SessionContext field).
func New(ctx context.Context, ext *Collaborators) *FSM {
	f := &FSM{
		state: StateSetup,
		sc: SessionContext{
			AllowProxy:     ext.Profile.AllowProxy,
			timeoutMinutes: ext.Profile.TimeoutMinutes,
		},
		ext: ext,
	}
	f.onEnter(ctx, StateSetup, InputFrame{CardID: -1})
	return f
}

// State returns the current state.
func (f *FSM) State() State { return f.state }

// Terminal reports whether the FSM has reached Shutdown; the main loop
// exits after observing this.
func (f *FSM) Terminal() bool { return f.state == StateShutdown }

// Dispatch advances the FSM by one tick: it computes the next state from
// the current one and frame, forces equipment power per spec.md §3's
// invariant, runs the destination's entry action exactly once on a
// state change, and records the outgoing state name in SessionContext.
func (f *FSM) Dispatch(ctx context.Context, frame InputFrame) State {
	next := f.transition(frame)

	if next != f.state {
		f.sc.LastStateName = f.state.String()
		f.state = next
		f.onEnter(ctx, next, frame)
	}

	// Safe-default invariant (spec.md §3, §8): power is forced off every
	// tick unless the current state is one of the three Running* states.
	f.ext.Relay.SetRelay(f.state.PowerOn())

	return f.state
}

func (f *FSM) graceExpired() bool {
	if f.sc.graceStart.IsZero() {
		return false
	}
	return f.ext.Clock.Now().Sub(f.sc.graceStart) >= time.Duration(f.sc.graceSeconds)*time.Second
}

func (f *FSM) timeoutExpired() bool {
	if f.sc.timeoutMinutes == 0 || f.sc.timeoutStart.IsZero() {
		return false
	}
	return f.ext.Clock.Now().Sub(f.sc.timeoutStart) >= time.Duration(f.sc.timeoutMinutes)*time.Minute
}

// activeCardID returns the session identity a completion is logged
// against. A training or proxy card takes over from the auth user whose
// AuthUserID is still set, so TrainingID and ProxyID (never both set at
// once) take precedence over AuthUserID.
func (sc *SessionContext) activeCardID() int64 {
	switch {
	case sc.TrainingID > 0:
		return sc.TrainingID
	case sc.ProxyID > 0:
		return sc.ProxyID
	case sc.AuthUserID > 0:
		return sc.AuthUserID
	default:
		return -1
	}
}

// transition computes the next state for the current state and frame,
// without running any side effects (side effects live in onEnter, fired
// only on an actual state change).
func (f *FSM) transition(frame InputFrame) State {
	switch f.state {
	case StateSetup:
		if f.ext.Profile.EquipmentID == 0 {
			return StateShutdown
		}
		return StateIdleNoCard

	case StateIdleNoCard:
		if frame.CardID > 0 {
			return StateIdleUnknownCard
		}
		return StateIdleNoCard

	case StateIdleUnknownCard:
		switch {
		case frame.CardType == authclient.CardShutdown:
			return StateShutdown
		case frame.UserIsAuthorized && (frame.CardType == authclient.CardUser || frame.CardType == authclient.CardTraining):
			return StateRunningAuthUser
		case frame.UserIsAuthorized && frame.CardType == authclient.CardProxy:
			return StateRunningProxyCard
		default:
			return StateIdleUnauthCard
		}

	case StateIdleUnauthCard:
		if frame.CardRemoval || frame.CardID <= 0 {
			return StateIdleNoCard
		}
		return StateIdleUnauthCard

	case StateRunningAuthUser:
		if frame.CardID <= 0 {
			return StateRunningNoCard
		}
		if f.timeoutExpired() {
			return StateRunningTimeout
		}
		return StateRunningAuthUser

	case StateRunningProxyCard:
		if frame.CardID <= 0 {
			return StateRunningNoCard
		}
		if f.timeoutExpired() {
			return StateRunningTimeout
		}
		return StateRunningProxyCard

	case StateRunningTrainingCard:
		if frame.CardID <= 0 {
			return StateRunningNoCard
		}
		if f.timeoutExpired() {
			return StateRunningTimeout
		}
		return StateRunningTrainingCard

	case StateRunningNoCard:
		return f.transitionRunningNoCard(frame)

	case StateRunningTimeout:
		switch {
		case frame.ButtonPressed:
			return StateRunningNoCard
		case frame.CardRemoval || frame.CardID <= 0:
			return StateAccessComplete
		case f.graceExpired():
			return StateIdleAuthCard
		default:
			return StateRunningTimeout
		}

	case StateIdleAuthCard:
		if frame.CardRemoval || frame.CardID <= 0 {
			return StateIdleNoCard
		}
		return StateIdleAuthCard

	case StateAccessComplete:
		if frame.CardID <= 0 {
			return StateIdleNoCard
		}
		// Card still present: forces fresh classification/PIN
		// verification (spec.md §4.5 "forced re-verification").
		return StateIdleUnknownCard

	case StateShutdown:
		return StateShutdown

	default:
		// Unexpected state (spec.md §7): recover via AccessComplete so
		// power is forced off before returning to idle.
		return StateAccessComplete
	}
}

// transitionRunningNoCard implements the training and proxy transition
// rules (spec.md §4.5) plus the tie-break between grace expiry and
// button press, which both lead to AccessComplete.
//
// Because the Input Fuser always classifies a card's type and
// authorization before the Session State Machine sees it, an
// unauthorized User card that fails every rule below simply falls
// through to "stay in RunningNoCard" — there is no intermediate
// RunningUnknownCard state to bounce through, which is what spec.md's
// state-bounce guard ultimately requires anyway.
func (f *FSM) transitionRunningNoCard(frame InputFrame) State {
	if f.graceExpired() || frame.ButtonPressed {
		return StateAccessComplete
	}

	if frame.CardID <= 0 {
		return StateRunningNoCard
	}

	switch frame.CardType {
	case authclient.CardUser:
		// The same user returning re-admits unconditionally, independent
		// of authority level (original_source/Firmware/PortalFSM.py
		// RunningNoCard "Case 1": card_id == auth_user_id wins first).
		if f.sc.AuthUserID > 0 && frame.CardID == f.sc.AuthUserID {
			return StateRunningAuthUser
		}

		priorAuthority3Plus := f.sc.UserAuthorityLevel >= 3
		noProxyActive := f.sc.ProxyID <= 0
		trainingSlotFree := f.sc.TrainingID <= 0 || f.sc.TrainingID == frame.CardID

		switch {
		case priorAuthority3Plus && noProxyActive && trainingSlotFree && !frame.UserIsAuthorized:
			return StateRunningTrainingCard
		default:
			return StateRunningNoCard
		}

	case authclient.CardProxy:
		if f.sc.TrainingID <= 0 && f.sc.AllowProxy {
			return StateRunningProxyCard
		}
		return StateRunningNoCard

	default:
		return StateRunningNoCard
	}
}

// onEnter runs the destination state's entry action exactly once per
// transition (spec.md §4.5 "On entry, each state may (a) set equipment
// power, (b) request a display update, (c) request a buzzer/LED effect,
// (d) log a server event, (e) mutate SessionContext").
func (f *FSM) onEnter(ctx context.Context, state State, frame InputFrame) {
	ext := f.ext
	switch state {
	case StateIdleNoCard:
		ext.Display.Message("Ready", ext.Palette.Sleep)

	case StateIdleUnknownCard:
		ext.Display.Message("Processing", ext.Palette.Process)

	case StateIdleUnauthCard:
		ext.Buzzer.Beep(hardware.BeepError)
		ext.Auth.LogAccessAttempt(ctx, frame.CardID, ext.Profile.EquipmentID, false)
		ext.Display.Message("Unauthorized", ext.Palette.Unauth)

	case StateRunningAuthUser:
		if f.sc.AuthUserID != frame.CardID {
			ext.Auth.LogAccessAttempt(ctx, frame.CardID, ext.Profile.EquipmentID, true)
		}
		f.sc.AuthUserID = frame.CardID
		f.sc.UserAuthorityLevel = frame.UserAuthorityLevel
		f.sc.timeoutStart = ext.Clock.Now()
		ext.Buzzer.Beep(hardware.BeepSuccess)
		ext.Display.Welcome(ctx, frame.CardID, ext.Palette.Auth)

	case StateRunningProxyCard:
		if f.sc.ProxyID != frame.CardID {
			ext.Auth.LogAccessAttempt(ctx, frame.CardID, ext.Profile.EquipmentID, true)
		}
		f.sc.ProxyID = frame.CardID
		f.sc.timeoutStart = ext.Clock.Now()
		ext.Buzzer.Beep(hardware.BeepSuccess)
		ext.Display.TwoLine("Proxy Access", "Machine On", ext.Palette.Proxy)

	case StateRunningTrainingCard:
		if f.sc.TrainingID != frame.CardID {
			ext.Auth.LogAccessAttempt(ctx, frame.CardID, ext.Profile.EquipmentID, true)
		}
		f.sc.TrainingID = frame.CardID
		f.sc.timeoutStart = ext.Clock.Now()
		ext.Buzzer.Beep(hardware.BeepSuccess)
		ext.Display.TwoLine("Training Mode", "Machine On", ext.Palette.Training)

	case StateRunningNoCard:
		f.sc.graceStart = ext.Clock.Now()
		f.sc.graceSeconds = ext.GraceSeconds
		ext.Buzzer.BeepStart(2000, 100*time.Millisecond, 3)
		ext.Display.GraceTimerStart(ext.GraceSeconds, ext.Palette.NoCardGrace)

	case StateRunningTimeout:
		f.sc.graceStart = ext.Clock.Now()
		f.sc.graceSeconds = ext.GraceSeconds
		ext.Buzzer.Beep(hardware.BeepWarning)
		ext.Display.GraceTimerStart(ext.GraceSeconds, ext.Palette.Timeout)

	case StateIdleAuthCard:
		ext.Auth.LogAccessCompletion(ctx, f.sc.activeCardID(), ext.Profile.EquipmentID)
		f.sc.clearSession()
		ext.Display.Message("Timed Out", ext.Palette.GraceTimeout)

	case StateAccessComplete:
		ext.Auth.LogAccessCompletion(ctx, f.sc.activeCardID(), ext.Profile.EquipmentID)
		f.sc.clearSession()
		ext.Display.Message("Complete", ext.Palette.GraceTimeout)

	case StateShutdown:
		ext.Auth.LogShutdown(ctx, ext.Profile.EquipmentID, frame.CardID)
		ext.Display.Message("Shutting Down", ext.Palette.Unauth)

	case StateSetup:
		ext.Buzzer.Beep(hardware.BeepSuccess)
	}
}
