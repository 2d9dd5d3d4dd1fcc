// Package inputfuser implements the Input Fuser (spec.md §4.4, C4): once
// per tick it composes an InputFrame from the RFID reader, keypad,
// button-edge detector and clock, fetching card details on a new read,
// detecting card removal, and invoking PIN verification (§4.7) before an
// authorized card is handed to the Session State Machine.
package inputfuser

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/fsm"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

// ModeRequest reports a special-mode escape detected this tick
// (spec.md §4.4 steps 6-7): `*` from IdleNoCard requests card-reader
// mode, `#` requests certification mode.
type ModeRequest struct {
	EnterCardReader    bool
	EnterCertification bool
}

// Fuser holds the per-tick state the Input Fuser needs across ticks:
// the previously observed card, its cached details, and whether the
// next tick must force a fresh classification (spec.md §4.5 "forced
// re-verification").
type Fuser struct {
	facade  hardware.Facade
	auth    authclient.Client
	display *display.Coordinator
	palette display.Palette
	profile authclient.EquipmentProfile
	logger  zerolog.Logger

	prevCardID   int64
	prevDetails  authclient.CardDetails
	forceRefresh bool
}

// New creates a Fuser.
func New(facade hardware.Facade, auth authclient.Client, disp *display.Coordinator, palette display.Palette, profile authclient.EquipmentProfile, logger zerolog.Logger) *Fuser {
	return &Fuser{
		facade:     facade,
		auth:       auth,
		display:    disp,
		palette:    palette,
		profile:    profile,
		logger:     logger.With().Str("component", "inputfuser").Logger(),
		prevCardID: -1,
	}
}

// NotifyStateTransition observes every Session State Machine transition
// so the Fuser can clear its "already verified" memory whenever the FSM
// enters or leaves AccessComplete (spec.md §4.5 "forced re-verification":
// "a card that remains in the reader across session end is re-evaluated
// with a fresh PIN prompt").
func (f *Fuser) NotifyStateTransition(prev, next fsm.State) {
	if prev == fsm.StateAccessComplete || next == fsm.StateAccessComplete {
		f.forceRefresh = true
	}
}

// Tick builds this tick's InputFrame (spec.md §4.4).
func (f *Fuser) Tick(ctx context.Context, currentState fsm.State) (fsm.InputFrame, ModeRequest) {
	raw := f.facade.ReadCard()
	cardID := raw
	if cardID <= 0 {
		cardID = -1
	}

	cardRemoval := f.prevCardID > 0 && cardID <= 0

	isNewCard := cardID > 0 && (cardID != f.prevCardID || f.forceRefresh)
	f.forceRefresh = false

	var details authclient.CardDetails
	switch {
	case isNewCard:
		var err error
		details, err = f.auth.GetCardDetails(ctx, cardID, f.profile.TypeID)
		if err != nil {
			f.logger.Warn().Err(err).Int64("card_id", cardID).Msg("card details unavailable, treating as invalid")
			details = authclient.CardDetails{CardType: authclient.CardInvalid}
		}
	case cardID > 0:
		details = f.prevDetails
	default:
		details = authclient.CardDetails{}
	}

	edge, keys := f.facade.ButtonEdge()

	var modeReq ModeRequest
	suppress := false
	if currentState == fsm.StateIdleNoCard && edge {
		switch {
		case keys.Contains(hardware.KeyStar):
			modeReq.EnterCardReader = true
			suppress = true
		case keys.Contains(hardware.KeyHash):
			modeReq.EnterCertification = true
			suppress = true
		}
	}

	userIsAuthorized := details.UserIsAuthorized

	// PIN verification happens outside grace, for a newly-read
	// authorized card, before the Session State Machine ever sees
	// UserIsAuthorized=true (spec.md §4.4 step 8). The result is folded
	// back into details (and so into prevDetails below) so a failed PIN
	// sticks across ticks: the card is still "not new" once the FSM
	// reaches IdleUnknownCard, and must not fall back to the server's
	// raw, PIN-unchecked authorization on that later tick.
	if !suppress && isNewCard && userIsAuthorized && currentState != fsm.StateRunningNoCard {
		userIsAuthorized = VerifyPIN(f.facade, f.display, f.palette, cardID, details.PIN)
		details.UserIsAuthorized = userIsAuthorized
	}

	frame := fsm.InputFrame{
		CardID:             cardID,
		CardType:           details.CardType,
		UserIsAuthorized:   userIsAuthorized,
		UserAuthorityLevel: details.UserAuthorityLevel,
		ButtonPressed:      edge,
		CardRemoval:        cardRemoval,
	}
	if suppress {
		frame.CardID = -1
	}

	f.prevCardID = cardID
	f.prevDetails = details

	return frame, modeReq
}
