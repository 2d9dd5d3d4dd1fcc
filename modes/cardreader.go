// Package modes implements the two Special Modes (spec.md §4.6, C6):
// card-reader diagnostic mode and admin certification mode. Both are
// nested sub-loops entered from IdleNoCard that fully preempt the
// Session State Machine; the main loop simply calls one of these
// functions instead of fsm.Dispatch while a mode is active, mirroring
// the teacher's Setup-style blocking retry loops (main.go's bootstrap
// sequence) rather than threading mode state through the main
// dispatch tick.
package modes

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

// tickInterval matches the main loop's own cadence (spec.md §5 "~10Hz").
const tickInterval = 100 * time.Millisecond

// RunCardReaderMode implements the card-reader diagnostic mode
// (spec.md §4.6): entry requires an admin-level card to PIN-verify
// first; once inside, it shows the decimal UID of whatever card is
// currently in the field, animating while none is present, and returns
// as soon as `*` is pressed again.
func RunCardReaderMode(ctx context.Context, facade hardware.Facade, auth authclient.Client, disp *display.Coordinator, palette display.Palette, profile authclient.EquipmentProfile, logger zerolog.Logger) {
	logger = logger.With().Str("component", "modes.cardreader").Logger()

	if _, ok := adminGate(ctx, facade, auth, disp, palette, profile, hardware.KeyStar); !ok {
		logger.Info().Msg("card reader mode entry cancelled or admin verification failed")
		return
	}

	logger.Info().Msg("entering card reader mode")
	defer logger.Info().Msg("leaving card reader mode")

	lastCardID := int64(-2) // sentinel distinct from "-1 no card" to force the first draw
	for {
		if edge, keys := facade.ButtonEdge(); edge && keys.Contains(hardware.KeyStar) {
			return
		}

		cardID := facade.ReadCard()
		switch {
		case cardID <= 0:
			disp.ScanningAnimation("Card ID Reader", palette.Process)
			lastCardID = -1
		case cardID != lastCardID:
			disp.TwoLine("Card ID:", strconv.FormatInt(cardID, 10), palette.Process)
			lastCardID = cardID
		}

		time.Sleep(tickInterval)
	}
}
