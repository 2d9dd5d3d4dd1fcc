package modes

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

// RunCertificationMode implements admin certification mode (spec.md
// §4.6): an admin card PIN-verifies, then a user card is granted
// authorization for this equipment type. Exits on `#` at any step.
func RunCertificationMode(ctx context.Context, facade hardware.Facade, auth authclient.Client, disp *display.Coordinator, palette display.Palette, profile authclient.EquipmentProfile, logger zerolog.Logger) {
	logger = logger.With().Str("component", "modes.certification").Logger()
	logger.Info().Msg("entering certification mode")
	defer logger.Info().Msg("leaving certification mode")

	// waiting_admin
	if _, ok := adminGate(ctx, facade, auth, disp, palette, profile, hardware.KeyHash); !ok {
		return
	}
	disp.TwoLine("Admin Verified", "Remove Card", palette.AdminMode)
	waitForAnyRemoval(facade)

	// waiting_user
	userCardID, ok := waitForUserCard(ctx, facade, auth, disp, palette, profile)
	if !ok {
		return
	}

	// updating
	granted, err := auth.AddUserAuthorization(ctx, userCardID, profile.TypeID)
	switch {
	case err != nil:
		logger.Warn().Err(err).Int64("card_id", userCardID).Msg("add_user_authorization failed")
		disp.Message("DB Error", palette.Unauth)
	case granted:
		disp.Message("Authorized", palette.AdminMode)
	default:
		disp.Message("DB Error", palette.Unauth)
	}
	waitForAnyRemoval(facade)
}

// waitForUserCard implements the waiting_user sub-state: it requires a
// User-type card and rejects one that's already authorized
// (spec.md §4.6 "If already authorized, abort with 'Already Auth'").
func waitForUserCard(ctx context.Context, facade hardware.Facade, auth authclient.Client, disp *display.Coordinator, palette display.Palette, profile authclient.EquipmentProfile) (cardID int64, ok bool) {
	for {
		if edge, keys := facade.ButtonEdge(); edge && keys.Contains(hardware.KeyHash) {
			return -1, false
		}

		id := facade.ReadCard()
		if id <= 0 {
			disp.ScanningAnimation("Scan User Card", palette.Process)
			time.Sleep(tickInterval)
			continue
		}

		details, err := auth.GetCardDetails(ctx, id, profile.TypeID)
		if err != nil {
			disp.Message("DB Error", palette.Unauth)
			waitForRemoval(facade, id)
			continue
		}
		if details.CardType != authclient.CardUser {
			disp.Message("Not A User Card", palette.Unauth)
			waitForRemoval(facade, id)
			continue
		}
		if details.UserIsAuthorized {
			disp.Message("Already Auth", palette.Unauth)
			waitForRemoval(facade, id)
			continue
		}

		return id, true
	}
}

// waitForAnyRemoval blocks until no card is present, bounded by
// removalTimeout.
func waitForAnyRemoval(facade hardware.Facade) {
	deadline := time.Now().Add(removalTimeout)
	for time.Now().Before(deadline) {
		if facade.ReadCard() <= 0 {
			return
		}
		time.Sleep(tickInterval)
	}
}
