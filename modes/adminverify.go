package modes

import (
	"context"
	"time"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
	"github.com/oss-makerspace/portalbox-firmware/inputfuser"
)

// removalTimeout bounds how long certification mode's "Admin Verified /
// Remove Card" step waits before giving up (spec.md §4.6: "≤10 s").
const removalTimeout = 10 * time.Second

// adminGate blocks until an admin-level card (authority >= 3) presents
// and PIN-verifies, or cancelKey is pressed. Both Special Modes gate
// entry this way (spec.md §4.6: card-reader mode "via * and a successful
// PIN verification for any admin-level card"; certification mode's
// waiting_admin sub-state).
func adminGate(ctx context.Context, facade hardware.Facade, auth authclient.Client, disp *display.Coordinator, palette display.Palette, profile authclient.EquipmentProfile, cancelKey hardware.Key) (cardID int64, ok bool) {
	for {
		if edge, keys := facade.ButtonEdge(); edge && keys.Contains(cancelKey) {
			return -1, false
		}

		id := facade.ReadCard()
		if id <= 0 {
			disp.ScanningAnimation("Scan Admin Card", palette.AdminMode)
			time.Sleep(tickInterval)
			continue
		}

		details, err := auth.GetCardDetails(ctx, id, profile.TypeID)
		if err != nil || details.UserAuthorityLevel < 3 {
			disp.Message("Not Admin", palette.Unauth)
			waitForRemoval(facade, id)
			continue
		}

		if !inputfuser.VerifyPIN(facade, disp, palette, id, details.PIN) {
			disp.Message("PIN Failed", palette.Unauth)
			waitForRemoval(facade, id)
			continue
		}

		return id, true
	}
}

// waitForRemoval blocks until cardID leaves the field, bounded by
// removalTimeout so a stuck card can't wedge a Special Mode forever.
func waitForRemoval(facade hardware.Facade, cardID int64) {
	deadline := time.Now().Add(removalTimeout)
	for time.Now().Before(deadline) {
		if facade.ReadCard() != cardID {
			return
		}
		time.Sleep(tickInterval)
	}
}
