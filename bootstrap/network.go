package bootstrap

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/config"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

// linkCheckInterval is how often MaintainNetwork polls the link state.
const linkCheckInterval = 5 * time.Second

// MaintainNetwork runs in the background for the lifetime of the
// appliance, reconnecting WiFi with backoff whenever the link drops and
// re-announcing the appliance's IP on every reconnect (SPEC_FULL.md §12
// "WiFi reconnect loop"). It never blocks the main loop; callers launch
// it with `go bootstrap.MaintainNetwork(...)` once at startup.
func MaintainNetwork(ctx context.Context, facade hardware.Facade, auth authclient.Client, profile authclient.EquipmentProfile, wifi config.WiFi, announcer *Announcer, logger zerolog.Logger) {
	logger = logger.With().Str("component", "bootstrap.network").Logger()
	ticker := time.NewTicker(linkCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if facade.Connected() {
				continue
			}
			logger.Warn().Msg("wifi link down, reconnecting")
			for !facade.Connected() {
				if ctx.Err() != nil {
					return
				}
				if err := facade.Connect(ctx, wifi.SSID, wifi.Password); err != nil {
					logger.Warn().Err(err).Msg("reconnect attempt failed")
					select {
					case <-ctx.Done():
						return
					case <-time.After(wifiRetryDelay):
					}
					continue
				}
			}
			logger.Info().Str("ip", facade.IPDotted()).Msg("wifi link restored")
			RecordAndAnnounce(ctx, facade, auth, profile, announcer, logger)
		}
	}
}
