// Package bootstrap implements C7, the boot-time sequence that runs
// once before the main loop starts: connect WiFi, ensure the appliance
// is registered with the central registry, then fetch its equipment
// profile (spec.md §4.1 Setup state, §12 supplemental "equipment role /
// activation check"). Every step displays its own status on the LCD,
// grounded in the original firmware's connect_wifi/get_equipment_role
// sequence (original_source/Firmware/Service.py) and the teacher's
// device_manager.go cooldown-and-retry shape for the WiFi leg.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/config"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

// wifiRetryDelay is the cooldown between connection attempts, mirroring
// the teacher's DeviceErrorCooldownPeriod shape (nfc/device_manager.go)
// rather than the registry's own 1s/5s policies, since a failed WiFi
// association is a local condition, not a registry round-trip.
const wifiRetryDelay = 3 * time.Second

// ConnectWiFi associates the facade's Network role to wifi.SSID,
// retrying with a fixed cooldown until it succeeds or ctx is done. It
// is a precondition of every later Bootstrap step, since EnsureRegistered
// and GetProfile need a live link.
func ConnectWiFi(ctx context.Context, facade hardware.Facade, disp *display.Coordinator, palette display.Palette, wifi config.WiFi, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "bootstrap").Logger()
	disp.TwoLine("Connecting to", "WiFi...", palette.Setup)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := facade.Connect(ctx, wifi.SSID, wifi.Password)
		if err == nil && facade.Connected() {
			disp.TwoLine("WiFi Connected", "IP: "+facade.IPDotted(), palette.Auth)
			logger.Info().Str("mac", facade.MACHex()).Str("ip", facade.IPDotted()).Msg("wifi connected")
			return nil
		}
		logger.Warn().Err(err).Str("ssid", wifi.SSID).Msg("wifi connect failed, retrying")
		disp.TwoLine("WiFi Failed!", "Check Settings", palette.Unauth)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wifiRetryDelay):
		}
	}
}

// FetchProfile ensures this appliance's MAC is registered, then fetches
// its equipment profile. Both steps retry forever internally
// (authclient.ProfileRetryPolicy); this function only sequences them and
// narrates progress to the LCD (spec.md §4.1 Setup state).
func FetchProfile(ctx context.Context, facade hardware.Facade, auth authclient.Client, disp *display.Coordinator, palette display.Palette, logger zerolog.Logger) (authclient.EquipmentProfile, error) {
	logger = logger.With().Str("component", "bootstrap").Logger()
	disp.Message("Getting Role...", palette.Process)

	mac := facade.MACHex()
	if err := auth.EnsureRegistered(ctx, mac); err != nil {
		disp.TwoLine("Role Failed!", "Retrying...", palette.Unauth)
		logger.Warn().Err(err).Msg("ensure_registered failed")
		return authclient.EquipmentProfile{}, err
	}

	profile, err := auth.GetProfile(ctx, mac)
	if err != nil {
		disp.TwoLine("Role Failed!", "Retrying...", palette.Unauth)
		logger.Warn().Err(err).Msg("get_profile failed")
		return authclient.EquipmentProfile{}, err
	}

	logger.Info().
		Uint32("equipment_id", profile.EquipmentID).
		Str("type_name", profile.TypeName).
		Uint32("timeout_minutes", profile.TimeoutMinutes).
		Bool("allow_proxy", profile.AllowProxy).
		Msg("discovered identity")

	timeoutLine := fmt.Sprintf("Timeout: %dm", profile.TimeoutMinutes)
	if profile.TimeoutMinutes == 0 {
		timeoutLine = "No Timeout"
	}
	disp.TwoLine(profile.TypeName, timeoutLine, palette.AdminMode)
	time.Sleep(1 * time.Second)

	auth.LogStarted(ctx, profile.EquipmentID)
	disp.Message("Ready!", palette.Auth)
	time.Sleep(500 * time.Millisecond)

	return profile, nil
}

// RecordAndAnnounce records this appliance's current IP with the
// registry and, if announcer is non-nil, advertises the appliance over mDNS
// (announce.go). Called once at boot and again on every WiFi reconnect
// (MaintainNetwork).
func RecordAndAnnounce(ctx context.Context, facade hardware.Facade, auth authclient.Client, profile authclient.EquipmentProfile, announcer *Announcer, logger zerolog.Logger) {
	auth.RecordIP(ctx, profile.EquipmentID, facade.IPDotted())
	if announcer != nil {
		if err := announcer.Announce(profile, facade.IPDotted()); err != nil {
			logger.With().Str("component", "bootstrap").Logger().Warn().Err(err).Msg("mdns announce failed")
		}
	}
}
