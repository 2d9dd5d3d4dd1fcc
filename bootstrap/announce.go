package bootstrap

import (
	"fmt"

	"github.com/grandcat/zeroconf"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
)

const (
	mdnsServiceType = "_portalbox._tcp"
	mdnsDomain      = "local."
)

// Announcer advertises this appliance on the LAN over mDNS so
// makerspace staff can find its IP without walking up to the LCD
// (SPEC_FULL.md §11, grounded on the teacher's server/server.go
// startMDNS using grandcat/zeroconf). Port is nominal since this
// appliance runs no server of its own; the record exists purely for
// discovery, not connection.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers (or re-registers, on WiFi reconnect) the mDNS
// record for profile. A prior registration is shut down first.
func (a *Announcer) Announce(profile authclient.EquipmentProfile, ip string) error {
	a.Shutdown()

	instance := fmt.Sprintf("portalbox-%d", profile.EquipmentID)
	txt := []string{
		fmt.Sprintf("equipment_id=%d", profile.EquipmentID),
		fmt.Sprintf("type_id=%d", profile.TypeID),
		fmt.Sprintf("type_name=%s", profile.TypeName),
		fmt.Sprintf("location_id=%d", profile.LocationID),
		fmt.Sprintf("ip=%s", ip),
	}

	// Port is nominal: nothing listens on it, the record exists only
	// for discovery (see type doc).
	server, err := zeroconf.Register(instance, mdnsServiceType, mdnsDomain, 1, txt, nil)
	if err != nil {
		return fmt.Errorf("bootstrap: mdns register: %w", err)
	}
	a.server = server
	return nil
}

// Shutdown tears down any active mDNS registration. Safe to call
// repeatedly or when nothing was ever registered.
func (a *Announcer) Shutdown() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}
