package fsm

import (
	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

// Collaborators bundles everything a state's entry/exit actions may
// touch: the Authorization Client, the Display Coordinator, the power
// and buzzer halves of the Hardware Facade, the clock, the immutable
// equipment profile and the grace period setting (spec.md §9 "a single
// dispatch function that takes (&mut SessionContext, &InputFrame, &mut
// ExternalCollaborators)").
type Collaborators struct {
	Auth         authclient.Client
	Display      *display.Coordinator
	Palette      display.Palette
	Relay        hardware.Relay
	Buzzer       hardware.Buzzer
	Clock        hardware.Clock
	Profile      authclient.EquipmentProfile
	GraceSeconds int
	Logger       zerolog.Logger
}
