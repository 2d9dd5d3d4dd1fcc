// Command portalbox-firmware is the equipment access-control appliance
// entry point: it loads configuration, connects WiFi, fetches this
// appliance's equipment profile, then runs the ~10Hz main loop that
// polls inputs, dispatches the Session State Machine, and drives the
// display and buzzer (spec.md §5). Structured as a flag-parsed CLI plus
// a signal-driven shutdown, following the teacher's main.go shape
// (flag.Parse, signal.Notify(SIGINT, SIGTERM), a graceful-shutdown
// helper) without its systray/WebSocket server, since this appliance has
// no server role of its own (spec.md §1, §4.2).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/bootstrap"
	"github.com/oss-makerspace/portalbox-firmware/buildinfo"
	"github.com/oss-makerspace/portalbox-firmware/config"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/fsm"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
	"github.com/oss-makerspace/portalbox-firmware/inputfuser"
	"github.com/oss-makerspace/portalbox-firmware/modes"
)

// tickInterval is the main loop's own cadence (spec.md §5 "~10Hz").
const tickInterval = 100 * time.Millisecond

var (
	configPathFlag = flag.String("config", "/etc/portalbox/config.json", "path to the on-device configuration file")
	connectTimeout = flag.Duration("connect-timeout", 10*time.Second, "registry HTTP connect timeout")
	logLevelFlag   = flag.String("log-level", "info", "zerolog level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	logger := newLogger(*logLevelFlag)
	logger.Info().Msg(buildinfo.BuildInfo())

	cfg, err := config.Load(*configPathFlag)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPathFlag).Msg("configuration-absent: cannot start")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Per-board peripheral drivers (keypad matrix, LCD serial encoding,
	// LED strip protocol, buzzer PWM, relay/interlock GPIO, WiFi station
	// bring-up) are out of scope beyond this abstract interface
	// (spec.md §1); only the RFID leg has a real binding
	// (hardware/rfid_libnfc.go, linux build tag). Production images
	// compose a board-specific hardware.Facade here; this entry point
	// runs against the mock until that wiring exists.
	facade := hardware.NewMockFacade()
	clock := hardware.NewRealClock()

	auth := authclient.NewRealClient(cfg.DB.Website, cfg.DB.API, cfg.DB.BearerToken, *connectTimeout, logger)
	disp := display.New(facade, clock, auth, logger)
	palette := display.NewPalette(cfg.Display)

	if err := bootstrap.ConnectWiFi(ctx, facade, disp, palette, cfg.WiFi, logger); err != nil {
		logger.Fatal().Err(err).Msg("wifi connect aborted")
	}

	profile, err := bootstrap.FetchProfile(ctx, facade, auth, disp, palette, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap aborted before a profile could be assigned")
	}

	announcer := &bootstrap.Announcer{}
	bootstrap.RecordAndAnnounce(ctx, facade, auth, profile, announcer, logger)
	defer announcer.Shutdown()

	go bootstrap.MaintainNetwork(ctx, facade, auth, profile, cfg.WiFi, announcer, logger)

	collaborators := &fsm.Collaborators{
		Auth:         auth,
		Display:      disp,
		Palette:      palette,
		Relay:        facade,
		Buzzer:       facade,
		Clock:        clock,
		Profile:      profile,
		GraceSeconds: cfg.UserExp.GracePeriodSeconds,
		Logger:       logger,
	}
	machine := fsm.New(ctx, collaborators)
	fuser := inputfuser.New(facade, auth, disp, palette, profile, logger)

	logger.Info().Msg("entering main loop")
	runLoop(ctx, facade, auth, disp, palette, profile, machine, fuser, logger)
	logger.Info().Msg("main loop exited, shutting down")
}

// runLoop implements spec.md §5's per-tick ordering: poll inputs,
// dispatch the FSM (or a Special Mode, which fully preempts dispatch),
// update the display, advance the buzzer effect scheduler, sleep.
func runLoop(ctx context.Context, facade hardware.Facade, auth authclient.Client, disp *display.Coordinator, palette display.Palette, profile authclient.EquipmentProfile, machine *fsm.FSM, fuser *inputfuser.Fuser, logger zerolog.Logger) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, modeReq := fuser.Tick(ctx, machine.State())

		switch {
		case modeReq.EnterCardReader:
			modes.RunCardReaderMode(ctx, facade, auth, disp, palette, profile, logger)
		case modeReq.EnterCertification:
			modes.RunCertificationMode(ctx, facade, auth, disp, palette, profile, logger)
		default:
			prev := machine.State()
			next := machine.Dispatch(ctx, frame)
			fuser.NotifyStateTransition(prev, next)
		}

		facade.Tick()

		if machine.Terminal() {
			return
		}
	}
}

// newLogger builds the process-wide zerolog.Logger, console-formatted
// for a foreground service following the teacher's bare-stdout log
// convention (main.go's log.Printf) but with leveled, structured
// output (SPEC_FULL.md §10.1).
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Str("app", buildinfo.Name).
		Logger()
}
