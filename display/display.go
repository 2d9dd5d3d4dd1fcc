// Package display implements the Display Coordinator (spec.md §4.3, C3):
// an idempotence layer over hardware.Display/hardware.LEDs that dedupes
// writes, renders two-line/centered text, a scanning animation, and the
// grace-period progress bar. Grounded in the teacher's idempotent-write
// pattern for slow peripherals (nfc/device.go's commit-on-change style)
// generalized from a single field to the (line1, line2, color) triple
// spec.md §4.3 requires.
package display

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/config"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

const lineWidth = 16

// scanningFloor is the minimum interval between scanning-animation
// redraws (spec.md §4.3: "updates at most every 250 ms").
const scanningFloor = 250 * time.Millisecond

// Palette resolves the symbolic color names of spec.md §6 to RGB values,
// built once from config.Display at bootstrap.
type Palette struct {
	Setup          hardware.RGB
	Auth           hardware.RGB
	Unauth         hardware.RGB
	Proxy          hardware.RGB
	Training       hardware.RGB
	Sleep          hardware.RGB
	NoCardGrace    hardware.RGB
	GraceTimeout   hardware.RGB
	Timeout        hardware.RGB
	UnauthCardGrace hardware.RGB
	AdminMode      hardware.RGB
	Process        hardware.RGB
}

// NewPalette converts config.Display's RGBConfig fields into a Palette.
func NewPalette(d config.Display) Palette {
	conv := func(c config.RGBConfig) hardware.RGB {
		return hardware.RGB{R: c.R, G: c.G, B: c.B}
	}
	return Palette{
		Setup:           conv(d.SetupColor),
		Auth:            conv(d.AuthColor),
		Unauth:          conv(d.UnauthColor),
		Proxy:           conv(d.ProxyColor),
		Training:        conv(d.TrainingColor),
		Sleep:           conv(d.SleepColor),
		NoCardGrace:     conv(d.NoCardGraceColor),
		GraceTimeout:    conv(d.GraceTimeoutColor),
		Timeout:         conv(d.TimeoutColor),
		UnauthCardGrace: conv(d.UnauthCardGraceColor),
		AdminMode:       conv(d.AdminModeColor),
		Process:         conv(d.ProcessColor),
	}
}

// Coordinator wraps a hardware.Facade's LCD/LED surface with the
// idempotence, centering and animation logic spec.md §4.3 describes.
type Coordinator struct {
	facade interface {
		hardware.Display
		hardware.LEDs
	}
	clock   hardware.Clock
	auth    authclient.Client
	logger  zerolog.Logger

	lastLine1, lastLine2 string
	lastColor            hardware.RGB
	committed             bool

	animPrefix    string
	animFrame     int
	animLastDraw  time.Time

	graceTotal time.Duration
	graceStart time.Time
	graceSet   bool
}

// New creates a Coordinator. facade supplies the LCD/LED write surface;
// auth is consulted by Welcome to resolve a card's first name.
func New(facade interface {
	hardware.Display
	hardware.LEDs
}, clock hardware.Clock, auth authclient.Client, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		facade: facade,
		clock:  clock,
		auth:   auth,
		logger: logger.With().Str("component", "display").Logger(),
	}
}

func center(s string) string {
	s = truncate(s, lineWidth)
	if len(s) >= lineWidth {
		return s
	}
	left := (lineWidth - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", lineWidth-len(s)-left)
}

func padTrunc(s string) string {
	s = truncate(s, lineWidth)
	if len(s) < lineWidth {
		return s + strings.Repeat(" ", lineWidth-len(s))
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// write is the single idempotent entry point every other method funnels
// through: it skips the hardware call entirely when (line1, line2, rgb)
// matches the last committed state (spec.md §4.3, §9 "Display idempotence").
func (c *Coordinator) write(line1, line2 string, rgb hardware.RGB) {
	if c.committed && line1 == c.lastLine1 && line2 == c.lastLine2 && rgb == c.lastColor {
		return
	}
	c.facade.LCDWrite(line1, line2, rgb)
	blue := hardware.RGB{R: 0, G: 0, B: 255}
	if rgb == blue {
		// A literal "blue" backlight request triggers the rainbow LED
		// animation rather than a solid fill (spec.md §4.3).
		c.facade.LEDsRainbow()
	} else {
		c.facade.LEDsFill(rgb)
	}
	c.lastLine1, c.lastLine2, c.lastColor = line1, line2, rgb
	c.committed = true
}

// Message writes a single line, centered, leaving the second line blank.
func (c *Coordinator) Message(text string, color hardware.RGB) {
	c.write(center(text), padTrunc(""), color)
}

// TwoLine writes both lines, each truncated/padded to 16 characters.
func (c *Coordinator) TwoLine(line1, line2 string, color hardware.RGB) {
	c.write(padTrunc(line1), padTrunc(line2), color)
}

// Welcome resolves to "Welcome <first-name>" / "Machine On" by
// consulting the Authorization Client for the card's profile details;
// it falls back to the generic "Welcome" on error (spec.md §4.3).
func (c *Coordinator) Welcome(ctx context.Context, cardID int64, color hardware.RGB) {
	line1 := "Welcome"
	name, err := c.auth.GetUserFirstName(ctx, cardID)
	if err != nil {
		c.logger.Warn().Err(err).Int64("card_id", cardID).Msg("welcome name lookup failed")
	} else if name != "" {
		line1 = "Welcome " + name
	}
	c.TwoLine(line1, "Machine On", color)
}

// ScanningAnimation renders `prefix` followed by 0-3 trailing dots,
// cycling once per call but never redrawing faster than scanningFloor
// (spec.md §4.3). Calling with an unchanged prefix continues the dot
// cycle instead of resetting it, so repeated per-tick calls animate
// smoothly (SPEC_FULL.md §12 "scanning-animation easing").
func (c *Coordinator) ScanningAnimation(prefix string, color hardware.RGB) {
	now := c.clock.Now()
	if prefix != c.animPrefix {
		c.animPrefix = prefix
		c.animFrame = 0
		c.animLastDraw = time.Time{}
	}
	if !c.animLastDraw.IsZero() && now.Sub(c.animLastDraw) < scanningFloor {
		return
	}
	dots := strings.Repeat(".", c.animFrame)
	c.Message(prefix+dots, color)
	c.animFrame = (c.animFrame + 1) % 4
	c.animLastDraw = now
}

// GraceTimerStart begins a grace countdown of totalSeconds, rendering
// the initial "Insert Card" / full progress bar frame.
func (c *Coordinator) GraceTimerStart(totalSeconds int, color hardware.RGB) {
	c.graceTotal = time.Duration(totalSeconds) * time.Second
	c.graceStart = c.clock.Now()
	c.graceSet = true
	c.GraceTimerUpdate(color)
}

// GraceTimerUpdate renders "Insert Card" / "[####------] Ns" based on
// elapsed wall-clock time since GraceTimerStart, returning the whole
// seconds remaining (spec.md §4.3).
func (c *Coordinator) GraceTimerUpdate(color hardware.RGB) int {
	if !c.graceSet {
		return 0
	}
	elapsed := c.clock.Now().Sub(c.graceStart)
	remaining := c.graceTotal - elapsed
	if remaining < 0 {
		remaining = 0
	}
	remainingSeconds := int(remaining / time.Second)
	if remaining%time.Second != 0 {
		remainingSeconds++
	}

	barWidth := 10
	filled := barWidth
	if c.graceTotal > 0 {
		filled = int(float64(barWidth) * float64(elapsed) / float64(c.graceTotal))
		if filled > barWidth {
			filled = barWidth
		}
		if filled < 0 {
			filled = 0
		}
	}
	bar := fmt.Sprintf("[%s%s] %ds", strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), remainingSeconds)
	c.TwoLine("Insert Card", bar, color)
	return remainingSeconds
}
