package display

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

func newTestCoordinator() (*Coordinator, *hardware.MockFacade, *hardware.MockClock) {
	facade := hardware.NewMockFacade()
	clock := hardware.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	auth := authclient.NewMockClient()
	c := New(facade, clock, auth, zerolog.Nop())
	return c, facade, clock
}

func TestTwoLineDedupesIdenticalWrites(t *testing.T) {
	c, facade, _ := newTestCoordinator()
	red := hardware.RGB{R: 255}

	c.TwoLine("Hello", "World", red)
	c.TwoLine("Hello", "World", red)

	if facade.LCDWriteCount != 1 {
		t.Errorf("expected 1 LCD write for identical content, got %d", facade.LCDWriteCount)
	}
}

func TestTwoLineRewritesOnChange(t *testing.T) {
	c, facade, _ := newTestCoordinator()
	red := hardware.RGB{R: 255}

	c.TwoLine("Hello", "World", red)
	c.TwoLine("Hello", "There", red)

	if facade.LCDWriteCount != 2 {
		t.Errorf("expected 2 LCD writes after content change, got %d", facade.LCDWriteCount)
	}
}

func TestMessageCentersText(t *testing.T) {
	c, facade, _ := newTestCoordinator()
	c.Message("Hi", hardware.RGB{})
	if len(facade.LastLine1) != lineWidth {
		t.Fatalf("expected centered line of width %d, got %q (%d)", lineWidth, facade.LastLine1, len(facade.LastLine1))
	}
}

func TestScanningAnimationRespectsFloor(t *testing.T) {
	c, facade, clock := newTestCoordinator()
	c.ScanningAnimation("Scanning", hardware.RGB{})
	first := facade.LastLine1

	c.ScanningAnimation("Scanning", hardware.RGB{})
	if facade.LastLine1 != first {
		t.Errorf("expected no redraw before the 250ms floor elapses")
	}

	clock.Advance(scanningFloor)
	c.ScanningAnimation("Scanning", hardware.RGB{})
	if facade.LastLine1 == first {
		t.Errorf("expected redraw once the floor elapses")
	}
}

func TestGraceTimerCountsDownMonotonically(t *testing.T) {
	c, _, clock := newTestCoordinator()
	c.GraceTimerStart(10, hardware.RGB{})

	prev := c.GraceTimerUpdate(hardware.RGB{})
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		next := c.GraceTimerUpdate(hardware.RGB{})
		if next > prev {
			t.Fatalf("grace remaining increased: %d -> %d", prev, next)
		}
		prev = next
	}
}

func TestWelcomeFallsBackOnLookupError(t *testing.T) {
	facade := hardware.NewMockFacade()
	clock := hardware.NewMockClock(time.Now())
	auth := authclient.NewMockClient()
	auth.FirstNameErr = context.DeadlineExceeded
	c := New(facade, clock, auth, zerolog.Nop())

	c.Welcome(context.Background(), 42, hardware.RGB{})
	if facade.LastLine1 != padTrunc("Welcome") {
		t.Errorf("expected bare Welcome fallback, got %q", facade.LastLine1)
	}
}
