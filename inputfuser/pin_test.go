package inputfuser

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

// sequencedFacade wraps MockFacade but returns one scan per call from a
// pre-scripted sequence, letting the test drive VerifyPIN's digit-entry
// loop deterministically instead of needing real concurrent key presses.
type sequencedFacade struct {
	*hardware.MockFacade
	scans []hardware.KeySet
	idx   int
}

func (s *sequencedFacade) KeypadScan() hardware.KeySet {
	if s.idx >= len(s.scans) {
		return hardware.NewKeySet()
	}
	scan := s.scans[s.idx]
	s.idx++
	return scan
}

func digitScans(pin string) []hardware.KeySet {
	var scans []hardware.KeySet
	for _, r := range pin {
		scans = append(scans, hardware.NewKeySet(hardware.Key(r)))
		scans = append(scans, hardware.NewKeySet()) // release between digits
	}
	return scans
}

func TestVerifyPINAcceptsMatchingEntry(t *testing.T) {
	facade := &sequencedFacade{MockFacade: hardware.NewMockFacade(), scans: digitScans("1234")}
	facade.SetCard(0x10)
	clock := hardware.NewMockClock(time.Now())
	auth := authclient.NewMockClient()
	disp := display.New(facade, clock, auth, zerolog.Nop())

	pin := "1234"
	if !VerifyPIN(facade, disp, display.Palette{}, 0x10, &pin) {
		t.Fatalf("expected matching PIN to verify")
	}
}

func TestVerifyPINRejectsNilPIN(t *testing.T) {
	facade := hardware.NewMockFacade()
	clock := hardware.NewMockClock(time.Now())
	auth := authclient.NewMockClient()
	disp := display.New(facade, clock, auth, zerolog.Nop())

	if VerifyPIN(facade, disp, display.Palette{}, 0x10, nil) {
		t.Fatalf("nil PIN must never verify")
	}
}

func TestVerifyPINRejectsSentinelPIN(t *testing.T) {
	facade := hardware.NewMockFacade()
	clock := hardware.NewMockClock(time.Now())
	auth := authclient.NewMockClient()
	disp := display.New(facade, clock, auth, zerolog.Nop())

	sentinel := authclient.NoPIN
	if VerifyPIN(facade, disp, display.Palette{}, 0x10, &sentinel) {
		t.Fatalf("sentinel PIN must never verify")
	}
}

func TestVerifyPINAbortsOnCardRemoval(t *testing.T) {
	facade := &sequencedFacade{MockFacade: hardware.NewMockFacade(), scans: digitScans("12")}
	facade.SetCard(0x10)
	clock := hardware.NewMockClock(time.Now())
	auth := authclient.NewMockClient()
	disp := display.New(facade, clock, auth, zerolog.Nop())

	go func() {
		time.Sleep(30 * time.Millisecond)
		facade.SetCard(-1)
	}()

	pin := "1234"
	if VerifyPIN(facade, disp, display.Palette{}, 0x10, &pin) {
		t.Fatalf("expected verification to abort once the card is removed")
	}
}
