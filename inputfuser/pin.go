package inputfuser

import (
	"strconv"
	"strings"
	"time"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

// digitDebounce is the interval between keypad polls while collecting a
// PIN; spec.md §5 calls out 25ms button debounce generally, and §4.7's
// digit collection reuses that cadence.
const digitDebounce = 25 * time.Millisecond

// maxPINAttempts is the number of tries before PIN verification gives up
// (spec.md §4.7: "After three failures, return unauthorized").
const maxPINAttempts = 3

// VerifyPIN implements the PIN Verification protocol (spec.md §4.7): it
// blocks the calling tick, polling the keypad and card presence directly,
// grounded in the teacher's polling-loop-with-sleep worker shape
// (nfc.NFCReader.worker's ticker-driven select loop, adapted here to a
// plain sleep loop since PIN entry has no competing event source to
// select over). A nil or sentinel PIN always rejects regardless of
// server-side authorization (spec.md §4.7, §8 "PIN property").
func VerifyPIN(facade hardware.Facade, disp *display.Coordinator, palette display.Palette, cardID int64, pin *string) bool {
	if pin == nil || *pin == authclient.NoPIN || *pin == "" {
		return false
	}

	for attempts := maxPINAttempts; attempts > 0; attempts-- {
		disp.TwoLine("Please Enter Pin", attemptsLine(attempts), palette.Process)

		entered, removed := readPINDigits(facade, disp, palette, cardID)
		if removed {
			disp.Message("Card Removed", palette.Unauth)
			return false
		}
		if entered == *pin {
			return true
		}
		disp.Message("Incorrect Pin", palette.Unauth)
	}
	return false
}

func attemptsLine(attempts int) string {
	return "Attempts: " + strconv.Itoa(attempts)
}

// readPINDigits polls the keypad until 4 digits are collected, aborting
// early if the card is removed mid-entry (spec.md §4.7: "at each digit,
// verify the card is still present; on removal, abort"). The displayed
// PIN is masked with asterisks as digits accumulate.
func readPINDigits(facade hardware.Facade, disp *display.Coordinator, palette display.Palette, cardID int64) (string, bool) {
	var digits []rune
	lastKeys := hardware.NewKeySet()

	for len(digits) < 4 {
		if facade.ReadCard() != cardID {
			return "", true
		}
		scan := facade.KeypadScan()
		for _, k := range scan.Digits() {
			if !lastKeys.Contains(k) {
				digits = append(digits, rune(k))
				disp.TwoLine("Please Enter Pin", strings.Repeat("*", len(digits)), palette.Process)
				break
			}
		}
		lastKeys = scan
		time.Sleep(digitDebounce)
	}
	return string(digits), false
}
