//go:build linux

// Real RFID reader binding. The bit-level MFRC522/ISO14443 protocol is
// out of scope (spec.md §1) — this file only extracts a tag's UID and
// converts it to the non-negative integer the rest of the firmware
// consumes, following the teacher's nfc.libnfcDevice.GetTags grounding
// (nfc/device_libnfc.go) but trimmed to the single operation the Hardware
// Facade's RFIDReader interface needs.
package hardware

import (
	"log"
	"strconv"

	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"
)

// LibNFCRFIDReader implements RFIDReader against a real libnfc device.
// Read errors and "no tag in field" both surface as -1, matching
// spec.md §4.1's infallible-facade contract.
type LibNFCRFIDReader struct {
	device nfc.Device
}

// NewLibNFCRFIDReader opens the first available libnfc device connection
// string (e.g. "pn532_uart:/dev/ttyUSB0"). An empty connstring lets
// libnfc auto-detect.
func NewLibNFCRFIDReader(connstring string) (*LibNFCRFIDReader, error) {
	dev, err := nfc.Open(connstring)
	if err != nil {
		return nil, newNotConnectedError("NewLibNFCRFIDReader", err)
	}
	if err := dev.InitiatorInit(); err != nil {
		dev.Close()
		return nil, newNotConnectedError("NewLibNFCRFIDReader", err)
	}
	return &LibNFCRFIDReader{device: dev}, nil
}

func (r *LibNFCRFIDReader) Close() error {
	return r.device.Close()
}

// ReadCard performs one bounded poll: look for a Freefare-supported tag,
// parse its hex UID into an integer. Any failure (no tag, unsupported
// tag, malformed UID) returns -1 rather than an error, per the facade's
// safe-default contract.
func (r *LibNFCRFIDReader) ReadCard() int64 {
	tags, err := freefare.GetTags(r.device)
	if err != nil {
		log.Printf("hardware: RFID poll failed: %v", err)
		return -1
	}
	if len(tags) == 0 {
		return -1
	}
	uid := tags[0].UID()
	id, err := strconv.ParseInt(uid, 16, 64)
	if err != nil {
		log.Printf("hardware: RFID tag %q has unparseable UID: %v", uid, err)
		return -1
	}
	if id < 0 {
		return -1
	}
	return id
}

var _ RFIDReader = (*LibNFCRFIDReader)(nil)
