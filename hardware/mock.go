package hardware

import (
	"context"
	"sync"
	"time"
)

// MockFacade is a test double implementing Facade without physical
// hardware, following the shape of nfc.MockManager/nfc.MockDevice in the
// retrieval pack: pre-seeded responses plus a CallLog for assertions.
type MockFacade struct {
	mu sync.Mutex

	// CardID is returned by ReadCard. Set to -1 for "no card".
	CardID int64

	// Keys is returned by KeypadScan.
	Keys KeySet

	// pending button edge state
	buttonEdgePending bool

	RelayOn bool

	LastLine1, LastLine2 string
	LastBacklight        RGB
	LCDWriteCount        int

	LastLEDFill RGB
	RainbowCalls int

	LastBeep      BeepKind
	BeepStarts    int
	BeepStops     int
	TickCount     int

	MAC string
	IP  string

	// ConnectErr, when set, is returned by Connect instead of succeeding.
	ConnectErr error
	connected  bool

	CallLog []string
}

// NewMockFacade creates a MockFacade with no card present and default
// identity strings.
func NewMockFacade() *MockFacade {
	return &MockFacade{
		CardID: -1,
		Keys:   NewKeySet(),
		MAC:    "de:ad:be:ef:00:01",
		IP:     "192.0.2.10",
	}
}

func (m *MockFacade) log(s string) {
	m.CallLog = append(m.CallLog, s)
}

func (m *MockFacade) ReadCard() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("ReadCard")
	return m.CardID
}

// SetCard is a test helper to present or remove a card.
func (m *MockFacade) SetCard(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CardID = id
}

func (m *MockFacade) KeypadScan() KeySet {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("KeypadScan")
	return m.Keys
}

// PressKeys is a test helper setting the keys observed on the next scan.
func (m *MockFacade) PressKeys(keys ...Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = NewKeySet(keys...)
	if len(keys) > 0 {
		m.buttonEdgePending = true
	}
}

func (m *MockFacade) ButtonEdge() (bool, KeySet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("ButtonEdge")
	edge := m.buttonEdgePending
	m.buttonEdgePending = false
	return edge, m.Keys
}

func (m *MockFacade) LCDWrite(line1, line2 string, backlight RGB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if line1 == m.LastLine1 && line2 == m.LastLine2 && backlight == m.LastBacklight {
		return
	}
	m.LastLine1, m.LastLine2, m.LastBacklight = line1, line2, backlight
	m.LCDWriteCount++
	m.log("LCDWrite:" + line1 + "|" + line2)
}

func (m *MockFacade) LEDsFill(rgb RGB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastLEDFill = rgb
	m.log("LEDsFill")
}

func (m *MockFacade) LEDsRainbow() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RainbowCalls++
	m.log("LEDsRainbow")
}

func (m *MockFacade) Beep(kind BeepKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastBeep = kind
	m.log("Beep:" + kind.String())
}

func (m *MockFacade) BeepStart(freqHz int, duration time.Duration, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BeepStarts++
	m.log("BeepStart")
}

func (m *MockFacade) BeepStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BeepStops++
	m.log("BeepStop")
}

func (m *MockFacade) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TickCount++
}

func (m *MockFacade) SetRelay(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RelayOn = on
	m.log("SetRelay")
}

func (m *MockFacade) Connect(ctx context.Context, ssid, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("Connect:" + ssid)
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.connected = true
	return nil
}

func (m *MockFacade) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockFacade) MACHex() string {
	return m.MAC
}

func (m *MockFacade) IPDotted() string {
	return m.IP
}

var _ Facade = (*MockFacade)(nil)
