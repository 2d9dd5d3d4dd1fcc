package fsm

import (
	"time"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
)

// InputFrame is rebuilt once per tick by the Input Fuser and handed to
// Dispatch (spec.md §3, §4.4). CardID is -1 when no card is present;
// UserIsAuthorized is already PIN-gated by the time it reaches the
// Session State Machine (spec.md §4.4 step 8 — PIN verification runs
// inside the Input Fuser, before this frame is built).
type InputFrame struct {
	CardID             int64
	CardType           authclient.CardType
	UserIsAuthorized   bool
	UserAuthorityLevel uint8
	ButtonPressed      bool
	CardRemoval        bool
}

// SessionContext is the single-owner, process-lifetime mutable state
// transitions depend on beyond the current InputFrame (spec.md §3): who
// is authorized, who is training, whether the session came from a proxy,
// and when the current grace/timeout window started.
type SessionContext struct {
	AuthUserID         int64
	ProxyID            int64
	TrainingID         int64
	UserAuthorityLevel uint8
	AllowProxy         bool
	LastStateName      string

	graceStart    time.Time
	graceSeconds  int
	timeoutStart  time.Time
	timeoutMinutes uint32
}

// clearSession resets the identity fields cleared at AccessComplete and
// IdleAuthCard entry (spec.md §3 invariant: "auth_user_id is cleared to
// 0 at exactly one place: entry to AccessComplete (and IdleAuthCard, its
// timeout sibling)").
func (sc *SessionContext) clearSession() {
	sc.AuthUserID = 0
	sc.ProxyID = 0
	sc.TrainingID = 0
	sc.UserAuthorityLevel = 0
	sc.timeoutStart = time.Time{}
	sc.graceStart = time.Time{}
}
