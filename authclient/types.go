// Package authclient implements the Authorization Client (spec.md §4.2,
// C2): a synchronous HTTP/1.1 client to the central equipment-access
// registry. It is the only component that talks to the network; the
// Session State Machine never makes HTTP calls directly.
//
// There is no HTTP-client-with-bearer-auth grounding anywhere in the
// retrieval pack, so the client's shape is modeled on the teacher's
// general struct-based, context-aware, wrapped-error style
// (nfc/errors.go, tls/manager.go) plus github.com/cenkalti/backoff
// (promoted here from the teacher's indirect dependency to a direct one)
// for the retry policy spec.md §9 calls out as a named type.
package authclient

import "fmt"

// CardType tags which kind of card was presented. Invalid covers both
// "no card" and "unknown card id"; spec.md §3 distinguishes the two via
// the companion card_id (-1 for no card).
type CardType int

const (
	CardInvalid CardType = iota
	CardShutdown
	CardProxy
	CardTraining
	CardUser
)

func (t CardType) String() string {
	switch t {
	case CardShutdown:
		return "shutdown"
	case CardProxy:
		return "proxy"
	case CardTraining:
		return "training"
	case CardUser:
		return "user"
	default:
		return "invalid"
	}
}

// ParseCardType maps the registry's wire representation (an integer or
// string) to a CardType, defaulting to CardInvalid for anything
// unrecognized (spec.md §7 "Unexpected state": malformed CardType must
// never propagate past the Authorization Client).
func ParseCardType(raw any) CardType {
	switch v := raw.(type) {
	case float64:
		return cardTypeFromInt(int(v))
	case int:
		return cardTypeFromInt(v)
	case string:
		switch v {
		case "shutdown", "Shutdown", "1":
			return CardShutdown
		case "proxy", "Proxy", "2":
			return CardProxy
		case "training", "Training", "3":
			return CardTraining
		case "user", "User", "4":
			return CardUser
		default:
			return CardInvalid
		}
	default:
		return CardInvalid
	}
}

func cardTypeFromInt(v int) CardType {
	switch v {
	case 1:
		return CardShutdown
	case 2:
		return CardProxy
	case 3:
		return CardTraining
	case 4:
		return CardUser
	default:
		return CardInvalid
	}
}

// EquipmentProfile is immutable after Bootstrap fetches it once
// (spec.md §3).
type EquipmentProfile struct {
	EquipmentID      uint32
	TypeID           uint32
	TypeName         string
	LocationID       uint32
	LocationName     string
	TimeoutMinutes   uint32 // 0 = infinite
	AllowProxy       bool
	RequiresTraining bool
	RequiresPayment  bool
}

// NoPIN is the sentinel meaning "card has no PIN on file"; PIN
// verification must reject such a card regardless of server-side
// authorization (spec.md §4.7, §8 PIN property).
const NoPIN = "-1"

// CardDetails is the server-derived per-read card information
// (spec.md §3).
type CardDetails struct {
	CardType            CardType
	UserAuthorityLevel  uint8 // 1 user, 2 trainer, 3+ admin
	UserIsAuthorized    bool
	PIN                 *string // nil or NoPIN both mean "no usable PIN"
}

// HasUsablePIN reports whether d carries a PIN that is not nil, empty or
// the NoPIN sentinel, per the PIN property in spec.md §8: absent or
// sentinel PIN always rejects the user regardless of UserIsAuthorized.
// The PIN's length and characters are not checked.
func (d CardDetails) HasUsablePIN() bool {
	return d.PIN != nil && *d.PIN != NoPIN && *d.PIN != ""
}

// IsAuthorized reproduces the server-side authorization policy
// client-side (spec.md §4.2), so the same boolean can be recomputed from
// raw inputs in tests without round-tripping the registry.
func IsAuthorized(active, requiresTraining, requiresPayment, userAuth bool, balance float64) bool {
	if !active {
		return false
	}
	switch {
	case requiresTraining && requiresPayment:
		return userAuth && balance > 0
	case requiresTraining && !requiresPayment:
		return userAuth
	case !requiresTraining && requiresPayment:
		return balance > 0
	default:
		return true
	}
}

// Error wraps a registry call failure with enough context to log
// meaningfully and to classify per spec.md §7's error-kind taxonomy.
type Error struct {
	Mode  string // the `mode` query parameter of the failing call
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("authclient: mode=%s: %v", e.Mode, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
