package authclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*RealClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewRealClient(srv.URL, "api.php", "test-token", 2*time.Second, zerolog.Nop())
	return c, srv
}

func TestGetProfileDecodesObject(t *testing.T) {
	c, srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") != "get_profile" {
			t.Errorf("expected mode=get_profile, got %s", r.URL.Query().Get("mode"))
		}
		fmt.Fprint(w, `{"equipment_id": 12, "type_id": 3, "type_name": "Laser", "timeout_minutes": 30, "allow_proxy": true, "requires_training": true, "requires_payment": false}`)
	})
	defer srv.Close()

	profile, err := c.GetProfile(context.Background(), "aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.EquipmentID != 12 || profile.TypeName != "Laser" || !profile.AllowProxy {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

func TestGetCardDetailsDecodesArrayResponse(t *testing.T) {
	c, srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"card_type": 4, "user_authority_level": 1, "user_is_authorized": true, "pin": "1234"}]`)
	})
	defer srv.Close()

	details, err := c.GetCardDetails(context.Background(), 555, 3)
	if err != nil {
		t.Fatalf("GetCardDetails failed: %v", err)
	}
	if details.CardType != CardUser || !details.UserIsAuthorized || !details.HasUsablePIN() {
		t.Errorf("unexpected details: %+v", details)
	}
}

func TestLogAccessAttemptSwallowsError(t *testing.T) {
	c, srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	// Must not panic or block; failure is logged and dropped.
	c.LogAccessAttempt(context.Background(), 1, 2, true)
}

func TestEnsureRegisteredRegistersWhenUnknown(t *testing.T) {
	var calls []string
	c, srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("mode")
		calls = append(calls, mode)
		if mode == "check_reg" {
			fmt.Fprint(w, `false`)
			return
		}
		fmt.Fprint(w, `true`)
	})
	defer srv.Close()

	if err := c.EnsureRegistered(context.Background(), "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatalf("EnsureRegistered failed: %v", err)
	}
	if len(calls) != 2 || calls[0] != "check_reg" {
		t.Errorf("expected check_reg then register, got %v", calls)
	}
}
