package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/authclient"
	"github.com/oss-makerspace/portalbox-firmware/config"
	"github.com/oss-makerspace/portalbox-firmware/display"
	"github.com/oss-makerspace/portalbox-firmware/hardware"
)

func newTestBootstrapDeps() (*hardware.MockFacade, *authclient.MockClient, *display.Coordinator) {
	facade := hardware.NewMockFacade()
	clock := hardware.NewMockClock(time.Now())
	auth := authclient.NewMockClient()
	disp := display.New(facade, clock, auth, zerolog.Nop())
	return facade, auth, disp
}

func TestConnectWiFiSucceedsImmediately(t *testing.T) {
	facade, _, disp := newTestBootstrapDeps()
	wifi := config.WiFi{SSID: "shop-iot", Password: "secret"}

	if err := ConnectWiFi(context.Background(), facade, disp, display.Palette{}, wifi, zerolog.Nop()); err != nil {
		t.Fatalf("ConnectWiFi returned error: %v", err)
	}
	if !facade.Connected() {
		t.Fatalf("expected facade to report connected")
	}
}

func TestConnectWiFiRetriesThenSucceeds(t *testing.T) {
	facade, _, disp := newTestBootstrapDeps()
	facade.ConnectErr = errors.New("association failed")
	wifi := config.WiFi{SSID: "shop-iot", Password: "secret"}

	done := make(chan error, 1)
	go func() {
		done <- ConnectWiFi(context.Background(), facade, disp, display.Palette{}, wifi, zerolog.Nop())
	}()

	time.Sleep(20 * time.Millisecond)
	facade.ConnectErr = nil

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ConnectWiFi returned error: %v", err)
		}
	case <-time.After(2 * wifiRetryDelay):
		t.Fatal("ConnectWiFi did not recover after transient failure")
	}
}

func TestConnectWiFiAbortsOnContextCancel(t *testing.T) {
	facade, _, disp := newTestBootstrapDeps()
	facade.ConnectErr = errors.New("association failed")
	wifi := config.WiFi{SSID: "shop-iot", Password: "secret"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ConnectWiFi(ctx, facade, disp, display.Palette{}, wifi, zerolog.Nop())
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected ConnectWiFi to return an error on cancellation")
		}
	case <-time.After(2 * wifiRetryDelay):
		t.Fatal("ConnectWiFi did not return after context cancellation")
	}
}

func TestFetchProfileReturnsProfileOnSuccess(t *testing.T) {
	facade, auth, disp := newTestBootstrapDeps()
	auth.Profile = authclient.EquipmentProfile{EquipmentID: 7, TypeName: "3D Printer", TimeoutMinutes: 30}

	profile, err := FetchProfile(context.Background(), facade, auth, disp, display.Palette{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("FetchProfile returned error: %v", err)
	}
	if profile.EquipmentID != 7 {
		t.Errorf("expected equipment_id 7, got %d", profile.EquipmentID)
	}
	if len(auth.StartedCalls) != 1 || auth.StartedCalls[0] != 7 {
		t.Errorf("expected LogStarted(7) to be recorded, got %+v", auth.StartedCalls)
	}
}

func TestFetchProfileSurfacesRegistryError(t *testing.T) {
	facade, auth, disp := newTestBootstrapDeps()
	auth.ProfileErr = errors.New("registry unreachable")

	if _, err := FetchProfile(context.Background(), facade, auth, disp, display.Palette{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected FetchProfile to surface the registry error")
	}
}
