package authclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oss-makerspace/portalbox-firmware/buildinfo"
)

// Client is the interface the Session State Machine, Input Fuser and
// Special Modes code against (spec.md §4.2). RealClient talks to the
// actual registry; MockClient (mock.go) stands in for tests.
type Client interface {
	EnsureRegistered(ctx context.Context, mac string) error
	GetProfile(ctx context.Context, mac string) (EquipmentProfile, error)
	GetCardDetails(ctx context.Context, cardID int64, equipmentTypeID uint32) (CardDetails, error)
	LogStarted(ctx context.Context, equipmentID uint32)
	LogShutdown(ctx context.Context, equipmentID uint32, cardID int64)
	LogAccessAttempt(ctx context.Context, cardID int64, equipmentID uint32, successful bool)
	LogAccessCompletion(ctx context.Context, cardID int64, equipmentID uint32)
	RecordIP(ctx context.Context, equipmentID uint32, ip string)
	AddUserAuthorization(ctx context.Context, cardID int64, equipmentTypeID uint32) (bool, error)
	GetUserFirstName(ctx context.Context, cardID int64) (string, error)
}

// RealClient implements Client over HTTP/1.1 against the central
// registry (spec.md §6). Every request shares one URL with a `mode`
// query parameter plus method-specific form parameters, and a bearer
// token header — modeled on the teacher's struct-held http.Client plus
// context.Context threading (tls/manager.go, server/server.go), since
// no repo in the retrieval pack implements a bearer-token REST client
// directly.
type RealClient struct {
	website     string
	api         string
	bearerToken string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewRealClient creates a RealClient. connectTimeout bounds the TCP
// connect phase only; reads are unbounded (spec.md §5: "server is on
// local network").
func NewRealClient(website, api, bearerToken string, connectTimeout time.Duration, logger zerolog.Logger) *RealClient {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext: dialer.DialContext,
	}
	return &RealClient{
		website:     website,
		api:         api,
		bearerToken: bearerToken,
		httpClient:  &http.Client{Transport: transport},
		logger:      logger.With().Str("component", "authclient").Logger(),
	}
}

func (c *RealClient) endpoint() string {
	return fmt.Sprintf("%s/%s", c.website, c.api)
}

// doRequest issues one HTTP call for the given mode and form values,
// returning the lenient-decoded body. method is typically GET or POST
// per spec.md §6's "GET|POST|PUT".
func (c *RealClient) doRequest(ctx context.Context, method, mode string, form url.Values) (any, error) {
	if form == nil {
		form = url.Values{}
	}
	form.Set("mode", mode)

	reqID := uuid.NewString()
	endpoint := c.endpoint()
	var req *http.Request
	var err error
	if method == http.MethodGet {
		endpoint = endpoint + "?" + form.Encode()
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	} else {
		endpoint = endpoint + "?" + url.Values{"mode": {mode}}.Encode()
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("authclient: building request for mode %s: %w", mode, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	c.logger.Debug().Str("mode", mode).Str("request_id", reqID).Msg("registry request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authclient: mode %s request_id %s: %w", mode, reqID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("authclient: mode %s request_id %s: reading body: %w", mode, reqID, err)
	}
	if resp.StatusCode >= 400 {
		c.logger.Warn().Str("mode", mode).Str("request_id", reqID).Int("status", resp.StatusCode).Msg("registry error response")
		return nil, fmt.Errorf("authclient: mode %s request_id %s: status %d", mode, reqID, resp.StatusCode)
	}

	return decodeLenient(body)
}

// EnsureRegistered checks this MAC's registration and registers it if
// the registry doesn't recognize it yet (spec.md §6 `check_reg`,
// `register`; SPEC_FULL.md §12 supplemental behavior). It is a
// precondition of GetProfile, retried with the same infinite policy.
func (c *RealClient) EnsureRegistered(ctx context.Context, mac string) error {
	policy := ProfileRetryPolicy()
	return policy.Do(ctx, func() error {
		v, err := c.doRequest(ctx, http.MethodGet, "check_reg", url.Values{"mac": {mac}})
		if err != nil {
			return err
		}
		if asBoolSuccess(v) {
			return nil
		}
		_, err = c.doRequest(ctx, http.MethodPost, "register", url.Values{"mac": {mac}})
		return err
	})
}

// GetProfile fetches this appliance's equipment profile, retried
// indefinitely with a 5s backoff (spec.md §4.2: "the appliance cannot
// start without a profile").
func (c *RealClient) GetProfile(ctx context.Context, mac string) (EquipmentProfile, error) {
	var profile EquipmentProfile
	policy := ProfileRetryPolicy()
	err := policy.Do(ctx, func() error {
		v, err := c.doRequest(ctx, http.MethodGet, "get_profile", url.Values{"mac": {mac}})
		if err != nil {
			c.logger.Warn().Err(err).Msg("get_profile failed, retrying")
			return err
		}
		m, err := asMap(v)
		if err != nil {
			return err
		}
		profile = EquipmentProfile{
			EquipmentID:      uintField(m, "equipment_id"),
			TypeID:           uintField(m, "type_id"),
			TypeName:         stringField(m, "type_name"),
			LocationID:       uintField(m, "location_id"),
			LocationName:     stringField(m, "location_name"),
			TimeoutMinutes:   uintField(m, "timeout_minutes"),
			AllowProxy:       boolField(m, "allow_proxy"),
			RequiresTraining: boolField(m, "requires_training"),
			RequiresPayment:  boolField(m, "requires_payment"),
		}
		return nil
	})
	return profile, err
}

// GetCardDetails fetches one card's server-derived details, retried
// indefinitely with a 1s backoff (spec.md §4.2).
func (c *RealClient) GetCardDetails(ctx context.Context, cardID int64, equipmentTypeID uint32) (CardDetails, error) {
	var details CardDetails
	policy := CardDetailsRetryPolicy()
	err := policy.Do(ctx, func() error {
		form := url.Values{
			"card_id":           {strconv.FormatInt(cardID, 10)},
			"equipment_type_id": {strconv.FormatUint(uint64(equipmentTypeID), 10)},
		}
		v, err := c.doRequest(ctx, http.MethodGet, "get_card_details", form)
		if err != nil {
			c.logger.Warn().Err(err).Int64("card_id", cardID).Msg("get_card_details failed, retrying")
			return err
		}
		m, err := asMap(v)
		if err != nil {
			return err
		}
		details = CardDetails{
			CardType:           ParseCardType(m["card_type"]),
			UserAuthorityLevel: uint8(uintField(m, "user_authority_level")),
			UserIsAuthorized:   boolField(m, "user_is_authorized"),
		}
		if pin, ok := m["pin"].(string); ok {
			details.PIN = &pin
		}
		return nil
	})
	return details, err
}

// LogStarted fires the `log_started_status` event. Fire-and-forget:
// failures are logged and swallowed (spec.md §4.2).
func (c *RealClient) LogStarted(ctx context.Context, equipmentID uint32) {
	c.fireAndForget(ctx, "log_started_status", url.Values{
		"equipment_id": {strconv.FormatUint(uint64(equipmentID), 10)},
	})
}

// LogShutdown fires the `log_shutdown_status` event.
func (c *RealClient) LogShutdown(ctx context.Context, equipmentID uint32, cardID int64) {
	c.fireAndForget(ctx, "log_shutdown_status", url.Values{
		"equipment_id": {strconv.FormatUint(uint64(equipmentID), 10)},
		"card_id":      {strconv.FormatInt(cardID, 10)},
	})
}

// LogAccessAttempt fires the `log_access_attempt` event (spec.md §8
// "Log pairing" property: every successful attempt must be paired with
// exactly one completion before the next attempt for the same card).
func (c *RealClient) LogAccessAttempt(ctx context.Context, cardID int64, equipmentID uint32, successful bool) {
	c.fireAndForget(ctx, "log_access_attempt", url.Values{
		"card_id":      {strconv.FormatInt(cardID, 10)},
		"equipment_id": {strconv.FormatUint(uint64(equipmentID), 10)},
		"successful":   {strconv.FormatBool(successful)},
	})
}

// LogAccessCompletion fires the `log_access_completion` event.
func (c *RealClient) LogAccessCompletion(ctx context.Context, cardID int64, equipmentID uint32) {
	c.fireAndForget(ctx, "log_access_completion", url.Values{
		"card_id":      {strconv.FormatInt(cardID, 10)},
		"equipment_id": {strconv.FormatUint(uint64(equipmentID), 10)},
	})
}

// RecordIP fires the `record_ip` event.
func (c *RealClient) RecordIP(ctx context.Context, equipmentID uint32, ip string) {
	c.fireAndForget(ctx, "record_ip", url.Values{
		"equipment_id": {strconv.FormatUint(uint64(equipmentID), 10)},
		"ip":           {ip},
	})
}

// fireAndForget issues a single-attempt request and swallows any error
// after logging it (spec.md §4.2, §7).
func (c *RealClient) fireAndForget(ctx context.Context, mode string, form url.Values) {
	policy := LogRetryPolicy()
	err := policy.Do(ctx, func() error {
		_, err := c.doRequest(ctx, http.MethodPost, mode, form)
		return err
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("mode", mode).Msg("log event failed, dropping")
	}
}

// AddUserAuthorization grants the presented card authorization for the
// given equipment type; used by certification mode (spec.md §4.6).
func (c *RealClient) AddUserAuthorization(ctx context.Context, cardID int64, equipmentTypeID uint32) (bool, error) {
	form := url.Values{
		"card_id":           {strconv.FormatInt(cardID, 10)},
		"equipment_type_id": {strconv.FormatUint(uint64(equipmentTypeID), 10)},
	}
	v, err := c.doRequest(ctx, http.MethodPost, "add_user_authorization", form)
	if err != nil {
		return false, err
	}
	return asBoolSuccess(v), nil
}

// GetUserFirstName resolves a card's owner's first name for the welcome
// message (spec.md §4.3, §6 `get_user` mode). A single attempt; failure
// is non-fatal and the Display Coordinator falls back to a bare
// "Welcome" (spec.md §4.3).
func (c *RealClient) GetUserFirstName(ctx context.Context, cardID int64) (string, error) {
	v, err := c.doRequest(ctx, http.MethodGet, "get_user", url.Values{
		"card_id": {strconv.FormatInt(cardID, 10)},
	})
	if err != nil {
		return "", err
	}
	m, err := asMap(v)
	if err != nil {
		// Some deployments return a bare name string instead of an object.
		if s, ok := v.(string); ok {
			return s, nil
		}
		return "", err
	}
	return stringField(m, "first_name"), nil
}

var _ Client = (*RealClient)(nil)
