// Package config loads the on-device JSON configuration file (spec.md
// §6, §9 "Configuration union"). Unlike the teacher's per-server
// Config structs (server/inputserver/config.go and friends), which are
// populated by explicit flag assignment, this file's shape must tolerate
// looser encodings: pin numbers arrive as either a JSON number or a hex
// string ("0x20"), and feature toggles arrive as either a JSON boolean
// or one of "yes"/"no"/"true"/"false"/"1"/"0". github.com/spf13/viper
// (declared in the retrieval pack via DerAndereAndi-mash/mash-go's
// go.mod) plus a mapstructure decode hook normalizes both into one
// typed Config value, replacing the ad-hoc Python `int(x, 0)` /
// string-comparison union handling of the original firmware
// (original_source/AxelsPlayground/Firmware/PortalBox.py) with a single
// decode pass.
package config

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// DB holds the central registry connection details (spec.md §6 `db`).
type DB struct {
	Website     string `mapstructure:"website"`
	API         string `mapstructure:"api"`
	BearerToken string `mapstructure:"bearer_token"`
}

// LEDType selects the LED strip driver's wire protocol (out of scope
// beyond this selector, spec.md §1).
type LEDType string

const (
	LEDTypeDotstar  LEDType = "DOTSTAR"
	LEDTypeNeopixel LEDType = "NEOPIXEL"
)

// Display holds the symbolic color palette and LED settings
// (spec.md §6 `display`).
type Display struct {
	SetupColor         RGBConfig `mapstructure:"setup_color"`
	AuthColor          RGBConfig `mapstructure:"auth_color"`
	UnauthColor        RGBConfig `mapstructure:"unauth_color"`
	ProxyColor         RGBConfig `mapstructure:"proxy_color"`
	TrainingColor      RGBConfig `mapstructure:"training_color"`
	SleepColor         RGBConfig `mapstructure:"sleep_color"`
	NoCardGraceColor   RGBConfig `mapstructure:"no_card_grace_color"`
	GraceTimeoutColor  RGBConfig `mapstructure:"grace_timeout_color"`
	TimeoutColor       RGBConfig `mapstructure:"timeout_color"`
	UnauthCardGraceColor RGBConfig `mapstructure:"unauth_card_grace_color"`
	AdminModeColor     RGBConfig `mapstructure:"admin_mode"`
	ProcessColor       RGBConfig `mapstructure:"process_color"`
	FlashRate          int       `mapstructure:"flash_rate"`
	LEDType            LEDType   `mapstructure:"led_type"`
}

// RGBConfig is an RGB triple as it appears in the palette config.
type RGBConfig struct {
	R, G, B uint8
}

// UserExp holds the user-experience timing knobs (spec.md §6 `user_exp`).
type UserExp struct {
	GracePeriodSeconds int `mapstructure:"grace_period"`
}

// WiFi holds the station credentials (spec.md §6 `wifi`).
type WiFi struct {
	SSID     string `mapstructure:"ssid"`
	Password string `mapstructure:"password"`
}

// PinNumber is a GPIO pin assignment that the config file may express as
// a JSON integer or a hex string such as "0x20" (spec.md §9).
type PinNumber int

// Pins holds every GPIO assignment (spec.md §6 `pins`). Defaults are
// embedded in DefaultConfig; file values override per-field.
type Pins struct {
	Interlock PinNumber `mapstructure:"INTERLOCK"`
	Buzzer    PinNumber `mapstructure:"BUZZER"`
	Relay     PinNumber `mapstructure:"RELAY"`
	LEDData   PinNumber `mapstructure:"LED_DATA"`
	LEDClock  PinNumber `mapstructure:"LED_CLOCK"`
	LCDTx     PinNumber `mapstructure:"LCD_TX"`
	RFIDSDA   PinNumber `mapstructure:"RFID_SDA"`
	RFIDSCK   PinNumber `mapstructure:"RFID_SCK"`
	RFIDMOSI  PinNumber `mapstructure:"RFID_MOSI"`
	RFIDMISO  PinNumber `mapstructure:"RFID_MISO"`
	KeypadRows [4]PinNumber `mapstructure:"KEYPAD_ROWS"`
	KeypadCols [3]PinNumber `mapstructure:"KEYPAD_COLS"`
}

// Toggle is a feature flag that the config file may express as a JSON
// boolean or one of "yes"/"no"/"true"/"false"/"1"/"0" (spec.md §9).
type Toggle bool

// Toggles holds the feature flags (spec.md §6 `toggles`).
type Toggles struct {
	EnableBuzzer    Toggle `mapstructure:"enable_buzzer"`
	BuzzerPWM       Toggle `mapstructure:"buzzer_pwm"`
	EnableKeypad    Toggle `mapstructure:"enable_keypad"`
	EnableLCDScreen Toggle `mapstructure:"enable_LCDScreen"`
}

// Config is the fully typed, decoded on-device configuration.
type Config struct {
	DB      DB      `mapstructure:"db"`
	Display Display `mapstructure:"display"`
	UserExp UserExp `mapstructure:"user_exp"`
	WiFi    WiFi    `mapstructure:"wifi"`
	Pins    Pins    `mapstructure:"pins"`
	Toggles Toggles `mapstructure:"toggles"`
}

// DefaultConfig returns the embedded defaults (spec.md §6: "Defaults are
// embedded; file values override").
func DefaultConfig() Config {
	return Config{
		UserExp: UserExp{GracePeriodSeconds: 10},
		Pins: Pins{
			Interlock: 5,
			Buzzer:    6,
			Relay:     13,
			LEDData:   19,
			LEDClock:  26,
			LCDTx:     14,
			RFIDSDA:   8,
			RFIDSCK:   11,
			RFIDMOSI:  10,
			RFIDMISO:  9,
		},
		Toggles: Toggles{
			EnableBuzzer:    true,
			BuzzerPWM:       false,
			EnableKeypad:    true,
			EnableLCDScreen: true,
		},
		Display: Display{
			FlashRate: 500,
			LEDType:   LEDTypeNeopixel,
		},
	}
}

// Load reads and decodes the JSON config at path, merging it over
// DefaultConfig. A missing or unreadable file is a Configuration-absent
// error (spec.md §7): fatal at boot, the caller is expected to display a
// boot error and halt.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("json")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	decoderOpt := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		pinNumberHookFunc(),
		toggleHookFunc(),
		rgbConfigHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decoderOpt); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}

// pinNumberHookFunc accepts a JSON number or a hex string like "0x20"
// and normalizes both to PinNumber.
func pinNumberHookFunc() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(PinNumber(0)) {
			return data, nil
		}
		switch from.Kind() {
		case reflect.String:
			s := strings.TrimSpace(data.(string))
			n, err := strconv.ParseInt(s, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("config: invalid pin number %q: %w", s, err)
			}
			return PinNumber(n), nil
		case reflect.Float64, reflect.Float32:
			return PinNumber(int(reflect.ValueOf(data).Float())), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return PinNumber(reflect.ValueOf(data).Int()), nil
		}
		return data, nil
	}
}

// toggleHookFunc accepts a JSON boolean or one of the Python-style
// string encodings the original firmware's config loader tolerated
// (original_source/AxelsPlayground/Firmware/PortalBox.py config section)
// and normalizes both to Toggle.
func toggleHookFunc() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(Toggle(false)) {
			return data, nil
		}
		switch from.Kind() {
		case reflect.Bool:
			return Toggle(data.(bool)), nil
		case reflect.String:
			switch strings.ToLower(strings.TrimSpace(data.(string))) {
			case "yes", "true", "1", "on":
				return Toggle(true), nil
			case "no", "false", "0", "off", "":
				return Toggle(false), nil
			default:
				return nil, fmt.Errorf("config: invalid toggle value %q", data)
			}
		}
		return data, nil
	}
}

// rgbConfigHookFunc accepts a 3-element array/slice of 0-255 ints and
// normalizes it to RGBConfig.
func rgbConfigHookFunc() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(RGBConfig{}) {
			return data, nil
		}
		val := reflect.ValueOf(data)
		if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
			return data, nil
		}
		if val.Len() != 3 {
			return nil, fmt.Errorf("config: color value must have 3 components, got %d", val.Len())
		}
		comp := func(i int) (uint8, error) {
			f, ok := val.Index(i).Interface().(float64)
			if !ok {
				return 0, fmt.Errorf("config: color component %d is not numeric", i)
			}
			return uint8(f), nil
		}
		r, err := comp(0)
		if err != nil {
			return nil, err
		}
		g, err := comp(1)
		if err != nil {
			return nil, err
		}
		b, err := comp(2)
		if err != nil {
			return nil, err
		}
		return RGBConfig{R: r, G: g, B: b}, nil
	}
}

// LoadBytes is a test helper that decodes raw JSON bytes the same way
// Load does, without touching the filesystem.
func LoadBytes(data []byte) (Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return Config{}, err
	}
	decoderOpt := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		pinNumberHookFunc(),
		toggleHookFunc(),
		rgbConfigHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decoderOpt); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
