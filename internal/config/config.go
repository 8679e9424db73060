package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kasafinder/internal/device"
	"kasafinder/internal/display"
	"kasafinder/internal/kasa"
	"kasafinder/internal/logging"
	"kasafinder/internal/page"
	"kasafinder/internal/scan"
)

// Settings is the root configuration structure.
type Settings struct {
	Scan    ScanSettings    `yaml:"scan"`
	Display DisplaySettings `yaml:"display"`
	Logging logging.Config  `yaml:"logging"`
}

// ScanSettings controls the discovery run.
type ScanSettings struct {
	// BroadcastTimeoutMs is the broadcast collection window. 0 skips the
	// broadcast phase.
	BroadcastTimeoutMs int `yaml:"broadcast_timeout_ms"`
	// DirectTimeoutMs is the wait for each unicast reply.
	DirectTimeoutMs int `yaml:"direct_timeout_ms"`
	// Subnet holds the first three octets. Empty means detect it from the
	// local interfaces.
	Subnet       string `yaml:"subnet"`
	HostStart    int    `yaml:"host_start"`
	HostEnd      int    `yaml:"host_end"`
	SortBy       string `yaml:"sort_by"`
	Port         int    `yaml:"port"`
	PingPrecheck bool   `yaml:"ping_precheck"`
	// ResolveMAC fills missing MACs from the ARP table.
	ResolveMAC bool `yaml:"resolve_mac"`
}

// DisplaySettings controls the result pages.
type DisplaySettings struct {
	Show          ShowSettings  `yaml:"show"`
	ScreenDelayMs int           `yaml:"screen_delay_ms"`
	Colors        ColorSettings `yaml:"colors"`
	// TwoColorDirect keeps the broadcast colour for broadcast-learned
	// values on the direct page.
	TwoColorDirect bool `yaml:"two_color_direct"`
	Width          int  `yaml:"width"`
	Height         int  `yaml:"height"`
	RowHeight      int  `yaml:"row_height"`
	MaxRows        int  `yaml:"max_rows"`
	MaxColumns     int  `yaml:"max_columns"`
}

// ShowSettings selects the visible columns. Every attribute is logged
// regardless.
type ShowSettings struct {
	Alias     bool `yaml:"alias"`
	IPAddress bool `yaml:"ip_address"`
	MAC       bool `yaml:"mac"`
	Model     bool `yaml:"model"`
	State     bool `yaml:"state"`
	Vendor    bool `yaml:"vendor"`
}

// ColorSettings names the colour of each page.
type ColorSettings struct {
	Broadcast string `yaml:"broadcast"`
	Direct    string `yaml:"direct"`
	Combined  string `yaml:"combined"`
}

// reservedRows holds the page title and the status line.
const reservedRows = 2

// Default returns the stock settings.
func Default() *Settings {
	return &Settings{
		Scan: ScanSettings{
			BroadcastTimeoutMs: 3000,
			DirectTimeoutMs:    750,
			Subnet:             "192.168.2",
			HostStart:          1,
			HostEnd:            254,
			SortBy:             "alias",
			Port:               kasa.Port,
			ResolveMAC:         true,
		},
		Display: DisplaySettings{
			Show: ShowSettings{
				Alias:     true,
				IPAddress: true,
				MAC:       true,
				State:     true,
			},
			ScreenDelayMs: 5000,
			Colors: ColorSettings{
				Broadcast: "blue",
				Direct:    "cyan",
				Combined:  "green",
			},
			Width:      240,
			Height:     320,
			RowHeight:  16,
			MaxRows:    300,
			MaxColumns: 200,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path loads only defaults and overrides.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(s)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// applyEnvOverrides applies KASAFINDER_* variables.
func applyEnvOverrides(s *Settings) {
	if v, ok := os.LookupEnv("KASAFINDER_SUBNET"); ok {
		s.Scan.Subnet = v
	}
	if v := os.Getenv("KASAFINDER_SORT_BY"); v != "" {
		s.Scan.SortBy = v
	}
	if v := os.Getenv("KASAFINDER_BROADCAST_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Scan.BroadcastTimeoutMs = n
		}
	}
	if v := os.Getenv("KASAFINDER_DIRECT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Scan.DirectTimeoutMs = n
		}
	}
	if v := os.Getenv("KASAFINDER_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
}

// ValidationError lists every problem found in the settings.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration errors: %s", strings.Join(e.Problems, "; "))
}

// IsConfigurationError reports whether err stems from unusable settings
// rather than a runtime failure.
func IsConfigurationError(err error) bool {
	var ve *ValidationError
	var ce *scan.ConfigurationError
	return errors.As(err, &ve) || errors.As(err, &ce)
}

// Validate checks the settings. Scan bounds are checked by
// scan.Config.Validate once the subnet is resolved; the checks here cover
// what the engine never sees.
func (s *Settings) Validate() error {
	var errs []string

	if _, err := device.ParseSortKey(s.Scan.SortBy); err != nil {
		errs = append(errs, "scan.sort_by must be alias or ip")
	} else if s.Scan.Subnet != "" {
		if _, err := s.ScanConfig(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if s.Scan.Port < 1 || s.Scan.Port > 65535 {
		errs = append(errs, "scan.port must be between 1 and 65535")
	}

	d := s.Display
	if d.ScreenDelayMs < 0 {
		errs = append(errs, "display.screen_delay_ms cannot be negative")
	}
	if d.Width <= 0 || d.Height <= 0 {
		errs = append(errs, "display.width and display.height must be positive")
	}
	if d.RowHeight <= 0 {
		errs = append(errs, "display.row_height must be positive")
	}
	if d.MaxRows <= 0 || d.MaxColumns <= 0 {
		errs = append(errs, "display.max_rows and display.max_columns must be positive")
	}
	if d.Colors.Broadcast == "" || d.Colors.Direct == "" || d.Colors.Combined == "" {
		errs = append(errs, "display.colors requires broadcast, direct and combined")
	}

	switch strings.ToLower(s.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, "logging.format must be text or json")
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}

// ScanConfig converts the scan section into a validated scan.Config.
func (s *Settings) ScanConfig() (scan.Config, error) {
	key, err := device.ParseSortKey(s.Scan.SortBy)
	if err != nil {
		return scan.Config{}, &scan.ConfigurationError{Field: "sortBy", Reason: err.Error()}
	}
	cfg := scan.Config{
		BroadcastTimeout: time.Duration(s.Scan.BroadcastTimeoutMs) * time.Millisecond,
		DirectTimeout:    time.Duration(s.Scan.DirectTimeoutMs) * time.Millisecond,
		SubnetPrefix:     s.Scan.Subnet,
		HostStart:        s.Scan.HostStart,
		HostEnd:          s.Scan.HostEnd,
		SortKey:          key,
		PingPrecheck:     s.Scan.PingPrecheck,
	}
	if err := cfg.Validate(); err != nil {
		return scan.Config{}, err
	}
	return cfg, nil
}

// Visibility returns the column selection.
func (s *Settings) Visibility() page.Visibility {
	show := s.Display.Show
	return page.Visibility{
		Alias:  show.Alias,
		IP:     show.IPAddress,
		MAC:    show.MAC,
		Model:  show.Model,
		State:  show.State,
		Vendor: show.Vendor,
	}
}

// Palette returns the page colours.
func (s *Settings) Palette() page.Palette {
	c := s.Display.Colors
	return page.Palette{
		Broadcast: page.Color(c.Broadcast),
		Direct:    page.Color(c.Direct),
		Combined:  page.Color(c.Combined),
		TwoColor:  s.Display.TwoColorDirect,
	}
}

// Capacity returns the page buffer bounds.
func (s *Settings) Capacity() page.Capacity {
	return page.Capacity{MaxRows: s.Display.MaxRows, MaxColumns: s.Display.MaxColumns}
}

// Geometry returns the pixel geometry of the display.
func (s *Settings) Geometry() display.Geometry {
	return display.Geometry{
		Width:     s.Display.Width,
		Height:    s.Display.Height,
		RowHeight: s.Display.RowHeight,
		Reserved:  reservedRows,
	}
}

// ScreenDelay returns the pause between pages.
func (s *Settings) ScreenDelay() time.Duration {
	return time.Duration(s.Display.ScreenDelayMs) * time.Millisecond
}

// Encode renders the settings as YAML.
func (s *Settings) Encode() ([]byte, error) {
	return yaml.Marshal(s)
}
