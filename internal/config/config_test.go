package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasafinder/internal/device"
	"kasafinder/internal/page"
	"kasafinder/internal/scan"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kasafinder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultsMatchFirmware(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	cfg, err := s.ScanConfig()
	require.NoError(t, err)
	assert.Equal(t, 3000*time.Millisecond, cfg.BroadcastTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.DirectTimeout)
	assert.Equal(t, "192.168.2", cfg.SubnetPrefix)
	assert.Equal(t, 1, cfg.HostStart)
	assert.Equal(t, 254, cfg.HostEnd)
	assert.Equal(t, device.SortByAlias, cfg.SortKey)

	assert.Equal(t, page.Visibility{Alias: true, IP: true, MAC: true, State: true}, s.Visibility())
	assert.Equal(t, page.Palette{Broadcast: "blue", Direct: "cyan", Combined: "green"}, s.Palette())
	assert.Equal(t, page.Capacity{MaxRows: 300, MaxColumns: 200}, s.Capacity())
	assert.Equal(t, 5*time.Second, s.ScreenDelay())
	assert.Equal(t, 18, s.Geometry().VisibleRows())
	assert.Equal(t, 9999, s.Scan.Port)
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	path := writeConfig(t, `
scan:
  broadcast_timeout_ms: 0
  subnet: "10.1.1"
  sort_by: ip
display:
  two_color_direct: true
  show:
    model: true
logging:
  level: debug
`)
	s, err := Load(path)
	require.NoError(t, err)

	cfg, err := s.ScanConfig()
	require.NoError(t, err)
	assert.Zero(t, cfg.BroadcastTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.DirectTimeout)
	assert.Equal(t, "10.1.1", cfg.SubnetPrefix)
	assert.Equal(t, device.SortByIPAddress, cfg.SortKey)

	assert.True(t, s.Palette().TwoColor)
	assert.True(t, s.Visibility().Model)
	assert.True(t, s.Visibility().Alias)
	assert.Equal(t, "debug", s.Logging.Level)
}

func TestLoadRejectsBadHostRange(t *testing.T) {
	path := writeConfig(t, `
scan:
  host_start: 200
  host_end: 100
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "hostStart")
}

func TestLoadCollectsEveryProblem(t *testing.T) {
	path := writeConfig(t, `
scan:
  sort_by: model
display:
  row_height: 0
  max_rows: 0
`)
	_, err := Load(path)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/kasafinder.yaml")
	require.Error(t, err)
	assert.False(t, IsConfigurationError(err))
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "scan: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestEmptySubnetDefersScanValidation(t *testing.T) {
	t.Setenv("KASAFINDER_SUBNET", "")
	s, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, s.Scan.Subnet)

	_, err = s.ScanConfig()
	var ce *scan.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "subnetPrefix", ce.Field)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KASAFINDER_DIRECT_TIMEOUT_MS", "250")
	t.Setenv("KASAFINDER_SORT_BY", "ip")
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 250, s.Scan.DirectTimeoutMs)
	assert.Equal(t, "ip", s.Scan.SortBy)
}

func TestEncodeRoundTripsThroughLoad(t *testing.T) {
	s := Default()
	s.Scan.HostEnd = 50
	data, err := s.Encode()
	require.NoError(t, err)

	loaded, err := Load(writeConfig(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}
