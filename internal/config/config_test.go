package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("MATTERMOST_URL", "")

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 50.0, cfg.GeofenceMargin)
	assert.Equal(t, "pt-BR", cfg.DefaultLocale)
	assert.Empty(t, cfg.MattermostURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("GEOFENCE_MARGIN", "12.5")
	t.Setenv("MATTERMOST_URL", "http://mm.local/")
	t.Setenv("TIMEZONE", "Not/AZone")

	cfg := Load()
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 12.5, cfg.GeofenceMargin)
	assert.Equal(t, "http://mm.local", cfg.MattermostURL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("GEOFENCE_MARGIN", "wide")

	cfg := Load()
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 50.0, cfg.GeofenceMargin)
}

func TestLoadTerminal(t *testing.T) {
	t.Setenv("API_URL", "http://server:3000/")
	t.Setenv("STATION_LAT", "-23.5")
	t.Setenv("STATION_LNG", "")
	t.Setenv("QR_DETECT_DELAY", "1s")

	cfg := LoadTerminal()
	assert.Equal(t, "http://server:3000", cfg.APIURL)
	require.NotNil(t, cfg.StationLat)
	assert.Equal(t, -23.5, *cfg.StationLat)
	assert.Nil(t, cfg.StationLng)
	assert.Equal(t, time.Second, cfg.QRDetectDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.FinalizeDelay)
}

func TestLoadCompany(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "company.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: acme
name: ACME Ltda
latitude: -22.9
longitude: -43.2
allowed_radius: 150
policies:
  qr_allowed: false
`), 0o600))

	c, err := LoadCompany(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", c.ID)
	assert.Equal(t, 150.0, c.AllowedRadius)
	assert.Equal(t, -22.9, c.Latitude)
	assert.False(t, c.Policies.QRAllowed)
	// Untouched keys keep their defaults.
	assert.True(t, c.Policies.SelfieRequired)
	assert.Equal(t, "00.000.000/0001-00", c.TaxID)
}

func TestLoadCompanyErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCompany(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("allowed_radius: -1\n"), 0o600))
	_, err = LoadCompany(bad)
	assert.ErrorContains(t, err, "allowed_radius")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("id: [unclosed\n"), 0o600))
	_, err = LoadCompany(broken)
	assert.ErrorContains(t, err, "unmarshal")
}
