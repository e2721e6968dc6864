package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbancanopy/canopy-cli/internal/layer"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "kuala_lumpur", cfg.Region.Name)
	assert.InDelta(t, 1.95, cfg.Region.Scale, 1e-9)
	assert.InDelta(t, -5.0, cfg.Region.NorthOffsetM, 1e-9)
	assert.InDelta(t, -10.0, cfg.Region.EastOffsetM, 1e-9)
	assert.Equal(t, "low", cfg.Region.DefaultTier)

	assert.Equal(t, 640, cfg.Grid.Width)
	assert.Equal(t, 18, cfg.Grid.Zoom)
	assert.Equal(t, 2, cfg.Grid.Scale)

	assert.InDelta(t, 0.2, cfg.Detect.NDVIThreshold, 1e-9)
	assert.Equal(t, 20, cfg.Detect.ShadowMinSizePx)

	assert.InDelta(t, 25.0, cfg.Buffer.HighM, 1e-9)
	assert.InDelta(t, 5.0, cfg.Buffer.SidewalkM, 1e-9)

	assert.InDelta(t, 100.0, cfg.Score.TotalBudget(), 1e-9)
	assert.InDelta(t, 80.0, cfg.Score.CriticalMin, 1e-9)

	assert.Equal(t, 20, cfg.Spots.MinClusterPx)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CANOPY_GRID_ZOOM", "17")
	t.Setenv("CANOPY_REGION_SCALE", "2.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 17, cfg.Grid.Zoom)
	assert.InDelta(t, 2.1, cfg.Region.Scale, 1e-9)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown default tier", func(c *Config) { c.Region.DefaultTier = "arterial" }},
		{"non-positive scale", func(c *Config) { c.Region.Scale = 0 }},
		{"zero grid width", func(c *Config) { c.Grid.Width = 0 }},
		{"negative buffer radius", func(c *Config) { c.Buffer.MediumM = -1 }},
		{"budgets off 100", func(c *Config) { c.Score.SunMax = 21 }},
		{"sun thresholds inverted", func(c *Config) { c.Score.SunFullMax = 0.7 }},
		{"class thresholds unordered", func(c *Config) { c.Score.HighMin = 85 }},
		{"zero amenity radius", func(c *Config) { c.Score.AmenityRadiusM = 0 }},
		{"zero min cluster", func(c *Config) { c.Spots.MinClusterPx = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBufferRadius(t *testing.T) {
	b := BufferConfig{PedestrianM: 5, LowM: 10, MediumM: 15, HighM: 25}
	assert.Equal(t, 5.0, b.Radius(layer.TierPedestrian))
	assert.Equal(t, 10.0, b.Radius(layer.TierLow))
	assert.Equal(t, 15.0, b.Radius(layer.TierMedium))
	assert.Equal(t, 25.0, b.Radius(layer.TierHigh))
}
