package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/urbancanopy/canopy-cli/internal/layer"
)

// Config holds the full application configuration. It is loaded once,
// validated, and passed into each stage as an immutable value; no stage reads
// ambient state.
type Config struct {
	Region RegionConfig `yaml:"region" mapstructure:"region"`
	Grid   GridConfig   `yaml:"grid" mapstructure:"grid"`
	Detect DetectConfig `yaml:"detect" mapstructure:"detect"`
	Buffer BufferConfig `yaml:"buffer" mapstructure:"buffer"`
	Score  ScoreConfig  `yaml:"score" mapstructure:"score"`
	Spots  SpotsConfig  `yaml:"spots" mapstructure:"spots"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// RegionConfig holds the universal regional alignment calibration: one
// scale+offset correction, validated across multiple locations in a region,
// applied to all vector data to remove the systematic OSM-vs-imagery
// misregistration.
type RegionConfig struct {
	Name           string   `yaml:"name" mapstructure:"name"`
	Scale          float64  `yaml:"scale" mapstructure:"scale"`
	NorthOffsetM   float64  `yaml:"north_offset_m" mapstructure:"north_offset_m"`
	EastOffsetM    float64  `yaml:"east_offset_m" mapstructure:"east_offset_m"`
	DefaultTier    string   `yaml:"default_tier" mapstructure:"default_tier"`
	PedestrianTags []string `yaml:"pedestrian_tags" mapstructure:"pedestrian_tags"`
	LowTags        []string `yaml:"low_tags" mapstructure:"low_tags"`
	MediumTags     []string `yaml:"medium_tags" mapstructure:"medium_tags"`
	HighTags       []string `yaml:"high_tags" mapstructure:"high_tags"`
}

// GridConfig fixes the raster frame for every location.
type GridConfig struct {
	Width  int `yaml:"width" mapstructure:"width"`
	Height int `yaml:"height" mapstructure:"height"`
	Zoom   int `yaml:"zoom" mapstructure:"zoom"`
	Scale  int `yaml:"scale" mapstructure:"scale"`
}

// DetectConfig holds vegetation and shadow detection thresholds.
type DetectConfig struct {
	NDVIThreshold           float64 `yaml:"ndvi_threshold" mapstructure:"ndvi_threshold"`
	NDVIEpsilon             float64 `yaml:"ndvi_epsilon" mapstructure:"ndvi_epsilon"`
	MinVegetationBrightness float64 `yaml:"min_vegetation_brightness" mapstructure:"min_vegetation_brightness"`
	ShadowBrightnessMax     float64 `yaml:"shadow_brightness_max" mapstructure:"shadow_brightness_max"`
	ShadowDesaturationMax   float64 `yaml:"shadow_desaturation_max" mapstructure:"shadow_desaturation_max"`
	ShadowVeryDarkMax       float64 `yaml:"shadow_very_dark_max" mapstructure:"shadow_very_dark_max"`
	ShadowMinSizePx         int     `yaml:"shadow_min_size_px" mapstructure:"shadow_min_size_px"`
	ShadowBlurSigma         float64 `yaml:"shadow_blur_sigma" mapstructure:"shadow_blur_sigma"`
}

// BufferConfig holds the tiered metric buffer radii for street exclusion and
// the sidewalk corridor radius.
type BufferConfig struct {
	PedestrianM float64 `yaml:"pedestrian_m" mapstructure:"pedestrian_m"`
	LowM        float64 `yaml:"low_m" mapstructure:"low_m"`
	MediumM     float64 `yaml:"medium_m" mapstructure:"medium_m"`
	HighM       float64 `yaml:"high_m" mapstructure:"high_m"`
	SidewalkM   float64 `yaml:"sidewalk_m" mapstructure:"sidewalk_m"`
}

// Radius returns the buffer radius for a street tier.
func (b BufferConfig) Radius(t layer.StreetTier) float64 {
	switch t {
	case layer.TierPedestrian:
		return b.PedestrianM
	case layer.TierLow:
		return b.LowM
	case layer.TierMedium:
		return b.MediumM
	default:
		return b.HighM
	}
}

// ScoreConfig holds the priority model: per-component point budgets, the
// piecewise breakpoints, and the classification thresholds.
type ScoreConfig struct {
	SidewalkMax float64 `yaml:"sidewalk_max" mapstructure:"sidewalk_max"`
	BuildingMax float64 `yaml:"building_max" mapstructure:"building_max"`
	SunMax      float64 `yaml:"sun_max" mapstructure:"sun_max"`
	AmenityMax  float64 `yaml:"amenity_max" mapstructure:"amenity_max"`
	GapReserve  float64 `yaml:"gap_reserve" mapstructure:"gap_reserve"`

	// Sidewalk proximity bands (meters from the sidewalk mask).
	SidewalkNearM   float64 `yaml:"sidewalk_near_m" mapstructure:"sidewalk_near_m"`
	SidewalkGoodM   float64 `yaml:"sidewalk_good_m" mapstructure:"sidewalk_good_m"`
	SidewalkFairM   float64 `yaml:"sidewalk_fair_m" mapstructure:"sidewalk_fair_m"`
	SidewalkFarM    float64 `yaml:"sidewalk_far_m" mapstructure:"sidewalk_far_m"`
	SidewalkNearPts float64 `yaml:"sidewalk_near_pts" mapstructure:"sidewalk_near_pts"`
	SidewalkGoodPts float64 `yaml:"sidewalk_good_pts" mapstructure:"sidewalk_good_pts"`
	SidewalkFairPts float64 `yaml:"sidewalk_fair_pts" mapstructure:"sidewalk_fair_pts"`
	SidewalkFarPts  float64 `yaml:"sidewalk_far_pts" mapstructure:"sidewalk_far_pts"`

	// Building cooling bands (meters from the building mask).
	BuildingTooCloseM  float64 `yaml:"building_too_close_m" mapstructure:"building_too_close_m"`
	BuildingOptimalM   float64 `yaml:"building_optimal_m" mapstructure:"building_optimal_m"`
	BuildingGoodM      float64 `yaml:"building_good_m" mapstructure:"building_good_m"`
	BuildingFringeM    float64 `yaml:"building_fringe_m" mapstructure:"building_fringe_m"`
	BuildingOptimalPts float64 `yaml:"building_optimal_pts" mapstructure:"building_optimal_pts"`
	BuildingGoodPts    float64 `yaml:"building_good_pts" mapstructure:"building_good_pts"`
	BuildingFringePts  float64 `yaml:"building_fringe_pts" mapstructure:"building_fringe_pts"`

	// Sun exposure thresholds on shadow intensity (0 = full sun, 1 = full
	// shadow).
	SunFullMax    float64 `yaml:"sun_full_max" mapstructure:"sun_full_max"`
	SunPartialMax float64 `yaml:"sun_partial_max" mapstructure:"sun_partial_max"`
	SunFullPts    float64 `yaml:"sun_full_pts" mapstructure:"sun_full_pts"`
	SunPartialPts float64 `yaml:"sun_partial_pts" mapstructure:"sun_partial_pts"`
	SunShadePts   float64 `yaml:"sun_shade_pts" mapstructure:"sun_shade_pts"`

	// Amenity density kernel radius.
	AmenityRadiusM float64 `yaml:"amenity_radius_m" mapstructure:"amenity_radius_m"`

	// Classification thresholds on the composite 0-100 score.
	CriticalMin float64 `yaml:"critical_min" mapstructure:"critical_min"`
	HighMin     float64 `yaml:"high_min" mapstructure:"high_min"`
	MediumMin   float64 `yaml:"medium_min" mapstructure:"medium_min"`
}

// TotalBudget returns the sum of all component budgets including the
// reserved gap-filling points.
func (s ScoreConfig) TotalBudget() float64 {
	return s.SidewalkMax + s.BuildingMax + s.SunMax + s.AmenityMax + s.GapReserve
}

// SpotsConfig configures critical spot extraction.
type SpotsConfig struct {
	MinClusterPx int `yaml:"min_cluster_px" mapstructure:"min_cluster_px"`
}

// FetchConfig configures the external acquisition collaborators.
type FetchConfig struct {
	OverpassEndpoint string  `yaml:"overpass_endpoint" mapstructure:"overpass_endpoint"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxRetries       int     `yaml:"max_retries" mapstructure:"max_retries"`
	StaticMapsURL    string  `yaml:"static_maps_url" mapstructure:"static_maps_url"`
	StaticMapsKey    string  `yaml:"static_maps_key" mapstructure:"static_maps_key"`
}

// StoreConfig configures result persistence.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the results API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment, then validates it.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CANOPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Regional alignment: the Kuala Lumpur calibration. Scale 1.95x with a
	// (-5m N, -10m E) offset aligns OSM vectors with the imagery to within a
	// few pixels across the validated locations.
	v.SetDefault("region.name", "kuala_lumpur")
	v.SetDefault("region.scale", 1.95)
	v.SetDefault("region.north_offset_m", -5.0)
	v.SetDefault("region.east_offset_m", -10.0)
	v.SetDefault("region.default_tier", "low")
	v.SetDefault("region.pedestrian_tags", []string{"footway", "pedestrian", "living_street", "path", "steps"})
	v.SetDefault("region.low_tags", []string{"residential", "tertiary", "unclassified", "service"})
	v.SetDefault("region.medium_tags", []string{"secondary", "secondary_link"})
	v.SetDefault("region.high_tags", []string{"primary", "primary_link", "trunk", "trunk_link", "motorway", "motorway_link"})

	v.SetDefault("grid.width", 640)
	v.SetDefault("grid.height", 640)
	v.SetDefault("grid.zoom", 18)
	v.SetDefault("grid.scale", 2)

	v.SetDefault("detect.ndvi_threshold", 0.2)
	v.SetDefault("detect.ndvi_epsilon", 1e-8)
	v.SetDefault("detect.min_vegetation_brightness", 60.0)
	v.SetDefault("detect.shadow_brightness_max", 95.0)
	v.SetDefault("detect.shadow_desaturation_max", 60.0)
	v.SetDefault("detect.shadow_very_dark_max", 70.0)
	v.SetDefault("detect.shadow_min_size_px", 20)
	v.SetDefault("detect.shadow_blur_sigma", 2.0)

	v.SetDefault("buffer.pedestrian_m", 5.0)
	v.SetDefault("buffer.low_m", 10.0)
	v.SetDefault("buffer.medium_m", 15.0)
	v.SetDefault("buffer.high_m", 25.0)
	v.SetDefault("buffer.sidewalk_m", 5.0)

	v.SetDefault("score.sidewalk_max", 35.0)
	v.SetDefault("score.building_max", 25.0)
	v.SetDefault("score.sun_max", 20.0)
	v.SetDefault("score.amenity_max", 10.0)
	v.SetDefault("score.gap_reserve", 10.0)
	v.SetDefault("score.sidewalk_near_m", 5.0)
	v.SetDefault("score.sidewalk_good_m", 10.0)
	v.SetDefault("score.sidewalk_fair_m", 20.0)
	v.SetDefault("score.sidewalk_far_m", 30.0)
	v.SetDefault("score.sidewalk_near_pts", 35.0)
	v.SetDefault("score.sidewalk_good_pts", 25.0)
	v.SetDefault("score.sidewalk_fair_pts", 15.0)
	v.SetDefault("score.sidewalk_far_pts", 5.0)
	v.SetDefault("score.building_too_close_m", 5.0)
	v.SetDefault("score.building_optimal_m", 15.0)
	v.SetDefault("score.building_good_m", 30.0)
	v.SetDefault("score.building_fringe_m", 50.0)
	v.SetDefault("score.building_optimal_pts", 25.0)
	v.SetDefault("score.building_good_pts", 15.0)
	v.SetDefault("score.building_fringe_pts", 5.0)
	v.SetDefault("score.sun_full_max", 0.3)
	v.SetDefault("score.sun_partial_max", 0.6)
	v.SetDefault("score.sun_full_pts", 20.0)
	v.SetDefault("score.sun_partial_pts", 12.0)
	v.SetDefault("score.sun_shade_pts", 5.0)
	v.SetDefault("score.amenity_radius_m", 50.0)
	v.SetDefault("score.critical_min", 80.0)
	v.SetDefault("score.high_min", 60.0)
	v.SetDefault("score.medium_min", 40.0)

	v.SetDefault("spots.min_cluster_px", 20)

	v.SetDefault("fetch.overpass_endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("fetch.timeout_secs", 180)
	v.SetDefault("fetch.rate_per_sec", 0.5)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.static_maps_url", "https://maps.googleapis.com/maps/api/staticmap")

	v.SetDefault("store.path", "canopy.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate enforces the configuration invariants. Invalid configuration is
// fatal at this boundary; nothing is silently defaulted past here.
func (c *Config) Validate() error {
	if _, err := layer.ParseTier(c.Region.DefaultTier); err != nil {
		return eris.Wrapf(err, "config: region.default_tier %q", c.Region.DefaultTier)
	}
	if c.Region.Scale <= 0 {
		return eris.Errorf("config: region.scale must be positive, got %g", c.Region.Scale)
	}

	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return eris.Errorf("config: grid dimensions must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}

	for name, r := range map[string]float64{
		"buffer.pedestrian_m": c.Buffer.PedestrianM,
		"buffer.low_m":        c.Buffer.LowM,
		"buffer.medium_m":     c.Buffer.MediumM,
		"buffer.high_m":       c.Buffer.HighM,
		"buffer.sidewalk_m":   c.Buffer.SidewalkM,
	} {
		if r <= 0 {
			return eris.Errorf("config: %s must be positive, got %g", name, r)
		}
	}

	if total := c.Score.TotalBudget(); total != 100 {
		return eris.Errorf("config: score component budgets must sum to 100, got %g", total)
	}
	if c.Score.SunFullMax >= c.Score.SunPartialMax {
		return eris.Errorf("config: score.sun_full_max (%g) must be below score.sun_partial_max (%g)",
			c.Score.SunFullMax, c.Score.SunPartialMax)
	}
	if !(c.Score.MediumMin < c.Score.HighMin && c.Score.HighMin < c.Score.CriticalMin) {
		return eris.Errorf("config: classification thresholds must be ordered medium < high < critical, got %g/%g/%g",
			c.Score.MediumMin, c.Score.HighMin, c.Score.CriticalMin)
	}
	if c.Score.AmenityRadiusM <= 0 {
		return eris.Errorf("config: score.amenity_radius_m must be positive, got %g", c.Score.AmenityRadiusM)
	}

	if c.Spots.MinClusterPx <= 0 {
		return eris.Errorf("config: spots.min_cluster_px must be positive, got %d", c.Spots.MinClusterPx)
	}
	if c.Detect.ShadowMinSizePx < 0 {
		return eris.Errorf("config: detect.shadow_min_size_px must be non-negative, got %d", c.Detect.ShadowMinSizePx)
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
