// Package config loads ClearRoute configuration from defaults, an optional
// YAML file, an optional .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration shared by the API, worker and CLI.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Model     ModelConfig     `mapstructure:"model"`
	Region    RegionConfig    `mapstructure:"region"`
	LTA       LTAConfig       `mapstructure:"lta"`
	OSRM      OSRMConfig      `mapstructure:"osrm"`
	Nominatim NominatimConfig `mapstructure:"nominatim"`
	Traffic   TrafficConfig   `mapstructure:"traffic"`
	Rank      RankConfig      `mapstructure:"rank"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	DB        DBConfig        `mapstructure:"db"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	OTel      OTelConfig      `mapstructure:"otel"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Incident  IncidentConfig  `mapstructure:"incident"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// ModelConfig points at the exported classifier bundle.
type ModelConfig struct {
	Path string `mapstructure:"path"`
}

// RegionConfig is the service area accepted for literal coordinates and the geocoding suffix.
type RegionConfig struct {
	MinLat float64 `mapstructure:"min_lat"`
	MaxLat float64 `mapstructure:"max_lat"`
	MinLon float64 `mapstructure:"min_lon"`
	MaxLon float64 `mapstructure:"max_lon"`
	Suffix string  `mapstructure:"suffix"`
}

// LTAConfig configures the LTA DataMall client.
type LTAConfig struct {
	AccountKey string `mapstructure:"account_key"`
	BaseURL    string `mapstructure:"base_url"`
	MaxPages   int    `mapstructure:"max_pages"`
}

// OSRMConfig configures the routing provider.
type OSRMConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// NominatimConfig configures the geocoder.
type NominatimConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// TrafficConfig holds snapshot stamping settings.
type TrafficConfig struct {
	Timezone      string  `mapstructure:"timezone"`
	IncidentCount int     `mapstructure:"incident_count"`
	VMSCount      int     `mapstructure:"vms_count"`
	CCTVCount     int     `mapstructure:"cctv_count"`
	ETTMean       float64 `mapstructure:"ett_mean"`
}

// RankConfig tunes route alternatives and the ranking fan-out.
type RankConfig struct {
	MaxAlternatives int `mapstructure:"max_alternatives"`
	Concurrency     int `mapstructure:"concurrency"`
}

// ProviderConfig holds settings shared by every outbound client.
type ProviderConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// DBConfig configures the optional Postgres incident store.
type DBConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// JWTConfig configures admin bearer tokens.
type JWTConfig struct {
	SigningKey string `mapstructure:"signing_key"`
	Issuer     string `mapstructure:"issuer"`
	Audience   string `mapstructure:"audience"`
}

// OTelConfig configures OpenTelemetry export.
type OTelConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	ExporterOTLPEndpoint string `mapstructure:"exporter_otlp_endpoint"`
}

// PubSubConfig configures the incident refresh subscription.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	Subscription string `mapstructure:"subscription"`
}

// IncidentConfig configures incident ingestion.
type IncidentConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	TTL             time.Duration `mapstructure:"ttl"`
}

// CORSConfig lists front-end origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DevSigningKey is used when JWT_SIGNING_KEY is not set outside production.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// ErrMissingSigningKey is returned in production when no JWT signing key is configured.
var ErrMissingSigningKey = errors.New("jwt signing key must be set in production")

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")

	v.SetDefault("model.path", "congestion_model.json")

	v.SetDefault("region.min_lat", 1.0)
	v.SetDefault("region.max_lat", 1.5)
	v.SetDefault("region.min_lon", 103.0)
	v.SetDefault("region.max_lon", 104.5)
	v.SetDefault("region.suffix", "Singapore")

	v.SetDefault("lta.account_key", "")
	v.SetDefault("lta.base_url", "https://datamall2.mytransport.sg/ltaodataservice")
	v.SetDefault("lta.max_pages", 1)

	v.SetDefault("osrm.base_url", "http://router.project-osrm.org")

	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "ClearRoute/1.0")

	v.SetDefault("traffic.timezone", "Asia/Singapore")
	v.SetDefault("traffic.incident_count", 0)
	v.SetDefault("traffic.vms_count", 0)
	v.SetDefault("traffic.cctv_count", 36000)
	v.SetDefault("traffic.ett_mean", 1.75)

	v.SetDefault("rank.max_alternatives", 2)
	v.SetDefault("rank.concurrency", 3)

	v.SetDefault("provider.timeout", "10s")

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "clearroute")
	v.SetDefault("db.password", "localdev")
	v.SetDefault("db.name", "clearroute")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", "5m")

	v.SetDefault("jwt.signing_key", "")
	v.SetDefault("jwt.issuer", "clearroute")
	v.SetDefault("jwt.audience", "clearroute-admin")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.exporter_otlp_endpoint", "localhost:4317")

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.subscription", "")

	v.SetDefault("incident.refresh_interval", "5m")
	v.SetDefault("incident.ttl", "6h")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
}

// Load reads configuration. cfgFile may be empty; a missing .env file is not an error.
// Environment variables use the upper-cased key with "." replaced by "_", e.g. LTA_ACCOUNT_KEY.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("region.suffix", "REGION_SUFFIX", "GEOCODE_REGION_SUFFIX")
	_ = v.BindEnv("rank.max_alternatives", "RANK_MAX_ALTERNATIVES", "ROUTE_MAX_ALTERNATIVES")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// AutomaticEnv only yields the raw string for slices.
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		cfg.CORS.AllowedOrigins = splitList(raw)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks invariants between fields and fills the development signing key.
func (c *Config) Validate() error {
	if c.Region.MinLat >= c.Region.MaxLat || c.Region.MinLon >= c.Region.MaxLon {
		return fmt.Errorf("invalid region bounds: lat [%g,%g] lon [%g,%g]",
			c.Region.MinLat, c.Region.MaxLat, c.Region.MinLon, c.Region.MaxLon)
	}
	if c.Rank.Concurrency < 1 {
		return fmt.Errorf("rank.concurrency must be >= 1, got %d", c.Rank.Concurrency)
	}
	if c.Rank.MaxAlternatives < 0 {
		return fmt.Errorf("rank.max_alternatives must be >= 0, got %d", c.Rank.MaxAlternatives)
	}
	if _, err := time.LoadLocation(c.Traffic.Timezone); err != nil {
		return fmt.Errorf("invalid traffic.timezone %q: %w", c.Traffic.Timezone, err)
	}
	if c.JWT.SigningKey == "" {
		if c.IsProduction() {
			return ErrMissingSigningKey
		}
		c.JWT.SigningKey = DevSigningKey
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// Location returns the configured traffic time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Traffic.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
