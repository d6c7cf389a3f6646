package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/route-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Route    RouteConfig    `yaml:"route" mapstructure:"route"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeocodeConfig configures the geocoding service and its paced retry policy.
type GeocodeConfig struct {
	Provider        string        `yaml:"provider" mapstructure:"provider"`
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent       string        `yaml:"user_agent" mapstructure:"user_agent"`
	Email           string        `yaml:"email" mapstructure:"email"`
	CountryCodes    string        `yaml:"country_codes" mapstructure:"country_codes"`
	GoogleAPIKey    string        `yaml:"google_api_key" mapstructure:"google_api_key"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Pacing          time.Duration `yaml:"pacing" mapstructure:"pacing"`
	RetryBackoff    time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	MaxAttempts     int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	RegionSuffix    string        `yaml:"region_suffix" mapstructure:"region_suffix"`
	RelaxedFallback bool          `yaml:"relaxed_fallback" mapstructure:"relaxed_fallback"`
}

// RouteConfig configures the route solver.
type RouteConfig struct {
	Strategy      string        `yaml:"strategy" mapstructure:"strategy"`
	LocalSearch   bool          `yaml:"local_search" mapstructure:"local_search"`
	MaxIterations int           `yaml:"max_iterations" mapstructure:"max_iterations"`
	TimeLimit     time.Duration `yaml:"time_limit" mapstructure:"time_limit"`
}

// PipelineConfig configures selection defaults for a planning run.
type PipelineConfig struct {
	Dedupe           bool    `yaml:"dedupe" mapstructure:"dedupe"`
	DefaultOriginLat float64 `yaml:"default_origin_lat" mapstructure:"default_origin_lat"`
	DefaultOriginLng float64 `yaml:"default_origin_lng" mapstructure:"default_origin_lng"`
	ProfilePath      string  `yaml:"profile_path" mapstructure:"profile_path"`
}

// DefaultOrigin returns the configured depot coordinate.
func (p PipelineConfig) DefaultOrigin() model.Point {
	return model.Point{Lat: p.DefaultOriginLat, Lng: p.DefaultOriginLng}
}

// OCRConfig configures manifest text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// ExportConfig configures the route export.
type ExportConfig struct {
	Format      string `yaml:"format" mapstructure:"format"`
	LabelPrefix string `yaml:"label_prefix" mapstructure:"label_prefix"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int `yaml:"port" mapstructure:"port"`
	MaxUploadMB int `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "roteirizador")
	v.SetDefault("geocode.country_codes", "br")
	v.SetDefault("geocode.timeout", 10*time.Second)
	v.SetDefault("geocode.pacing", time.Second)
	v.SetDefault("geocode.retry_backoff", time.Second)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.region_suffix", "Bahia, Brasil")
	v.SetDefault("geocode.relaxed_fallback", false)
	v.SetDefault("route.strategy", "cheapest-arc")
	v.SetDefault("route.local_search", false)
	v.SetDefault("route.max_iterations", 1000)
	v.SetDefault("route.time_limit", 30*time.Second)
	v.SetDefault("pipeline.dedupe", false)
	v.SetDefault("pipeline.default_origin_lat", -14.768865)
	v.SetDefault("pipeline.default_origin_lng", -39.255508)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_model", "pixtral-large-latest")
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.label_prefix", "Pedido")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 20)

	// Keys without a default are unknown to viper, so AutomaticEnv alone
	// would never fill them.
	for _, key := range []string{
		"geocode.email",
		"geocode.google_api_key",
		"ocr.mistral_api_key",
		"pipeline.profile_path",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

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

	return &cfg, nil
}

// Validate checks that the settings required by the given command mode are
// present. Mode is one of "codes", "plan" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.OCR.Provider {
	case "local", "text", "":
	case "mistral":
		if c.OCR.MistralKey == "" {
			errs = append(errs, "ocr.mistral_api_key is required for the mistral provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown ocr provider %q", c.OCR.Provider))
	}

	switch mode {
	case "codes":
	case "plan", "serve":
		errs = append(errs, c.validatePlan()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validatePlan() []string {
	var errs []string

	switch c.Geocode.Provider {
	case "nominatim":
		if c.Geocode.UserAgent == "" {
			errs = append(errs, "geocode.user_agent is required for nominatim")
		}
	case "google":
		if c.Geocode.GoogleAPIKey == "" {
			errs = append(errs, "geocode.google_api_key is required for google")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown geocode provider %q", c.Geocode.Provider))
	}
	if c.Geocode.MaxAttempts < 1 {
		errs = append(errs, "geocode.max_attempts must be >= 1")
	}
	if c.Geocode.Pacing < 0 || c.Geocode.RetryBackoff < 0 {
		errs = append(errs, "geocode pacing and retry_backoff must be >= 0")
	}

	switch c.Route.Strategy {
	case "cheapest-arc", "exact":
	default:
		errs = append(errs, fmt.Sprintf("unknown route strategy %q", c.Route.Strategy))
	}

	switch c.Export.Format {
	case "csv", "xlsx", "geojson":
	default:
		errs = append(errs, fmt.Sprintf("unknown export format %q", c.Export.Format))
	}
	return errs
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
