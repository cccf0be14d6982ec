package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig          `yaml:"store" mapstructure:"store"`
	Server      ServerConfig         `yaml:"server" mapstructure:"server"`
	Sensitivity SensitivityConfig    `yaml:"sensitivity" mapstructure:"sensitivity"`
	Export      ExportConfig         `yaml:"export" mapstructure:"export"`
	Log         LogConfig            `yaml:"log" mapstructure:"log"`
	Defaults    waterfall.Parameters `yaml:"defaults" mapstructure:"defaults"`
}

// StoreConfig configures the scenario preset database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	// Initial connect retries for postgres.
	ConnectAttempts  int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
	ConnectBackoffMs int `yaml:"connect_backoff_ms" mapstructure:"connect_backoff_ms"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimitRPS       float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst     int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CacheTTLSecs       int      `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// SensitivityConfig configures batch what-if runs.
type SensitivityConfig struct {
	MaxConcurrency int       `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	Multiples      []float64 `yaml:"multiples" mapstructure:"multiples"`
}

// ExportConfig configures report rendering.
type ExportConfig struct {
	CurrencySymbol string `yaml:"currency_symbol" mapstructure:"currency_symbol"`
	OutputDir      string `yaml:"output_dir" mapstructure:"output_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WATERFALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "waterfall.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.connect_attempts", 3)
	v.SetDefault("store.connect_backoff_ms", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 50.0)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("server.cache_ttl_secs", 300)
	v.SetDefault("server.request_timeout_secs", 30)
	v.SetDefault("sensitivity.max_concurrency", 8)
	v.SetDefault("sensitivity.multiples", []float64{0.5, 1, 1.5, 2, 2.5, 3})
	v.SetDefault("export.currency_symbol", "$")
	v.SetDefault("export.output_dir", ".")

	d := waterfall.DefaultParameters()
	v.SetDefault("defaults.fund_size", d.FundSize)
	v.SetDefault("defaults.contributed_capital", d.ContributedCapital)
	v.SetDefault("defaults.gross_proceeds", d.GrossProceeds)
	v.SetDefault("defaults.waterfall_type", string(d.WaterfallType))
	v.SetDefault("defaults.preferred_return_rate", d.PreferredReturnRate)
	v.SetDefault("defaults.preferred_return_compounding", string(d.PreferredReturnCompounding))
	v.SetDefault("defaults.carry_rate", d.CarryRate)
	v.SetDefault("defaults.has_catch_up", d.HasCatchUp)
	v.SetDefault("defaults.catch_up_rate", d.CatchUpRate)
	v.SetDefault("defaults.catch_up_target", string(d.CatchUpTarget))
	v.SetDefault("defaults.years_to_exit", d.YearsToExit)
	v.SetDefault("defaults.gp_commitment_percent", d.GPCommitmentPercent)

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

// Validate checks the settings a command mode depends on. Modes are
// "calc", "serve" and "store".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "calc":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimitRPS <= 0 {
			errs = append(errs, "server.rate_limit_rps must be > 0")
		}
		if c.Server.RateLimitBurst < 1 {
			errs = append(errs, "server.rate_limit_burst must be >= 1")
		}
		if c.Server.CacheTTLSecs < 0 {
			errs = append(errs, "server.cache_ttl_secs must be >= 0")
		}
		if c.Server.RequestTimeoutSecs <= 0 {
			errs = append(errs, "server.request_timeout_secs must be > 0")
		}
		errs = append(errs, c.validateStore()...)
	case "store":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Sensitivity.MaxConcurrency < 1 || c.Sensitivity.MaxConcurrency > 256 {
		errs = append(errs, "sensitivity.max_concurrency must be between 1 and 256")
	}
	for _, m := range c.Sensitivity.Multiples {
		if m < 0 {
			errs = append(errs, fmt.Sprintf("sensitivity.multiples must be >= 0, got %v", m))
			break
		}
	}
	if err := c.Defaults.Validate(); err != nil {
		errs = append(errs, "defaults: "+err.Error())
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Store.MaxConns < 0 || c.Store.MinConns < 0 || (c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns) {
		errs = append(errs, "store.min_conns must be between 0 and store.max_conns")
	}
	if c.Store.ConnectAttempts < 0 || c.Store.ConnectBackoffMs < 0 {
		errs = append(errs, "store.connect_attempts and store.connect_backoff_ms must be >= 0")
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
