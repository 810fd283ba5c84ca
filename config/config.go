package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/apicore"
	"github.com/sagarc03/apicore/cache"
	apihttp "github.com/sagarc03/apicore/http"
	"github.com/sagarc03/apicore/keybackend"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "APICORE"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for apicore.
type Config struct {
	Env          string                  `mapstructure:"env" validate:"oneof=dev development prod production"`
	Server       ServerConfig            `mapstructure:"server"`
	Routes       RoutesConfig            `mapstructure:"routes"`
	Auth         AuthConfig              `mapstructure:"auth"`
	Cache        cache.Config            `mapstructure:"cache"`
	RequestCache RequestCacheConfig      `mapstructure:"request_cache"`
	RateLimit    apihttp.RateLimitConfig `mapstructure:"ratelimit"`
	CORS         apihttp.CORSConfig      `mapstructure:"cors"`
	Metrics      MetricsConfig           `mapstructure:"metrics"`
	Log          LogConfig               `mapstructure:"log"`
}

// IsProduction reports whether env selects production logging.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// RoutesConfig locates the routes file.
type RoutesConfig struct {
	Dir  string `mapstructure:"dir" validate:"required"`
	File string `mapstructure:"file" validate:"required"`
}

// AuthConfig holds token issuance configuration.
type AuthConfig struct {
	JWT       JWTConfig                  `mapstructure:"jwt"`
	Consumers keybackend.ConsumersConfig `mapstructure:"consumers"`
}

// JWTConfig holds the signing configuration. Keys are only required by
// commands that issue or verify tokens, see SigningConfig.
type JWTConfig struct {
	Algorithm      string        `mapstructure:"algorithm" validate:"required,oneof=hs256 ed25519"`
	Lifetime       time.Duration `mapstructure:"lifetime" validate:"min=1s"`
	Secret         string        `mapstructure:"secret"`
	SecretFile     string        `mapstructure:"secret_file"`
	PrivateKeyFile string        `mapstructure:"private_key_file"`
	PublicKeyFile  string        `mapstructure:"public_key_file"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	KeyID          string        `mapstructure:"key_id"`
	Leeway         time.Duration `mapstructure:"leeway" validate:"min=0,max=2m"`
}

// SigningConfig reads any key files and returns the JWT service configuration.
func (j JWTConfig) SigningConfig() (apicore.JWTConfig, error) {
	cfg := apicore.JWTConfig{
		Method:   apicore.SigningMethod(j.Algorithm),
		Lifetime: j.Lifetime,
		Issuer:   j.Issuer,
		Audience: j.Audience,
		KeyID:    j.KeyID,
		Leeway:   j.Leeway,
	}

	switch cfg.Method {
	case apicore.MethodHS256:
		secret := []byte(j.Secret)
		if j.SecretFile != "" {
			data, err := os.ReadFile(j.SecretFile) //nolint:gosec // Path is from trusted config file
			if err != nil {
				return apicore.JWTConfig{}, fmt.Errorf("read jwt secret file: %w", err)
			}
			secret = []byte(strings.TrimSpace(string(data)))
		}
		if len(secret) == 0 {
			return apicore.JWTConfig{}, errors.New("auth.jwt.secret or auth.jwt.secret_file is required for hs256")
		}
		cfg.Secret = secret
	case apicore.MethodEd25519:
		if j.PrivateKeyFile == "" {
			return apicore.JWTConfig{}, errors.New("auth.jwt.private_key_file is required for ed25519")
		}
		data, err := os.ReadFile(j.PrivateKeyFile) //nolint:gosec // Path is from trusted config file
		if err != nil {
			return apicore.JWTConfig{}, fmt.Errorf("read jwt private key: %w", err)
		}
		cfg.PrivateKey = data
		if j.PublicKeyFile != "" {
			if cfg.PublicKey, err = os.ReadFile(j.PublicKeyFile); err != nil { //nolint:gosec // Path is from trusted config file
				return apicore.JWTConfig{}, fmt.Errorf("read jwt public key: %w", err)
			}
		}
	}

	return cfg, nil
}

// RequestCacheConfig configures the request_cache middleware.
type RequestCacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"min=0"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path" validate:"omitempty,startswith=/"`
	Namespace string `mapstructure:"namespace"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":       "server.port",
	"routes":     "routes.file",
	"routes-dir": "routes.dir",
	"cache-type": "cache.type",
	"cache-dsn":  "cache.dsn",
	"log-level":  "log.level",
	"env":        "env",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key
// readable from the environment needs an entry here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("routes.dir", ".")
	v.SetDefault("routes.file", "routes.yaml")

	v.SetDefault("auth.jwt.algorithm", "hs256")
	v.SetDefault("auth.jwt.lifetime", "1h")
	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.secret_file", "")
	v.SetDefault("auth.jwt.private_key_file", "")
	v.SetDefault("auth.jwt.public_key_file", "")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.audience", "")
	v.SetDefault("auth.jwt.key_id", "")
	v.SetDefault("auth.jwt.leeway", "0s")
	v.SetDefault("auth.consumers.file", "")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.dsn", "")
	v.SetDefault("cache.table", cache.DefaultTable)
	v.SetDefault("cache.prefix", "apicore")

	v.SetDefault("request_cache.ttl", "60s")

	v.SetDefault("ratelimit.requests_per_second", 10)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.idle_timeout", "10m")

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.max_age", 0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "apicore")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
