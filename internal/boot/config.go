package boot

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env          string `env:"ENV,default=dev"`
	DataDir      string `env:"DATA_DIR,default=."`
	DatabasePath string `env:"DATABASE_PATH"`
	Server       struct {
		Port            string        `env:"PORT,default=8080"`
		MetricsPort     string        `env:"METRICS_PORT,default=8081"`
		Origins         string        `env:"ALLOWED_ORIGINS,default=*"`
		JWTSecret       string        `env:"JWT_SECRET"`
		RateLimit       float64       `env:"RATE_LIMIT,default=20"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	}
	Viber struct {
		APIURL        string        `env:"VIBER_API_URL,default=https://chatapi.viber.com/pa"`
		Timeout       time.Duration `env:"VIBER_TIMEOUT,default=5s"`
		WebhookURL    string        `env:"VIBER_WEBHOOK_URL"`
		SenderName    string        `env:"VIBER_SENDER_NAME"`
		SenderAvatar  string        `env:"VIBER_SENDER_AVATAR"`
		MinAPIVersion int           `env:"VIBER_MIN_API_VERSION,default=1"`
	}
	Bots struct {
		RefreshInterval  time.Duration `env:"BOT_REFRESH_INTERVAL,default=1m"`
		ProbeConcurrency int           `env:"BOT_PROBE_CONCURRENCY,default=8"`
	}
}

func Load() (*Config, error) {
	return LoadFrom(context.Background(), nil)
}

// LoadFrom reads the configuration from lookuper, or from the process
// environment when lookuper is nil.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, config, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if config.Viber.Timeout <= 0 {
		return nil, fmt.Errorf("parsing env vars: VIBER_TIMEOUT must be positive")
	}
	if config.IsProduction() && config.Server.JWTSecret == "" {
		return nil, fmt.Errorf("parsing env vars: JWT_SECRET is required in production")
	}
	if config.Bots.ProbeConcurrency <= 0 {
		config.Bots.ProbeConcurrency = 1
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) DataDirectory() string {
	return c.DataDir
}

func (c *Config) DatabaseFile() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return path.Join(c.DataDir, "bots.db")
}

func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(c.Server.Origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *Config) ViberAPIURL() string {
	return c.Viber.APIURL
}

func (c *Config) RemoteTimeout() time.Duration {
	return c.Viber.Timeout
}

func (c *Config) SenderName() string {
	return c.Viber.SenderName
}

func (c *Config) SenderAvatar() string {
	return c.Viber.SenderAvatar
}

func (c *Config) MinAPIVersion() int {
	return c.Viber.MinAPIVersion
}

func (c *Config) WebhookURL() string {
	return c.Viber.WebhookURL
}

func (c *Config) ProbeConcurrency() int {
	return c.Bots.ProbeConcurrency
}

func (c *Config) RefreshInterval() time.Duration {
	return c.Bots.RefreshInterval
}

func (c *Config) Secret() []byte {
	return []byte(c.Server.JWTSecret)
}
