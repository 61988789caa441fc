package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "AGEPREDICT"

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log.level", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.idle_timeout", 2*time.Minute)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.max_upload_bytes", int64(20<<20))
	v.SetDefault("http.cors_origins", []string{
		"http://localhost:5173",
		"http://localhost:8080",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:8080",
	})

	v.SetDefault("inference.base_url", "http://127.0.0.1:8000")
	v.SetDefault("inference.api_key", "")
	v.SetDefault("inference.timeout", 60*time.Second)
	v.SetDefault("inference.max_retries", 0)
	v.SetDefault("inference.paths.image", "/predict-image")
	v.SetDefault("inference.paths.iris", "/predict-iris")
	v.SetDefault("inference.paths.text", "/predict-text")
	v.SetDefault("inference.paths.voice", "/predict-audio")

	v.SetDefault("sessions.max_sessions", 10000)
	v.SetDefault("sessions.ttl", 2*time.Hour)

	v.SetDefault("questionnaire.bank_path", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.channel", "agepredict.flow")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.sample_ratio", 0.1)
	v.SetDefault("otel.service_name", "agepredict")
}

// Load reads defaults, then an optional config file, then AGEPREDICT_* env vars.
// The file comes from AGEPREDICT_CONFIG or ./config/config.yaml when present.
func Load() (*Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG")))
}

func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.Env = strings.TrimSpace(c.Env)
	if c.Env == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return errors.New("http.max_upload_bytes must be positive")
	}
	origins := c.HTTP.CORSOrigins[:0]
	for _, o := range c.HTTP.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.HTTP.CORSOrigins = origins

	c.Inference.BaseURL = strings.TrimRight(strings.TrimSpace(c.Inference.BaseURL), "/")
	if c.Inference.BaseURL == "" {
		return errors.New("inference.base_url is required")
	}
	if c.Inference.Timeout <= 0 {
		c.Inference.Timeout = 60 * time.Second
	}
	if c.Inference.MaxRetries < 0 {
		return errors.New("inference.max_retries must not be negative")
	}
	for name, p := range map[string]*string{
		"image": &c.Inference.Paths.Image,
		"iris":  &c.Inference.Paths.Iris,
		"text":  &c.Inference.Paths.Text,
		"voice": &c.Inference.Paths.Voice,
	} {
		*p = strings.TrimSpace(*p)
		if !strings.HasPrefix(*p, "/") {
			return fmt.Errorf("inference.paths.%s must start with /, got %q", name, *p)
		}
	}

	if c.Sessions.MaxSessions <= 0 {
		return errors.New("sessions.max_sessions must be positive")
	}
	if c.Sessions.TTL <= 0 {
		return errors.New("sessions.ttl must be positive")
	}

	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	if strings.TrimSpace(c.Redis.Channel) == "" {
		c.Redis.Channel = "agepredict.flow"
	}

	if c.OTel.SampleRatio < 0 {
		c.OTel.SampleRatio = 0
	}
	if c.OTel.SampleRatio > 1 {
		c.OTel.SampleRatio = 1
	}
	if strings.TrimSpace(c.OTel.ServiceName) == "" {
		c.OTel.ServiceName = "agepredict"
	}
	return nil
}
