package config

import "time"

type HTTPConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`

	// MaxUploadBytes caps multipart bodies sent to the upload modalities.
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
}

// InferencePaths are the prediction endpoints on the inference service.
type InferencePaths struct {
	Image string `mapstructure:"image"`
	Iris  string `mapstructure:"iris"`
	Text  string `mapstructure:"text"`
	Voice string `mapstructure:"voice"`
}

type InferenceConfig struct {
	BaseURL string `mapstructure:"base_url"`

	// APIKey is optional; when set it is sent as a bearer token.
	APIKey string `mapstructure:"api_key"`

	Timeout time.Duration `mapstructure:"timeout"`

	// MaxRetries applies to transport errors and 5xx responses only. Zero means
	// every submission results in exactly one upstream call.
	MaxRetries int `mapstructure:"max_retries"`

	Paths InferencePaths `mapstructure:"paths"`
}

type SessionsConfig struct {
	MaxSessions int           `mapstructure:"max_sessions"`
	TTL         time.Duration `mapstructure:"ttl"`
}

type QuestionnaireConfig struct {
	// BankPath overrides the embedded question bank.
	BankPath string `mapstructure:"bank_path"`
}

type RedisConfig struct {
	// Addr enables flow event publishing when non-empty.
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type OTelConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	ServiceName string  `mapstructure:"service_name"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Env           string              `mapstructure:"env"`
	Log           LogConfig           `mapstructure:"log"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Inference     InferenceConfig     `mapstructure:"inference"`
	Sessions      SessionsConfig      `mapstructure:"sessions"`
	Questionnaire QuestionnaireConfig `mapstructure:"questionnaire"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	OTel          OTelConfig          `mapstructure:"otel"`
}
