package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Relay      RelayConfig      `yaml:"relay"`
	WebRTC     WebRTCConfig     `yaml:"webrtc"`
	Recordings RecordingsConfig `yaml:"recordings"`
	Redis      RedisConfig      `yaml:"redis"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type HTTPConfig struct {
	Address           string        `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env-default:"5s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
	AllowedOrigins    []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver" env:"DATABASE_DRIVER" env-default:"postgres"`
	DSN          string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns int    `yaml:"max_open_conns" env-default:"25"`
	MaxIdleConns int    `yaml:"max_idle_conns" env-default:"10"`
	AutoMigrate  bool   `yaml:"auto_migrate" env:"DATABASE_AUTO_MIGRATE" env-default:"true"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RelayConfig tunes the websocket relay.
type RelayConfig struct {
	SendBuffer       int           `yaml:"send_buffer" env-default:"256"`
	MaxMessageSize   int64         `yaml:"max_message_size" env-default:"65536"`
	MaxMessageLength int           `yaml:"max_message_length" env-default:"4000"`
	WriteWait        time.Duration `yaml:"write_wait" env-default:"10s"`
	PongWait         time.Duration `yaml:"pong_wait" env-default:"60s"`
	PingPeriod       time.Duration `yaml:"ping_period" env-default:"54s"`
}

type WebRTCConfig struct {
	STUNServers []string `yaml:"stun_servers" env:"WEBRTC_STUN_SERVERS" env-separator:","`
}

type RecordingsConfig struct {
	Dir string `yaml:"dir" env:"RECORDINGS_DIR" env-default:"recordings"`
}

type RedisConfig struct {
	Address    string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password   string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" env-default:"0"`
	RateLimit  int           `yaml:"rate_limit" env-default:"120"`
	RateWindow time.Duration `yaml:"rate_window" env-default:"1m"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"chat-relay"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	if cfg.Auth.JWTSecret == "" {
		panic("auth.jwt_secret is required")
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":3001"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	c.WebRTC.STUNServers = compact(c.WebRTC.STUNServers)
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{
			"stun:stun.l.google.com:19302",
			"stun:stun1.l.google.com:19302",
		}
	}
	if c.Relay.PingPeriod >= c.Relay.PongWait {
		c.Relay.PingPeriod = (c.Relay.PongWait * 9) / 10
	}
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
