package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	Secret       string        `mapstructure:"secret"`
	LogLevel     string        `mapstructure:"log_level"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
	JoinRate     float64       `mapstructure:"join_rate"`
	JoinBurst    int           `mapstructure:"join_burst"`
	SlowConsumer string        `mapstructure:"slow_consumer"`
	ICEServers   []ICEServer   `mapstructure:"ice_servers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 3000)
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("idle_timeout", "0s")
	v.SetDefault("reap_interval", "30s")
	v.SetDefault("join_rate", 0.5)
	v.SetDefault("join_burst", 5)
	v.SetDefault("slow_consumer", "drop")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
		{"urls": []string{"stun:stun1.l.google.com:19302"}},
	})
}

// Load reads config/config.<CONFIG_ENV>.yaml, then PINRELAY_* and PORT
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return load(fmt.Sprintf("config/config.%s.yaml", env))
}

func load(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	setDefaults(v)
	v.SetEnvPrefix("PINRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("port", "PINRELAY_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind port env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	}
	if c.PingPeriod >= c.PongWait {
		return fmt.Errorf("ping_period (%s) must be shorter than pong_wait (%s)", c.PingPeriod, c.PongWait)
	}
	return nil
}
