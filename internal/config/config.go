package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/stun/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "PAIRLINE"

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode           string        `mapstructure:"mode"`
	LogLevel       string        `mapstructure:"log_level"`
	Port           int           `mapstructure:"port"`
	StaticPath     string        `mapstructure:"static_path"`
	Secret         string        `mapstructure:"secret"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	Codec          string        `mapstructure:"codec"`
	Backpressure   string        `mapstructure:"backpressure"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	SendBuffer     int           `mapstructure:"send_buffer"`

	MaxRoomIDLen     int           `mapstructure:"max_room_id_len"`
	RoomRateLimit    int           `mapstructure:"room_rate_limit"`
	RoomRateInterval time.Duration `mapstructure:"room_rate_interval"`

	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

var ErrInvalid = errors.New("invalid config")

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "pairline-dev-secret")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("codec", "json")
	v.SetDefault("backpressure", "kick")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("max_room_id_len", 64)
	v.SetDefault("room_rate_limit", 10)
	v.SetDefault("room_rate_interval", "1m")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
		{
			"urls":       []string{"turn:openrelay.metered.ca:80"},
			"username":   "openrelayproject",
			"credential": "openrelayproject",
		},
		{
			"urls":       []string{"turn:openrelay.metered.ca:443"},
			"username":   "openrelayproject",
			"credential": "openrelayproject",
		},
	})
}

// Load reads config/config.<CONFIG_ENV>.yaml, "dev" when unset.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName on top of the defaults. A missing file is not an
// error; PAIRLINE_* environment variables override both.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	logger := log.With().Str("module", "config").Str("file", fileName).Logger()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", fileName, err)
		}
		logger.Warn().Msg("config file not found, using defaults")
	} else {
		logger.Info().Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Info().Str("mode", cfg.Mode).Int("port", cfg.Port).Str("codec", cfg.Codec).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Port > 0 && c.Port < 65536, "port %d out of range", c.Port)
	check(c.Codec == "json" || c.Codec == "msgpack", "unknown codec %q", c.Codec)
	check(c.Backpressure == "kick" || c.Backpressure == "drop", "unknown backpressure policy %q", c.Backpressure)
	check(c.ReadLimit > 0, "read_limit must be positive")
	check(c.SendBuffer > 0, "send_buffer must be positive")
	check(c.WriteWait > 0, "write_wait must be positive")
	check(c.PingPeriod > 0 && c.PingPeriod < c.PongWait, "ping_period %s must be positive and below pong_wait %s", c.PingPeriod, c.PongWait)
	check(c.MaxRoomIDLen > 0, "max_room_id_len must be positive")
	check(c.RoomRateLimit <= 0 || c.RoomRateInterval > 0, "room_rate_interval must be positive when room_rate_limit is set")

	for i, s := range c.ICEServers {
		check(len(s.URLs) > 0, "ice_servers[%d] has no urls", i)
		for _, raw := range s.URLs {
			u, err := stun.ParseURI(raw)
			if err != nil {
				check(false, "ice_servers[%d] url %q: %v", i, raw, err)
				continue
			}
			isTURN := u.Scheme == stun.SchemeTypeTURN || u.Scheme == stun.SchemeTypeTURNS
			check(!isTURN || s.Username != "", "ice_servers[%d] turn url %q needs a username", i, raw)
		}
	}
	return errors.Join(errs...)
}
