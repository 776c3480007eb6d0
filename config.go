package main

import (
	"errors"
	"flag"
	"io/fs"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds the runtime settings. Defaults come first, then a .env file
// and the environment, then command-line flags.
type Config struct {
	Addr            string        `env:"PUSHHUB_ADDR"`
	Endpoint        string        `env:"PUSHHUB_WS_ENDPOINT"`
	TokenSecret     string        `env:"PUSHHUB_TOKEN_SECRET"`
	TokenTTL        time.Duration `env:"PUSHHUB_TOKEN_TTL"`
	Keys            string        `env:"PUSHHUB_KEYS"`
	AutoCreate      bool          `env:"PUSHHUB_AUTOCREATE"`
	SeedChannels    string        `env:"PUSHHUB_SEED_CHANNELS"`
	AllowedOrigins  string        `env:"PUSHHUB_ALLOWED_ORIGINS"`
	MetricsTick     time.Duration `env:"PUSHHUB_METRICS_TICK"`
	ReadLimit       int64         `env:"PUSHHUB_READ_LIMIT"`
	SendBuffer      int           `env:"PUSHHUB_SEND_BUFFER"`
	ShutdownTimeout time.Duration `env:"PUSHHUB_SHUTDOWN_TIMEOUT"`
	DevLog          bool          `env:"PUSHHUB_DEV_LOG"`
}

func defaultConfig() Config {
	return Config{
		Addr:            ":3001",
		TokenTTL:        time.Hour,
		AutoCreate:      true,
		SeedChannels:    "notifications:Notifications,chat:Chat",
		AllowedOrigins:  "*",
		MetricsTick:     60 * time.Second,
		ReadLimit:       4096,
		SendBuffer:      256,
		ShutdownTimeout: 10 * time.Second,
	}
}

// loadConfig builds a Config from defaults, envFile (if present), the
// process environment and args.
func loadConfig(envFile string, args []string) (Config, error) {
	cfg := defaultConfig()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return cfg, err
	}

	fl := flag.NewFlagSet("pushhub", flag.ContinueOnError)
	fl.StringVar(&cfg.Addr, "addr", cfg.Addr, "http service address")
	fl.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "websocket URL handed out with tokens (default: derived from the request)")
	fl.StringVar(&cfg.TokenSecret, "token.secret", cfg.TokenSecret, "HMAC secret for connection tokens (default: random per process)")
	fl.DurationVar(&cfg.TokenTTL, "token.ttl", cfg.TokenTTL, "connection token lifetime")
	fl.StringVar(&cfg.Keys, "keys", cfg.Keys, "comma-separated API keys to accept (default: any key with a known prefix)")
	fl.BoolVar(&cfg.AutoCreate, "autocreate", cfg.AutoCreate, "create unknown channels on first publish or subscribe")
	fl.StringVar(&cfg.SeedChannels, "seed", cfg.SeedChannels, "channels created at start, as slug[:Name],...")
	fl.StringVar(&cfg.AllowedOrigins, "origins", cfg.AllowedOrigins, "comma-separated CORS origins")
	fl.DurationVar(&cfg.MetricsTick, "metrics.tick", cfg.MetricsTick, "metrics: duration between reports (0 disables)")
	fl.Int64Var(&cfg.ReadLimit, "ws.readlimit", cfg.ReadLimit, "largest websocket frame accepted from clients, in bytes")
	fl.IntVar(&cfg.SendBuffer, "ws.sendbuffer", cfg.SendBuffer, "frames queued per connection before it is dropped as slow")
	fl.DurationVar(&cfg.ShutdownTimeout, "stop-timeout", cfg.ShutdownTimeout, "stop timeout")
	fl.BoolVar(&cfg.DevLog, "log.dev", cfg.DevLog, "human-readable debug logging")
	if err := fl.Parse(args); err != nil {
		return cfg, err
	}
	return sanitizeConfig(cfg), nil
}

func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if len(splitList(cfg.AllowedOrigins)) == 0 {
		cfg.AllowedOrigins = def.AllowedOrigins
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
