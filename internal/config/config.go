package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/rfaga/storyteller/internal/codegen"
	"github.com/rfaga/storyteller/internal/tool"
)

type Config struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"` // empty selects the file store
	GamesDir       string        `envconfig:"GAMES_DIR" default:"./games"`
	AssetDir       string        `envconfig:"ASSET_DIR" default:"./data/assets"`
	TemplateDir    string        `envconfig:"TEMPLATE_DIR" default:"./templates"`
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	WatchGames     bool          `envconfig:"WATCH_GAMES" default:"true"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	SessionIdle    time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`

	CanvasWidth        int     `envconfig:"CANVAS_WIDTH" default:"800"`
	CanvasHeight       int     `envconfig:"CANVAS_HEIGHT" default:"600"`
	HandleRadius       float64 `envconfig:"HANDLE_RADIUS" default:"8"`
	RotateHandleOffset float64 `envconfig:"ROTATE_HANDLE_OFFSET" default:"30"`
	MinObjectSize      float64 `envconfig:"MIN_OBJECT_SIZE" default:"10"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins returns the allowed CORS origins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OriginPatterns returns the origins without scheme, as websocket.Accept
// expects them.
func (c *Config) OriginPatterns() []string {
	origins := c.Origins()
	out := make([]string, len(origins))
	for i, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		out[i] = strings.TrimPrefix(o, "http://")
	}
	return out
}

// Tools returns the interaction tuning with the canvas center as the
// import point.
func (c *Config) Tools() tool.Config {
	t := tool.DefaultConfig()
	t.HandleRadius = c.HandleRadius
	t.RotateHandleOffset = c.RotateHandleOffset
	t.MinSize = c.MinObjectSize
	t.ImportPoint.X = float64(c.CanvasWidth) / 2
	t.ImportPoint.Y = float64(c.CanvasHeight) / 2
	return t
}

func (c *Config) Codegen() codegen.Options {
	o := codegen.DefaultOptions()
	o.Width = c.CanvasWidth
	o.Height = c.CanvasHeight
	return o
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
