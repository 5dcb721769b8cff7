package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8080 || cfg.DatabaseURL != "" || cfg.GamesDir != "./games" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v", cfg.TokenTTL)
	}

	tools := cfg.Tools()
	if tools.HandleRadius != 8 || tools.RotateHandleOffset != 30 || tools.MinSize != 10 {
		t.Errorf("tools = %+v", tools)
	}
	if tools.ImportPoint.X != 400 || tools.ImportPoint.Y != 300 {
		t.Errorf("import point = %+v", tools.ImportPoint)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CANVAS_WIDTH", "1024")
	t.Setenv("CANVAS_HEIGHT", "768")
	t.Setenv("MIN_OBJECT_SIZE", "4")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , http://localhost:3000,")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 || cfg.Tools().MinSize != 4 || cfg.Codegen().Width != 1024 {
		t.Errorf("cfg = %+v", cfg)
	}
	if p := cfg.Tools().ImportPoint; p.X != 512 || p.Y != 384 {
		t.Errorf("import point = %+v", p)
	}

	want := []string{"a.example", "localhost:3000"}
	got := cfg.OriginPatterns()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("OriginPatterns = %v", got)
	}
}

func TestLoadRejectsBadNumber(t *testing.T) {
	t.Setenv("PORT", "eighty")
	if _, err := Load(); err == nil {
		t.Error("expected error")
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := &Config{LogLevel: tt.in}
			if got := c.Level(); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}
