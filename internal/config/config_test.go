package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/interact"
	"github.com/matzehuels/petrisync/pkg/shape"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := cfg.Origin(); got != geom.Pt(480, 300) {
		t.Errorf("Origin = %v, want (480,300)", got)
	}
	if got := cfg.DragTrigger(); got != interact.DragSecondary {
		t.Errorf("DragTrigger = %v", got)
	}
	if p := cfg.LayoutParams(); p.Center != cfg.Origin() || p.Interval != 16*time.Millisecond {
		t.Errorf("LayoutParams = %+v", p)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	src := `
[canvas]
width = 400
height = 200

[shapes]
transition = "vertical"

[interaction]
drag_trigger = "shift"
double_click = "250ms"

[layout]
interval = "10ms"

[store]
backend = "memory"
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Origin() != geom.Pt(200, 100) {
		t.Errorf("Origin = %v", cfg.Origin())
	}
	if cfg.DragTrigger() != interact.DragShift {
		t.Errorf("DragTrigger = %v", cfg.DragTrigger())
	}
	if cfg.Interaction.DoubleClick.Duration != 250*time.Millisecond {
		t.Errorf("DoubleClick = %v", cfg.Interaction.DoubleClick)
	}
	if cfg.LayoutParams().Interval != 10*time.Millisecond {
		t.Errorf("Interval = %v", cfg.LayoutParams().Interval)
	}
	if d := cfg.ShapeRegistry().Select(true, false); d.Kind() != shape.KindVerticalRect {
		t.Errorf("transition shape = %v, want vertical rect", d.Kind())
	}
	// Unset keys keep their defaults.
	if cfg.Layout.Charge != Default().Layout.Charge {
		t.Errorf("Charge = %v, want default", cfg.Layout.Charge)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Canvas != Default().Canvas {
		t.Errorf("Canvas = %+v", cfg.Canvas)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PETRISYNC_FEED_USERNAME=alice\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("PETRISYNC_REDIS_ADDR", "localhost:6379")
	t.Setenv("PETRISYNC_REDIS_DB", "2")
	t.Setenv("PETRISYNC_STORE_BACKEND", "redis")
	t.Cleanup(func() { os.Unsetenv("PETRISYNC_FEED_USERNAME") })

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feed.Username != "alice" {
		t.Errorf("username from .env = %q", cfg.Feed.Username)
	}
	sc := cfg.StoreConfig()
	if sc.Backend != "redis" || sc.RedisAddr != "localhost:6379" || sc.RedisDB != 2 {
		t.Errorf("StoreConfig = %+v", sc)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero canvas", func(c *Config) { c.Canvas.Width = 0 }},
		{"bad trigger", func(c *Config) { c.Interaction.DragTrigger = "tongue" }},
		{"bad orientation", func(c *Config) { c.Shapes.Transition = "diagonal" }},
		{"bad backend", func(c *Config) { c.Store.Backend = "etcd" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Feed.URL = "ws://example.test/ws"
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}
	t.Chdir(t.TempDir())
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Feed.URL != cfg.Feed.URL || got.Interaction.DoubleClick != cfg.Interaction.DoubleClick {
		t.Errorf("round trip lost values: %+v", got.Feed)
	}
}
