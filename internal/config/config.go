// Package config loads petrisync settings from a TOML file, a .env file
// and PETRISYNC_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/interact"
	"github.com/matzehuels/petrisync/pkg/layout"
	"github.com/matzehuels/petrisync/pkg/shape"
	"github.com/matzehuels/petrisync/pkg/store"
)

const appName = "petrisync"

// EnvPrefix starts every environment override.
const EnvPrefix = "PETRISYNC_"

// Config holds all settings.
type Config struct {
	Canvas      CanvasConfig      `toml:"canvas"`
	Shapes      ShapesConfig      `toml:"shapes"`
	Interaction InteractionConfig `toml:"interaction"`
	Layout      LayoutConfig      `toml:"layout"`
	Store       StoreConfig       `toml:"store"`
	Feed        FeedConfig        `toml:"feed"`
}

// CanvasConfig sizes the drawing area. The origin of position
// descriptors is its centre.
type CanvasConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
	Margin float64 `toml:"margin"`
}

// ShapesConfig sizes node outlines.
type ShapesConfig struct {
	Size            float64 `toml:"size"`
	HighlightedSize float64 `toml:"highlighted_size"`
	// Transition is "horizontal" or "vertical".
	Transition string `toml:"transition"`
}

// InteractionConfig tunes pointer handling.
type InteractionConfig struct {
	// DragTrigger is secondary, middle, shift, alt or ctrl.
	DragTrigger string   `toml:"drag_trigger"`
	DeadZone    float64  `toml:"dead_zone"`
	DoubleClick Duration `toml:"double_click"`
}

// LayoutConfig holds the simulation constants.
type LayoutConfig struct {
	LinkDistance float64  `toml:"link_distance"`
	Charge       float64  `toml:"charge"`
	Gravity      float64  `toml:"gravity"`
	Friction     float64  `toml:"friction"`
	AlphaDecay   float64  `toml:"alpha_decay"`
	Interval     Duration `toml:"interval"`
}

// StoreConfig selects the snapshot backend.
type StoreConfig struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	RedisAddr       string `toml:"redis_addr"`
	RedisPassword   string `toml:"redis_password"`
	RedisDB         int    `toml:"redis_db"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// FeedConfig holds the remote model endpoint and credentials.
type FeedConfig struct {
	URL         string `toml:"url"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	Subprotocol string `toml:"subprotocol"`
	Listen      string `toml:"listen"`
}

// Duration is a time.Duration written as a string ("16ms") in TOML.
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the built-in configuration.
func Default() *Config {
	p := layout.DefaultParams()
	so := shape.DefaultOptions()
	return &Config{
		Canvas: CanvasConfig{Width: 960, Height: 600, Margin: 20},
		Shapes: ShapesConfig{
			Size:            so.Size,
			HighlightedSize: so.HighlightedSize,
			Transition:      so.Transition.String(),
		},
		Interaction: InteractionConfig{
			DragTrigger: interact.DragSecondary.String(),
			DeadZone:    3,
			DoubleClick: Duration{300 * time.Millisecond},
		},
		Layout: LayoutConfig{
			LinkDistance: p.LinkDistance,
			Charge:       p.Charge,
			Gravity:      p.Gravity,
			Friction:     p.Friction,
			AlphaDecay:   p.AlphaDecay,
			Interval:     Duration{p.Interval},
		},
		Store: StoreConfig{Backend: store.BackendFile, Dir: filepath.Join(DataDir(), "snapshots")},
		Feed:  FeedConfig{Subprotocol: "cosy", Listen: "127.0.0.1:8080"},
	}
}

// Dir returns the config directory ($XDG_CONFIG_HOME/petrisync).
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName)
}

// DataDir returns the data directory ($XDG_DATA_HOME/petrisync).
func DataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, appName)
}

// Path returns the default config file path.
func Path() string { return filepath.Join(Dir(), "config.toml") }

// Load reads path (or the default path when empty) over the defaults,
// then loads a .env file from the working directory if present and
// applies environment overrides. A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Save writes cfg to path as TOML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("FEED_URL", &c.Feed.URL)
	str("FEED_USERNAME", &c.Feed.Username)
	str("FEED_PASSWORD", &c.Feed.Password)
	str("FEED_LISTEN", &c.Feed.Listen)
	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_DIR", &c.Store.Dir)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	str("MONGO_URI", &c.Store.MongoURI)
	str("DRAG_TRIGGER", &c.Interaction.DragTrigger)
	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err)
		}
		c.Store.RedisDB = db
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a
// component.
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %vx%v", c.Canvas.Width, c.Canvas.Height)
	}
	if _, err := interact.ParseDragTrigger(c.Interaction.DragTrigger); err != nil {
		return err
	}
	if _, err := shape.ParseOrientation(c.Shapes.Transition); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "", store.BackendFile, store.BackendMemory, store.BackendRedis, store.BackendMongo:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// Origin is the canvas centre.
func (c *Config) Origin() geom.Point {
	return geom.Pt(c.Canvas.Width/2, c.Canvas.Height/2)
}

// ShapeRegistry builds the shape registry.
func (c *Config) ShapeRegistry() *shape.Registry {
	o, _ := shape.ParseOrientation(c.Shapes.Transition)
	return shape.NewRegistry(shape.Options{
		Size:            c.Shapes.Size,
		HighlightedSize: c.Shapes.HighlightedSize,
		Transition:      o,
	})
}

// DragTrigger returns the parsed drag trigger.
func (c *Config) DragTrigger() interact.DragTrigger {
	t, _ := interact.ParseDragTrigger(c.Interaction.DragTrigger)
	return t
}

// LayoutParams returns simulation parameters centred on the origin.
func (c *Config) LayoutParams() layout.Params {
	p := layout.DefaultParams()
	p.LinkDistance = c.Layout.LinkDistance
	p.Charge = c.Layout.Charge
	p.Gravity = c.Layout.Gravity
	p.Friction = c.Layout.Friction
	p.AlphaDecay = c.Layout.AlphaDecay
	p.Interval = c.Layout.Interval.Duration
	p.Center = c.Origin()
	return p
}

// StoreConfig converts to the store package's configuration.
func (c *Config) StoreConfig() store.Config {
	s := c.Store
	return store.Config{
		Backend:         s.Backend,
		Dir:             s.Dir,
		RedisAddr:       s.RedisAddr,
		RedisPassword:   s.RedisPassword,
		RedisDB:         s.RedisDB,
		MongoURI:        s.MongoURI,
		MongoDatabase:   s.MongoDatabase,
		MongoCollection: s.MongoCollection,
		Timeout:         5 * time.Second,
	}
}
