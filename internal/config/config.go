package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/route"
)

// Config holds funnel configuration.
type Config struct {
	Owner    string         `toml:"owner"`
	Canvas   CanvasConfig   `toml:"canvas"`
	Router   RouterConfig   `toml:"router"`
	Store    StoreConfig    `toml:"store"`
	Serve    ServeConfig    `toml:"serve"`
	Parallel ParallelConfig `toml:"parallel"`
}

// CanvasConfig controls node geometry and input handling.
type CanvasConfig struct {
	NodeWidth    float64 `toml:"node_width"`
	NodeHeight   float64 `toml:"node_height"`
	PortRadius   float64 `toml:"port_radius"`
	ZoomStep     float64 `toml:"zoom_step"`
	PanModifier  string  `toml:"pan_modifier"`  // "shift", "alt", "ctrl", "meta"
	ZoomModifier string  `toml:"zoom_modifier"` // "ctrl" also accepts cmd
}

// RouterConfig controls connection geometry.
type RouterConfig struct {
	DefaultStyle     string  `toml:"default_style"`
	DefaultCurvature float64 `toml:"default_curvature"`
	MaxBulge         float64 `toml:"max_bulge"`
	HitWidth         float64 `toml:"hit_width"`
	StrokeWidth      float64 `toml:"stroke_width"`
	LabelOffset      float64 `toml:"label_offset"`
	LabelHeight      float64 `toml:"label_height"`
	LabelCharWidth   float64 `toml:"label_char_width"`
	LabelPadding     float64 `toml:"label_padding"`
}

// StoreConfig locates the saved-funnel database. An empty path means
// funnels.db in the config directory.
type StoreConfig struct {
	Path string `toml:"path"`
}

// ServeConfig controls the editing session server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// ParallelConfig controls batch operations.
type ParallelConfig struct {
	Concurrency int `toml:"concurrency"`
}

// Default returns the default configuration.
func Default() *Config {
	r := route.Default()
	return &Config{
		Owner: "local",
		Canvas: CanvasConfig{
			NodeWidth:    r.NodeWidth,
			NodeHeight:   r.NodeHeight,
			PortRadius:   10,
			ZoomStep:     0.1,
			PanModifier:  "shift",
			ZoomModifier: "ctrl",
		},
		Router: RouterConfig{
			DefaultStyle:     string(graph.DefaultStyle),
			DefaultCurvature: graph.DefaultCurvature,
			MaxBulge:         r.MaxBulge,
			HitWidth:         r.HitWidth,
			StrokeWidth:      r.StrokeWidth,
			LabelOffset:      r.LabelOffset,
			LabelHeight:      r.LabelHeight,
			LabelCharWidth:   r.LabelCharWidth,
			LabelPadding:     r.LabelPadding,
		},
		Serve:    ServeConfig{Addr: "127.0.0.1:8080"},
		Parallel: ParallelConfig{Concurrency: 4},
	}
}

// ConfigDir returns the funnel config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "funnel")
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, falling back to defaults, then applies
// .env and environment overrides.
func Load() *Config {
	cfg := Default()

	if data, err := os.ReadFile(Path()); err == nil {
		_ = toml.Unmarshal(data, cfg)
	}

	// A missing .env is the common case.
	_ = godotenv.Load()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FUNNEL_OWNER"); v != "" {
		c.Owner = v
	}
	if v := os.Getenv("FUNNEL_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("FUNNEL_ADDR"); v != "" {
		c.Serve.Addr = v
	}
}

// StorePath returns the database path in effect.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(ConfigDir(), "funnels.db")
}

// RouterSettings builds the router described by the config. Zero values
// keep the built-in defaults.
func (c *Config) RouterSettings() route.Router {
	r := route.Default()
	set := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	set(&r.NodeWidth, c.Canvas.NodeWidth)
	set(&r.NodeHeight, c.Canvas.NodeHeight)
	set(&r.MaxBulge, c.Router.MaxBulge)
	set(&r.HitWidth, c.Router.HitWidth)
	set(&r.StrokeWidth, c.Router.StrokeWidth)
	set(&r.LabelOffset, c.Router.LabelOffset)
	set(&r.LabelHeight, c.Router.LabelHeight)
	set(&r.LabelCharWidth, c.Router.LabelCharWidth)
	set(&r.LabelPadding, c.Router.LabelPadding)
	return r
}

// EditorSettings builds the input controller settings.
func (c *Config) EditorSettings() editor.Config {
	ec := editor.DefaultConfig()
	ec.Router = c.RouterSettings()
	if c.Canvas.PortRadius > 0 {
		ec.PortRadius = c.Canvas.PortRadius
	}
	if c.Canvas.ZoomStep > 0 {
		ec.ZoomStep = c.Canvas.ZoomStep
	}
	if c.Canvas.PanModifier != "" {
		ec.PanModifier = c.Canvas.PanModifier
	}
	if c.Canvas.ZoomModifier != "" {
		ec.ZoomModifier = c.Canvas.ZoomModifier
	}
	ec.EdgeStyle, ec.EdgeCurvature = c.EdgeDefaults()
	return ec
}

// EdgeDefaults returns the style and curvature new connections get.
// Invalid values fall back to curved, 0.5.
func (c *Config) EdgeDefaults() (graph.EdgeStyle, float64) {
	style := graph.EdgeStyle(c.Router.DefaultStyle)
	if !style.Valid() {
		style = graph.DefaultStyle
	}
	curv := c.Router.DefaultCurvature
	if curv <= 0 || curv > 1 {
		curv = graph.DefaultCurvature
	}
	return style, curv
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := Path()
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

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	if _, err := os.Stat(Path()); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
