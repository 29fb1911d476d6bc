// Package config loads the viewer configuration: built in defaults, then an
// optional TOML file, then ANIMAVIEW_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/animaview/engine/core"
)

// DefaultFile is read when it exists and no file is given explicitly.
const DefaultFile = "animaview.toml"

type Config struct {
	Window  WindowConfig  `toml:"window"`
	Log     LogConfig     `toml:"log"`
	Assets  AssetsConfig  `toml:"assets"`
	Scene   SceneConfig   `toml:"scene"`
	Jobs    JobsConfig    `toml:"jobs"`
	Control ControlConfig `toml:"control"`
}

type WindowConfig struct {
	// Open a desktop window. Without one the viewer runs headless and is
	// driven through the control surface only.
	Enabled   bool   `toml:"enabled" env:"ANIMAVIEW_WINDOW"`
	Name      string `toml:"name" env:"ANIMAVIEW_WINDOW_NAME"`
	X         uint32 `toml:"x"`
	Y         uint32 `toml:"y"`
	Width     uint32 `toml:"width" env:"ANIMAVIEW_WINDOW_WIDTH"`
	Height    uint32 `toml:"height" env:"ANIMAVIEW_WINDOW_HEIGHT"`
	TargetFPS int    `toml:"target_fps" env:"ANIMAVIEW_TARGET_FPS"`
}

type LogConfig struct {
	Level string `toml:"level" env:"ANIMAVIEW_LOG_LEVEL"`
}

type AssetsConfig struct {
	Dir       string `toml:"dir" env:"ANIMAVIEW_ASSETS_DIR"`
	Extension string `toml:"extension" env:"ANIMAVIEW_ASSETS_EXTENSION"`
	// Names is the selector, in key order: the first name is bound to key 1.
	Names []string `toml:"names" env:"ANIMAVIEW_ASSETS" envSeparator:","`
	// Initial is loaded at startup. Empty means the first name.
	Initial string `toml:"initial" env:"ANIMAVIEW_ASSETS_INITIAL"`
	// Reload the live asset when its file changes.
	Watch bool `toml:"watch" env:"ANIMAVIEW_ASSETS_WATCH"`
}

type SceneConfig struct {
	Background     uint32     `toml:"background"`
	FogColor       uint32     `toml:"fog_color"`
	FogNear        float32    `toml:"fog_near"`
	FogFar         float32    `toml:"fog_far"`
	FovY           float32    `toml:"fov_y"`
	Near           float32    `toml:"near"`
	Far            float32    `toml:"far"`
	CameraPosition [3]float32 `toml:"camera_position"`
	CameraTarget   [3]float32 `toml:"camera_target"`
	GroundSize     float32    `toml:"ground_size"`
	GridDivisions  int        `toml:"grid_divisions"`
	// Half extent of the directional light's shadow box.
	ShadowExtent float32 `toml:"shadow_extent"`
}

type JobsConfig struct {
	Workers   int `toml:"workers" env:"ANIMAVIEW_JOBS_WORKERS"`
	QueueSize int `toml:"queue_size" env:"ANIMAVIEW_JOBS_QUEUE_SIZE"`
}

type ControlConfig struct {
	Enabled         bool   `toml:"enabled" env:"ANIMAVIEW_CONTROL"`
	Addr            string `toml:"addr" env:"ANIMAVIEW_CONTROL_ADDR"`
	DiagnosticsSize int    `toml:"diagnostics_size"`
	// How often stats are pushed to websocket clients, in frames.
	PushEveryFrames int `toml:"push_every_frames"`
}

// Default reproduces the demo scene: four characters, a grey fogged
// backdrop and a camera looking at the character's chest.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Name:      "animaview",
			X:         100,
			Y:         100,
			Width:     1280,
			Height:    720,
			TargetFPS: 60,
		},
		Log: LogConfig{Level: "info"},
		Assets: AssetsConfig{
			Dir:       "models/gltf",
			Extension: ".glb",
			Names:     []string{"Samba Dancing", "Walking", "Running", "Jumping"},
			Watch:     true,
		},
		Scene: SceneConfig{
			Background:     0xa0a0a0,
			FogColor:       0xa0a0a0,
			FogNear:        200,
			FogFar:         1000,
			FovY:           45,
			Near:           1,
			Far:            2000,
			CameraPosition: [3]float32{100, 200, 300},
			CameraTarget:   [3]float32{0, 100, 0},
			GroundSize:     2000,
			GridDivisions:  20,
			ShadowExtent:   180,
		},
		Jobs: JobsConfig{Workers: 2, QueueSize: 16},
		Control: ControlConfig{
			Enabled:         true,
			Addr:            "127.0.0.1:8090",
			DiagnosticsSize: 32,
			PushEveryFrames: 30,
		},
	}
}

// Load builds the configuration. An empty path reads DefaultFile if it
// exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decodeTOML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeTOML(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// ParseEnv overrides target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width == 0 || c.Window.Height == 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Window.TargetFPS < 0 {
		errs = append(errs, fmt.Errorf("window.target_fps %d must not be negative", c.Window.TargetFPS))
	}
	if _, err := core.LookupLogLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if c.Assets.Dir == "" {
		errs = append(errs, errors.New("assets.dir is empty"))
	}
	if !strings.HasPrefix(c.Assets.Extension, ".") || len(c.Assets.Extension) < 2 {
		errs = append(errs, fmt.Errorf("assets.extension %q must look like .glb", c.Assets.Extension))
	}
	if len(c.Assets.Names) == 0 {
		errs = append(errs, errors.New("assets.names is empty"))
	}
	seen := make(map[string]bool, len(c.Assets.Names))
	for _, name := range c.Assets.Names {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("assets.names contains an empty name"))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("assets.names lists %q twice", name))
		}
		seen[name] = true
	}
	if c.Assets.Initial != "" && !seen[c.Assets.Initial] {
		errs = append(errs, fmt.Errorf("assets.initial %q is not in assets.names", c.Assets.Initial))
	}

	if c.Scene.FogNear < 0 || c.Scene.FogFar <= c.Scene.FogNear {
		errs = append(errs, fmt.Errorf("fog range %v..%v is empty", c.Scene.FogNear, c.Scene.FogFar))
	}
	if c.Scene.Near <= 0 || c.Scene.Far <= c.Scene.Near {
		errs = append(errs, fmt.Errorf("camera clip range %v..%v is empty", c.Scene.Near, c.Scene.Far))
	}
	if c.Scene.FovY <= 0 || c.Scene.FovY >= 180 {
		errs = append(errs, fmt.Errorf("scene.fov_y %v out of range", c.Scene.FovY))
	}

	if c.Jobs.Workers < 1 {
		errs = append(errs, fmt.Errorf("jobs.workers %d must be at least 1", c.Jobs.Workers))
	}
	if c.Jobs.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("jobs.queue_size %d must not be negative", c.Jobs.QueueSize))
	}
	if c.Control.Enabled && c.Control.Addr == "" {
		errs = append(errs, errors.New("control.addr is empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// InitialAsset is the name loaded at startup.
func (c Config) InitialAsset() string {
	if c.Assets.Initial != "" {
		return c.Assets.Initial
	}
	return c.Assets.Names[0]
}
