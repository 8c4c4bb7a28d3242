package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/types"
)

type Config struct {
	ModelsDir string         `yaml:"models_dir"`
	Annotate  AnnotateConfig `yaml:"annotate"`
	Output    OutputConfig   `yaml:"output"`
	Viewer    ViewerConfig   `yaml:"viewer"`
}

type AnnotateConfig struct {
	Color      string  `yaml:"color"` // hex, e.g. "#00ff00"
	Width      float64 `yaml:"width"`
	MenuMargin int     `yaml:"menu_margin"` // pixels added around boxes in the interactive menu
	LabelSize  float64 `yaml:"label_size"`
}

type OutputConfig struct {
	JPEGQuality  int  `yaml:"jpeg_quality"`
	WebPQuality  int  `yaml:"webp_quality"`
	WebPLossless bool `yaml:"webp_lossless"`
}

type ViewerConfig struct {
	Command string `yaml:"command"` // empty = platform default
	Wait    bool   `yaml:"wait"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		ModelsDir: "models",
		Annotate: AnnotateConfig{
			Color:      "#00ff00",
			Width:      4,
			MenuMargin: 10,
			LabelSize:  18,
		},
		Output: OutputConfig{
			JPEGQuality: 90,
			WebPQuality: 90,
		},
	}
}

// DefaultPath returns <UserConfigDir>/facemark/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "facemark.yaml"
	}
	return filepath.Join(dir, "facemark", "config.yaml")
}

// Load builds the configuration from defaults, the YAML file at path and FACEMARK_* env vars,
// in that order. An empty path means DefaultPath, which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config file %s: %w", types.ErrArgument, path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// optional
	default:
		return nil, fmt.Errorf("%w: failed to read config file: %w", types.ErrFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	readEnvString("FACEMARK_MODELS_DIR", &c.ModelsDir)
	readEnvString("FACEMARK_VIEWER", &c.Viewer.Command)
	if err := readEnvBool("FACEMARK_VIEWER_WAIT", &c.Viewer.Wait); err != nil {
		return err
	}
	return readEnvInt("FACEMARK_JPEG_QUALITY", &c.Output.JPEGQuality)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ModelsDir == "" {
		return fmt.Errorf("%w: models_dir cannot be empty", types.ErrArgument)
	}
	if _, err := ParseHexColor(c.Annotate.Color); err != nil {
		return err
	}
	if c.Annotate.Width <= 0 {
		return fmt.Errorf("%w: annotate.width must be positive", types.ErrArgument)
	}
	if c.Annotate.MenuMargin < 0 {
		return fmt.Errorf("%w: annotate.menu_margin cannot be negative", types.ErrArgument)
	}
	if c.Annotate.LabelSize <= 0 {
		return fmt.Errorf("%w: annotate.label_size must be positive", types.ErrArgument)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("%w: output.jpeg_quality must be between 1 and 100", types.ErrArgument)
	}
	if c.Output.WebPQuality < 1 || c.Output.WebPQuality > 100 {
		return fmt.Errorf("%w: output.webp_quality must be between 1 and 100", types.ErrArgument)
	}
	return nil
}

// BoxColor returns the parsed annotation colour. Validate has already checked it.
func (c *Config) BoxColor() color.NRGBA {
	col, _ := ParseHexColor(c.Annotate.Color)
	return col
}

// SaveOptions maps the output section onto the image encoders.
func (c *Config) SaveOptions() imageio.SaveOptions {
	return imageio.SaveOptions{
		JPEGQuality:  c.Output.JPEGQuality,
		WebPQuality:  float32(c.Output.WebPQuality),
		WebPLossless: c.Output.WebPLossless,
	}
}

// ParseHexColor parses "#rgb" or "#rrggbb" (the leading # is optional).
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: invalid colour %q", types.ErrArgument, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: invalid colour %q", types.ErrArgument, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) error {
	switch v := strings.ToLower(strings.TrimSpace(os.Getenv(name))); v {
	case "":
	case "true", "1", "yes", "on":
		*value = true
	case "false", "0", "no", "off":
		*value = false
	default:
		return fmt.Errorf("%w: %s must be a boolean, got %q", types.ErrArgument, name, v)
	}
	return nil
}

func readEnvInt(name string, value *int) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s must be an integer, got %q", types.ErrArgument, name, v)
	}
	*value = n
	return nil
}
