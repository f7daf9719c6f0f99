// Package config loads the configuration of the command line tool and the
// preview service from a YAML file, .env files and PAGEDPREVIEW_ variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/logging"
	"github.com/gompdf/pagedpreview/internal/render/preview"
	"github.com/gompdf/pagedpreview/pkg/api"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "pagedpreview.yaml"

// EnvPrefix prefixes environment overrides, e.g. PAGEDPREVIEW_PAGE_SIZE.
const EnvPrefix = "PAGEDPREVIEW"

// Config holds the complete configuration
type Config struct {
	Page      PageConfig      `mapstructure:"page" yaml:"page"`
	Numbering NumberingConfig `mapstructure:"numbering" yaml:"numbering"`
	Measure   MeasureConfig   `mapstructure:"measure" yaml:"measure"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// PageConfig mirrors the PDF generator's page options
type PageConfig struct {
	Size        string        `mapstructure:"size" yaml:"size"`
	Orientation string        `mapstructure:"orientation" yaml:"orientation"`
	Margins     MarginsConfig `mapstructure:"margins" yaml:"margins"`
	FontFamily  string        `mapstructure:"font_family" yaml:"font_family"`
	FontSize    float64       `mapstructure:"font_size" yaml:"font_size"`
	LineHeight  float64       `mapstructure:"line_height" yaml:"line_height"`
	WhiteSpace  string        `mapstructure:"white_space" yaml:"white_space"`
	TabSize     int           `mapstructure:"tab_size" yaml:"tab_size"`
}

// MarginsConfig holds page margins in millimetres
type MarginsConfig struct {
	Top    float64 `mapstructure:"top" yaml:"top"`
	Right  float64 `mapstructure:"right" yaml:"right"`
	Bottom float64 `mapstructure:"bottom" yaml:"bottom"`
	Left   float64 `mapstructure:"left" yaml:"left"`
}

// NumberingConfig holds the page number decoration
type NumberingConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Horizontal string `mapstructure:"horizontal" yaml:"horizontal"`
	Vertical   string `mapstructure:"vertical" yaml:"vertical"`
	Format     string `mapstructure:"format" yaml:"format"`
}

// MeasureConfig holds measurement settings
type MeasureConfig struct {
	Backend       string   `mapstructure:"backend" yaml:"backend"`
	ChromePath    string   `mapstructure:"chrome_path" yaml:"chrome_path"`
	Tolerance     int      `mapstructure:"tolerance" yaml:"tolerance"`
	Sanitize      bool     `mapstructure:"sanitize" yaml:"sanitize"`
	Stylesheets   []string `mapstructure:"stylesheets" yaml:"stylesheets"`
	ResourcePaths []string `mapstructure:"resource_paths" yaml:"resource_paths"`

	// RemoteResources lets documents pull images and stylesheets from
	// any HTTP(S) origin
	RemoteResources bool `mapstructure:"remote_resources" yaml:"remote_resources"`
}

// ServerConfig holds preview service settings
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	BodyLimit    string        `mapstructure:"body_limit" yaml:"body_limit"`
	PassTimeout  time.Duration `mapstructure:"pass_timeout" yaml:"pass_timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins" yaml:"allow_origins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a new configuration with default values
func DefaultConfig() *Config {
	font := geometry.DefaultFont()
	n := preview.DefaultNumbering()
	return &Config{
		Page: PageConfig{
			Size:        string(geometry.SizeA4),
			Orientation: string(geometry.Portrait),
			Margins:     MarginsConfig{Top: 25, Right: 25, Bottom: 25, Left: 25},
			FontFamily:  font.Family,
			FontSize:    font.Size,
			LineHeight:  font.LineHeight,
			WhiteSpace:  string(geometry.WhiteSpaceNormal),
			TabSize:     8,
		},
		Numbering: NumberingConfig{
			Enabled:    true,
			Horizontal: string(n.Horizontal),
			Vertical:   string(n.Vertical),
			Format:     "{page} / {total}",
		},
		Measure: MeasureConfig{
			Backend:   string(api.BackendMetrics),
			Tolerance: api.DefaultOptions().Tolerance,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			BodyLimit:    "4M",
			PassTimeout:  30 * time.Second,
			AllowOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatConsole),
		},
	}
}

// LoadEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from path, or from DefaultFile in the working
// directory when path is empty, and applies environment overrides. A missing
// default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// WriteDefault writes the default configuration as YAML. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Options converts the configuration into paginator options.
func (c *Config) Options(logger zerolog.Logger) (api.Options, error) {
	size, err := geometry.ParsePageSize(c.Page.Size)
	if err != nil {
		return api.Options{}, err
	}
	orientation, err := geometry.ParseOrientation(c.Page.Orientation)
	if err != nil {
		return api.Options{}, err
	}
	ws, err := geometry.ParseWhiteSpace(c.Page.WhiteSpace)
	if err != nil {
		return api.Options{}, err
	}

	o := api.DefaultOptions()
	o.PageSize = size
	o.Orientation = orientation
	o.Margins = geometry.Margins(c.Page.Margins)
	o.Font = geometry.Font{Family: c.Page.FontFamily, Size: c.Page.FontSize, LineHeight: c.Page.LineHeight}
	o.WhiteSpace = ws
	o.TabSize = c.Page.TabSize
	o.Numbering = preview.Numbering{
		Enabled:    c.Numbering.Enabled,
		Horizontal: preview.Horizontal(c.Numbering.Horizontal),
		Vertical:   preview.Vertical(c.Numbering.Vertical),
		Format:     c.Numbering.Format,
	}
	if err := o.Numbering.Validate(); err != nil {
		return api.Options{}, err
	}
	o.Backend = api.Backend(c.Measure.Backend)
	o.ChromePath = c.Measure.ChromePath
	o.Tolerance = c.Measure.Tolerance
	o.Sanitize = c.Measure.Sanitize
	o.ResourcePaths = append(o.ResourcePaths, c.Measure.ResourcePaths...)
	o.RemoteResources = c.Measure.RemoteResources
	o.Logger = logger

	for _, ref := range c.Measure.Stylesheets {
		css, err := os.ReadFile(ref)
		if err != nil {
			return api.Options{}, fmt.Errorf("failed to read stylesheet: %w", err)
		}
		o.Stylesheets = append(o.Stylesheets, string(css))
	}
	return o, nil
}

// Logger builds the configured logger.
func (c *Config) Logger() (zerolog.Logger, error) {
	return logging.New(logging.Config{Level: c.Log.Level, Format: logging.Format(c.Log.Format)})
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("page.size", d.Page.Size)
	v.SetDefault("page.orientation", d.Page.Orientation)
	v.SetDefault("page.margins.top", d.Page.Margins.Top)
	v.SetDefault("page.margins.right", d.Page.Margins.Right)
	v.SetDefault("page.margins.bottom", d.Page.Margins.Bottom)
	v.SetDefault("page.margins.left", d.Page.Margins.Left)
	v.SetDefault("page.font_family", d.Page.FontFamily)
	v.SetDefault("page.font_size", d.Page.FontSize)
	v.SetDefault("page.line_height", d.Page.LineHeight)
	v.SetDefault("page.white_space", d.Page.WhiteSpace)
	v.SetDefault("page.tab_size", d.Page.TabSize)
	v.SetDefault("numbering.enabled", d.Numbering.Enabled)
	v.SetDefault("numbering.horizontal", d.Numbering.Horizontal)
	v.SetDefault("numbering.vertical", d.Numbering.Vertical)
	v.SetDefault("numbering.format", d.Numbering.Format)
	v.SetDefault("measure.backend", d.Measure.Backend)
	v.SetDefault("measure.chrome_path", d.Measure.ChromePath)
	v.SetDefault("measure.tolerance", d.Measure.Tolerance)
	v.SetDefault("measure.sanitize", d.Measure.Sanitize)
	v.SetDefault("measure.stylesheets", d.Measure.Stylesheets)
	v.SetDefault("measure.resource_paths", d.Measure.ResourcePaths)
	v.SetDefault("measure.remote_resources", d.Measure.RemoteResources)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.pass_timeout", d.Server.PassTimeout)
	v.SetDefault("server.allow_origins", d.Server.AllowOrigins)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
