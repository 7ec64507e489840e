// Package twconfig loads windpress settings. Precedence is overrides (CLI
// flags), then WINDPRESS_* environment variables, then the yaml file, then
// defaults.
package twconfig

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twfetch"
)

// DefaultFile is read when no file is named and it exists.
const DefaultFile = ".windpress.yaml"

// EnvPrefix starts the environment variables read. WINDPRESS_SERVE_ADDR
// sets serve.addr.
const EnvPrefix = "WINDPRESS_"

// Config holds every setting.
type Config struct {
	// Version is the Tailwind major version, "3" or "4".
	Version    string `koanf:"version"`
	Project    string `koanf:"project"`
	Entrypoint string `koanf:"entrypoint"`
	// Config is the 3.x config module path in the volume.
	Config   string `koanf:"config"`
	Registry string `koanf:"registry"`

	Engine       Engine       `koanf:"engine"`
	Fetch        Fetch        `koanf:"fetch"`
	Log          Log          `koanf:"log"`
	Build        Build        `koanf:"build"`
	Serve        Serve        `koanf:"serve"`
	Watch        Watch        `koanf:"watch"`
	Intellisense Intellisense `koanf:"intellisense"`
	Cache        Cache        `koanf:"cache"`
}

type Engine struct {
	// Cache is the number of design systems kept per engine.
	Cache int `koanf:"cache"`
}

type Fetch struct {
	Timeout time.Duration `koanf:"timeout"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Build struct {
	Output string `koanf:"output"`
	Minify bool   `koanf:"minify"`
}

type Serve struct {
	Addr    string   `koanf:"addr"`
	Origins []string `koanf:"origins"`
	MaxAge  int      `koanf:"maxage"`
}

type Watch struct {
	Delay time.Duration `koanf:"delay"`
}

type Intellisense struct {
	Threshold float64 `koanf:"threshold"`
	Limit     int     `koanf:"limit"`
}

type Cache struct {
	// Output is the storage URL of the cached stylesheet.
	Output    string     `koanf:"output"`
	PageSize  int        `koanf:"pagesize"`
	Providers []Provider `koanf:"providers"`
}

// Provider is a content source for cache builds: a remote endpoint (URL)
// or files under a directory (Dir and Patterns).
type Provider struct {
	Name     string   `koanf:"name"`
	URL      string   `koanf:"url"`
	Dir      string   `koanf:"dir"`
	Patterns []string `koanf:"patterns"`
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		Version:    string(windpress.V4),
		Project:    ".",
		Entrypoint: windpress.DefaultEntrypoint,
		Registry:   twfetch.DefaultRegistry,
		Engine:     Engine{Cache: 8},
		Fetch:      Fetch{Timeout: twfetch.DefaultTimeout},
		Log:        Log{Level: "info", Format: "text"},
		Build:      Build{Output: "-"},
		Serve:      Serve{Addr: ":8080"},
		Watch:      Watch{Delay: 100 * time.Millisecond},
		Intellisense: Intellisense{
			Threshold: 0.4,
			Limit:     50,
		},
		Cache: Cache{PageSize: 50},
	}
}

// Load reads path (DefaultFile when empty, skipped if absent), then the
// environment, then overrides keyed by dotted names such as "serve.addr".
// Nil overrides are skipped.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	for key, v := range overrides {
		if v == nil {
			continue
		}
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate checks the values that have a fixed set of choices.
func (c *Config) Validate() error {
	if _, err := windpress.ParseVersion(c.Version); err != nil {
		return err
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	for i, p := range c.Cache.Providers {
		if p.Name == "" {
			return fmt.Errorf("cache provider %d has no name", i)
		}
		if (p.URL == "") == (p.Dir == "") {
			return fmt.Errorf("cache provider %s needs exactly one of url and dir", p.Name)
		}
	}
	return nil
}

// EngineVersion returns Version parsed.
func (c *Config) EngineVersion() windpress.Version {
	v, _ := windpress.ParseVersion(c.Version)
	return v
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// Logger returns a logger writing to w in the configured format and level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	l, _ := c.level()
	opts := &slog.HandlerOptions{Level: l}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
