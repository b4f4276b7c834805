// Package config holds the engine configuration and loads it from TOML.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

const (
	ArchiveDir   = "dir"
	ArchiveMinIO = "minio"
	ArchiveS3    = "s3"
)

/** @brief The configuration for the engine */
type Config struct {
	/** @brief Enables debug logging. */
	Debug bool `toml:"debug"`
	/** @brief Log level name understood by charmbracelet/log. Ignored when Debug is set. */
	LogLevel string `toml:"log_level"`
	/** @brief The maximum number of resources the resource manager can hold. */
	MaxResourceCount uint32 `toml:"max_resource_count"`
	/** @brief Budget in bytes for resource payloads. Zero means unlimited. */
	MemoryBudget uint64 `toml:"memory_budget"`
	/** @brief Manifest paths added at startup, in order. */
	Manifests []string `toml:"manifests"`
	/** @brief Reload resources when files under directory archives change. */
	Watch bool `toml:"watch"`
	/** @brief Resources opened at startup and kept loaded until shutdown. */
	Preload []string `toml:"preload"`
	/** @brief Workers used to preload resources. Zero picks the engine default. */
	Workers int `toml:"workers"`
	/** @brief Archives mounted before any manifest is read. */
	Archives []ArchiveConfig `toml:"archives"`
}

/** @brief The configuration for a mounted archive */
type ArchiveConfig struct {
	/** @brief Mount name, the first segment of every path read from the archive. */
	Name string `toml:"name"`
	/** @brief One of "dir", "minio" or "s3". */
	Kind string `toml:"kind"`
	/** @brief Local directory for "dir" archives. */
	Root string `toml:"root"`

	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Secure    bool   `toml:"secure"`
}

// Default mirrors the engine defaults: one thousand and twenty four resource
// slots, info level logging and no archives.
func Default() Config {
	return Config{
		LogLevel:         "info",
		MaxResourceCount: 1024,
	}
}

// Load reads and validates the TOML file at path. Keys it does not set keep
// their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, core.Wrap(core.KindIO, "config.Load", err).WithPath(path)
	}
	cfg, err := Parse(data)
	if err != nil {
		if e, ok := err.(*core.Error); ok {
			e.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, core.Wrap(core.KindFormat, "config.Parse", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Level returns the effective log level.
func (c Config) Level() string {
	if c.Debug {
		return "debug"
	}
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

func (c Config) Validate() error {
	const op = "config.Validate"
	if c.MaxResourceCount == 0 {
		return core.Errorf(core.KindCapacity, op, "max_resource_count must be > 0").WithField("max_resource_count")
	}
	seen := make(map[string]bool, len(c.Archives))
	for i, a := range c.Archives {
		field := fmt.Sprintf("archives[%d]", i)
		if err := a.validate(); err != nil {
			return core.Errorf(core.KindFormat, op, "%v", err).WithField(field)
		}
		if seen[a.Name] {
			return core.Errorf(core.KindFormat, op, "archive %q mounted twice", a.Name).WithField(field)
		}
		seen[a.Name] = true
	}
	if c.Workers < 0 {
		return core.Errorf(core.KindFormat, op, "workers must not be negative").WithField("workers")
	}
	for i, m := range c.Manifests {
		if strings.TrimSpace(m) == "" {
			return core.Errorf(core.KindFormat, op, "empty manifest path").WithField(fmt.Sprintf("manifests[%d]", i))
		}
	}
	return nil
}

func (a ArchiveConfig) validate() error {
	if strings.TrimSpace(a.Name) == "" || strings.Contains(a.Name, "/") {
		return fmt.Errorf("invalid archive name %q", a.Name)
	}
	switch a.Kind {
	case ArchiveDir:
		if a.Root == "" {
			return fmt.Errorf("dir archive %q needs a root", a.Name)
		}
	case ArchiveMinIO:
		if a.Endpoint == "" || a.Bucket == "" {
			return fmt.Errorf("minio archive %q needs an endpoint and a bucket", a.Name)
		}
	case ArchiveS3:
		if a.Bucket == "" {
			return fmt.Errorf("s3 archive %q needs a bucket", a.Name)
		}
	default:
		return fmt.Errorf("unknown archive kind %q", a.Kind)
	}
	return nil
}
