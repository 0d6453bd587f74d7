// Package cfg defines the engine's configuration surface: the disk
// geometry, layout, and logging/metrics settings an adapter binds from
// flags and an optional YAML config file, mirroring the flag-binding
// pattern of generated CLI configs elsewhere in this stack.
package cfg

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration object, unmarshaled from bound flags
// and an optional YAML file via viper.Unmarshal.
type Config struct {
	Volume  VolumeConfig  `yaml:"volume" mapstructure:"volume"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Debug   DebugConfig   `yaml:"debug" mapstructure:"debug"`
}

// VolumeConfig describes the disk geometry and layout of one Volume.
type VolumeConfig struct {
	DiskPaths  []string `yaml:"disk-paths" mapstructure:"disk-paths"`
	DiskLength int64    `yaml:"disk-length-bytes" mapstructure:"disk-length-bytes"`
	ChunkWidth int      `yaml:"chunk-width-bytes" mapstructure:"chunk-width-bytes"`
	Layout     string   `yaml:"layout" mapstructure:"layout"` // "raid0" | "raid1" | "raid3"
}

// LoggingConfig selects the severity threshold and destination for the
// leveled logger.
type LoggingConfig struct {
	Severity string `yaml:"severity" mapstructure:"severity"` // TRACE|DEBUG|INFO|WARNING|ERROR
	FilePath string `yaml:"file-path" mapstructure:"file-path"`
	Format   string `yaml:"format" mapstructure:"format"` // "text" | "json"
}

// MetricsConfig controls whether the OpenCensus/Prometheus sink is wired
// in, and where it serves scrapes from.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Address string `yaml:"address" mapstructure:"address"`
}

// DebugConfig holds flags useful only while developing against the engine.
type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation" mapstructure:"exit-on-invariant-violation"`
}

// BindFlags registers every Config field as a persistent flag on flagSet
// and binds it into viper's global registry under the matching key, so a
// later viper.Unmarshal(&Config{}) picks up flag and config file values
// with viper's usual precedence. Environment variables are not bound.
func BindFlags(flagSet *pflag.FlagSet) error {
	bind := func(key string) error {
		return viper.BindPFlag(key, flagSet.Lookup(key))
	}

	flagSet.StringSlice("volume.disk-paths", nil, "Backing image paths, one per disk.")
	if err := bind("volume.disk-paths"); err != nil {
		return err
	}

	flagSet.Int64("volume.disk-length-bytes", 0, "Fixed length of each disk image, in bytes.")
	if err := bind("volume.disk-length-bytes"); err != nil {
		return err
	}

	flagSet.Int("volume.chunk-width-bytes", 4096, "Per-disk chunk width N, in bytes.")
	if err := bind("volume.chunk-width-bytes"); err != nil {
		return err
	}

	flagSet.String("volume.layout", "raid1", "Stripe layout: raid0, raid1, or raid3.")
	if err := bind("volume.layout"); err != nil {
		return err
	}

	flagSet.String("logging.severity", "INFO", "Minimum severity logged: TRACE, DEBUG, INFO, WARNING, or ERROR.")
	if err := bind("logging.severity"); err != nil {
		return err
	}

	flagSet.String("logging.file-path", "", "Log file path; empty logs to stderr.")
	if err := bind("logging.file-path"); err != nil {
		return err
	}

	flagSet.String("logging.format", "text", "Log encoding: text or json.")
	if err := bind("logging.format"); err != nil {
		return err
	}

	flagSet.Bool("metrics.enabled", false, "Serve RAID metrics over Prometheus.")
	if err := bind("metrics.enabled"); err != nil {
		return err
	}

	flagSet.String("metrics.address", ":9191", "Address the metrics HTTP handler listens on.")
	if err := bind("metrics.address"); err != nil {
		return err
	}

	flagSet.Bool("debug.exit-on-invariant-violation", false, "Exit the process when a core invariant is violated.")
	if err := bind("debug.exit-on-invariant-violation"); err != nil {
		return err
	}

	return nil
}

// Validate checks the fields BindFlags cannot enforce by themselves.
func (c Config) Validate() error {
	switch len(c.Volume.DiskPaths) {
	case 0:
		return fmt.Errorf("cfg: volume.disk-paths must list at least one disk")
	}
	if c.Volume.DiskLength <= 0 {
		return fmt.Errorf("cfg: volume.disk-length-bytes must be positive")
	}
	if c.Volume.ChunkWidth <= 0 {
		return fmt.Errorf("cfg: volume.chunk-width-bytes must be positive")
	}
	switch c.Volume.Layout {
	case "raid0", "raid1", "raid3":
	default:
		return fmt.Errorf("cfg: volume.layout must be one of raid0, raid1, raid3, got %q", c.Volume.Layout)
	}
	if c.Volume.Layout == "raid3" && len(c.Volume.DiskPaths) < 2 {
		return fmt.Errorf("cfg: raid3 requires at least 2 disks (1 data + 1 parity), got %d", len(c.Volume.DiskPaths))
	}
	return nil
}
