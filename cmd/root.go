// Package cmd wires the engine's cobra command surface: flag/config
// binding through internal/cfg, and a single root command that takes the
// mount point as its one argument, brings up a Volume, and serves it over
// FUSE via internal/raidfs.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/cfg"
)

var (
	cfgFile      string
	bindErr      error
	configErr    error
	unmarshalErr error

	engineConfig cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "stripe-slinger [flags] mount_point",
	Short: "Mount a RAID-backed byte volume as a local FUSE filesystem",
	Long: `stripe-slinger assembles a set of disk images into a RAID0, RAID1,
or RAID3 volume and mounts it as a flat FUSE directory, with a .raidctl
control file for disk administration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configErr != nil {
			return configErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := engineConfig.Validate(); err != nil {
			return err
		}
		return runMount(c.Context(), engineConfig, args[0])
	},
}

// Execute runs the root command, exiting the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&engineConfig)
		return
	}

	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		configErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&engineConfig)
}
