package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Emulator provisioning for the Meridian launcher",
	Long: `Meridian installs, upgrades, and launches emulators, keeping each
install verified and up to date and pushing controller profiles into the
emulators that support them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"settings file (default meridian.yaml in ~/.config/meridian)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

// initConfig loads the optional settings file and environment overrides.
// Every setting has a working default under ~/.meridian, so a missing
// file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "meridian"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("meridian")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MERIDIAN")
	viper.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		viper.SetDefault("meridian_dir", filepath.Join(home, ".meridian"))
	} else {
		viper.SetDefault("meridian_dir", ".meridian")
	}

	// A missing settings file is fine; a malformed one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error: read settings: %v\n", err)
			os.Exit(1)
		}
	}
}
