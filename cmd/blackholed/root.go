package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/app-blackhole/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "blackholed",
	Short:         "Per-application internet blocker",
	Long:          `Blocks network access for selected applications by routing their traffic into a black-hole interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.GetConfigPath(), "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig reads the config file, creating it with defaults when missing.
func loadConfig() (*config.Manager, error) {
	mgr := config.NewManager(configPath)
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	return mgr, nil
}
