package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/app-blackhole/internal/core"
	"github.com/user/app-blackhole/internal/elevate"
	"github.com/user/app-blackhole/internal/platform"
	"github.com/user/app-blackhole/internal/settings"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and resolve the blocked apps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		opts, err := core.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Config %s OK\n", mgr.Path())
		fmt.Fprintf(out, "Interface %s, address %s, routes %v\n", cfg.Interface.Name, opts.Address, opts.Routes)

		apps, err := settings.NewStore(cfg.SettingsPath).Load()
		if err != nil {
			return err
		}

		facility := platform.New(platform.ConfigFrom(cfg))
		params := core.BuildParams(opts.Address, opts.Routes, apps, facility)
		for _, app := range params.Included {
			fmt.Fprintf(out, "  %s -> uid %d\n", app.ID, app.UID)
		}
		for _, id := range params.Skipped {
			fmt.Fprintf(out, "  %s -> not found\n", id)
		}
		fmt.Fprintf(out, "%d of %d apps can be blocked\n", len(params.Included), apps.Len())

		if !elevate.IsPrivileged() {
			fmt.Fprintln(out, "Warning: not privileged, run needs root or CAP_NET_ADMIN")
		}
		if !apps.Empty() && len(params.Included) == 0 {
			return errors.New("none of the blocked apps can be resolved")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
