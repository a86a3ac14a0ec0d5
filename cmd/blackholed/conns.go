package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/app-blackhole/internal/connmon"
	"github.com/user/app-blackhole/internal/core"
	"github.com/user/app-blackhole/internal/platform"
	"github.com/user/app-blackhole/internal/settings"
)

var connsCmd = &cobra.Command{
	Use:   "conns",
	Short: "Show sockets still held by blocked applications",
	Long: `Lists connected sockets owned by the blocked applications. While the
blocker runs none of them should reach ESTABLISHED with a remote peer.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		apps, err := settings.NewStore(cfg.SettingsPath).Load()
		if err != nil {
			return err
		}
		opts, err := core.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		params := core.BuildParams(opts.Address, opts.Routes, apps, platform.New(platform.ConfigFrom(cfg)))

		all, err := connmon.List()
		if err != nil {
			return err
		}
		conns := connmon.OwnedBy(all, params.UIDs())
		connmon.SortByOwner(conns)

		out := cmd.OutOrStdout()
		if len(conns) == 0 {
			fmt.Fprintln(out, "No sockets held by blocked apps")
			return nil
		}
		for _, c := range conns {
			fmt.Fprintln(out, c.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connsCmd)
}
