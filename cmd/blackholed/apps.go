package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/app-blackhole/internal/core"
	"github.com/user/app-blackhole/internal/settings"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Edit the list of blocked applications",
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blocked applications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		apps, err := store.Load()
		if err != nil {
			return err
		}
		printApps(cmd, apps)
		return nil
	},
}

var appsAddCmd = &cobra.Command{
	Use:   "add [id...]",
	Short: "Block applications",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		apps, err := store.Add(args...)
		if err != nil {
			return err
		}
		printApps(cmd, apps)
		fmt.Fprintln(cmd.OutOrStdout(), "Send SIGHUP to a running blackholed to apply.")
		return nil
	},
}

var appsRemoveCmd = &cobra.Command{
	Use:     "remove [id...]",
	Aliases: []string{"rm"},
	Short:   "Unblock applications",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		apps, err := store.Remove(args...)
		if err != nil {
			return err
		}
		printApps(cmd, apps)
		fmt.Fprintln(cmd.OutOrStdout(), "Send SIGHUP to a running blackholed to apply.")
		return nil
	},
}

func init() {
	appsCmd.AddCommand(appsListCmd, appsAddCmd, appsRemoveCmd)
	rootCmd.AddCommand(appsCmd)
}

func openStore() (*settings.Store, error) {
	mgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return settings.NewStore(mgr.Get().SettingsPath), nil
}

func printApps(cmd *cobra.Command, apps core.AppSet) {
	out := cmd.OutOrStdout()
	if apps.Empty() {
		fmt.Fprintln(out, "No blocked apps")
		return
	}
	for _, id := range apps.Slice() {
		fmt.Fprintln(out, id)
	}
}
