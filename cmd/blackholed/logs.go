package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/app-blackhole/internal/logger"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the blocker log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		logger.SetDir(mgr.Get().LogDir)

		truncate, _ := cmd.Flags().GetBool("clear")
		if truncate {
			if err := logger.ClearLogs(); err != nil {
				return fmt.Errorf("failed to clear %s: %w", logger.GetLogPath(), err)
			}
			logger.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", logger.GetLogPath())
			return nil
		}

		data, err := logger.ReadLogs()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", logger.GetLogPath(), err)
		}
		fmt.Fprint(cmd.OutOrStdout(), data)
		return nil
	},
}

func init() {
	logsCmd.Flags().Bool("clear", false, "Truncate the log instead of printing it")
	rootCmd.AddCommand(logsCmd)
}
