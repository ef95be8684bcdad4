package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harshul/jumpstart/internal/logging"
	"github.com/spf13/cobra"
)

// Version information (can be set at build time)
var (
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jumpstart",
	Short: "Generate a starter web project and run its dev servers",
	Long: `Jumpstart generates a React or Vanilla JS project with an optional
Express backend, then runs the development servers on free ports and
opens the app in your browser.

Usage:
  jumpstart new          Ask a few questions, generate the project and start it
  jumpstart run [dir]    Start the dev servers of an existing project
  jumpstart ports 3000   Show whether ports are free and who holds them
  jumpstart doctor       Check Node.js, package managers and dependencies`,
	Version: version,
	// Errors are printed by main; usage only for argument errors.
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelName, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")

		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		return logging.Init(level, format, os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Diagnostic log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Diagnostic log format (text, json)")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(doctorCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
