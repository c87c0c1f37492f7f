// Package cli implements the modtracker operator command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"modtracker/internal/config"
	"modtracker/internal/logger"
	"modtracker/internal/syncer"
)

var (
	configPath string
	serverURL  string
	logLevel   string

	cfg *config.ClientConfig
)

var rootCmd = &cobra.Command{
	Use:   "modtracker",
	Short: "Moderator time tracker",
	Long: `modtracker drives your project timers on the modtracker server.

Start and stop timers, watch them tick live, commit the day into the log
and review or correct past entries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.DefaultClientPath()
			if err != nil {
				return fmt.Errorf("locate config: %w", err)
			}
			path = p
		}

		loaded, err := config.LoadClient(path)
		if err != nil {
			return err
		}
		cfg = loaded

		if cmd.Flags().Changed("server") {
			cfg.ServerURL = serverURL
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		logger.Init("modtracker", cfg.LogLevel, os.Stderr)
		logger.Debug("command started", logger.F("command", cmd.Name()), logger.F("server", cfg.ServerURL))
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.modtracker/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(adjustCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(statsCmd)
}

func newClient() *syncer.Client {
	return syncer.NewClient(cfg.ServerURL, cfg.AccessToken, cfg.StorageTimeout)
}

// session returns a client for a logged-in user.
func session() (*syncer.Client, error) {
	if !cfg.LoggedIn() {
		return nil, fmt.Errorf("not logged in, run 'modtracker login' first")
	}
	return newClient(), nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 2*cfg.StorageTimeout+5*time.Second)
}
