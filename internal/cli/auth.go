package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"modtracker/internal/logger"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the server",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout and forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var loginUsername string

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted when empty)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	username := strings.TrimSpace(loginUsername)
	if username == "" {
		fmt.Print("Username: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	result, err := newClient().Login(ctx, username, string(password))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cfg.AccessToken = result.AccessToken
	cfg.RefreshToken = result.RefreshToken
	cfg.UserID = result.User.ID.String()
	cfg.Username = result.User.Username
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	logger.Info("logged in", logger.F("username", cfg.Username))
	fmt.Println(runningStyle.Render("Logged in as " + cfg.Username + " (" + string(result.User.Role) + ")"))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if !cfg.LoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := newClient().Logout(ctx, cfg.RefreshToken); err != nil {
		// the local session is dropped either way
		logger.Warn("server logout failed", logger.F("error", err))
	}

	cfg.ClearSession()
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Println("Logged out.")
	return nil
}
