// Package cli provides the ragchat command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
	"github.com/custodia-labs/ragchat/internal/logger"
)

// EnvHome overrides the data directory.
const EnvHome = "RAGCHAT_HOME"

// Services bundles the driving ports the commands use.
type Services struct {
	Chat     driving.ChatService
	Ingest   driving.IngestService
	Sessions driving.SessionService
	Settings driving.SettingsService

	// Close releases stores opened by the factory. May be nil.
	Close func() error
}

// Factory builds services rooted at a data directory.
type Factory func(dataDir string) (*Services, error)

var (
	version = "dev"
	verbose bool
	dataDir string

	chatService     driving.ChatService
	ingestService   driving.IngestService
	sessionService  driving.SessionService
	settingsService driving.SettingsService

	factory       Factory
	closeServices func() error
)

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Chat with your documents",
	Long: `ragchat answers questions about your documents.

Upload PDFs, Word files, HTML, Markdown or plain text into a local vector
index, then ask questions. Relevant passages are retrieved and passed to a
language model as context, and every conversation is kept as a session.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default $RAGCHAT_HOME or ~/.ragchat)")
}

// Execute runs the root command.
func Execute(v string, f Factory) error {
	version = v
	factory = f
	// PersistentPostRun is skipped when a command fails.
	defer teardown(nil, nil)
	return rootCmd.Execute()
}

// SetServices injects services directly, bypassing the factory.
func SetServices(s *Services) {
	chatService = s.Chat
	ingestService = s.Ingest
	sessionService = s.Sessions
	settingsService = s.Settings
	closeServices = s.Close
}

// ResolveDataDir returns the data directory: the flag value, then
// $RAGCHAT_HOME, then ~/.ragchat.
func ResolveDataDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(EnvHome); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".ragchat"), nil
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if factory == nil || cmd == versionCmd {
		return nil
	}

	dir, err := ResolveDataDir(dataDir)
	if err != nil {
		return err
	}
	svc, err := factory(dir)
	if err != nil {
		return fmt.Errorf("initialising services: %w", err)
	}
	SetServices(svc)
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warn("closing services: %v", err)
	}
	closeServices = nil
}

// interruptible returns a context cancelled by Ctrl-C or SIGTERM.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func notConfigured(name string) error {
	return errors.New(name + " service not configured")
}
