package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/credawallet/internal/chain"
	"github.com/jask/credawallet/internal/config"
	"github.com/jask/credawallet/internal/database/repository"
	"github.com/jask/credawallet/internal/logging"
	"github.com/jask/credawallet/internal/popup"
	"github.com/jask/credawallet/internal/provider"
	"github.com/jask/credawallet/internal/secrets"
	"github.com/jask/credawallet/internal/session"
	"github.com/jask/credawallet/internal/tui"
	"github.com/jask/credawallet/internal/views"
)

var (
	cfg     config.Config
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:          "credawallet",
	Short:        "Terminal dashboard for a custodial stablecoin wallet",
	Long:         `Sign in through your browser, check balances, and deposit or send funds. Run "credawallet demo" to try it without credentials.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		logger, closer, err := logging.Open(cfg.Log.Path, cfg.Log.Level)
		if err != nil {
			return err
		}
		logFile = closer
		cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
		}
	},
	RunE: runWallet,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runWallet(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := *logging.FromContext(ctx)

	store := &secrets.Store{}
	source := cfg.ResolveAPIKey(store, secrets.ProviderAPIKey)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return runSetup(cmd, err)
	}
	ch, err := chain.Lookup(cfg.Chain.ID)
	if err != nil {
		return err
	}
	logger.Info().
		Str("origin", cfg.Auth.Origin).
		Str("api_key", logging.Redact(cfg.Provider.APIKey)).
		Str("api_key_source", source).
		Str("chain", ch.ID).
		Msg("starting")

	db, err := openJournal()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	auth := provider.NewAuthenticator(provider.AuthConfig{
		BaseURL:   cfg.Provider.BaseURL,
		LoginPath: cfg.Provider.LoginPath,
		APIKey:    cfg.Provider.APIKey,
		ChainID:   ch.ID,
		Origin:    cfg.Auth.Origin,
	}, secrets.Entry{Store: store, Name: secrets.SessionToken}, logger)
	client := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, ch.ID, auth)
	auth.Revoke = client.RevokeSession

	sess := session.New(session.Config{
		Origin:     cfg.Auth.Origin,
		APIKey:     cfg.Provider.APIKey,
		ChainID:    ch.ID,
		ConsoleURL: cfg.Provider.ConsoleURL,
	}, auth, popup.Prober{Opener: popup.NewSystemOpener()}, logger)
	sess.Restore()

	signedIn := func() bool { return sess.CurrentStatus().Status == session.StatusAuthenticated }
	activity := repository.NewActivityRepo(db)
	live := tui.Mode{
		Views:    views.New(signedIn, flowFactory(ch, cfg.Chain.Asset, client, activity, logger), logger),
		Wallet:   client,
		Activity: activity,
	}
	sess.OnSignOut(live.Views.Reset)

	sandbox, closeDemo, err := demoMode(ctx, ch, cfg.Chain.Asset, logger)
	if err != nil {
		return err
	}
	defer closeDemo()

	app := tui.New(ctx, tui.Options{
		Session:  sess,
		Live:     live,
		Demo:     sandbox,
		Chain:    ch,
		Currency: cfg.UI.CurrencySymbol,
		Logger:   logger,
	})
	return runProgram(app)
}

// runSetup opens the login screen with the configuration problem and its
// fixes. The demo wallet stays reachable from there.
func runSetup(cmd *cobra.Command, problem error) error {
	ctx := cmd.Context()
	logger := *logging.FromContext(ctx)

	ch, err := demoChain(logger)
	if err != nil {
		return err
	}
	sandbox, closeDemo, err := demoMode(ctx, ch, cfg.Chain.Asset, logger)
	if err != nil {
		return err
	}
	defer closeDemo()

	return runProgram(tui.New(ctx, tui.Options{
		Demo:       sandbox,
		Setup:      problem,
		SetupSteps: cfg.Remediation(problem),
		Chain:      ch,
		Currency:   cfg.UI.CurrencySymbol,
		Logger:     logger,
	}))
}

func runProgram(app *tui.App) error {
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
