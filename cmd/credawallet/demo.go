package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jask/credawallet/internal/chain"
	"github.com/jask/credawallet/internal/database"
	"github.com/jask/credawallet/internal/database/repository"
	"github.com/jask/credawallet/internal/demo"
	"github.com/jask/credawallet/internal/flow"
	"github.com/jask/credawallet/internal/logging"
	"github.com/jask/credawallet/internal/tui"
	"github.com/jask/credawallet/internal/views"
)

func init() {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Open the dashboard with an in-memory demo wallet",
		Long:  `Open the dashboard without signing in. Balances, deposits, and sends are simulated and forgotten on exit.`,
		RunE:  runDemo,
	}
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := *logging.FromContext(ctx)

	ch, err := demoChain(logger)
	if err != nil {
		return err
	}
	mode, closeDemo, err := demoMode(ctx, ch, cfg.Chain.Asset, logger)
	if err != nil {
		return err
	}
	defer closeDemo()

	return runProgram(tui.New(ctx, tui.Options{
		Demo:     mode,
		Chain:    ch,
		Currency: cfg.UI.CurrencySymbol,
		Logger:   logger,
	}))
}

// demoChain is the configured chain, or base-sepolia when it is unknown.
func demoChain(logger zerolog.Logger) (chain.Chain, error) {
	ch, err := chain.Lookup(cfg.Chain.ID)
	if err == nil {
		return ch, nil
	}
	logger.Warn().Err(err).Msg("unknown chain, demo falls back to base-sepolia")
	return chain.Lookup("base-sepolia")
}

// demoMode builds the demo wallet with an in-memory activity journal.
func demoMode(ctx context.Context, ch chain.Chain, asset string, logger zerolog.Logger) (tui.Mode, func(), error) {
	db, err := database.Open(":memory:")
	if err != nil {
		return tui.Mode{}, nil, fmt.Errorf("open demo db: %w", err)
	}
	if err := database.RunMigrationsWithDB(db); err != nil {
		_ = db.Close()
		return tui.Mode{}, nil, fmt.Errorf("migrate demo db: %w", err)
	}
	activity := repository.NewActivityRepo(db)
	wallet := demo.NewWallet(demo.DefaultBalances())
	demoLog := logger.With().Bool("demo", true).Logger()
	mode := tui.Mode{
		Views:    views.New(views.Open, flowFactory(ch, asset, wallet, activity, demoLog), demoLog),
		Wallet:   wallet,
		Activity: activity,
	}
	return mode, func() { _ = db.Close() }, nil
}

// walletBackend is what a flow needs from a wallet.
type walletBackend interface {
	flow.BalanceSource
	flow.Transferer
	flow.Funder
}

func flowFactory(ch chain.Chain, asset string, w walletBackend, activity *repository.ActivityRepo, logger zerolog.Logger) views.FlowFactory {
	return func(kind flow.Kind, onComplete func()) *flow.Flow {
		fc := flow.Config{
			Kind:       kind,
			Asset:      asset,
			Chain:      ch,
			Balances:   w,
			OnComplete: onComplete,
			Recorder:   flow.Journal{Activity: activity},
			Logger:     logger,
		}
		if kind == flow.KindSend {
			fc.Executor = flow.SendExecutor{Wallet: w}
		} else {
			fc.Executor = flow.DepositExecutor{Wallet: w}
		}
		return flow.New(fc)
	}
}
