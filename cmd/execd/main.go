package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vaultcraft/execd/api"
	"github.com/vaultcraft/execd/internal/config"
	"github.com/vaultcraft/execd/pkg/events"
	"github.com/vaultcraft/execd/pkg/exec"
	"github.com/vaultcraft/execd/pkg/hyper"
	"github.com/vaultcraft/execd/pkg/ledger"
	"github.com/vaultcraft/execd/pkg/models"
	"github.com/vaultcraft/execd/pkg/nav"
	"github.com/vaultcraft/execd/pkg/pricing"
	"github.com/vaultcraft/execd/pkg/risk"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "execd",
		Short: "Vault order execution and risk core",
		Long:  `Routes vault trading orders to execution venues with pre-trade risk checks, retry, position bookkeeping and NAV calculation`,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(
		serveCmd(),
		openCmd(),
		closeCmd(),
		navCmd(),
		positionsCmd(),
		buildOpenCmd(),
		buildCloseCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// core bundles the wired components every command needs.
type core struct {
	cfg        *config.Config
	logger     *logrus.Logger
	book       *ledger.Ledger
	prices     *pricing.CachedRouter
	dispatcher *exec.Dispatcher
	events     *events.MemorySink
	acks       *exec.AckTracker
	snapshots  *nav.MemorySnapshots
	nav        *nav.Calculator
	stream     *hyper.MidsStream
}

func buildCore(ctx context.Context, withStream bool) (*core, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logrus.New()
	if cfg.Logging.Format != "text" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	var store ledger.Store
	switch cfg.Ledger.Backend {
	case "pebble":
		store, err = ledger.NewPebbleStore(cfg.Ledger.Path)
		if err != nil {
			return nil, err
		}
	default:
		store = ledger.NewFileStore(cfg.Ledger.Path)
	}
	book := ledger.New(store, logger)

	rest := hyper.NewClient(cfg.Hyper.APIURL, cfg.Price.Timeout)
	var stream *hyper.MidsStream
	var primary pricing.Provider
	if withStream && cfg.Price.EnableWS {
		stream = hyper.NewMidsStream(cfg.Hyper.WSURL, logger)
		if err := stream.Connect(ctx); err != nil {
			logger.WithError(err).Warn("live price stream unavailable, using REST only")
		} else {
			primary = stream
		}
	}
	router := pricing.NewRouter(primary, rest, cfg.Price.MockGoldPrice, logger)
	prices := pricing.NewCachedRouter(router, cfg.Price.CacheTTL, cfg.Price.RetryCount, cfg.Price.RetryBackoff, logger)

	validator := risk.NewValidator(risk.Limits{
		AllowedSymbols: cfg.Exec.AllowedSymbols,
		AllowedVenues:  cfg.Exec.AllowedVenues,
		PrimaryVenue:   cfg.Exec.PrimaryVenue,
		MinLeverage:    cfg.Exec.MinLeverage,
		MaxLeverage:    cfg.Exec.MaxLeverage,
		MinNotionalUSD: cfg.Exec.MinNotionalUSD,
		MaxNotionalUSD: cfg.Exec.MaxNotionalUSD,
	}, prices, logger)

	drivers := exec.NewRegistry()
	agentURL := cfg.Hyper.ExecAgentURL
	agentTimeout := cfg.Hyper.Timeout
	drivers.Register(pricing.VenueHyper, func() (exec.Driver, error) {
		return hyper.NewAgentDriver(agentURL, agentTimeout)
	})
	mockPrice := cfg.Price.MockGoldPrice
	drivers.Register(pricing.VenueMockGold, func() (exec.Driver, error) {
		return exec.NewMockGoldDriver(mockPrice), nil
	})

	snapshots := nav.NewMemorySnapshots(0)
	navCalc := nav.NewCalculator(book, prices, snapshots, logger)
	memSink := events.NewMemorySink(0)
	sink := events.MultiSink{memSink, events.NewLogSink(logger)}
	acks := exec.NewAckTracker()

	var listener exec.VaultRegistrar
	if stream != nil {
		listener = stream
	}
	dispatcher := exec.NewDispatcher(exec.DispatcherConfig{
		PrimaryVenue:           cfg.Exec.PrimaryVenue,
		EnableLive:             cfg.Exec.EnableLive,
		ApplyDryRunToPositions: cfg.Exec.ApplyDryRunToPositions,
		ApplyLiveToPositions:   cfg.Exec.ApplyLiveToPositions,
		ReduceOnlyFallback:     cfg.Exec.ReduceOnlyFallback,
		RetryAttempts:          cfg.Exec.RetryAttempts,
		RetryBackoff:           cfg.Exec.RetryBackoff,
	}, validator, drivers, book, navCalc, sink, acks, listener, logger)

	return &core{
		cfg:        cfg,
		logger:     logger,
		book:       book,
		prices:     prices,
		dispatcher: dispatcher,
		events:     memSink,
		acks:       acks,
		snapshots:  snapshots,
		nav:        navCalc,
		stream:     stream,
	}, nil
}

func printJSON(v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the execution core with its status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			c, err := buildCore(ctx, true)
			if err != nil {
				return err
			}
			defer c.book.Close()

			server := api.NewServer(c.dispatcher, c.book, c.nav, c.prices, c.events, c.acks, c.snapshots, c.logger, fmt.Sprintf("%d", c.cfg.Server.Port))
			go func() {
				if err := server.Start(); err != nil {
					c.logger.WithError(err).Fatal("Failed to start API server")
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			c.logger.Info("execd is running. Press Ctrl+C to stop.")
			<-sigChan
			c.logger.Info("Received shutdown signal")
			cancel()
			return nil
		},
	}
}

func openCmd() *cobra.Command {
	var order models.Order
	var vault, side, orderType string
	cmd := &cobra.Command{
		Use:   "open <symbol> <size>",
		Short: "Execute an open order (live if enabled, else dry-run)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildCore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.book.Close()

			order.Symbol = args[0]
			if _, err := fmt.Sscanf(args[1], "%f", &order.Size); err != nil {
				return fmt.Errorf("invalid size %q", args[1])
			}
			order.Side = models.OrderSide(side)
			order.OrderType = models.OrderType(orderType)
			out := c.dispatcher.Open(cmd.Context(), vault, order)
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&vault, "vault", "_global", "logical vault id")
	cmd.Flags().StringVar(&side, "side", "buy", "order side (buy or sell)")
	cmd.Flags().StringVar(&order.Venue, "venue", "", "execution venue (hyper, mock_gold, ...)")
	cmd.Flags().BoolVar(&order.ReduceOnly, "reduce", false, "mark order as reduce-only")
	cmd.Flags().Float64Var(&order.Leverage, "leverage", 0, "optional leverage")
	cmd.Flags().StringVar(&orderType, "order-type", "market", "order type (market or limit)")
	cmd.Flags().Float64Var(&order.LimitPrice, "limit-price", 0, "required when order-type=limit")
	cmd.Flags().StringVar(&order.TimeInForce, "time-in-force", "", "TIF for limit orders (Gtc, Ioc, Fok)")
	cmd.Flags().Float64Var(&order.StopLoss, "stop-loss", 0, "optional stop loss price")
	cmd.Flags().Float64Var(&order.TakeProfit, "take-profit", 0, "optional take profit price")
	return cmd
}

func closeCmd() *cobra.Command {
	var vault, venue string
	var size float64
	cmd := &cobra.Command{
		Use:   "close <symbol>",
		Short: "Execute a close (live if enabled, else dry-run)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildCore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.book.Close()

			var sizeArg *float64
			if cmd.Flags().Changed("size") {
				sizeArg = &size
			}
			out := c.dispatcher.Close(cmd.Context(), vault, args[0], sizeArg, venue)
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&vault, "vault", "_global", "logical vault id")
	cmd.Flags().StringVar(&venue, "venue", "", "execution venue (hyper, mock_gold, ...)")
	cmd.Flags().Float64Var(&size, "size", 0, "partial close size (omit to close the whole leg)")
	return cmd
}

func navCmd() *cobra.Command {
	var vault string
	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Compute unit NAV for a vault from cash + positions + index prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildCore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.book.Close()
			unit := c.nav.ComputeUnitNav(cmd.Context(), vault)
			return printJSON(map[string]float64{"unitNav": unit})
		},
	}
	cmd.Flags().StringVar(&vault, "vault", "_global", "logical vault id")
	return cmd
}

func positionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Inspect or replace a vault's position profile",
	}

	var vault string
	get := &cobra.Command{
		Use:   "get",
		Short: "Print a vault's position profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildCore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.book.Close()
			return printJSON(c.book.GetProfile(vault))
		},
	}
	get.Flags().StringVar(&vault, "vault", "_global", "logical vault id")

	var setVault string
	set := &cobra.Command{
		Use:   "set <profile-json>",
		Short: "Replace a vault's position profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildCore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.book.Close()

			var profile models.PositionProfile
			if err := json.Unmarshal([]byte(args[0]), &profile); err != nil {
				return fmt.Errorf("invalid profile JSON: %w", err)
			}
			if err := c.book.SetProfile(setVault, profile); err != nil {
				return err
			}
			return printJSON(map[string]bool{"ok": true})
		},
	}
	set.Flags().StringVar(&setVault, "vault", "_global", "logical vault id")

	cmd.AddCommand(get, set)
	return cmd
}

func buildOpenCmd() *cobra.Command {
	var order models.Order
	var side string
	cmd := &cobra.Command{
		Use:   "build-open <symbol> <size>",
		Short: "Build an open order payload without sending it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			order.Symbol = args[0]
			if _, err := fmt.Sscanf(args[1], "%f", &order.Size); err != nil {
				return fmt.Errorf("invalid size %q", args[1])
			}
			order.Side = models.OrderSide(side)
			var builder hyper.ExecClient
			return printJSON(builder.BuildOpenOrder(order))
		},
	}
	cmd.Flags().StringVar(&side, "side", "buy", "order side (buy or sell)")
	cmd.Flags().BoolVar(&order.ReduceOnly, "reduce", false, "mark order as reduce-only")
	cmd.Flags().Float64Var(&order.Leverage, "leverage", 0, "optional leverage")
	return cmd
}

func buildCloseCmd() *cobra.Command {
	var size float64
	cmd := &cobra.Command{
		Use:   "build-close <symbol>",
		Short: "Build a close order payload without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sizeArg *float64
			if cmd.Flags().Changed("size") {
				sizeArg = &size
			}
			var builder hyper.ExecClient
			return printJSON(builder.BuildCloseOrder(args[0], sizeArg))
		},
	}
	cmd.Flags().Float64Var(&size, "size", 0, "partial close size")
	return cmd
}
