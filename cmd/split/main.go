// Package main implements the split CLI for administering experiments kept
// in a NATS JetStream KeyValue bucket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imlitech/split"
	"github.com/imlitech/split/internal/logging"
	"github.com/imlitech/split/store"
)

var (
	configPath string
	natsURL    string
	debug      bool
	version    = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "split",
	Short: "Administer A/B experiments",
	Long: `split assigns visitors, records conversions and inspects experiments
stored in a NATS JetStream KeyValue bucket.

Configuration is read from --config (YAML) and SPLIT_* environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", nats.DefaultURL, "NATS server URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(assignCmd, finishCmd, statsCmd, goalsCmd, listCmd, winnerCmd, resetCmd, deleteCmd, cleanupCmd, visitorCmd)
}

// app bundles what every command needs.
type app struct {
	cfg     split.Config
	conn    *nats.Conn
	store   *store.NATS
	manager *split.Manager
	logger  *logging.ZapLogger
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}

// openApp loads configuration, connects to NATS and builds a Manager with
// store persistence.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Persistence = split.PersistenceStore

	zl, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger := logging.NewZap(zl)

	nc, err := nats.Connect(natsURL, nats.Name("split-cli"))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", natsURL, err)
	}

	st, err := store.NewNATS(ctx, nc, cfg.Store, store.WithNATSLogger(logger))
	if err != nil {
		nc.Close()
		return nil, err
	}

	mgr, err := split.NewManager(cfg, st, split.WithLogger(logger))
	if err != nil {
		nc.Close()
		return nil, err
	}

	logger.Debug("connected", "url", natsURL, "bucket", cfg.Store.Bucket)

	return &app{cfg: cfg, conn: nc, store: st, manager: mgr, logger: logger}, nil
}

func (a *app) Close() {
	a.conn.Close()
	_ = a.logger.Sync()
}

// withApp adapts a command body that needs an app.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return run(cmd, a, args)
	}
}
