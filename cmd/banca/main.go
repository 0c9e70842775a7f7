package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/boddenberg/banca-bfa-go/internal/config"
	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/handler"
	"github.com/boddenberg/banca-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banca-bfa-go/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagPort        = "port"
	flagLogLevel    = "log-level"
	flagStore       = "store-backend"
	flagDatabaseURL = "database-url"
	flagAccount     = "banca-account-id"
	flagRange       = "range"
	flagMode        = "mode"
	flagOperator    = "operator"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "banca: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.NewViper()
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "banca",
		Short:         "Bankroll ledger and dashboard API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, v, cfg)
		},
	}

	root.PersistentFlags().Int(flagPort, 8080, "HTTP listen port")
	root.PersistentFlags().String(flagLogLevel, "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String(flagStore, config.StoreSupabase, "store backend (supabase, sql)")
	root.PersistentFlags().String(flagDatabaseURL, "sqlite://banca.db", "database url for the sql store")
	root.PersistentFlags().String(flagAccount, "", "banca id; empty uses the earliest banca")

	serve := newServeCommand(cfg)
	root.RunE = serve.RunE
	root.AddCommand(serve, newResumoCommand(cfg), newTokenCommand(v))
	return root
}

// loadConfig layers flags over env over .env over defaults. Only flags the
// user actually set override the environment.
func loadConfig(cmd *cobra.Command, v *viper.Viper, cfg *config.Config) error {
	_ = config.LoadDotEnv(".env")

	for _, name := range []string{flagPort, flagLogLevel, flagStore, flagDatabaseURL, flagAccount} {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(envKey(name), f); err != nil {
			return err
		}
	}

	loaded, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	*cfg = *loaded
	return nil
}

func envKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// ============================================================
// serve
// ============================================================

func newServeCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("timezone", cfg.Timezone),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("operator_auth", cfg.OperatorTokenSecret != ""),
	)

	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "banca-bfa")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	router := handler.NewRouter(handler.Services{
		Ledger:    a.ledger,
		Accounts:  a.accounts,
		Dashboard: a.dashboard,
		Auth:      service.NewOperatorAuth(cfg.OperatorTokenSecret, cfg.OperatorTokenTTL),
		Store:     a.store,
		StoreName: a.storeName,
		Calendar:  a.cal,
	}, a.metrics, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("account_id", a.account.ID))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// ============================================================
// resumo
// ============================================================

func newResumoCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resumo",
		Short: "Print the overview dashboard of the active banca",
		RunE: func(cmd *cobra.Command, args []string) error {
			rangeDays, _ := cmd.Flags().GetInt(flagRange)
			mode, _ := cmd.Flags().GetString(flagMode)

			logger := observability.NewLogger("warn")
			defer func() { _ = logger.Sync() }()

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			overview, err := a.dashboard.Overview(cmd.Context(), a.account.ID, rangeDays, domain.SeriesMode(mode))
			if err != nil {
				return err
			}
			printOverview(cmd.OutOrStdout(), overview)
			return nil
		},
	}
	cmd.Flags().Int(flagRange, domain.DefaultRange, "daily chart range in days (7, 30, 90)")
	cmd.Flags().String(flagMode, string(domain.SeriesDiscrete), "daily chart mode (diario, acumulado)")
	return cmd
}

func printOverview(w io.Writer, o *domain.Overview) {
	fmt.Fprintf(w, "Banca %s\n", o.AccountID)
	fmt.Fprintf(w, "  Saldo inicial: %s\n", o.OpeningFormatted)
	fmt.Fprintf(w, "  Saldo atual:   %s\n", o.CurrentFormatted)
	fmt.Fprintf(w, "Hoje: %s  ROI %s  (%d entradas, %d pendentes)\n",
		o.Today.PnLFormatted, o.Today.ROIFormatted, o.Today.Count, o.Today.Pending)

	fmt.Fprintf(w, "Últimos %d dias (%s):\n", o.Range, o.Mode)
	for _, p := range o.Daily {
		fmt.Fprintf(w, "  %s  %s\n", p.Label, domain.FormatBRL(p.Cents))
	}
	if len(o.Monthly) > 0 {
		fmt.Fprintln(w, "Por mês:")
		for _, p := range o.Monthly {
			fmt.Fprintf(w, "  %s  %s\n", p.Label, domain.FormatBRL(p.Cents))
		}
	}
}

// ============================================================
// token
// ============================================================

// token only needs the signing secret, so it skips the store checks of the
// full config.
func newTokenCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator bearer token",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = config.LoadDotEnv(".env")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			operator, _ := cmd.Flags().GetString(flagOperator)
			auth := service.NewOperatorAuth(v.GetString("operator_token_secret"), v.GetDuration("operator_token_ttl"))
			if auth == nil {
				return errors.New("OPERATOR_TOKEN_SECRET is not set")
			}
			token, expires, err := auth.Mint(operator)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().String(flagOperator, "operator", "operator name carried in the token")
	return cmd
}
