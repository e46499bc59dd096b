package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/app/background"
	"github.com/LavaJover/shvark-escrow-service/internal/app/setup"
	"github.com/LavaJover/shvark-escrow-service/internal/config"
	"github.com/LavaJover/shvark-escrow-service/internal/delivery/http/handlers"
	escrowlogger "github.com/LavaJover/shvark-escrow-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/workflow"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

func main() {
	// .env is optional
	_ = godotenv.Load()

	var configPath string
	rootCmd := &cobra.Command{
		Use:     "escrow-service",
		Short:   "Escrow transactions with a dispute SLA workflow engine",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("ESCROW_CONFIG_PATH"), "path to the YAML config")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(checkRulesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.EscrowConfig, error) {
	if path == "" {
		return nil, errors.New("config path is required: pass --config or set ESCROW_CONFIG_PATH")
	}
	return config.Load(path)
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the workflow engine and the ops server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.EscrowConfig) error {
	logger, err := escrowlogger.New(cfg.LogConfig)
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setup.InitializeDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	uc := setup.InitializeUseCases(deps)
	engine, err := setup.InitializeWorkflow(ctx, deps, uc)
	if err != nil {
		return fmt.Errorf("failed to initialize workflow: %w", err)
	}

	tasks := background.NewBackgroundTasks(logger)
	tasks.Add("workflow_engine", engine)

	ops := handlers.NewOpsHandler(deps.ReadinessChecks(), deps.Registry, uc.RuleManager, logger)
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.OpsServer.Host, cfg.OpsServer.Port),
		Handler:           ops.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("ops server listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return tasks.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("escrow service stopped")
	return err
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := escrowlogger.New(cfg.LogConfig)
			if err != nil {
				return err
			}
			return migrate.RunMigrationsDSN(cfg.EscrowDB.Dsn, cfg.EscrowDB.MigrationsPath, logger)
		},
	}
}

func checkRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-rules [path]",
		Short: "Validate a workflow rules file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := workflow.LoadRulesFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rules, %d matrix entries\n", len(file.Rules), len(file.Matrix))
			return nil
		},
	}
}
