package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerlink/ledgerlink/cmd/ledgerlink/cli"
	"github.com/ledgerlink/ledgerlink/internal/app"
	"github.com/ledgerlink/ledgerlink/internal/backfill"
	"github.com/ledgerlink/ledgerlink/internal/bridge"
	"github.com/ledgerlink/ledgerlink/internal/importer"
	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/observability"
	"github.com/ledgerlink/ledgerlink/internal/platform/cache"
	"github.com/ledgerlink/ledgerlink/internal/platform/db"
	"github.com/ledgerlink/ledgerlink/internal/secrets"
	"github.com/ledgerlink/ledgerlink/internal/source"
	"github.com/ledgerlink/ledgerlink/internal/source/demo"
	"github.com/ledgerlink/ledgerlink/internal/source/simplefin"
	"github.com/ledgerlink/ledgerlink/internal/status"
	syncsvc "github.com/ledgerlink/ledgerlink/internal/sync"
)

const usage = `usage: ledgerlink <command> [flags]

commands:
  setup     configure a data source (simplefin, demo)
  sync      pull and reconcile accounts and transactions
  import    import a CSV file into one account
  backfill  project historical balance snapshots
  status    show the ledger summary
  query     run a read-only SQL statement
  serve     run the desktop bridge API
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	repo := ledger.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		logger.Error("migrate schema", slog.Any("error", err))
		os.Exit(1)
	}

	box := secrets.NewBox(cfg.Secret)
	providers := map[string]source.Provider{
		simplefin.SourceName: simplefin.NewProvider(simplefin.NewClient()),
		demo.SourceName:      demo.NewProvider(),
	}
	syncService := syncsvc.NewService(repo, providers, box, logger)
	importService := importer.NewService(repo, logger)
	projector := backfill.NewProjector(repo, logger)
	statusService := status.NewService(repo)

	ledgerCLI := cli.New(cli.Config{
		Store:    repo,
		Sync:     syncService,
		Importer: importService,
		Backfill: projector,
		Status:   statusService,
		Querier:  repo,
		Secrets:  box,
		Logger:   logger,
	})

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "setup":
		os.Exit(runSetup(ctx, ledgerCLI, args))
	case "sync":
		os.Exit(runSync(ctx, ledgerCLI, args))
	case "import":
		os.Exit(runImport(ctx, ledgerCLI, args))
	case "backfill":
		os.Exit(runBackfill(ctx, ledgerCLI, args))
	case "status":
		os.Exit(runStatus(ctx, ledgerCLI, args))
	case "query":
		os.Exit(runQuery(ctx, ledgerCLI, args))
	case "serve":
		var summaryCache *status.Cache
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, serving summaries uncached", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			summaryCache = status.NewCache(redisClient, 30*time.Second)
			statusService = statusService.WithCache(summaryCache)
		}
		handler := bridge.NewHandler(statusService, syncService, projector, importService, repo, logger).
			WithCache(summaryCache)
		os.Exit(runServe(ctx, cfg, logger, handler))
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "ledgerlink: unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
}

func runSetup(ctx context.Context, app *cli.LedgerCLI, args []string) int {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	src := fs.String("source", "", "source to configure (simplefin, demo)")
	token := fs.String("token", "", "SimpleFIN setup token")
	_ = fs.Parse(args)
	return app.SetupCommand(ctx, cli.SetupOptions{Source: *src, Token: *token})
}

func runSync(ctx context.Context, app *cli.LedgerCLI, args []string) int {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	sourcesFlag := fs.String("sources", "", "comma-separated source names (default: all configured)")
	dryRun := fs.Bool("dry-run", false, "compute counts without writing")
	jsonOut := fs.Bool("json", false, "emit JSON")
	_ = fs.Parse(args)
	return app.SyncCommand(ctx, cli.SyncOptions{
		Sources:    splitList(*sourcesFlag),
		DryRun:     *dryRun,
		JSONOutput: *jsonOut,
	})
}

func runImport(ctx context.Context, app *cli.LedgerCLI, args []string) int {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	account := fs.String("account", "", "target account id")
	file := fs.String("file", "", "CSV file path")
	dateCol := fs.String("date-col", "", "date column name (auto-detected when empty)")
	descCol := fs.String("desc-col", "", "description column name")
	amountCol := fs.String("amount-col", "", "amount column name")
	debitCol := fs.String("debit-col", "", "debit column name")
	creditCol := fs.String("credit-col", "", "credit column name")
	dateFormat := fs.String("date-format", "auto", "date format (auto, YYYY-MM-DD, MM/DD/YYYY, DD/MM/YYYY, YYYY/MM/DD)")
	flipSigns := fs.Bool("flip-signs", false, "negate every amount")
	dryRun := fs.Bool("dry-run", false, "compute counts without writing")
	preview := fs.Bool("preview", false, "print the first parsed rows without importing")
	jsonOut := fs.Bool("json", false, "emit JSON")
	_ = fs.Parse(args)
	return app.ImportCommand(ctx, cli.ImportOptions{
		Account:    *account,
		Path:       *file,
		DateCol:    *dateCol,
		DescCol:    *descCol,
		AmountCol:  *amountCol,
		DebitCol:   *debitCol,
		CreditCol:  *creditCol,
		DateFormat: *dateFormat,
		FlipSigns:  *flipSigns,
		DryRun:     *dryRun,
		Preview:    *preview,
		JSONOutput: *jsonOut,
	})
}

func runBackfill(ctx context.Context, app *cli.LedgerCLI, args []string) int {
	fs := flag.NewFlagSet("backfill", flag.ExitOnError)
	account := fs.String("account", "", "restrict to one account id")
	days := fs.Int("days", 90, "days back from today to project")
	dryRun := fs.Bool("dry-run", false, "compute counts without writing")
	jsonOut := fs.Bool("json", false, "emit JSON")
	_ = fs.Parse(args)
	return app.BackfillCommand(ctx, cli.BackfillOptions{
		Account:    *account,
		Days:       *days,
		DryRun:     *dryRun,
		JSONOutput: *jsonOut,
	})
}

func runStatus(ctx context.Context, app *cli.LedgerCLI, args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "emit JSON")
	_ = fs.Parse(args)
	return app.StatusCommand(ctx, cli.StatusOptions{JSONOutput: *jsonOut})
}

func runQuery(ctx context.Context, app *cli.LedgerCLI, args []string) int {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "emit JSON")
	csvOut := fs.Bool("csv", false, "emit CSV")
	_ = fs.Parse(args)
	return app.QueryCommand(ctx, cli.QueryOptions{
		SQL:        strings.Join(fs.Args(), " "),
		JSONOutput: *jsonOut,
		CSVOutput:  *csvOut,
	})
}

func runServe(ctx context.Context, cfg *app.Config, logger *slog.Logger, handler *bridge.Handler) int {
	router := bridge.NewRouter(bridge.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Handler: handler,
		Metrics: observability.NewMetrics(),
	})
	server := &http.Server{
		Addr:         cfg.BridgeAddr,
		Handler:      router,
		ReadTimeout:  cfg.BridgeReadTimeout,
		WriteTimeout: cfg.BridgeWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting bridge server", slog.String("addr", cfg.BridgeAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("bridge server", slog.Any("error", err))
		return 1
	}
	return 0
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
