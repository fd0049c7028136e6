package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian/internal/app"
	"github.com/meridian-erp/meridian/internal/expenses"
	"github.com/meridian-erp/meridian/internal/ledger/coa"
	"github.com/meridian-erp/meridian/internal/ledger/fiscal"
	ledgerhttp "github.com/meridian-erp/meridian/internal/ledger/http"
	"github.com/meridian-erp/meridian/internal/ledger/mappings"
	"github.com/meridian-erp/meridian/internal/ledger/posting"
	"github.com/meridian-erp/meridian/internal/ledger/statements"
	"github.com/meridian-erp/meridian/internal/observability"
	"github.com/meridian-erp/meridian/internal/platform/cache"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/purchasing"
	"github.com/meridian-erp/meridian/internal/sales"
	"github.com/meridian-erp/meridian/internal/shared"
	"github.com/meridian-erp/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	audit := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	accountRepo := coa.NewRepository()
	accounts := coa.NewStore(accountRepo, audit)

	entryRepo := posting.NewRepository()
	yearRepo := fiscal.NewRepository()
	years := fiscal.NewManager(yearRepo, entryRepo, accountRepo, audit)
	engine := posting.NewEngine(entryRepo, accountRepo, years, audit)
	years.UsePoster(engine)

	statementCache := statements.NewCache(redisClient, cfg.StatementCacheTTL)
	stmts := statements.NewService(accounts, years, entryRepo)
	stmts.WithCache(statementCache)
	if err := statementCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("statement cache subscribe", slog.Any("error", err))
	}

	notifier := &jobs.LedgerNotifier{Cache: statementCache, Client: jobClient, Logger: logger}

	mappingRepo := mappings.NewRepository()
	salesHandler := sales.NewHandler(logger, sales.NewService(pool, engine, mappingRepo, notifier))
	purchasingHandler := purchasing.NewHandler(logger, purchasing.NewService(pool, engine, mappingRepo, notifier))
	expensesHandler := expenses.NewHandler(logger, expenses.NewService(pool, engine, mappingRepo, notifier))

	ledgerHandler := ledgerhttp.NewHandler(ledgerhttp.HandlerConfig{
		Logger:     logger,
		Pool:       pool,
		Accounts:   accounts,
		Engine:     engine,
		Years:      years,
		Statements: stmts,
		Mappings:   mappingRepo,
		Metrics:    metrics,
		Notifier:   notifier,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		LedgerHandler:     ledgerHandler,
		SalesHandler:      salesHandler,
		PurchasingHandler: purchasingHandler,
		ExpensesHandler:   expensesHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
