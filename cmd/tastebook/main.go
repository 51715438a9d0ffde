package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tastebook/tastebook/cmd/tastebook/cli"
	"github.com/tastebook/tastebook/internal/app"
	"github.com/tastebook/tastebook/internal/auth"
	"github.com/tastebook/tastebook/internal/catalog"
	"github.com/tastebook/tastebook/internal/categories"
	"github.com/tastebook/tastebook/internal/observability"
	"github.com/tastebook/tastebook/internal/platform/cache"
	"github.com/tastebook/tastebook/internal/platform/db"
	"github.com/tastebook/tastebook/internal/rbac"
	"github.com/tastebook/tastebook/internal/shared"
	"github.com/tastebook/tastebook/internal/users"
	"github.com/tastebook/tastebook/internal/view"
	"github.com/tastebook/tastebook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "promote" {
		os.Exit(runPromote(ctx, os.Args[2:]))
	}

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

	sessionManager := shared.NewSessionManager(redisClient, "tastebook_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	rbacMiddleware := rbac.Middleware{Resolver: usersService, Logger: logger}
	usersHandler := users.NewHandler(usersService, templates, csrfManager, logger)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

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

	categoriesRepo := categories.NewRepository(pool)
	categoriesService := categories.NewService(categoriesRepo)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, jobClient, metrics, logger)
	recipeHandler := catalog.NewHandler(logger, catalogService, categoriesService, templates, csrfManager, rbacMiddleware)
	recipeAPIHandler := catalog.NewAPIHandler(catalogService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		RBACMiddleware:   rbacMiddleware,
		AuthHandler:      authHandler,
		RecipeHandler:    recipeHandler,
		RecipeAPIHandler: recipeAPIHandler,
		UsersHandler:     usersHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runPromote handles `tastebook promote [flags] <username-or-email>`.
func runPromote(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	role := fs.String("role", "", "role to grant (STUDENT, MODERATOR, ADMIN)")
	replace := fs.Bool("replace", false, "replace the stored role set instead of adding")
	jsonOut := fs.Bool("json", false, "print the outcome as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *role == "" {
		fmt.Fprintln(os.Stderr, "usage: tastebook promote --role ROLE [--replace] [--json] <username-or-email>")
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		return 1
	}
	defer pool.Close()

	promoteCLI := cli.NewPromoteCLI(users.NewService(users.NewRepository(pool)))
	return promoteCLI.Run(ctx, cli.PromoteOptions{
		Identifier: fs.Arg(0),
		Role:       *role,
		Replace:    *replace,
		JSONOutput: *jsonOut,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	})
}
