package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"chess-quiz-service/internal/app"
	"chess-quiz-service/internal/auth"
	"chess-quiz-service/internal/config"
	"chess-quiz-service/internal/infra/memory"
	"chess-quiz-service/internal/infra/postgres"
	redisinfra "chess-quiz-service/internal/infra/redis"
	"chess-quiz-service/internal/logging"
	"chess-quiz-service/internal/metrics"
	transport "chess-quiz-service/internal/transport/http"
	"chess-quiz-service/internal/transport/http/middleware"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// store is what the game and auth services need from the primary store.
type store interface {
	auth.AccountRepository
	app.SessionRepository
	app.LeaderboardRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		primary store
		loader  memory.QuestionLoader = memory.NewStaticQuestionLoader(memory.SeedQuestions())
	)
	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateAndSeed(ctx, db, logger); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres pool: %w", err)
		}
		defer pool.Close()
		primary = postgres.NewStore(db)
		loader = postgres.NewQuestionLoader(pool)
		logger.Info("using postgres store")
	} else {
		primary = memory.NewStore()
		logger.Info("using in-memory store")
	}

	questionsTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	pendingTTL := config.TTLDuration(cfg.Game.PendingTTL, 30*time.Minute)

	var (
		questions app.QuestionRepository
		pending   app.PendingStore
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		questions = redisinfra.NewQuestionRepository(client, loader, questionsTTL)
		pending = redisinfra.NewPendingStore(client, pendingTTL)
		logger.Info("using redis for question cache and pending questions", slog.String("addr", cfg.Redis.Addr))
	} else {
		questions = memory.NewQuestionRepository(loader, questionsTTL)
		pending = memory.NewPendingStore(pendingTTL)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	authService, err := auth.NewService(primary, auth.Config{
		Secret:     []byte(cfg.Auth.Secret),
		TokenTTL:   config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL),
		BcryptCost: cfg.Auth.BcryptCost,
	}, logger)
	if err != nil {
		return err
	}

	games := app.NewGameService(primary, primary, app.NewQuestionBank(questions), pending,
		app.WithClientScore(cfg.Game.TrustClientScore),
		app.WithLeaderboardSize(cfg.Game.LeaderboardSize),
		app.WithMetrics(collector),
		app.WithLogger(logger),
	)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rlCfg := middleware.DefaultRateLimiterConfig()
		if cfg.RateLimit.RPS > 0 {
			rlCfg.Rate = rate.Limit(cfg.RateLimit.RPS)
		}
		if cfg.RateLimit.Burst > 0 {
			rlCfg.Burst = cfg.RateLimit.Burst
		}
		rlCfg.CleanupInterval = config.TTLDuration(cfg.RateLimit.CleanupInterval, rlCfg.CleanupInterval)
		limiter = middleware.NewRateLimiter(rlCfg, logger)
		defer limiter.Stop()
	}

	handler := transport.NewRouter(transport.Deps{
		Games:       games,
		Auth:        authService,
		QRCodes:     newQRGenerator(cfg, collector, logger),
		Observer:    collector,
		Gatherer:    reg,
		RateLimiter: limiter,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting chess quiz service", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
