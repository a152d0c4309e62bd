package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "eventarb/docs"
	"eventarb/internal/cache"
	"eventarb/internal/config"
	cronrunner "eventarb/internal/cron"
	"eventarb/internal/db"
	"eventarb/internal/gamma"
	"eventarb/internal/handler"
	"eventarb/internal/llm"
	"eventarb/internal/logger"
	"eventarb/internal/news"
	"eventarb/internal/notify"
	"eventarb/internal/orchestrator"
	"eventarb/internal/pipeline"
	"eventarb/internal/position"
	"eventarb/internal/ratelimit"
	"eventarb/internal/report"
	"eventarb/internal/repository"
	gormrepository "eventarb/internal/repository/gorm"
	"eventarb/internal/trading"
)

type tradingBackend interface {
	trading.Trader
	position.Source
}

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("PM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PM_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	switch {
	case errors.Is(err, db.ErrDisabled):
		logger.Info("database disabled, reports go to files only")
	case err != nil:
		logger.Fatal("db open failed", zap.Error(err))
	default:
		defer db.Close(dbConn)
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
	}

	var store *gormrepository.Store
	var repo repository.Repository
	if dbConn != nil {
		store = gormrepository.New(dbConn.Gorm)
		repo = store
	}

	newsLoc := loadLocation(cfg.News.Timezone, logger)

	var kv cache.Store
	switch strings.ToLower(cfg.Cache.Backend) {
	case "redis":
		rs := cache.NewRedisStore(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}, cfg.Cache.KeyPrefix)
		defer rs.Close()
		kv = rs
	default:
		kv = cache.NewMemoryStore()
	}

	limiter := ratelimit.New(kv, ratelimit.Config{
		DailyLimit:          cfg.News.DailyLimit,
		MaxSearchesPerCycle: cfg.News.MaxSearchesPerCycle,
		HeadlineTTL:         cfg.News.HeadlineTTL,
		SearchTTL:           cfg.News.SearchTTL,
		Location:            newsLoc,
	}, ratelimit.WithLogger(logger.Named("ratelimit")))

	newsHTTP := &http.Client{Timeout: cfg.News.Timeout}
	newsClient := news.NewClient(newsHTTP, cfg.News.BaseURL, cfg.News.APIKey, cfg.News.Country)
	gatewayOpts := []news.GatewayOption{news.WithGatewayLogger(logger.Named("news"))}
	if len(cfg.News.RSSFeeds) > 0 {
		rss := news.NewRSSSource(cfg.News.RSSFeeds, cfg.News.HeadlineTTL, cfg.News.Timeout, logger.Named("rss"))
		gatewayOpts = append(gatewayOpts, news.WithRSS(rss))
	}
	gateway := news.NewGateway(newsClient, limiter, news.NewAnalyzer(cfg.News.Categories), news.GatewayConfig{
		Language:       cfg.News.Language,
		SearchPageSize: cfg.News.SearchPageSize,
		LookbackDays:   cfg.News.LookbackDays,
	}, gatewayOpts...)

	completer, err := llm.NewFromConfig(cfg.LLM)
	if err != nil {
		logger.Fatal("llm init failed", zap.Error(err))
	}
	model := llm.NewRetrier(completer, cfg.LLM.MaxAttempts, cfg.LLM.BackoffUnit, logger.Named("llm"))

	gammaHTTP := &http.Client{Timeout: cfg.Gamma.Timeout}
	gammaClient := gamma.NewClient(gammaHTTP, cfg.Gamma.BaseURL)

	extractor := pipeline.NewEventExtractor(model, cfg.Pipeline.MaxArticles, cfg.Pipeline.MaxEvents, logger.Named("extractor"))
	matcher := pipeline.NewMarketMatcher(gammaClient, model, cfg.Gamma.FetchLimit, logger.Named("matcher"))

	var trader tradingBackend
	switch strings.ToLower(cfg.Trading.Backend) {
	case "clob":
		trader = trading.NewCLOBTraderFromConfig(cfg.ClobREST)
	default:
		trader = trading.NewPaperTrader(decimal.NewFromFloat(cfg.Trading.PaperBalance))
	}
	executor := trading.NewExecutor(trader, cfg.Trading.SettlementDelay, logger.Named("executor"))

	posOpts := []position.Option{position.WithLogger(logger.Named("positions"))}
	if store != nil {
		posOpts = append(posOpts, position.WithSnapshotStore(store))
	}
	positions := position.NewManager(trader, posOpts...)

	fileSink, err := report.NewFileSink(cfg.Report.Dir, cfg.Report.RecentDecisions, newsLoc, time.Now)
	if err != nil {
		logger.Fatal("report sink init failed", zap.Error(err))
	}
	sinks := report.MultiSink{fileSink}
	if repo != nil && cfg.Report.PersistDB {
		dbSink, err := report.NewDBSink(context.Background(), repo, cfg.Report.RecentDecisions, newsLoc, time.Now)
		if err != nil {
			logger.Fatal("report db sink init failed", zap.Error(err))
		}
		sinks = append(sinks, dbSink)
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		News:      gateway,
		Limiter:   limiter,
		Extractor: extractor,
		Matcher:   matcher,
		Executor:  executor,
		Positions: positions,
		Sink:      sinks,
		Notifier:  notify.FromConfig(cfg.Notify),
		Trader:    trader,
		Markets:   gammaClient,
	}, orchestrator.Options{
		Trading: trading.ConfigFrom(cfg.Trading),
		Opportunity: pipeline.OpportunityConfig{
			MaxPrice:   decimal.NewFromFloat(cfg.Pipeline.MaxPrice),
			Confidence: cfg.Pipeline.ConfirmedConfidence,
		},
		MonitorOnly: cfg.Trading.MonitorOnly,
		FetchLimit:  cfg.Gamma.FetchLimit,
		GradeLimit:  cfg.Gamma.FetchLimit,
		Location:    newsLoc,
		Logger:      logger.Named("orchestrator"),
	})
	if err != nil {
		logger.Fatal("orchestrator init failed", zap.Error(err))
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := handler.NewRouter(handler.RouterDeps{
		DB:     dbConn,
		Runner: orch,
		Repo:   repo,
		Logger: logger,
	})
	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Jobs outlive the signal: in-flight news, model and order calls finish
	// and the stopped orchestrator discards what comes after.
	jobCtx := context.WithoutCancel(ctx)
	cronRunner := cronrunner.New(logger, jobCtx)
	scheduler := orchestrator.NewScheduler(orch, cronRunner, orchestrator.ScheduleConfig{
		CycleInterval:    cfg.Schedule.CycleInterval,
		SnapshotInterval: cfg.Schedule.SnapshotInterval,
		RunOnStart:       cfg.Schedule.RunOnStart,
	}, logger.Named("scheduler"))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("starting",
		zap.Bool("live", orch.Live()),
		zap.String("trading_backend", cfg.Trading.Backend),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("db", dbConn != nil),
	)
	if err := scheduler.Start(jobCtx); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if path, err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("final daily report failed", zap.Error(err))
	} else {
		logger.Info("final daily report", zap.String("path", path))
	}
	_ = srv.Shutdown(shutdownCtx)
}

func loadLocation(name string, logger *zap.Logger) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", zap.String("timezone", name), zap.Error(err))
		return time.UTC
	}
	return loc
}
