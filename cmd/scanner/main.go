package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"whale-trap-scanner/config"
	"whale-trap-scanner/internal/binance"
	"whale-trap-scanner/internal/dispatch"
	"whale-trap-scanner/internal/gateway"
	"whale-trap-scanner/internal/journal"
	"whale-trap-scanner/internal/logger"
	"whale-trap-scanner/internal/metrics"
	"whale-trap-scanner/internal/notification"
	"whale-trap-scanner/internal/ratelimit"
	"whale-trap-scanner/internal/rule"
	"whale-trap-scanner/internal/scheduler"
	"whale-trap-scanner/internal/universe"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[scanner] %v", err)
	}
	logger.Init("whale-trap-scanner", logger.ParseLevel(cfg.LogLevel))
	slog.Info("starting",
		slog.String("host", cfg.BinanceHost),
		slog.String("interval", cfg.Interval),
		slog.String("policy", cfg.RulePolicy))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[scanner] shutdown signal received")
		cancel()
	}()

	// ---- Metrics ----
	m := metrics.New()
	opsRoutes := map[string]http.Handler{}

	// ---- Market data ----
	source := binance.New(binance.Config{
		Host:        cfg.BinanceHost,
		Timeout:     cfg.HTTPTimeout,
		Retries:     cfg.FetchRetries,
		RetryDelay:  cfg.RetryBaseDelay,
		RetryJitter: cfg.RetryJitter,
		MinHistory:  cfg.MinHistory,
	})
	resolver := universe.New(cfg.BinanceHost, cfg.HTTPTimeout)

	// ---- Rule policy ----
	policy, err := rule.ByName(cfg.RulePolicy, cfg.ScoreThreshold, cfg.PricePrecision)
	if err != nil {
		log.Fatalf("[scanner] %v", err)
	}

	// ---- Notification sink ----
	var notifier notification.Notifier
	switch {
	case cfg.TelegramBotToken != "" && cfg.TelegramChatID != "":
		notifier = notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	case cfg.WebhookURL != "":
		notifier = notification.NewWebhookNotifier(cfg.WebhookURL)
	default:
		log.Println("[scanner] no notification destination configured, alerts go to the log")
		notifier = notification.NewLogNotifier()
	}

	// ---- Dedup table: redis when shared, in-memory otherwise ----
	var deduper dispatch.Deduper
	if cfg.RedisAddr != "" {
		rd, err := dispatch.NewRedisDeduper(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("[scanner] redis dedup init: %v", err)
		}
		defer rd.Close()
		deduper = rd
	} else {
		deduper = dispatch.NewMemoryDeduper()
	}

	// ---- Signal journal (optional) ----
	var recorder dispatch.Recorder
	if cfg.SQLitePath != "" {
		j, err := journal.New(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[scanner] journal init: %v", err)
		}
		defer j.Close()
		recorder = j
		opsRoutes["/signals/recent"] = j.Handler()
	}
	go m.Serve(ctx, cfg.MetricsAddr, opsRoutes)

	dispatcher := dispatch.New(notifier, deduper, recorder, cfg.DedupTTL)

	// ---- Signal gateway (optional) ----
	var broadcaster scheduler.Broadcaster
	if cfg.GatewayAddr != "" {
		hub := gateway.NewHub()
		go hub.Run(ctx)
		go hub.Serve(ctx, cfg.GatewayAddr)
		broadcaster = hub
	}

	// ---- Rate limiter for pooled mode ----
	var limiter *ratelimit.Limiter
	if cfg.Workers > 1 {
		limiter = ratelimit.New(float64(cfg.Workers), cfg.RateLimitRPS)
	}

	sched := scheduler.New(scheduler.Config{
		Interval:      cfg.Interval,
		Limit:         cfg.KlineLimit,
		Pacing:        cfg.SymbolPacing,
		CycleSleep:    cfg.CycleSleep,
		Workers:       cfg.Workers,
		RefreshCycles: cfg.RefreshCycles,
		Symbols:       cfg.SymbolList(),
	}, scheduler.Deps{
		Source:      source,
		Resolver:    resolver,
		Policy:      policy,
		Dispatcher:  dispatcher,
		Broadcaster: broadcaster,
		Limiter:     limiter,
		Metrics:     m,
	})

	if err := sched.Run(ctx); err != nil {
		log.Fatalf("[scanner] fatal: %v", err)
	}
	log.Println("[scanner] stopped")
}
