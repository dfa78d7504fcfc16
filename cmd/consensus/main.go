package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/consensusbot/config"
	"github.com/alejandrodnm/consensusbot/internal/adapters/httpapi"
	"github.com/alejandrodnm/consensusbot/internal/adapters/kafka"
	"github.com/alejandrodnm/consensusbot/internal/adapters/notify"
	"github.com/alejandrodnm/consensusbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/consensusbot/internal/adapters/redislock"
	"github.com/alejandrodnm/consensusbot/internal/adapters/storage"
	"github.com/alejandrodnm/consensusbot/internal/consensus"
	"github.com/alejandrodnm/consensusbot/internal/metrics"
	"github.com/alejandrodnm/consensusbot/internal/ports"
	"github.com/alejandrodnm/consensusbot/internal/scanner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	serve := flag.Bool("serve", true, "expose the admin HTTP API while the scheduler runs")
	report := flag.Bool("report", false, "print recent signals and the wallet roster, then exit")
	reportDays := flag.Int("report-days", 7, "days of signals to include in -report")
	seed := flag.Bool("seed", false, "add top traders from polymarketanalytics to the roster, then exit")
	seedTag := flag.String("seed-tag", polymarket.DefaultTraderTag, "trader ranking category (Overall, Sports, Politics, Crypto, ...)")
	seedWinRate := flag.Int("seed-min-win-rate", 67, "minimum win rate in percent for -seed")
	seedPositions := flag.Int("seed-min-positions", 30, "minimum total positions for -seed")
	seedMax := flag.Int("seed-max", 0, "maximum traders to add with -seed (0 = no limit)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("invalid timezone", "err", err)
		os.Exit(1)
	}

	slog.Info("consensus bot starting",
		"config", *configPath,
		"enabled", cfg.Consensus.Enabled,
		"schedule", cfg.Consensus.ScheduleTime,
		"timezone", loc.String(),
		"once", *once,
		"report", *report,
		"seed", *seed,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := polymarket.NewClient(cfg.API.DataBase, cfg.API.AnalyticsBase)
	console := notify.NewConsole()

	switch {
	case *report:
		if err := runReport(ctx, store, console, *reportDays); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	case *seed:
		q := polymarket.TraderQuery{
			Tag:               *seedTag,
			MinWinRate:        *seedWinRate,
			MinTotalPositions: *seedPositions,
			Max:               *seedMax,
		}
		if err := runSeed(ctx, client, store, console, q); err != nil {
			slog.Error("seed failed", "err", err)
			os.Exit(1)
		}
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := scanner.Deps{
		Wallets:   store,
		Positions: client,
		Snapshots: store,
		Ledger:    store,
		Chats:     store,
		Messenger: messenger(cfg.Telegram, console),
		Metrics:   metrics.New(reg),
	}

	if cfg.Redis.Enabled {
		lock, err := redislock.New(ctx, redislock.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.LockKey,
			TTL:      cfg.LockTTL(),
		})
		if err != nil {
			slog.Error("failed to connect to redis", "err", err)
			os.Exit(1)
		}
		defer lock.Close()
		deps.Lock = lock
	}

	if cfg.Kafka.Enabled {
		pub, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			slog.Error("failed to create kafka publisher", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		deps.Publisher = pub
	}

	scanCfg := scannerConfig(cfg, loc)
	scanCfg.LockRefreshInterval = cfg.LockTTL() / 3
	s := scanner.New(scanCfg, deps)

	if *once {
		signals, err := s.TryScan(ctx)
		if err != nil {
			slog.Error("scan failed", "err", err)
			os.Exit(1)
		}
		console.PrintSignals(signals)
		return
	}

	if err := run(ctx, s, store, reg, cfg.HTTP.Addr, *serve); err != nil {
		slog.Error("consensus bot exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("consensus bot stopped cleanly")
}

// run arma el scheduler y, si serve, la API de administración, hasta que ctx se cancele.
func run(ctx context.Context, s *scanner.Scanner, store *storage.SQLiteStorage, reg *prometheus.Registry, addr string, serve bool) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Stop(stopCtx); err != nil {
			slog.Warn("scheduler stop timed out", "err", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if serve {
		api := httpapi.New(addr, httpapi.Deps{
			Scanner:  s,
			Signals:  store,
			Wallets:  store,
			Gatherer: reg,
		})
		g.Go(func() error { return api.Start(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

func scannerConfig(cfg *config.Config, loc *time.Location) scanner.Config {
	c := cfg.Consensus
	return scanner.Config{
		Enabled:      c.Enabled,
		ScheduleTime: c.ScheduleTime,
		Location:     loc,
		Detector: consensus.Config{
			MinWallets:          c.MinWallets,
			MinOrderValue:       c.MinOrderValue,
			MinPortfolioPercent: c.MinPortfolioPercent,
		},
		InterWalletDelay: cfg.InterWalletDelay(),
		FetchConcurrency: c.FetchConcurrency,
		PositionsLimit:   c.PositionsLimit,
		FetchTimeout:     cfg.FetchTimeout(),
		SendTimeout:      cfg.SendTimeout(),
	}
}

// messenger usa Telegram si hay token; si no, los mensajes van a consola.
func messenger(cfg config.TelegramConfig, console *notify.Console) ports.Messenger {
	if cfg.Token == "" {
		slog.Warn("TELEGRAM_BOT_TOKEN not set, messages will be printed to stdout")
		return console
	}
	return notify.NewTelegram(cfg.Token, cfg.BaseURL)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
