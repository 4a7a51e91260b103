// Command examiner is the main entry point for the speaking-exam Telegram
// bot.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/speakingzone/examiner/internal/config"
	"github.com/speakingzone/examiner/internal/dictionary"
	"github.com/speakingzone/examiner/internal/exam"
	"github.com/speakingzone/examiner/internal/gate"
	"github.com/speakingzone/examiner/internal/health"
	"github.com/speakingzone/examiner/internal/observe"
	"github.com/speakingzone/examiner/internal/scoring"
	"github.com/speakingzone/examiner/internal/stats"
	"github.com/speakingzone/examiner/internal/telegram"
	"github.com/speakingzone/examiner/internal/voice"
	chatgroq "github.com/speakingzone/examiner/pkg/provider/chat/groq"
	sttgroq "github.com/speakingzone/examiner/pkg/provider/stt/groq"
	"github.com/speakingzone/examiner/pkg/provider/translate"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "examiner: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "examiner: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	slog.Info("examiner starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics must come up before anything grabs the default meter.
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	var chatOpts []chatgroq.Option
	if cfg.Groq.BaseURL != "" {
		chatOpts = append(chatOpts, chatgroq.WithBaseURL(cfg.Groq.BaseURL))
	}
	chatOpts = append(chatOpts, chatgroq.WithTimeout(cfg.Groq.Timeout.Std()))
	chatProvider, err := chatgroq.New(cfg.Groq.APIKey, chatOpts...)
	if err != nil {
		slog.Error("failed to create chat provider", "err", err)
		return 1
	}

	sttOpts := []sttgroq.Option{
		sttgroq.WithModel(cfg.Groq.WhisperModel),
		sttgroq.WithTimeout(cfg.Groq.Timeout.Std()),
	}
	if cfg.Groq.BaseURL != "" {
		sttOpts = append(sttOpts, sttgroq.WithBaseURL(cfg.Groq.BaseURL))
	}
	sttProvider, err := sttgroq.New(cfg.Groq.APIKey, sttOpts...)
	if err != nil {
		slog.Error("failed to create stt provider", "err", err)
		return 1
	}

	translator := translate.New()
	grader := scoring.NewGrader(chatProvider, cfg.Groq.ChatModels)

	// ── Persistence ───────────────────────────────────────────────────────────
	statsStore := stats.NewStore(cfg.Data.Dir)
	if err := statsStore.Load(); err != nil {
		slog.Error("failed to load stats", "err", err)
		return 1
	}

	// ── Telegram + features ───────────────────────────────────────────────────
	bot, err := telegram.NewBot(cfg.Telegram)
	if err != nil {
		slog.Error("failed to connect to Telegram", "err", err)
		return 1
	}
	slog.Info("telegram bot authenticated", "username", bot.Username())

	subGate := gate.New(bot)
	pipeline := voice.New(bot, sttProvider)
	engine := exam.NewEngine(bot, pipeline, grader, cfg.Content.ImageDir,
		exam.WithStats(statsStore))
	dict := dictionary.New(translator)

	router := telegram.NewRouter(bot, engine, grader, dict, subGate, statsStore,
		cfg.Telegram.ChannelURL, cfg.Telegram.AdminIDs)

	// ── HTTP: keepalive, probes, metrics ──────────────────────────────────────
	mux := http.NewServeMux()
	health.New(health.Check{
		Name: "data_dir",
		Probe: func(context.Context) error {
			_, err := os.Stat(cfg.Data.Dir)
			return err
		},
	}).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return statsStore.AutoSave(gctx, stats.DefaultAutosaveInterval)
	})
	g.Go(func() error {
		slog.Info("bot ready — press Ctrl+C to shut down")
		return router.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
