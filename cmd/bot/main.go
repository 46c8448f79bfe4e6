package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"faq-chatter/internal/analytics"
	"faq-chatter/internal/chat"
	"faq-chatter/internal/config"
	"faq-chatter/internal/dedupe"
	"faq-chatter/internal/formatter"
	"faq-chatter/internal/history"
	"faq-chatter/internal/interactions"
	"faq-chatter/internal/knowledge"
	"faq-chatter/internal/line"
	"faq-chatter/internal/llm"
	"faq-chatter/internal/logging"
	"faq-chatter/internal/responder"
	"faq-chatter/internal/retrieval"
	"faq-chatter/internal/scheduler"
	"faq-chatter/internal/sheets"
	"faq-chatter/internal/storage"
	"faq-chatter/internal/tokenizer"
)

type sink interface {
	storage.Sink
	storage.Loader
}

func main() {
	envErr := godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Warn("⚠️ .env file not loaded", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Static corpus: any failure here is fatal.
	tok, err := newTokenizer(cfg.DictionaryPath)
	if err != nil {
		logger.Fatal("failed to load dictionary", zap.Error(err))
	}
	questions, err := knowledge.LoadQuestions(cfg.QuestionsPath)
	if err != nil {
		logger.Fatal("failed to load questions", zap.String("path", cfg.QuestionsPath), zap.Error(err))
	}
	reference, err := knowledge.LoadReference(cfg.InfoPath)
	if err != nil {
		logger.Fatal("failed to load reference info", zap.String("path", cfg.InfoPath), zap.Error(err))
	}
	persona, err := readPersona(cfg.PersonaPath)
	if err != nil {
		logger.Fatal("failed to read persona", zap.Error(err))
	}
	corpus := retrieval.NewCorpus(tok, questions)
	logger.Info("📚 corpus loaded",
		zap.Int("questions", corpus.Len()),
		zap.Int("dictionary_words", tok.Size()))

	client, err := llm.NewFactory(cfg).CreateClient(ctx, string(cfg.LLMProvider))
	if err != nil {
		logger.Fatal("failed to create llm client", zap.Error(err))
	}

	loc := cfg.Location()
	logSink, err := newSink(ctx, cfg, loc)
	if err != nil {
		logger.Fatal("failed to init interaction log sink", zap.Error(err))
	}
	recorder := interactions.New(logSink, logger.Named("interactions"), cfg.LogQueueSize)

	hist := history.NewManager()
	gen := responder.New(client, responder.Options{
		Persona:       persona,
		Reference:     reference.Render(cfg.MaxReferenceBytes),
		Apology:       cfg.ApologyText,
		Timeout:       cfg.GenerationTimeout,
		RatePerMinute: cfg.LLMRatePerMinute,
		Burst:         cfg.LLMRateBurst,
	}, logger.Named("responder"))
	svc := chat.NewService(corpus, gen, formatter.Default(cfg.MascotName), hist, recorder, chat.Options{
		Threshold:     cfg.MatchThreshold,
		MaxInputRunes: cfg.MaxInputRunes,
	}, logger.Named("chat"))

	replier, err := line.NewAPIReplier(cfg.LineChannelAccessToken)
	if err != nil {
		logger.Fatal("failed to init LINE client", zap.Error(err))
	}
	store, closeStore := newDedupe(ctx, cfg, logger)
	defer closeStore()

	sched := scheduler.New(loc, logger.Named("scheduler"))
	if err := sched.Add(cfg.HistorySweepCron, "history-sweep", func(ctx context.Context) error {
		n := hist.Sweep(time.Now().Add(-cfg.HistoryIdleTTL))
		logger.Info("🧹 idle histories swept", zap.Int("removed", n), zap.Int("remaining", hist.Users()))
		return nil
	}); err != nil {
		logger.Fatal("failed to schedule history sweep", zap.Error(err))
	}
	if err := sched.Add(cfg.ReportCron, "daily-report", func(ctx context.Context) error {
		stats, err := analytics.Daily(ctx, logSink, time.Now().In(loc))
		if err != nil {
			return err
		}
		logger.Info("📊 daily report\n"+stats.GenerateReportSummary(),
			zap.Int("questions", stats.TotalMessages),
			zap.Float64("retrieval_rate", stats.RetrievalRate()))
		return nil
	}); err != nil {
		logger.Fatal("failed to schedule daily report", zap.Error(err))
	}
	sched.Start()

	handler := line.NewHandler(cfg.LineChannelSecret, svc, replier, store, logger.Named("webhook"))
	app := line.NewApp(handler)

	go func() {
		addr := ":" + strconv.Itoa(cfg.Port)
		logger.Info("🚀 webhook server listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	sched.Stop()
	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := recorder.Close(drainCtx); err != nil {
		logger.Warn("interaction log not fully drained", zap.Error(err))
	}
}

func newTokenizer(dictionaryPath string) (*tokenizer.Tokenizer, error) {
	if dictionaryPath == "" {
		return tokenizer.Default(), nil
	}
	extra, err := tokenizer.LoadWords(dictionaryPath)
	if err != nil {
		return nil, err
	}
	return tokenizer.Default(extra...), nil
}

func readPersona(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("persona file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func newSink(ctx context.Context, cfg *config.Config, loc *time.Location) (sink, error) {
	switch cfg.LogSink {
	case config.SinkFile:
		return storage.NewFileSink(cfg.LogFilePath), nil
	default:
		return sheets.NewFromCredentialsFile(ctx, cfg.GoogleCredentialsFile, cfg.SpreadsheetID, cfg.SheetName, loc)
	}
}

func newDedupe(ctx context.Context, cfg *config.Config, logger *zap.Logger) (dedupe.Store, func()) {
	if cfg.RedisAddr == "" {
		return dedupe.NewMemory(cfg.DedupeTTL), func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("⚠️ redis unreachable, dedupe will fail open until it recovers", zap.Error(err))
	}
	return dedupe.NewRedis(rdb, cfg.DedupeTTL), func() { _ = rdb.Close() }
}
