package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"faq-chatter/internal/knowledge"
	"faq-chatter/internal/logging"
	"faq-chatter/internal/retrieval"
	"faq-chatter/internal/tokenizer"
)

// serverConfig is the subset of the bot configuration the tools need; the
// LINE and provider secrets are not required here.
type serverConfig struct {
	MatchThreshold float64 `env:"MATCH_THRESHOLD" envDefault:"0.65"`
	QuestionsPath  string  `env:"QUESTIONS_PATH" envDefault:"data/data.json"`
	DictionaryPath string  `env:"DICTIONARY_PATH"`
	LogLevel       string  `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	envErr := godotenv.Load(".env")

	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the protocol, so logs go to stderr as JSON.
	logger, err := logging.New(cfg.LogLevel, "json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Debug(".env file not loaded", zap.Error(envErr))
	}

	tok := tokenizer.Default()
	if cfg.DictionaryPath != "" {
		extra, err := tokenizer.LoadWords(cfg.DictionaryPath)
		if err != nil {
			logger.Fatal("❌ failed to load dictionary", zap.Error(err))
		}
		tok = tokenizer.Default(extra...)
	}
	questions, err := knowledge.LoadQuestions(cfg.QuestionsPath)
	if err != nil {
		logger.Fatal("❌ failed to load questions", zap.Error(err))
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "faq-chatter-mcp",
		Version: "1.0.0",
	}, nil)
	NewFAQServer(tok, retrieval.NewCorpus(tok, questions), cfg.MatchThreshold, logger).Register(server)

	logger.Info("🚀 FAQ MCP server starting on stdin/stdout",
		zap.Int("questions", len(questions)),
		zap.Float64("threshold", cfg.MatchThreshold))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		logger.Fatal("❌ server failed", zap.Error(err))
	}
}
