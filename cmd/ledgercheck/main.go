// Command ledgercheck loads a plain-text journal file, applies an optional
// rules file, and reports how many transactions were ingested and whether
// the journal is structurally valid.
package main

import (
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/finbooks/ledgercore/internal/eval"
	"github.com/finbooks/ledgercore/internal/ledger"
	"github.com/finbooks/ledgercore/internal/parse"
	"github.com/finbooks/ledgercore/internal/platform/config"
	"github.com/finbooks/ledgercore/internal/rules"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger = logger.With(slog.String("run_id", uuid.NewString()))

	journalFile := cfg.JournalFile
	if len(os.Args) > 1 {
		journalFile = os.Args[1]
	}
	if journalFile == "" {
		logger.Error("No journal file given; set JOURNAL_FILE or pass a path")
		os.Exit(2)
	}

	opts := []ledger.Option{
		ledger.WithParser(parse.NewReader()),
		ledger.WithLogger(logger),
		ledger.WithCheckingStyle(cfg.CheckingStyle),
		ledger.WithDefaultScope(eval.NewBaseScope()),
	}
	if cfg.ForceChecking {
		opts = append(opts, ledger.WithForceChecking())
	}
	if cfg.TrackPayees {
		opts = append(opts, ledger.WithPayeeTracking())
	}
	journal := ledger.New(opts...)

	if cfg.RulesFile != "" {
		ruleFile, err := rules.Load(cfg.RulesFile)
		if err != nil {
			logger.Error("Failed to load rules file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := ruleFile.Apply(journal); err != nil {
			logger.Error("Failed to apply rules file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Rules applied", slog.String("rules_file", cfg.RulesFile))
	}

	count, err := journal.LoadFile(journalFile, nil, nil)
	if err != nil {
		logger.Error("Failed to load journal",
			slog.String("journal_file", journalFile),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	if !journal.Valid() {
		logger.Error("Journal failed structural validation",
			slog.String("journal_file", journalFile))
		os.Exit(1)
	}

	logger.Info("Journal loaded",
		slog.String("journal_file", journalFile),
		slog.Int("transactions", count),
		slog.Int("sources", len(journal.Sources)))
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}
