// Repcoach is a conversational workout coaching service.
//
// It drives a stateful chat flow that gathers a user's training
// preferences, generates workout plans and single sessions (via a
// local Ollama model, falling back to rule-based templates when the
// model is unreachable), and commits accepted drafts into workout
// template and calendar records. Configuration is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	repcoach serve           Start the API server
//	repcoach ask <message>   Send a single chat message (for testing)
//	repcoach version         Print version and build information
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/davekern/repcoach/internal/api"
	"github.com/davekern/repcoach/internal/apply"
	"github.com/davekern/repcoach/internal/buildinfo"
	"github.com/davekern/repcoach/internal/config"
	"github.com/davekern/repcoach/internal/conversation"
	"github.com/davekern/repcoach/internal/generator"
	"github.com/davekern/repcoach/internal/history"
	"github.com/davekern/repcoach/internal/intent"
	"github.com/davekern/repcoach/internal/llm"
	"github.com/davekern/repcoach/internal/slots"
	"github.com/davekern/repcoach/internal/store"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the repcoach command. All OS-level
// dependencies are injected as parameters so the lifecycle can be
// driven from tests. Arguments are parsed by hand: the flag package
// relies on package-level globals, and our argument surface is small
// enough that manual parsing is clearer than a CLI framework.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: repcoach ask <message>")
		}
		return runAsk(ctx, stdout, configPath, strings.Join(cmdArgs, " "))
	case "version":
		return runVersion(stdout)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata.
func runVersion(w io.Writer) error {
	fmt.Fprintln(w, buildinfo.String())
	info := buildinfo.Info()
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Repcoach - Conversational Workout Coach")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: repcoach [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  ask          Send a single chat message (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/repcoach/config.yaml, /etc/repcoach/config.yaml")
	return nil
}

// runAsk boots a minimal engine (in-memory databases) and processes a
// single message, printing the reply to stdout. Useful for smoke tests
// without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath, message string) error {
	logger := newLogger(stdout, slog.LevelWarn, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		// ask works without a config file; fall back to defaults.
		cfg = config.Default()
	}

	engine, cleanup, err := buildEngine(ctx, cfg, logger, ":memory:", ":memory:")
	if err != nil {
		return err
	}
	defer cleanup()

	turn, err := engine.SendMessage(ctx, "cli-test", cfg.DefaultPersona, message)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	for _, m := range turn.Messages {
		if m.Sender == history.SenderAssistant {
			fmt.Fprintln(stdout, m.Content)
		}
	}
	for _, qr := range turn.QuickReplies {
		fmt.Fprintf(stdout, "  [%s]\n", qr.Label)
	}
	return nil
}

// runServe is the primary operating mode: loads config, opens the
// databases, probes the model backend, wires the engine, starts the
// API server, and blocks until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting repcoach", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure logger now that we know the desired level and format.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			level, err = config.ParseLogLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Ollama.Model,
		"ollama_url", cfg.Ollama.URL,
	)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	recordsPath := filepath.Join(cfg.DataDir, "repcoach.db")
	historyPath := filepath.Join(cfg.DataDir, "chat.db")
	engine, cleanup, err := buildEngine(ctx, cfg, logger, recordsPath, historyPath)
	if err != nil {
		return err
	}
	defer cleanup()

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, engine, logger)

	// Serve until a signal arrives, then drain in-flight requests.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(sigCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-sigCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	return nil
}

// buildEngine opens the record and history databases, probes Ollama,
// and wires the full conversation stack. The returned cleanup closes
// the databases.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, recordsPath, historyPath string) (*conversation.Engine, func(), error) {
	recordsDB, err := sql.Open("sqlite3", recordsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open records database %s: %w", recordsPath, err)
	}

	records, err := store.New(recordsDB)
	if err != nil {
		recordsDB.Close()
		return nil, nil, fmt.Errorf("init records database %s: %w", recordsPath, err)
	}
	logger.Info("records database opened", "path", recordsPath)

	// Chat history is best-effort: a failed open degrades the history
	// store rather than blocking startup.
	var historyDB *sql.DB
	if db, err := sql.Open("sqlite3", historyPath); err != nil {
		logger.Warn("chat history unavailable", "path", historyPath, "error", err)
	} else {
		historyDB = db
	}
	hist := history.NewStore(historyDB, logger)

	cleanup := func() {
		recordsDB.Close()
		if historyDB != nil {
			historyDB.Close()
		}
	}

	// Model backend is optional. When the probe fails the client is
	// still wired — generation retries it per call and falls back to
	// rule-based output on failure.
	var client llm.Client
	if cfg.Ollama.URL != "" {
		ollama := llm.NewOllamaClient(cfg.Ollama.URL, cfg.Ollama.Model)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := ollama.Ping(pingCtx); err != nil {
			logger.Warn("ollama unreachable, responses will use rule-based fallback", "url", cfg.Ollama.URL, "error", err)
		}
		cancel()
		client = ollama
	} else {
		logger.Warn("no model backend configured, responses will use rule-based fallback")
	}

	opts := generator.Options{
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Timeout:     time.Duration(cfg.Generation.TimeoutSec) * time.Second,
	}

	classifier := intent.NewClassifier(client, logger)
	extractor := slots.NewExtractor(client, logger)
	gen := generator.New(client, opts, logger)
	applier := apply.New(records, records, records, logger)
	engine := conversation.New(classifier, extractor, gen, hist, applier, records, logger)

	return engine, cleanup, nil
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty, that exact path is used (and must exist).
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
