package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/survey/internal/admin"
	"github.com/pavelanni/survey/internal/export"
	"github.com/pavelanni/survey/internal/handler"
	appI18n "github.com/pavelanni/survey/internal/i18n"
	"github.com/pavelanni/survey/internal/llm"
	"github.com/pavelanni/survey/internal/model"
	"github.com/pavelanni/survey/internal/session"
	"github.com/pavelanni/survey/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "survey",
		Short: "Simple survey with an admin view, CSV export and AI summary",
	}

	serve := serveCmd()
	root.AddCommand(serve, hashSecretCmd(), inspectCSVCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP survey server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", store.MemoryDSN, "SQLite database path for session metadata")
	f.String("form", string(model.FormBasic), "Form variant (basic, extended)")
	f.StringP("lang", "l", "en", "Default UI language (en, ko)")
	f.String("admin-secret", "0501", "Admin secret")
	f.String("admin-secret-hash", "", "bcrypt hash of the admin secret; overrides --admin-secret")
	f.Duration("admin-ttl", 30*time.Minute, "How long an admin grant lasts")
	f.Duration("session-ttl", 12*time.Hour, "Idle time after which a session and its responses are dropped")
	f.String("llm-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the summary service (falls back to OPENAI_API_KEY)")
	f.String("llm-model", "gpt-4o-mini", "Model used for summaries")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /survey)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func hashSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-secret",
		Short: "Read an admin secret from stdin and print its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE:  runHashSecret,
	}
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func inspectCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect-csv FILE",
		Short: "Print the row count, columns and filled cells of an exported CSV file",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspectCSV,
	}
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SURVEY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("survey")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/survey")
	v.AddConfigPath("/etc/survey")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func newGate(v *viper.Viper) (*admin.Gate, error) {
	if hash := v.GetString("admin-secret-hash"); hash != "" {
		return admin.NewFromHash(hash)
	}
	return admin.New(v.GetString("admin-secret"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	registry, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer registry.Close()

	gate, err := newGate(v)
	if err != nil {
		return fmt.Errorf("admin gate: %w", err)
	}

	apiKey := v.GetString("llm-key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	llmClient := llm.New(v.GetString("llm-url"), apiKey, v.GetString("llm-model"))
	if !llmClient.Enabled() {
		slog.Warn("no LLM API key configured, AI summary disabled")
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.Config{
		Form:          model.FormVariant(strings.ToLower(v.GetString("form"))),
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		SessionTTL:    v.GetDuration("session-ttl"),
		AdminTTL:      v.GetDuration("admin-ttl"),
	}

	sessions := session.NewManager(registry, cfg.SessionTTL, cfg.AdminTTL)
	h, err := handler.New(sessions, gate, llmClient, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(basePath))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sessions.Run(ctx, time.Minute)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server",
		"addr", addr,
		"form", cfg.Form,
		"lang", lang,
		"llm_url", v.GetString("llm-url"),
		"model", v.GetString("llm-model"),
		"summary", llmClient.Enabled(),
		"base_path", basePath,
		"session_ttl", cfg.SessionTTL,
		"admin_ttl", cfg.AdminTTL,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func runHashSecret(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read secret: %w", err)
	}
	hash, err := admin.HashSecret(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func runInspectCSV(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	p, err := export.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rows: %d\n", len(p.Rows))
	fmt.Fprintf(out, "columns: %s\n", strings.Join(p.Header, ", "))
	for _, col := range p.Header {
		filled := 0
		for _, v := range p.Column(col) {
			if v != "" {
				filled++
			}
		}
		fmt.Fprintf(out, "  %s: %d filled\n", col, filled)
	}
	return nil
}
