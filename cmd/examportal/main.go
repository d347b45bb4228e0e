package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rsinha/examportal/internal/auth"
	"github.com/rsinha/examportal/internal/exam"
	"github.com/rsinha/examportal/internal/handler"
	appI18n "github.com/rsinha/examportal/internal/i18n"
	"github.com/rsinha/examportal/internal/llm"
	"github.com/rsinha/examportal/internal/model"
	"github.com/rsinha/examportal/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examportal",
		Short: "Exam administration server with automatic MCQ grading and manual review",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examportal --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examportal.db", "SQLite database path")
	f.StringSliceP("exams", "e", nil, "Paths to exam JSON files to import (repeatable)")
	f.String("jwt-secret", "", "Secret for signing identity tokens (or set EXAMPORTAL_JWT_SECRET)")
	f.String("llm-url", "", "OpenAI-compatible API base URL for feedback suggestions (empty = disabled)")
	f.String("llm-key", "", "API key for the LLM endpoint")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "Default language for user-facing messages (en, ru)")
	f.String("rescore-mode", string(model.ScoringAdditive), "Manual scoring mode (additive, overwrite)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /exams)")
	f.Bool("secure-cookies", true, "Set Secure flag on auth cookies")
	f.String("seed-examiner-email", "examiner@example.com", "Email for the seeded examiner account")
	f.String("seed-examiner-password", "", "Password for the seeded examiner (skipped when empty)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all submissions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examportal.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
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

	v.SetEnvPrefix("EXAMPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examportal")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examportal")
	v.AddConfigPath("/etc/examportal")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	seededID, err := seedExaminer(ctx, db, v.GetString("seed-examiner-email"), v.GetString("seed-examiner-password"))
	if err != nil {
		return fmt.Errorf("seed examiner: %w", err)
	}

	if err := loadExams(ctx, db, v.GetStringSlice("exams"), seededID); err != nil {
		return fmt.Errorf("load exams: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	secret := v.GetString("jwt-secret")
	tokens, err := auth.NewTokens(secret)
	if err != nil {
		return fmt.Errorf("jwt secret is required: set --jwt-secret flag or EXAMPORTAL_JWT_SECRET env var: %w", err)
	}

	var llmClient *llm.Client
	if url := v.GetString("llm-url"); url != "" {
		llmClient = llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"))
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := llmClient.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", url, "model", v.GetString("llm-model"))
	}

	rescoreMode := model.ScoringMode(strings.ToLower(v.GetString("rescore-mode")))
	if !rescoreMode.Valid() {
		slog.Warn("invalid rescore-mode, using additive", "mode", rescoreMode)
		rescoreMode = model.ScoringAdditive
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.Config{
		RescoreMode:   rescoreMode,
		SecureCookies: v.GetBool("secure-cookies"),
		BasePath:      basePath,
	}

	svc := exam.New(db, rescoreMode)
	h := handler.New(db, svc, tokens, llmClient, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware())

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			h.Routes(sub)
		})
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"rescore_mode", rescoreMode,
		"base_path", basePath,
		"llm_enabled", llmClient != nil,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.ExportAllSubmissions(ctx)
	if err != nil {
		return fmt.Errorf("export submissions: %w", err)
	}

	export := model.ResultsExport{
		GeneratedAt: time.Now(),
		Results:     results,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

// seedExaminer creates an initial examiner account on an empty database so
// the instance is usable before anyone signs up. Returns the seeded user id,
// or empty string when seeding was skipped.
func seedExaminer(ctx context.Context, db *store.Store, email, password string) (string, error) {
	count, err := db.UserCount(ctx)
	if err != nil {
		return "", err
	}
	if count > 0 || password == "" {
		return "", nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	id, err := db.CreateUser(ctx, model.User{
		Name:         "Examiner",
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleExaminer,
	})
	if err != nil {
		return "", fmt.Errorf("create examiner user: %w", err)
	}

	slog.Info("seeded examiner account", "email", email)
	return id, nil
}

// loadExams imports exam definitions from JSON files, skipping files whose
// content hash was already imported. A changed file is skipped too, to avoid
// breaking submissions made against the earlier import.
func loadExams(ctx context.Context, db *store.Store, paths []string, createdBy string) error {
	if createdBy == "" {
		createdBy = "import"
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(ctx, path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("exam file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("exam file changed since last import, skipping to avoid breaking existing submissions",
				"path", path)
			continue
		}

		var imports []model.ExamImport
		if err := json.Unmarshal(data, &imports); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, ei := range imports {
			ex := model.Exam{
				Title:       ei.Title,
				Description: ei.Description,
				Subject:     ei.Subject,
				ExamDate:    ei.ExamDate,
				Duration:    ei.Duration,
				CreatedBy:   createdBy,
			}
			for _, qi := range ei.Questions {
				ex.Questions = append(ex.Questions, model.Question{
					Type:          qi.Type,
					Text:          qi.Text,
					Options:       qi.Options,
					CorrectOption: qi.CorrectOption,
				})
			}
			if _, err := db.CreateExam(ctx, ex); err != nil {
				return fmt.Errorf("insert exam from %s: %w", path, err)
			}
		}

		if err := db.SetImportedFileHash(ctx, path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported exams", "path", path, "count", len(imports))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
