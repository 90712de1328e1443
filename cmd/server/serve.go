package main

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"notecards/internal/composer"
	"notecards/internal/config"
	mcpserver "notecards/internal/mcp"
	"notecards/internal/notes"
	"notecards/internal/speech"
	"notecards/views/models"
)

//go:embed static
var staticFS embed.FS

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI, REST API and MCP endpoint",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("failed to load config", err)
		}
		if err := serve(cfg, slog.Default()); err != nil {
			fatal("server error", err)
		}
	},
}

func init() {
	serveCmd.Flags().String("port", "", "HTTP port")
	serveCmd.Flags().String("speech", "", "Speech provider: browser, fake or none")
	bindFlag(serveCmd, "port", "port")
	bindFlag(serveCmd, "speech.provider", "speech")
	rootCmd.AddCommand(serveCmd)
}

// recognizerFor maps the configured provider to the recognizer used on record.
func recognizerFor(cfg *config.Config) composer.RecognizerFunc {
	switch cfg.Speech.Provider {
	case "fake":
		return composer.StaticRecognizer(speech.NewFake(
			speech.FromStrings([][]string{{"Esta nota "}}),
			speech.FromStrings([][]string{{"Esta nota foi "}}),
			speech.FromStrings([][]string{{"Esta nota foi ditada."}}),
		))
	case "none":
		return composer.StaticRecognizer(speech.Unavailable{})
	default:
		return composer.BrowserRecognizer
	}
}

func serve(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	policy, err := composer.ParseSpeechErrorPolicy(cfg.Speech.ErrorPolicy)
	if err != nil {
		return err
	}
	speechCfg := speech.Config{
		Language:        cfg.Speech.Language,
		Continuous:      cfg.Speech.Continuous,
		MaxAlternatives: cfg.Speech.MaxAlternatives,
		InterimResults:  cfg.Speech.InterimResults,
	}

	// Wire dependencies
	noteSvc := notes.NewService(store)
	noteHandler := notes.NewHandler(noteSvc, logger)

	registry := composer.NewRegistry(noteSvc.CreateContent, logger,
		composer.WithSpeechConfig(speechCfg),
		composer.WithSpeechErrorPolicy(policy),
	)
	defer registry.CloseAll()
	composerHandler := composer.NewHandler(registry, recognizerFor(cfg), models.SpeechView{
		Provider:        cfg.Speech.Provider,
		Language:        speechCfg.Language,
		Continuous:      speechCfg.Continuous,
		MaxAlternatives: speechCfg.MaxAlternatives,
		InterimResults:  speechCfg.InterimResults,
	}, logger)

	go sweepComposers(ctx, registry, cfg.Composer.IdleTimeout)

	mcpSrv := mcpserver.NewServer(noteSvc, version)

	// HTTP router
	mux := http.NewServeMux()

	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))

	noteHandler.Register(mux)
	composerHandler.Register(mux)

	// MCP uses POST for requests and GET for SSE streams
	mcpHTTP := server.NewStreamableHTTPServer(mcpSrv)
	mux.Handle("POST /mcp", mcpHTTP)
	mux.Handle("GET /mcp", mcpHTTP)
	mux.Handle("DELETE /mcp", mcpHTTP)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Port, "store", cfg.Store, "speech", cfg.Speech.Provider)
	logger.Info("endpoints available",
		"web", "http://localhost:"+cfg.Port,
		"api", "http://localhost:"+cfg.Port+"/api",
		"mcp", "http://localhost:"+cfg.Port+"/mcp",
	)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// sweepInterval is how often the janitor checks for idle composers.
func sweepInterval(maxIdle time.Duration) time.Duration {
	return max(maxIdle/2, time.Second)
}

// sweepComposers closes abandoned dialogs until ctx is done.
func sweepComposers(ctx context.Context, reg *composer.Registry, maxIdle time.Duration) {
	ticker := time.NewTicker(sweepInterval(maxIdle))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.Sweep(maxIdle)
		}
	}
}
