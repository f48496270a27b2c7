package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/p-shah256/resume-tailor/internal/api"
	"github.com/p-shah256/resume-tailor/internal/bot"
	"github.com/p-shah256/resume-tailor/internal/config"
	"github.com/p-shah256/resume-tailor/internal/extraction"
	"github.com/p-shah256/resume-tailor/internal/jobprocessor"
	"github.com/p-shah256/resume-tailor/internal/llm"
	"github.com/p-shah256/resume-tailor/internal/storage"
	"github.com/p-shah256/resume-tailor/internal/tailor"
	"github.com/p-shah256/resume-tailor/internal/vlm"
	"github.com/p-shah256/resume-tailor/pkg/logger"
)

func main() {
	logger.Setup("info", "color")

	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.BindFlags(flags)
	flags.Parse(os.Args[1:])

	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded", "error", err)
	}

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ApplyFlags(flags); err != nil {
		slog.Error("Invalid command-line flags", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	slog.Info("Starting Resume Tailor web application...", "llm_provider", cfg.LLM.Provider)

	if err := run(cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	generators, err := llm.NewFactory(cfg.LLMFactoryConfig())
	if err != nil {
		return err
	}

	parser := vlm.NewClient(vlm.Config{
		BaseURL:      cfg.VLM.BaseURL,
		Model:        cfg.VLM.Model,
		Domain:       cfg.VLM.Domain,
		PollInterval: cfg.VLM.PollInterval,
		MaxWait:      cfg.VLM.MaxWait,
	})
	fetcher := extraction.NewFetcher(extraction.Options{
		Timeout:      cfg.Fetch.Timeout,
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})

	processor := jobprocessor.New(parser, fetcher, generators,
		jobprocessor.WithRepository(repo),
		jobprocessor.WithTailorOptions(tailor.WithCallTimeout(cfg.LLM.CallTimeout)),
	)

	if cfg.Discord.Token != "" {
		b, err := bot.New(bot.Config{
			Token:     cfg.Discord.Token,
			GeminiKey: cfg.Discord.GeminiKey,
			VLMKey:    cfg.Discord.VLMKey,
			MaxUpload: cfg.Server.MaxUploadBytes,
			Timeout:   cfg.Tailor.Timeout,
		}, processor)
		if err != nil {
			return err
		}
		if err := b.Start(); err != nil {
			return err
		}
		defer b.Close()
	}

	server := api.NewServer(processor, api.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		TailorTimeout:  cfg.Tailor.Timeout,
		CORSOrigin:     cfg.Server.CORSOrigin,
	})
	httpServer := server.HTTPServer(cfg.Addr(), cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	slog.Info("Server initialized", "port", cfg.Server.Port)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openRepository(cfg *config.Config) (storage.Repository, error) {
	if cfg.Database.URL == "" {
		slog.Info("Keeping tailored resumes in memory")
		return storage.NewMemoryRepository(), nil
	}
	repo, err := storage.OpenPostgres(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
