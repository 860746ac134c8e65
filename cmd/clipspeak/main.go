package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/clipspeak/core"
	"github.com/koscakluka/clipspeak/core/audio/player"
	"github.com/koscakluka/clipspeak/internal/config"
	"github.com/koscakluka/clipspeak/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var version = "0.1.0-dev"

const (
	serviceName     = "clipspeak"
	shutdownTimeout = 5 * time.Second
)

func main() {
	var (
		configPath  string
		envPath     string
		initPath    string
		headless    bool
		listVoices  bool
		printSchema bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (defaults and CLIPSPEAK_* environment when empty)")
	flag.StringVar(&envPath, "env", ".env", "Optional file of CLIPSPEAK_* environment overrides")
	flag.StringVar(&initPath, "init", "", "Write the effective configuration to this path and exit")
	flag.BoolVar(&headless, "headless", false, "Run without the terminal UI")
	flag.BoolVar(&listVoices, "voices", false, "Print the voices offered by the speech endpoint and exit")
	flag.BoolVar(&printSchema, "schema", false, "Print the configuration JSON schema and exit")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	if printSchema {
		schema, err := config.SchemaJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(schema))
		return
	}

	if err := config.LoadEnvFile(envPath); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if initPath != "" {
		if err := config.Save(initPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if listVoices {
		if err := printVoices(ctx, cfg, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, serviceName, version, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up telemetry: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	runErr := run(ctx, cfg, headless)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush telemetry: %v\n", err)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "clipspeak exited with error: %v\n", runErr)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, headless bool) (err error) {
	ctx, span := tracer.Start(ctx, "run clipspeak")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "clipspeak exited with error")
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("clipspeak.source_mode", cfg.Source.Mode),
		attribute.String("clipspeak.playback_backend", cfg.Playback.Backend),
		attribute.Bool("clipspeak.headless", headless),
	)

	settings, err := settingsFromConfig(cfg)
	if err != nil {
		return err
	}

	device, err := newOutputDevice(cfg.Playback)
	if err != nil {
		return err
	}
	defer device.Close()

	audioPlayer := player.New(device)
	defer audioPlayer.Close()

	source, err := newTextSource(cfg.Source)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := source.close(); closeErr != nil {
			logger.Warn("failed to close text source", slog.String("error", closeErr.Error()))
		}
	}()

	coordinator := orchestration.NewCoordinator(
		orchestration.WithTextChangeSource(source),
		orchestration.WithSpeechClient(newSpeechClient(cfg.Speech)),
		orchestration.WithAudioPlayer(audioPlayer),
		orchestration.WithSettings(settings),
	)
	defer coordinator.Close()

	logger.Info("clipspeak starting",
		slog.String("version", version),
		slog.String("source", cfg.Source.Mode),
		slog.String("backend", cfg.Playback.Backend),
		slog.String("endpoint", settings.Endpoint),
	)

	if headless {
		return runHeadless(ctx, coordinator)
	}
	return runTUI(ctx, coordinator)
}

func runHeadless(ctx context.Context, coordinator *orchestration.Coordinator) error {
	err := coordinator.Orchestrate(ctx,
		orchestration.WithProcessingStartedCallback(func(text string) {
			logger.Info("speaking clipboard text", slog.Int("length", len(text)))
		}),
		orchestration.WithFetchErrorCallback(func(err error) {
			logger.Error("speech synthesis failed", slog.String("error", err.Error()))
		}),
		orchestration.WithPlaybackErrorCallback(func(err error) {
			logger.Error("playback failed", slog.String("error", err.Error()))
		}),
	)
	if err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown requested")
	return nil
}

func runTUI(ctx context.Context, coordinator *orchestration.Coordinator) error {
	forward, pipelineEvents := eventForwarder()
	if err := coordinator.Orchestrate(ctx, orchestration.WithEventHandler(forward)); err != nil {
		return err
	}

	program := tea.NewProgram(newModel(coordinator, pipelineEvents), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

func printVoices(ctx context.Context, cfg config.Config, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, voicesTimeout)
	defer cancel()

	voices := newSpeechClient(cfg.Speech).FetchVoices(ctx)
	if len(voices) == 0 {
		return errors.New("speech endpoint offered no voices")
	}
	for _, voice := range voices {
		fmt.Fprintln(w, voice)
	}
	return nil
}
