package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	orchestration "github.com/koscakluka/clipspeak/core"
	"github.com/koscakluka/clipspeak/core/audio/miniaudio"
	"github.com/koscakluka/clipspeak/core/audio/player"
	"github.com/koscakluka/clipspeak/core/audio/portaudio"
	"github.com/koscakluka/clipspeak/core/textsource/clipboard"
	natssource "github.com/koscakluka/clipspeak/core/textsource/nats"
	"github.com/koscakluka/clipspeak/core/texttospeech/openai"
	"github.com/koscakluka/clipspeak/internal/config"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const embeddedNATSStartTimeout = 5 * time.Second

// outputDevice is an audio backend that has to be released on exit.
type outputDevice interface {
	player.Device
	Close()
}

func newOutputDevice(cfg config.PlaybackConfig) (outputDevice, error) {
	switch cfg.Backend {
	case "miniaudio":
		device, err := miniaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to initialise miniaudio: %w", err)
		}
		return device, nil
	case "portaudio":
		device, err := portaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to initialise portaudio: %w", err)
		}
		return device, nil
	default:
		return nil, fmt.Errorf("unknown playback backend %q", cfg.Backend)
	}
}

func newSpeechClient(cfg config.SpeechConfig) *openai.Client {
	return openai.NewClient(
		openai.WithEndpoint(cfg.Endpoint),
		openai.WithAPIKey(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithTimeout(cfg.Timeout()),
	)
}

// textSource is a source together with whatever it needs torn down after
// the coordinator stopped it.
type textSource struct {
	orchestration.TextChangeSource
	close func() error
}

func newTextSource(cfg config.SourceConfig) (*textSource, error) {
	switch cfg.Mode {
	case "clipboard":
		return &textSource{
			TextChangeSource: clipboard.New(clipboard.WithPollInterval(cfg.PollInterval())),
			close:            func() error { return nil },
		}, nil

	case "nats":
		var embedded *server.Server
		url := cfg.NATSURL
		if cfg.NATSEmbedded {
			var err error
			embedded, err = startEmbeddedNATS(cfg.NATSPort)
			if err != nil {
				return nil, err
			}
			url = embedded.ClientURL()
		}

		source, err := natssource.Connect(url, cfg.NATSSubject,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Warn("NATS disconnected", slog.String("error", err.Error()))
				}
			}),
			nats.ReconnectHandler(func(conn *nats.Conn) {
				logger.Info("NATS reconnected", slog.String("url", conn.ConnectedUrl()))
			}),
		)
		if err != nil {
			shutdownEmbeddedNATS(embedded)
			return nil, err
		}

		return &textSource{
			TextChangeSource: source,
			close: func() error {
				err := source.Close()
				shutdownEmbeddedNATS(embedded)
				return err
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown source mode %q", cfg.Mode)
	}
}

func startEmbeddedNATS(port int) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(embeddedNATSStartTimeout) {
		ns.Shutdown()
		return nil, errors.New("embedded NATS server failed to start in time")
	}

	logger.Info("embedded NATS server started", slog.String("url", ns.ClientURL()))
	return ns, nil
}

func shutdownEmbeddedNATS(ns *server.Server) {
	if ns == nil {
		return
	}
	ns.Shutdown()
	ns.WaitForShutdown()
}
