package miniaudio

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/core/audio/player"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/clipspeak/core/audio/miniaudio"

var logger = otelslog.NewLogger(scopeName)

// Client is a [player.Device] backed by miniaudio. Every playback session
// gets its own device configured for the decoded stream.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", slog.String("message", message)) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	return &Client{audioContext: audioCtx}, nil
}

func (c *Client) Open(format audio.EncodingInfo) (player.Output, error) {
	if format.IsZero() {
		format = audio.GetDefaultEncodingInfo()
	}

	playback := &playbackClient{}
	if err := playback.Init(c.audioContext, format); err != nil {
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := playback.Start(); err != nil {
		_ = playback.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	return playback, nil
}

func (c *Client) Close() {
	if c.audioContext == nil {
		return
	}
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
	c.audioContext = nil
}
