package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/clipspeak/core/audio"
)

var errClosed = errors.New("playback device closed")

// maxBufferedSeconds bounds how far ahead of the device Write may queue
const maxBufferedSeconds = 1

type playbackClient struct {
	device *malgo.Device
	config malgo.DeviceConfig

	leftoverAudio []byte
	maxBuffered   int
	marks         []playbackMark
	closed        bool
	volume        atomic.Uint64

	// space is signalled whenever the device consumed queued audio
	space chan struct{}

	mu      sync.Mutex
	audioMu sync.Mutex
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, format audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(format.SampleRate)
	channels := format.Channels
	deviceFormat := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(deviceFormat) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = deviceFormat
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.maxBuffered = format.BytesPerSecond() * maxBufferedSeconds
	c.space = make(chan struct{}, 1)
	c.volume.Store(math.Float64bits(1))

	var err error
	if c.device, err = malgo.InitDevice(
		audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Write(ctx context.Context, pcm []byte) error {
	for {
		c.audioMu.Lock()
		if c.closed {
			c.audioMu.Unlock()
			return errClosed
		}
		if len(c.leftoverAudio) < c.maxBuffered {
			c.leftoverAudio = append(c.leftoverAudio, pcm...)
			c.audioMu.Unlock()
			return nil
		}
		c.audioMu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.space:
		}
	}
}

func (c *playbackClient) Drain(ctx context.Context) error {
	drained := make(chan struct{})
	if err := c.Mark("drain", func(string) { close(drained) }); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-drained:
		return nil
	}
}

func (c *playbackClient) SetVolume(v float64) {
	c.volume.Store(math.Float64bits(v))
}

func (c *playbackClient) Mark(mark string, callback func(string)) error {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	if c.closed {
		return errClosed
	}
	c.marks = append(c.marks, playbackMark{
		name:     mark,
		position: len(c.leftoverAudio),
		callback: callback,
	})
	return nil
}

// Close stops the device and releases it. Must not be called with audioMu
// held, stopping waits for the data callback to return.
func (c *playbackClient) Close() error {
	c.audioMu.Lock()
	c.closed = true
	c.leftoverAudio = nil
	c.marks = nil
	c.audioMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return nil
	}

	var err error
	if c.device.IsStarted() {
		if stopErr := c.device.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop playback device: %w", stopErr)
		}
	}
	c.device.Uninit()
	c.device = nil

	return err
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := min(int(frameCount)*bytesPerFrame, len(pOutput))

		c.audioMu.Lock()
		consumed := copy(pOutput[:need], c.leftoverAudio)
		c.leftoverAudio = c.leftoverAudio[consumed:]
		passed := c.processMarks(consumed)
		c.audioMu.Unlock()

		audio.ApplyGain(pOutput[:consumed], math.Float64frombits(c.volume.Load()))
		clear(pOutput[consumed:need])

		select {
		case c.space <- struct{}{}:
		default:
		}

		if len(passed) > 0 {
			go func() {
				for _, mark := range passed {
					mark.callback(mark.name)
				}
			}()
		}
	}
}

// processMarks must be called with audioMu held
func (c *playbackClient) processMarks(consumed int) []playbackMark {
	passedMarks := 0
	for i, mark := range c.marks {
		if mark.position > consumed {
			c.marks[i].position -= consumed
		} else {
			passedMarks++
		}
	}
	if passedMarks == 0 {
		return nil
	}

	passed := c.marks[:passedMarks:passedMarks]
	c.marks = c.marks[passedMarks:]
	return passed
}
