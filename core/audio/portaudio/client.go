package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/core/audio/player"
)

const framesPerBuffer = 1024

var errClosed = errors.New("playback stream closed")

// Client is a [player.Device] writing to the default PortAudio output.
type Client struct{}

func NewClient() (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &Client{}, nil
}

func (c *Client) Open(format audio.EncodingInfo) (player.Output, error) {
	if format.IsZero() {
		format = audio.GetDefaultEncodingInfo()
	}

	out := make([]int16, framesPerBuffer*format.Channels)
	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), framesPerBuffer, out)
	if err != nil {
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	s := &outputStream{stream: stream, out: out}
	s.volume.Store(math.Float64bits(1))
	return s, nil
}

func (c *Client) Close() {
	_ = portaudio.Terminate()
}

type outputStream struct {
	stream        *portaudio.Stream
	out           []int16
	leftoverAudio []byte
	volume        atomic.Uint64

	mu     sync.Mutex
	closed bool
}

func (s *outputStream) Write(ctx context.Context, pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	bufferSize := len(s.out) * 2
	s.leftoverAudio = append(s.leftoverAudio, pcm...)
	for len(s.leftoverAudio) >= bufferSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeBuffer(s.leftoverAudio[:bufferSize]); err != nil {
			return err
		}
		s.leftoverAudio = s.leftoverAudio[bufferSize:]
	}
	return nil
}

// Drain pads the last partial buffer with silence and waits until the
// stream played everything.
func (s *outputStream) Drain(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	if len(s.leftoverAudio) > 0 {
		last := make([]byte, len(s.out)*2)
		copy(last, s.leftoverAudio)
		s.leftoverAudio = nil
		if err := s.writeBuffer(last); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Stop returns once all queued buffers were rendered
	return s.stream.Stop()
}

func (s *outputStream) SetVolume(v float64) {
	s.volume.Store(math.Float64bits(v))
}

func (s *outputStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.leftoverAudio = nil

	// Abort drops pending buffers instead of playing them out
	_ = s.stream.Abort()
	return s.stream.Close()
}

// writeBuffer must be called with mu held and exactly one buffer of audio.
func (s *outputStream) writeBuffer(pcm []byte) error {
	gain := math.Float64frombits(s.volume.Load())
	scaled := make([]byte, len(pcm))
	copy(scaled, pcm)
	audio.ApplyGain(scaled, gain)

	for i := range s.out {
		s.out[i] = int16(binary.LittleEndian.Uint16(scaled[i*2:]))
	}

	if err := s.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
		return fmt.Errorf("failed to write to PortAudio stream: %w", err)
	}
	return nil
}
