package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/koscakluka/clipspeak/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const renderChunkSize = 8192

// Device hands out an [Output] for every playback session.
type Device interface {
	Open(format audio.EncodingInfo) (Output, error)
}

// Output renders one session worth of signed 16-bit little-endian PCM.
type Output interface {
	// Write queues pcm for rendering, blocking while the device buffer is
	// full. Implementations must copy pcm before returning.
	Write(ctx context.Context, pcm []byte) error
	// Drain blocks until everything written so far has been rendered.
	Drain(ctx context.Context) error
	// SetVolume changes the gain applied to audio that has not been rendered
	// yet. v is already clamped to [0, 1].
	SetVolume(v float64)
	// Close stops rendering immediately and releases the device handle.
	Close() error
}

// Player decodes audio sources and renders them through a [Device]. At most
// one session is active at any time.
type Player struct {
	device Device

	mu      sync.Mutex
	volume  float64
	playID  uint64
	pending *pendingPlay
	session *session

	preparing sync.WaitGroup
}

// pendingPlay is a Play call that is still buffering or detecting the
// container.
type pendingPlay struct {
	cancel context.CancelFunc
	source *audio.Source
}

type session struct {
	id        uint64
	ctx       context.Context
	cancel    context.CancelFunc
	output    Output
	decoder   decoder
	source    *audio.Source
	container audio.Container
	done      chan struct{}
}

func New(device Device) *Player {
	return &Player{device: device, volume: 1}
}

// Play stops whatever is playing and starts preparing source for playback.
//
// Buffering, container detection and opening the device happen in the
// background; the outcome is reported through the callbacks in opts. Play
// only returns an error when there is nothing to play.
func (p *Player) Play(source *audio.Source, opts ...PlayOption) error {
	if source == nil || source.Body == nil {
		return ErrNoSource
	}

	options := PlayOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.playID++
	id := p.playID
	p.pending = &pendingPlay{cancel: cancel, source: source}
	p.mu.Unlock()

	p.preparing.Add(1)
	go func() {
		defer p.preparing.Done()
		defer cancel()
		p.prepare(ctx, id, source, options)
	}()

	return nil
}

func (p *Player) prepare(ctx context.Context, id uint64, source *audio.Source, opts PlayOptions) {
	ctx, span := tracer.Start(ctx, "prepare playback")
	defer span.End()
	span.SetAttributes(attribute.String("audio.declared_container", source.Format.String()))

	fail := func(err error) {
		_ = source.Close()
		if ctx.Err() != nil || !p.isCurrent(id) {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("playback could not start", slog.String("error", err.Error()))
		opts.failed(err)
	}

	stream, err := seekable(source.Body)
	if err != nil {
		fail(&FormatError{Tried: detectionOrder(source.Format), Err: fmt.Errorf("failed to buffer audio stream: %w", err)})
		return
	}
	if ctx.Err() != nil {
		_ = source.Close()
		return
	}

	dec, container, err := openDecoder(stream, source.Format)
	if err != nil {
		fail(err)
		return
	}
	span.SetAttributes(attribute.String("audio.container", container.String()))

	p.mu.Lock()
	if id != p.playID {
		p.mu.Unlock()
		_ = dec.Close()
		_ = source.Close()
		return
	}

	output, err := p.device.Open(dec.Format())
	if err != nil {
		p.pending = nil
		p.mu.Unlock()
		_ = dec.Close()
		fail(&DeviceError{Op: "open", Err: err})
		return
	}
	output.SetVolume(p.volume)

	sessionCtx, sessionCancel := context.WithCancel(context.Background())
	s := &session{
		id:        id,
		ctx:       sessionCtx,
		cancel:    sessionCancel,
		output:    output,
		decoder:   dec,
		source:    source,
		container: container,
		done:      make(chan struct{}),
	}
	p.pending = nil
	p.session = s
	p.mu.Unlock()

	logger.Debug("playback started",
		slog.String("container", container.String()),
		slog.Int("sample_rate", dec.Format().SampleRate),
		slog.Int("channels", dec.Format().Channels))
	opts.started(container)

	go p.run(s, opts)
}

func (p *Player) run(s *session, opts PlayOptions) {
	renderErr := s.render()
	stopped := s.ctx.Err() != nil
	s.release()

	p.mu.Lock()
	if p.session == s {
		p.session = nil
	}
	p.mu.Unlock()
	close(s.done)

	if renderErr != nil {
		logger.Warn("playback ended with error", slog.String("error", renderErr.Error()))
	}
	opts.finished(Report{Container: s.container, Stopped: stopped, Err: renderErr})
}

// Stop halts the active session, if any, and waits until its device and
// decoder have been released. A Play that is still being prepared is
// abandoned. Safe to call at any time.
func (p *Player) Stop() {
	p.mu.Lock()
	p.playID++
	pending := p.pending
	p.pending = nil
	s := p.session
	p.session = nil
	p.mu.Unlock()

	if pending != nil {
		pending.cancel()
		// Unblocks a read that is still buffering the stream
		_ = pending.source.Close()
	}

	if s != nil {
		s.cancel()
		<-s.done
	}
}

// Close stops playback and waits for background preparation to wind down.
func (p *Player) Close() {
	p.Stop()
	p.preparing.Wait()
}

// SetVolume clamps v to [0, 1], keeps it for future sessions and applies it
// to the active one.
func (p *Player) SetVolume(v float64) {
	v = audio.ClampVolume(v)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	if p.session != nil {
		p.session.output.SetVolume(v)
	}
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// IsPlaying reports whether a session is currently rendering.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

func (p *Player) isCurrent(id uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playID == id
}

func (s *session) render() error {
	buf := make([]byte, renderChunkSize)
	for {
		if s.ctx.Err() != nil {
			return nil
		}

		n, err := s.decoder.Read(buf)
		if n > 0 {
			if writeErr := s.output.Write(s.ctx, buf[:n]); writeErr != nil {
				if s.ctx.Err() != nil {
					return nil
				}
				return &DeviceError{Op: "write", Err: writeErr}
			}
		}

		if errors.Is(err, io.EOF) {
			if drainErr := s.output.Drain(s.ctx); drainErr != nil && s.ctx.Err() == nil {
				return &DeviceError{Op: "drain", Err: drainErr}
			}
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to decode %s stream: %w", s.container, err)
		}
	}
}

func (s *session) release() {
	if err := s.output.Close(); err != nil {
		logger.Warn("failed to close audio output", slog.String("error", err.Error()))
	}
	_ = s.decoder.Close()
	_ = s.source.Close()
	s.cancel()
}

// seekable returns body itself when it can rewind, otherwise the fully
// buffered stream. Container probing needs to rewind between attempts.
func seekable(body io.Reader) (io.ReadSeeker, error) {
	if rs, ok := body.(io.ReadSeeker); ok {
		return rs, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
