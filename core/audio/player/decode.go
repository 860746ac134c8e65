package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/koscakluka/clipspeak/core/audio"
)

// decoder turns an encoded container into signed 16-bit little-endian
// interleaved PCM.
type decoder interface {
	io.Reader
	Format() audio.EncodingInfo
	Close() error
}

type containerDecoder func(r io.ReadSeeker) (decoder, error)

var containerDecoders = map[audio.Container]containerDecoder{
	audio.ContainerMP3: newMP3Decoder,
	audio.ContainerWAV: newWAVDecoder,
}

// detectionOrder tries the declared container first and then falls back
// through the remaining known containers.
func detectionOrder(declared audio.Container) []audio.Container {
	order := make([]audio.Container, 0, len(containerDecoders))
	if _, ok := containerDecoders[declared]; ok {
		order = append(order, declared)
	}
	for _, c := range audio.KnownContainers() {
		if c != declared {
			order = append(order, c)
		}
	}
	return order
}

// openDecoder rewinds r before every attempt; the first container that
// decodes wins.
func openDecoder(r io.ReadSeeker, declared audio.Container) (decoder, audio.Container, error) {
	order := detectionOrder(declared)

	var errs []error
	for _, container := range order {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, "", fmt.Errorf("failed to rewind audio stream: %w", err)
		}

		dec, err := containerDecoders[container](r)
		if err == nil {
			return dec, container, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", container, err))
	}

	return nil, "", &FormatError{Tried: order, Err: errors.Join(errs...)}
}

type mp3Decoder struct {
	*mp3.Decoder
}

func newMP3Decoder(r io.ReadSeeker) (decoder, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{Decoder: dec}, nil
}

// go-mp3 always produces 16-bit stereo.
func (d *mp3Decoder) Format() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: d.SampleRate(), Channels: 2, Format: audio.EncodingLinear16}
}

func (d *mp3Decoder) Close() error { return nil }

const wavFormatPCM = 1

type wavDecoder struct {
	dec      *wav.Decoder
	format   audio.EncodingInfo
	bitDepth int
	buf      *goaudio.IntBuffer
	pending  []byte
}

func newWAVDecoder(r io.ReadSeeker) (decoder, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("invalid wav file: %w", err)
		}
		return nil, errors.New("invalid wav file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported wav encoding %d", dec.WavAudioFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported wav bit depth %d", dec.BitDepth)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find wav pcm data: %w", err)
	}

	return &wavDecoder{
		dec:      dec,
		bitDepth: int(dec.BitDepth),
		format: audio.EncodingInfo{
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
			Format:     audio.EncodingLinear16,
		},
		buf: &goaudio.IntBuffer{Data: make([]int, 4096), Format: dec.Format()},
	}, nil
}

func (d *wavDecoder) Format() audio.EncodingInfo { return d.format }

func (d *wavDecoder) Read(p []byte) (int, error) {
	for len(d.pending) == 0 {
		n, err := d.dec.PCMBuffer(d.buf)
		if n > 0 {
			d.pending = d.appendLinear16(d.pending[:0], d.buf.Data[:n])
			break
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		return 0, io.EOF
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *wavDecoder) appendLinear16(dst []byte, samples []int) []byte {
	for _, sample := range samples {
		var v int16
		switch d.bitDepth {
		case 8:
			// 8-bit wav samples are unsigned
			v = int16((sample - 128) << 8)
		case 16:
			v = int16(sample)
		case 24:
			v = int16(sample >> 8)
		case 32:
			v = int16(sample >> 16)
		}
		dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
	}
	return dst
}

func (d *wavDecoder) Close() error { return nil }
