package audio

import (
	"encoding/binary"
	"testing"
)

func samples(values ...int16) []byte {
	pcm := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func sampleAt(pcm []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
}

func TestClampVolume(t *testing.T) {
	cases := map[float64]float64{1.7: 1, -0.2: 0, 0.35: 0.35, 0: 0, 1: 1}
	for in, want := range cases {
		if got := ClampVolume(in); got != want {
			t.Fatalf("expected ClampVolume(%v) = %v, got %v", in, want, got)
		}
	}
}

func TestApplyGainScalesSamples(t *testing.T) {
	pcm := samples(1000, -1000, 32767)
	ApplyGain(pcm, 0.5)

	if got := sampleAt(pcm, 0); got != 500 {
		t.Fatalf("expected first sample 500, got %d", got)
	}
	if got := sampleAt(pcm, 1); got != -500 {
		t.Fatalf("expected second sample -500, got %d", got)
	}
	if got := sampleAt(pcm, 2); got != 16384 {
		t.Fatalf("expected third sample 16384, got %d", got)
	}
}

func TestApplyGainFullVolumeIsUntouched(t *testing.T) {
	pcm := samples(1234, -4321)
	ApplyGain(pcm, 1)

	if sampleAt(pcm, 0) != 1234 || sampleAt(pcm, 1) != -4321 {
		t.Fatalf("expected samples to be untouched at full volume")
	}
}

func TestApplyGainZeroSilences(t *testing.T) {
	pcm := samples(1234, -4321)
	ApplyGain(pcm, 0)

	for i := range pcm {
		if pcm[i] != 0 {
			t.Fatalf("expected silence, got byte %d at %d", pcm[i], i)
		}
	}
}

func TestParseContainer(t *testing.T) {
	if c, ok := ParseContainer(" MP3 "); !ok || c != ContainerMP3 {
		t.Fatalf("expected mp3, got %q (%t)", c, ok)
	}
	if _, ok := ParseContainer("opus"); ok {
		t.Fatalf("expected opus to be unknown")
	}
}
