package audio

import (
	"encoding/binary"
	"math"
)

// ClampVolume limits v to [0, 1]. NaN is treated as silence.
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ApplyGain scales signed 16-bit little-endian samples in place. A trailing
// odd byte is left untouched.
func ApplyGain(pcm []byte, gain float64) {
	if gain >= 1 {
		return
	}
	if gain <= 0 {
		clear(pcm)
		return
	}

	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		scaled := int16(math.Round(float64(sample) * gain))
		binary.LittleEndian.PutUint16(pcm[i:], uint16(scaled))
	}
}
