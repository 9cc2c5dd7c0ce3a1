package audio

import (
	"encoding/binary"
	"math"
)

// Clip is one mono channel of a recording as normalized float samples in
// [-1, 1].
type Clip struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Window returns the samples in [start, start+length) seconds, clipped to
// the bounds of the clip.
func (c *Clip) Window(start, length float64) []float64 {
	if c == nil || c.SampleRate <= 0 || length <= 0 {
		return nil
	}
	from := int(math.Floor(start * float64(c.SampleRate)))
	to := from + int(math.Ceil(length*float64(c.SampleRate)))
	if from < 0 {
		from = 0
	}
	if to > len(c.Samples) {
		to = len(c.Samples)
	}
	if from >= to {
		return nil
	}
	return c.Samples[from:to]
}

// PCM16 encodes the clip as 16-bit signed little-endian PCM (LINEAR16).
func (c *Clip) PCM16() []byte {
	if c == nil {
		return nil
	}
	out := make([]byte, 2*len(c.Samples))
	for i, s := range c.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(s*math.MaxInt16))))
	}
	return out
}

// RMS returns the root mean square amplitude of samples, 0 for none.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
