package audio

import "math"

// Region is a span of voiced audio in seconds.
type Region struct {
	Start float64
	End   float64
}

// FrameEnergies returns the RMS of consecutive frames of about frameSeconds
// each, and the actual frame length. Frames hold a whole number of samples,
// so frame i starts at i times the returned length. The last partial frame
// is included.
func FrameEnergies(c *Clip, frameSeconds float64) ([]float64, float64) {
	if c == nil || c.SampleRate <= 0 || frameSeconds <= 0 {
		return nil, frameSeconds
	}
	size := int(math.Round(frameSeconds * float64(c.SampleRate)))
	if size < 1 {
		size = 1
	}
	out := make([]float64, 0, len(c.Samples)/size+1)
	for off := 0; off < len(c.Samples); off += size {
		end := off + size
		if end > len(c.Samples) {
			end = len(c.Samples)
		}
		out = append(out, RMS(c.Samples[off:end]))
	}
	return out, float64(size) / float64(c.SampleRate)
}

// VoicedRegions groups frames whose energy exceeds threshold into regions.
// Regions separated by less than minGap seconds are joined and regions
// shorter than minLength seconds are dropped.
func VoicedRegions(c *Clip, frameSeconds, threshold, minGap, minLength float64) []Region {
	energies, frame := FrameEnergies(c, frameSeconds)
	var regions []Region

	inVoice := false
	var start float64
	for i, e := range energies {
		t := float64(i) * frame
		switch {
		case e > threshold && !inVoice:
			inVoice, start = true, t
		case e <= threshold && inVoice:
			inVoice = false
			regions = appendRegion(regions, Region{Start: start, End: t}, minGap)
		}
	}
	if inVoice {
		regions = appendRegion(regions, Region{Start: start, End: c.Duration()}, minGap)
	}

	kept := regions[:0]
	for _, r := range regions {
		if r.End-r.Start >= minLength {
			kept = append(kept, r)
		}
	}
	return kept
}

func appendRegion(regions []Region, r Region, minGap float64) []Region {
	if n := len(regions); n > 0 && r.Start-regions[n-1].End < minGap {
		regions[n-1].End = r.End
		return regions
	}
	return append(regions, r)
}
