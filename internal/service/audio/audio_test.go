package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// makeWAV builds a 16-bit PCM WAV file. Each frame holds one sample per channel.
func makeWAV(channels, rate int, frames [][]int16) []byte {
	var data bytes.Buffer
	for _, f := range frames {
		for _, s := range f {
			binary.Write(&data, binary.LittleEndian, s)
		}
	}

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+data.Len()))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(rate))
	binary.Write(&b, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(data.Len()))
	b.Write(data.Bytes())
	return b.Bytes()
}

func stereoFrames(n int, left, right int16) [][]int16 {
	frames := make([][]int16, n)
	for i := range frames {
		frames[i] = []int16{left, right}
	}
	return frames
}

func TestDecode_Stereo(t *testing.T) {
	src := NewSource(DefaultLimits())
	data := makeWAV(2, 8000, stereoFrames(8000, 16384, 0))

	user, agent, err := src.Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent == nil {
		t.Fatal("expected an agent clip for a stereo recording")
	}
	if user.SampleRate != 8000 || len(user.Samples) != 8000 || len(agent.Samples) != 8000 {
		t.Errorf("unexpected clip shape: rate=%d user=%d agent=%d", user.SampleRate, len(user.Samples), len(agent.Samples))
	}
	if math.Abs(user.Samples[0]-0.5) > 0.01 {
		t.Errorf("expected left channel ~0.5, got %v", user.Samples[0])
	}
	if agent.Samples[0] != 0 {
		t.Errorf("expected silent right channel, got %v", agent.Samples[0])
	}
	if math.Abs(user.Duration()-1.0) > 1e-9 {
		t.Errorf("expected 1s duration, got %v", user.Duration())
	}
}

func TestDecode_Mono(t *testing.T) {
	src := NewSource(DefaultLimits())
	frames := make([][]int16, 100)
	for i := range frames {
		frames[i] = []int16{1000}
	}

	user, agent, err := src.Decode(makeWAV(1, 16000, frames))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || len(user.Samples) != 100 {
		t.Errorf("expected a 100-sample user clip, got %+v", user)
	}
	if agent != nil {
		t.Error("expected nil agent clip for mono recording")
	}
}

func TestDecode_Errors(t *testing.T) {
	quad := makeWAV(4, 8000, [][]int16{{1, 2, 3, 4}})

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"four channels", quad, ErrUnsupportedChannels},
		{"not a wav", []byte("ID3 this is an mp3"), ErrNotWAV},
		{"empty", nil, ErrNotWAV},
		{"missing fmt chunk", []byte("RIFF\x04\x00\x00\x00WAVE"), ErrNotWAV},
	}

	src := NewSource(DefaultLimits())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := src.Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecode_DurationLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxDuration = time.Second
	src := NewSource(limits)

	_, _, err := src.Decode(makeWAV(2, 8000, stereoFrames(8000*3, 100, 100)))
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
}

func TestSplit_HTTP(t *testing.T) {
	data := makeWAV(2, 8000, stereoFrames(800, 100, 200))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call.wav" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	src := NewSource(DefaultLimits())
	user, agent, err := src.Split(context.Background(), srv.URL+"/call.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || agent == nil {
		t.Fatal("expected both channels")
	}

	if _, _, err := src.Split(context.Background(), srv.URL+"/missing.wav"); err == nil {
		t.Error("expected error for 404 download")
	}
}

func TestSplit_SizeLimit(t *testing.T) {
	data := makeWAV(2, 8000, stereoFrames(800, 100, 200))
	path := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	limits := DefaultLimits()
	limits.MaxAudioBytes = 100
	_, _, err := NewSource(limits).Split(context.Background(), "file://"+path)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}

	if _, _, err := NewSource(DefaultLimits()).Split(context.Background(), path); err != nil {
		t.Errorf("expected local path to load, got %v", err)
	}
}

func TestClip_Window(t *testing.T) {
	c := &Clip{SampleRate: 10, Samples: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}

	tests := []struct {
		name          string
		start, length float64
		want          int
	}{
		{"inside", 0.2, 0.3, 3},
		{"past end is clipped", 0.8, 1.0, 2},
		{"negative start is clipped", -0.2, 0.5, 3},
		{"beyond clip", 2.0, 1.0, 0},
		{"zero length", 0.1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(c.Window(tt.start, tt.length)); got != tt.want {
				t.Errorf("expected %d samples, got %d", tt.want, got)
			}
		})
	}

	var nilClip *Clip
	if nilClip.Window(0, 1) != nil || nilClip.Duration() != 0 {
		t.Error("nil clip should behave as empty")
	}
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Error("expected zero RMS for no samples")
	}
	if got := RMS([]float64{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %v", got)
	}
}

func TestClip_PCM16(t *testing.T) {
	c := &Clip{SampleRate: 8000, Samples: []float64{0, 1, -1, 2}}
	pcm := c.PCM16()
	if len(pcm) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(pcm))
	}
	if v := int16(binary.LittleEndian.Uint16(pcm[2:])); v != math.MaxInt16 {
		t.Errorf("expected full scale, got %d", v)
	}
	if v := int16(binary.LittleEndian.Uint16(pcm[4:])); v != -math.MaxInt16 {
		t.Errorf("expected negative full scale, got %d", v)
	}
	if v := int16(binary.LittleEndian.Uint16(pcm[6:])); v != math.MaxInt16 {
		t.Errorf("expected clipping to full scale, got %d", v)
	}
}

func TestEnergyChecker(t *testing.T) {
	loud := make([]float64, 20)
	quiet := make([]float64, 20)
	for i := range loud {
		loud[i] = 0.3
		quiet[i] = 0.001
	}
	user := &Clip{SampleRate: 10, Samples: loud}
	agentLoud := &Clip{SampleRate: 10, Samples: loud}
	agentQuiet := &Clip{SampleRate: 10, Samples: quiet}

	if !NewEnergyChecker(user, agentLoud, 0, 0).BothActive(0.5) {
		t.Error("expected both channels active")
	}
	if NewEnergyChecker(user, agentQuiet, 0, 0).BothActive(0.5) {
		t.Error("expected quiet agent channel to fail the check")
	}
	if NewEnergyChecker(user, agentLoud, 0, 0).BothActive(5) {
		t.Error("expected no energy beyond the end of the clips")
	}
}

func TestVoicedRegions(t *testing.T) {
	// 10 frames of 0.1s at 100Hz: voiced 0.2-0.4, short gap, voiced 0.5-0.6, long gap, voiced 0.9-1.0
	samples := make([]float64, 100)
	voiced := func(from, to int) {
		for i := from; i < to; i++ {
			samples[i] = 0.5
		}
	}
	voiced(20, 40)
	voiced(50, 60)
	voiced(90, 100)
	c := &Clip{SampleRate: 100, Samples: samples}

	regions := VoicedRegions(c, 0.1, 0.1, 0.15, 0)
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %+v", regions)
	}
	if math.Abs(regions[0].Start-0.2) > 1e-9 || math.Abs(regions[0].End-0.6) > 1e-9 {
		t.Errorf("expected first region 0.2-0.6, got %+v", regions[0])
	}
	if math.Abs(regions[1].Start-0.9) > 1e-9 || math.Abs(regions[1].End-1.0) > 1e-9 {
		t.Errorf("expected second region 0.9-1.0, got %+v", regions[1])
	}

	if got := VoicedRegions(c, 0.1, 0.1, 0.15, 0.3); len(got) != 1 {
		t.Errorf("expected short region dropped, got %+v", got)
	}
	if got := VoicedRegions(nil, 0.1, 0.1, 0, 0); len(got) != 0 {
		t.Errorf("expected no regions for nil clip, got %+v", got)
	}
}

func TestFrameEnergies_FrameLength(t *testing.T) {
	tests := []struct {
		rate  int
		frame float64
	}{
		{8000, 0.01},
		{22050, 0.01},
		{11025, 0.01},
		{44100, 0.015},
		{100, 0.001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dHz/%vs", tt.rate, tt.frame), func(t *testing.T) {
			c := &Clip{SampleRate: tt.rate, Samples: make([]float64, tt.rate+7)}
			energies, frame := FrameEnergies(c, tt.frame)

			size := frame * float64(tt.rate)
			if math.Abs(size-math.Round(size)) > 1e-6 || size < 1 {
				t.Fatalf("frame %v is not a whole number of samples (%v)", frame, size)
			}
			if size > 1 && math.Abs(frame-tt.frame) > 0.5/float64(tt.rate)+1e-12 {
				t.Errorf("frame %v too far from requested %v", frame, tt.frame)
			}
			n := int(math.Round(size))
			if want := (len(c.Samples) + n - 1) / n; len(energies) != want {
				t.Errorf("expected %d frames, got %d", want, len(energies))
			}
		})
	}
}

func TestVoicedRegions_NonIntegralFrames(t *testing.T) {
	const rate = 22050
	samples := make([]float64, 102*rate)
	for i := 100 * rate; i < 101*rate; i++ {
		samples[i] = 0.5
	}
	c := &Clip{SampleRate: rate, Samples: samples}

	regions := VoicedRegions(c, 0.01, 0.1, 0.1, 0)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %+v", regions)
	}
	if math.Abs(regions[0].Start-100.0) > 0.011 || math.Abs(regions[0].End-101.0) > 0.011 {
		t.Errorf("expected region near 100.0-101.0, got %+v", regions[0])
	}
}
