// Package audio fetches stereo call recordings and splits them into
// per-speaker mono clips.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gopxl/beep/wav"
	"github.com/rs/zerolog"

	"call-transcript-service/internal/observability/logging"
	"call-transcript-service/internal/observability/metrics"
)

// Errors returned by the audio source.
var (
	ErrUnsupportedChannels = errors.New("recording must have one or two channels")
	ErrTooLarge            = errors.New("recording exceeds size limit")
	ErrTooLong             = errors.New("recording exceeds duration limit")
	ErrNotWAV              = errors.New("recording is not a RIFF/WAVE file")
)

// Limits defines safety guardrails for recording downloads.
// These prevent unbounded memory use on oversized or runaway recordings.
type Limits struct {
	MaxAudioBytes   int64         // Max downloaded recording size
	MaxDuration     time.Duration // Max recording length
	DownloadTimeout time.Duration // Max time to fetch the recording
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes:   200 * 1024 * 1024, // 200MB (~20 minutes of 44.1kHz 16-bit stereo)
		MaxDuration:     60 * time.Minute,
		DownloadTimeout: 2 * time.Minute,
	}
}

// Splitter fetches a stereo recording and returns the user (left) and agent
// (right) channels. A mono recording yields a nil agent clip.
type Splitter interface {
	Split(ctx context.Context, url string) (user, agent *Clip, err error)
}

// Source downloads recordings over HTTP(S) or reads them from disk.
type Source struct {
	client  *http.Client
	limits  Limits
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewSource creates an audio source with the given limits.
func NewSource(limits Limits) *Source {
	return &Source{
		client:  &http.Client{Timeout: limits.DownloadTimeout},
		limits:  limits,
		logger:  logging.WithComponent("audio"),
		metrics: metrics.DefaultMetrics,
	}
}

// Split fetches the recording at url (http, https, file:// or a local path)
// and splits it into per-speaker clips.
func (s *Source) Split(ctx context.Context, url string) (*Clip, *Clip, error) {
	data, err := s.fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordDownload(int64(len(data)))
	return s.Decode(data)
}

// Decode splits an in-memory WAV recording into per-speaker clips.
func (s *Source) Decode(data []byte) (*Clip, *Clip, error) {
	channels, err := channelCount(data)
	if err != nil {
		return nil, nil, err
	}
	if channels < 1 || channels > 2 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrUnsupportedChannels, channels)
	}

	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode wav: %w", err)
	}
	defer streamer.Close()

	rate := int(format.SampleRate)
	maxSamples := -1
	if s.limits.MaxDuration > 0 {
		maxSamples = int(s.limits.MaxDuration.Seconds() * float64(rate))
	}

	var left, right []float64
	buf := make([][2]float64, 4096)
	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			left = append(left, buf[i][0])
			right = append(right, buf[i][1])
		}
		if maxSamples >= 0 && len(left) > maxSamples {
			return nil, nil, fmt.Errorf("%w: more than %v", ErrTooLong, s.limits.MaxDuration)
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, nil, fmt.Errorf("decode wav: %w", err)
	}

	user := &Clip{SampleRate: rate, Samples: left}
	mono := channels == 1
	s.metrics.RecordDecoded(user.Duration(), mono)

	if mono {
		s.logger.Warn().
			Str("method", "Decode").
			Float64("durationSeconds", user.Duration()).
			Msg("Mono recording, agent channel will be skipped")
		return user, nil, nil
	}

	s.logger.Debug().
		Str("method", "Decode").
		Int("sampleRate", rate).
		Float64("durationSeconds", user.Duration()).
		Msg("Recording split into channels")

	return user, &Clip{SampleRate: rate, Samples: right}, nil
}

func (s *Source) fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return s.readFile(strings.TrimPrefix(url, "file://"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("download recording: %s: %s", resp.Status, string(body))
	}
	return s.readLimited(resp.Body)
}

func (s *Source) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return s.readLimited(f)
}

func (s *Source) readLimited(r io.Reader) ([]byte, error) {
	if s.limits.MaxAudioBytes > 0 {
		r = io.LimitReader(r, s.limits.MaxAudioBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	if s.limits.MaxAudioBytes > 0 && int64(len(data)) > s.limits.MaxAudioBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.limits.MaxAudioBytes)
	}
	return data, nil
}

// channelCount reads the channel count from the fmt chunk of a WAV file.
func channelCount(data []byte) (int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, ErrNotWAV
	}
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if id == "fmt " {
			if body+4 > len(data) {
				break
			}
			return int(binary.LittleEndian.Uint16(data[body+2 : body+4])), nil
		}
		off = body + size + size%2
	}
	return 0, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
}
