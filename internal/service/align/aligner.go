// Package align refines provider word timestamps against the channel audio.
//
// The aligner snaps each word's boundaries to the nearest voiced frames
// within a bounded shift, then enforces monotonic, non-overlapping words.
// Calibration (frame size, threshold, shift, alphabet) comes from a YAML
// file that is loaded once on first use.
package align

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"call-transcript-service/internal/models"
	"call-transcript-service/internal/observability/logging"
	"call-transcript-service/internal/observability/metrics"
	"call-transcript-service/internal/service/audio"
)

// ErrModelLoad is returned when the calibration cannot be loaded.
var ErrModelLoad = errors.New("aligner calibration load failed")

// Per-word outcomes reported to metrics.
const (
	resultRefined = "refined"
	resultSkipped = "skipped"
	resultUnknown = "unknown"
	resultFailed  = "failed"
)

// Calibration holds the aligner parameters.
type Calibration struct {
	FrameMS         int     `yaml:"frame_ms"`
	EnergyThreshold float64 `yaml:"energy_threshold"`
	MaxShiftSeconds float64 `yaml:"max_shift_seconds"`
	MinWordSeconds  float64 `yaml:"min_word_seconds"`
	Alphabet        string  `yaml:"alphabet"`
}

// DefaultCalibration is used when no calibration file is configured.
func DefaultCalibration() Calibration {
	return Calibration{
		FrameMS:         10,
		EnergyThreshold: 0.02,
		MaxShiftSeconds: 0.3,
		MinWordSeconds:  0.1,
		Alphabet:        "abcdefghijklmnopqrstuvwxyz'",
	}
}

func (c Calibration) validate() error {
	if c.FrameMS <= 0 {
		return fmt.Errorf("frame_ms must be positive, got %d", c.FrameMS)
	}
	if c.MaxShiftSeconds < 0 || c.MinWordSeconds < 0 {
		return errors.New("max_shift_seconds and min_word_seconds must not be negative")
	}
	if c.Alphabet == "" {
		return errors.New("alphabet must not be empty")
	}
	return nil
}

// Aligner refines word timestamps. Safe for concurrent use.
type Aligner struct {
	path    string
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	cal *Calibration
}

// New creates an aligner that loads its calibration from path on first use.
// An empty path selects DefaultCalibration.
func New(path string) *Aligner {
	return &Aligner{
		path:    path,
		logger:  logging.WithComponent("align"),
		metrics: metrics.DefaultMetrics,
	}
}

// Load loads the calibration if it has not been loaded yet. A failed load
// is retried on the next call.
func (a *Aligner) Load() (Calibration, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cal != nil {
		return *a.cal, nil
	}

	cal, err := readCalibration(a.path)
	a.metrics.RecordModelLoad(err)
	if err != nil {
		a.logger.Error().
			Str("method", "Load").
			Str("path", a.path).
			Err(err).
			Msg("Failed to load aligner calibration")
		return Calibration{}, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	a.logger.Info().
		Str("method", "Load").
		Str("path", a.path).
		Int("frameMs", cal.FrameMS).
		Msg("Aligner calibration loaded")
	a.cal = &cal
	return cal, nil
}

func readCalibration(path string) (Calibration, error) {
	if path == "" {
		return DefaultCalibration(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, err
	}
	cal := DefaultCalibration()
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return Calibration{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cal.validate(); err != nil {
		return Calibration{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cal, nil
}

// Refine returns a copy of words with timestamps refined against clip.
// Words that cannot be refined keep their provisional timestamps; only a
// calibration load failure is returned as an error.
func (a *Aligner) Refine(ctx context.Context, clip *audio.Clip, words []models.WordRecord) ([]models.WordRecord, error) {
	cal, err := a.Load()
	if err != nil {
		return nil, err
	}

	out := make([]models.WordRecord, len(words))
	copy(out, words)
	if clip == nil || len(words) == 0 {
		return out, nil
	}

	energies, frame := audio.FrameEnergies(clip, float64(cal.FrameMS)/1000)
	alphabet := cal.Alphabet

	// floor is the earliest start the next word may take.
	floor := 0.0
	for i, w := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		token := strings.ToLower(w.Text)
		switch {
		case skippable(token):
			a.metrics.RecordAlignWord(resultSkipped)
			floor = keepOrdered(&out[i], floor)
			continue
		case hasUnknown(token, alphabet):
			a.logger.Warn().
				Str("method", "Refine").
				Str("word", w.Text).
				Msg("Word has characters outside the aligner alphabet, keeping provider timestamps")
			a.metrics.RecordAlignWord(resultUnknown)
			floor = keepOrdered(&out[i], floor)
			continue
		}

		start, end, ok := refineSpan(energies, frame, cal, w.Start, w.End)
		if !ok {
			a.metrics.RecordAlignWord(resultFailed)
			floor = keepOrdered(&out[i], floor)
			continue
		}

		if start < floor {
			start = floor
		}
		if end < start+cal.MinWordSeconds {
			end = start + cal.MinWordSeconds
		}
		floor = end

		out[i].Start = round2(start)
		out[i].End = round2(end)
		a.metrics.RecordAlignWord(resultRefined)
	}
	return out, nil
}

// keepOrdered leaves an unrefined word at its provider timestamps unless it
// would start before floor, in which case it is moved up to floor. It
// returns the floor for the next word.
func keepOrdered(w *models.WordRecord, floor float64) float64 {
	if w.Start >= floor {
		return w.Start
	}
	w.Start = round2(floor)
	if w.End < w.Start {
		w.End = w.Start
	}
	return floor
}

// refineSpan finds the first voiced frame near start and the last voiced
// frame near end.
func refineSpan(energies []float64, frame float64, cal Calibration, start, end float64) (float64, float64, bool) {
	first := -1
	lo, hi := frameRange(start-cal.MaxShiftSeconds, math.Min(end, start+cal.MaxShiftSeconds), frame, len(energies))
	for i := lo; i <= hi; i++ {
		if energies[i] > cal.EnergyThreshold {
			first = i
			break
		}
	}

	last := -1
	lo, hi = frameRange(math.Max(start, end-cal.MaxShiftSeconds), end+cal.MaxShiftSeconds, frame, len(energies))
	for i := hi; i >= lo; i-- {
		if energies[i] > cal.EnergyThreshold {
			last = i
			break
		}
	}

	if first < 0 || last < first {
		return 0, 0, false
	}
	return float64(first) * frame, float64(last+1) * frame, true
}

// frameRange converts [from, to] seconds into inclusive frame indexes
// clamped to [0, n-1]. An empty range has lo > hi.
func frameRange(from, to, frame float64, n int) (int, int) {
	lo := int(math.Floor(from/frame + 1e-9))
	hi := int(math.Ceil(to/frame-1e-9)) - 1
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

// skippable reports tokens the aligner never refines: numbers and tokens
// without any letter or digit.
func skippable(token string) bool {
	hasAlnum, allDigits := false, true
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasAlnum = true
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	return !hasAlnum || allDigits
}

func hasUnknown(token, alphabet string) bool {
	for _, r := range token {
		if !strings.ContainsRune(alphabet, r) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
