// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "call_transcript"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	PipelinesActive  prometheus.Gauge
	PipelineDuration prometheus.Histogram
	StageLatency     *prometheus.HistogramVec

	// RPC metrics
	RPCTotal *prometheus.CounterVec

	// Audio metrics
	AudioBytesDownloaded prometheus.Counter
	AudioSecondsDecoded  prometheus.Counter
	MonoRecordings       prometheus.Counter

	// STT metrics
	STTLatency *prometheus.HistogramVec
	STTErrors  *prometheus.CounterVec
	STTWords   *prometheus.CounterVec

	// Alignment metrics
	AlignWords      *prometheus.CounterVec
	AlignModelLoads *prometheus.CounterVec

	// Transcript metrics
	TurnsTotal         *prometheus.CounterVec
	InterruptionsTotal prometheus.Counter
	LatencyBlocksTotal prometheus.Counter
	ResponseLatency    prometheus.Histogram
	FailSoftTotal      *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Request metrics
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of transcript requests by outcome",
		}, []string{"mode", "outcome"}),
		PipelinesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipelines_active",
			Help:      "Number of calls currently being processed",
		}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end processing time of a call",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Processing time per pipeline stage",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"stage"}),

		// RPC metrics
		RPCTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_total",
			Help:      "Total number of gRPC calls by method and code",
		}, []string{"method", "code"}),

		// Audio metrics
		AudioBytesDownloaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_downloaded_total",
			Help:      "Total bytes of stereo recordings downloaded",
		}),
		AudioSecondsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_seconds_decoded_total",
			Help:      "Total seconds of audio decoded",
		}),
		MonoRecordings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mono_recordings_total",
			Help:      "Recordings processed in degraded single-channel mode",
		}),

		// STT metrics
		STTLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text latency per channel",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider", "speaker"}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "speaker"}),
		STTWords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_words_total",
			Help:      "Total words recognized per channel",
		}, []string{"speaker"}),

		// Alignment metrics
		AlignWords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "align_words_total",
			Help:      "Words seen by the aligner by result",
		}, []string{"result"}),
		AlignModelLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "align_model_loads_total",
			Help:      "Aligner model load attempts by outcome",
		}, []string{"outcome"}),

		// Transcript metrics
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total conversation turns produced",
		}, []string{"role"}),
		InterruptionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Total interruptions detected",
		}),
		LatencyBlocksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "latency_blocks_total",
			Help:      "Total latency blocks detected",
		}),
		ResponseLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_latency_seconds",
			Help:      "Agent response latency after a user turn",
			Buckets:   []float64{0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5, 10},
		}),
		FailSoftTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fail_soft_total",
			Help:      "Transcripts replaced by the empty result after an internal failure",
		}, []string{"reason"}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordPipelineStart records a call entering the pipeline.
func (m *Metrics) RecordPipelineStart() {
	m.PipelinesActive.Inc()
}

// RecordPipelineEnd records a call leaving the pipeline.
func (m *Metrics) RecordPipelineEnd(mode string, err error, durationSeconds float64) {
	m.PipelinesActive.Dec()
	m.PipelineDuration.Observe(durationSeconds)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.RequestsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, durationSeconds float64) {
	m.StageLatency.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordRPC records a completed gRPC call.
func (m *Metrics) RecordRPC(method, code string) {
	m.RPCTotal.WithLabelValues(method, code).Inc()
}

// RecordDownload records a downloaded recording.
func (m *Metrics) RecordDownload(bytes int64) {
	m.AudioBytesDownloaded.Add(float64(bytes))
}

// RecordDecoded records decoded audio and whether it was single-channel.
func (m *Metrics) RecordDecoded(seconds float64, mono bool) {
	m.AudioSecondsDecoded.Add(seconds)
	if mono {
		m.MonoRecordings.Inc()
	}
}

// RecordSTT records one channel's transcription.
func (m *Metrics) RecordSTT(provider, speaker string, words int, err error, latencySeconds float64) {
	m.STTLatency.WithLabelValues(provider, speaker).Observe(latencySeconds)
	if err != nil {
		m.STTErrors.WithLabelValues(provider, speaker).Inc()
		return
	}
	m.STTWords.WithLabelValues(speaker).Add(float64(words))
}

// RecordAlignWord records the outcome for a single word: refined, skipped or failed.
func (m *Metrics) RecordAlignWord(result string) {
	m.AlignWords.WithLabelValues(result).Inc()
}

// RecordModelLoad records an aligner model load attempt.
func (m *Metrics) RecordModelLoad(err error) {
	if err != nil {
		m.AlignModelLoads.WithLabelValues("error").Inc()
		return
	}
	m.AlignModelLoads.WithLabelValues("success").Inc()
}

// RecordTurn records a produced turn.
func (m *Metrics) RecordTurn(role string) {
	m.TurnsTotal.WithLabelValues(role).Inc()
}

// RecordInterruptions records detected interruptions.
func (m *Metrics) RecordInterruptions(n int) {
	m.InterruptionsTotal.Add(float64(n))
}

// RecordLatencyBlock records one response latency gap.
func (m *Metrics) RecordLatencyBlock(seconds float64) {
	m.LatencyBlocksTotal.Inc()
	m.ResponseLatency.Observe(seconds)
}

// RecordFailSoft records a transcript replaced by the empty result.
func (m *Metrics) RecordFailSoft(reason string) {
	m.FailSoftTotal.WithLabelValues(reason).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
