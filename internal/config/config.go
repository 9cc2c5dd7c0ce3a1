// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	STT           STTConfig
	Align         AlignConfig
	Transcript    TranscriptConfig
	Audio         AudioConfig
	Kafka         KafkaConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds listener settings and the service identity.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	GRPCPort    string
	MetricsPort string
}

// STTConfig selects and tunes the speech-to-text provider.
type STTConfig struct {
	Provider      string // mock, google
	LanguageCode  string
	Model         string
	UseEnhanced   bool
	MaxSyncAudio  time.Duration // longer channels use long-running recognition
	SampleRateHz  int           // expected sample rate; recordings are sent at their own rate
	AudioEncoding string
}

// AlignConfig controls timestamp refinement.
type AlignConfig struct {
	Enabled         bool   // default mode when a request does not say
	CalibrationPath string // empty selects built-in calibration
}

// TranscriptConfig holds the fusion heuristics.
type TranscriptConfig struct {
	SilenceGapSeconds float64
	TurnGapSeconds    float64
	EnergyThreshold   float64
	EnergyWindow      float64
}

// AudioConfig bounds recording downloads.
type AudioConfig struct {
	MaxAudioBytes   int64
	MaxDuration     time.Duration
	DownloadTimeout time.Duration
}

// KafkaConfig configures event publishing.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicCompleted string
	TopicFailed    string
	Principal      string
}

// StorageConfig configures persistence.
type StorageConfig struct {
	SQLitePath string // empty disables persistence
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment, falling back to
// defaults for unset or unparsable values.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-call-transcript")

	return &Configuration{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		STT: STTConfig{
			Provider:      envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:  envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			Model:         envOrDefault("STT_MODEL", "phone_call"),
			UseEnhanced:   envOrDefaultBool("STT_USE_ENHANCED", true),
			MaxSyncAudio:  envOrDefaultDuration("STT_MAX_SYNC_AUDIO", 55*time.Second),
			SampleRateHz:  envOrDefaultInt("STT_SAMPLE_RATE_HZ", 8000),
			AudioEncoding: envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
		},
		Align: AlignConfig{
			Enabled:         envOrDefaultBool("ALIGN_ENABLED", false),
			CalibrationPath: envOrDefault("ALIGN_CALIBRATION_PATH", ""),
		},
		Transcript: TranscriptConfig{
			SilenceGapSeconds: envOrDefaultFloat("TRANSCRIPT_SILENCE_GAP_SECONDS", 1.5),
			TurnGapSeconds:    envOrDefaultFloat("TRANSCRIPT_TURN_GAP_SECONDS", 1.5),
			EnergyThreshold:   envOrDefaultFloat("TRANSCRIPT_ENERGY_THRESHOLD", 0.01),
			EnergyWindow:      envOrDefaultFloat("TRANSCRIPT_ENERGY_WINDOW_SECONDS", 1.0),
		},
		Audio: AudioConfig{
			MaxAudioBytes:   envOrDefaultInt64("AUDIO_MAX_BYTES", 200*1024*1024),
			MaxDuration:     envOrDefaultDuration("AUDIO_MAX_DURATION", 60*time.Minute),
			DownloadTimeout: envOrDefaultDuration("AUDIO_DOWNLOAD_TIMEOUT", 2*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicCompleted: envOrDefault("KAFKA_TOPIC_COMPLETED", "call.transcript.completed"),
			TopicFailed:    envOrDefault("KAFKA_TOPIC_FAILED", "call.transcript.failed"),
			Principal:      envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Storage: StorageConfig{
			SQLitePath: envOrDefault("STORAGE_SQLITE_PATH", "call-transcripts.db"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList splits a comma-separated value, dropping empty entries.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
