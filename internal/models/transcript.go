// Package models defines the data structures shared by the transcript pipeline.
package models

// Speaker identifies which channel of the stereo recording a record came from.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// WordRecord is one recognized word from one speaker channel.
// Start and End are seconds from the beginning of the recording.
type WordRecord struct {
	Text           string  `json:"word"`
	PunctuatedText string  `json:"punctuatedWord"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
}

// Chunk is a provisional utterance fragment from a single speaker.
type Chunk struct {
	Speaker Speaker `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Turn is a maximal run of speech attributed to one speaker.
type Turn struct {
	Role  Speaker `json:"role"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// InterruptionRecord describes overlapping speech inside an agent turn.
type InterruptionRecord struct {
	SecondsFromStart float64 `json:"secondsFromStart"`
	Duration         float64 `json:"duration"`
	Text             string  `json:"text"`
}

// LatencyRecord is the silence between a user turn and the agent's response.
type LatencyRecord struct {
	SecondsFromStart float64 `json:"secondsFromStart"`
	Duration         float64 `json:"duration"`
}

// TranscriptResult is the fused conversation transcript.
// All three lists are always non-nil so that they encode as [] rather than null.
type TranscriptResult struct {
	Segments      []Turn               `json:"segments"`
	Interruptions []InterruptionRecord `json:"interruptions"`
	LatencyBlocks []LatencyRecord      `json:"latencyBlocks"`
}

// EmptyResult returns the fail-soft result shape.
func EmptyResult() TranscriptResult {
	return TranscriptResult{
		Segments:      []Turn{},
		Interruptions: []InterruptionRecord{},
		LatencyBlocks: []LatencyRecord{},
	}
}

// CallStats summarizes latency and interruption distributions for a call.
type CallStats struct {
	LatencyP50           float64 `json:"latencyP50"`
	LatencyP90           float64 `json:"latencyP90"`
	LatencyP95           float64 `json:"latencyP95"`
	InterruptionP50      float64 `json:"interruptionP50"`
	InterruptionP90      float64 `json:"interruptionP90"`
	InterruptionP95      float64 `json:"interruptionP95"`
	NumLongInterruptions int     `json:"numInterruptions"`
}

// TranscriptCompleted is published once a call has been fully processed.
type TranscriptCompleted struct {
	EventType  string           `json:"eventType"`
	CallID     string           `json:"callId"`
	JobID      string           `json:"jobId"`
	AudioURL   string           `json:"stereoAudioUrl"`
	Aligned    bool             `json:"aligned"`
	Transcript TranscriptResult `json:"transcript"`
	Stats      CallStats        `json:"stats"`
	Timestamp  int64            `json:"timestamp"`
}

// TranscriptFailed is published when an upstream stage fails.
type TranscriptFailed struct {
	EventType string `json:"eventType"`
	CallID    string `json:"callId"`
	JobID     string `json:"jobId"`
	AudioURL  string `json:"stereoAudioUrl"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}

const (
	EventTranscriptCompleted = "call.transcript.completed"
	EventTranscriptFailed    = "call.transcript.failed"
)
