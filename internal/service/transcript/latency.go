package transcript

import "call-transcript-service/internal/models"

// DetectLatency returns the silence between each user turn and an agent turn
// that immediately follows it. Overlapping or instantaneous responses are
// omitted.
func DetectLatency(turns []models.Turn) []models.LatencyRecord {
	out := make([]models.LatencyRecord, 0)
	for i := 0; i+1 < len(turns); i++ {
		user, agent := turns[i], turns[i+1]
		if user.Role != models.SpeakerUser || agent.Role != models.SpeakerAgent {
			continue
		}
		if gap := agent.Start - user.End; gap > 0 {
			out = append(out, models.LatencyRecord{
				SecondsFromStart: user.End,
				Duration:         gap,
			})
		}
	}
	return out
}
