package transcript

import (
	"sort"

	"call-transcript-service/internal/models"
)

// Merge interleaves two speakers' chunks into one sequence ordered by start
// time. Chunks with equal start times keep their input order, user first.
func Merge(user, agent []models.Chunk) []models.Chunk {
	merged := make([]models.Chunk, 0, len(user)+len(agent))
	merged = append(merged, user...)
	merged = append(merged, agent...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start < merged[j].Start
	})
	return merged
}
