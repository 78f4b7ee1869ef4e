package sales

import (
	"time"

	"github.com/retailops/erpsync/internal/platform/models"
)

// Chunk is one bounded sub-range of a sync window, committed independently.
// Boundaries are inclusive calendar days.
type Chunk struct {
	From time.Time
	To   time.Time
}

// SplitRange slices [from, to] into contiguous chunks of at most chunkDays
// days each. The chunks never overlap, never leave a gap and their union is
// exactly the input range. An inverted range yields no chunks.
func SplitRange(from, to time.Time, chunkDays int) []Chunk {
	from = models.Day(from)
	to = models.Day(to)
	if to.Before(from) {
		return nil
	}
	if chunkDays < 1 {
		chunkDays = 1
	}

	var chunks []Chunk
	for start := from; !start.After(to); start = start.AddDate(0, 0, chunkDays) {
		end := start.AddDate(0, 0, chunkDays-1)
		if end.After(to) {
			end = to
		}
		chunks = append(chunks, Chunk{From: start, To: end})
	}

	return chunks
}
