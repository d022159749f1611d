package index

import (
	"time"

	"github.com/google/uuid"
)

// ForeshadowingStatus is the lifecycle state of §3/§4.7.
type ForeshadowingStatus string

const (
	ForeshadowingPending   ForeshadowingStatus = "pending"
	ForeshadowingResolved  ForeshadowingStatus = "resolved"
	ForeshadowingAbandoned ForeshadowingStatus = "abandoned"
)

// ForeshadowingRow is a row of the ForeshadowingIndex (§3, §4.7).
type ForeshadowingRow struct {
	ID                 uuid.UUID
	ProjectID          string
	PlantedChapter     int
	Description        string
	OriginalText       string
	Category           string
	Priority           string // high|medium|low
	RelatedEntities    []string
	Status             ForeshadowingStatus
	ResolvedChapter    *int
	Resolution         *string
	RemindAfterChapter *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// priorityRank orders priorities for sorting: high first (§4.7 "pending").
func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

// SortPending sorts rows by (priority desc [high>medium>low], planted_chapter
// asc), per §4.7's `pending` read path.
func SortPending(rows []*ForeshadowingRow) {
	// insertion sort is fine: pending lists are small per project/chapter
	for i := 1; i < len(rows); i++ {
		j := i
		for j > 0 && less(rows[j], rows[j-1]) {
			rows[j], rows[j-1] = rows[j-1], rows[j]
			j--
		}
	}
}

func less(a, b *ForeshadowingRow) bool {
	ra, rb := priorityRank(a.Priority), priorityRank(b.Priority)
	if ra != rb {
		return ra < rb
	}
	return a.PlantedChapter < b.PlantedChapter
}

// SuggestResolutionChapter is the resolution-timing advisory of §4.7: for
// a pending row, produce a target chapter number by priority.
func SuggestResolutionChapter(row *ForeshadowingRow, totalChapters int) int {
	switch row.Priority {
	case "high":
		return minInt(row.PlantedChapter+5, int(0.8*float64(totalChapters)))
	case "medium":
		return minInt(row.PlantedChapter+15, int(0.9*float64(totalChapters)))
	default:
		return int(0.95 * float64(totalChapters))
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
