package rotationdomain

import (
	"fmt"
	"sort"
	"time"
)

// LedgerEntry is one immutable award grant. ID order is append order.
type LedgerEntry struct {
	ID            int64     `json:"id"`
	ParticipantID int64     `json:"participant_id"`
	EventID       int64     `json:"event_id"`
	AssignedAt    time.Time `json:"assigned_at"`
}

// Projection is the state implied by a ledger: per-participant counts and the
// current holder (0 when nobody holds the award).
type Projection struct {
	Counts map[int64]int
	Holder int64
}

// Replay applies entries in append order. The holder is the participant of
// the most recent entry unless that participant is excluded, in which case
// nobody holds the award.
func Replay(entries []LedgerEntry, excluded map[int64]bool) Projection {
	ordered := make([]LedgerEntry, len(entries))
	copy(ordered, entries)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	proj := Projection{Counts: make(map[int64]int, len(ordered))}
	for _, e := range ordered {
		proj.Counts[e.ParticipantID]++
		proj.Holder = e.ParticipantID
	}
	if proj.Holder != 0 && excluded[proj.Holder] {
		proj.Holder = 0
	}
	return proj
}

// HolderFor returns the holder implied by the latest entry, honouring exclusion.
func HolderFor(latest *LedgerEntry, excluded bool) int64 {
	if latest == nil || excluded {
		return 0
	}
	return latest.ParticipantID
}

// Drift describes one disagreement between stored projections and a replay.
type Drift struct {
	ParticipantID int64  `json:"participant_id"`
	Name          string `json:"name,omitempty"`
	Field         string `json:"field"`
	Stored        string `json:"stored"`
	Replayed      string `json:"replayed"`
}

func (d Drift) String() string {
	return fmt.Sprintf("participant %d %s: stored=%s replayed=%s", d.ParticipantID, d.Field, d.Stored, d.Replayed)
}

// Diff compares stored participant projections against proj. Ledger entries
// for unknown participants are reported as well.
func Diff(participants []Participant, proj Projection) []Drift {
	var drifts []Drift
	known := make(map[int64]bool, len(participants))
	for _, p := range participants {
		known[p.ID] = true
		if want := proj.Counts[p.ID]; p.AwardCount != want {
			drifts = append(drifts, Drift{
				ParticipantID: p.ID,
				Name:          p.Name,
				Field:         "award_count",
				Stored:        fmt.Sprint(p.AwardCount),
				Replayed:      fmt.Sprint(want),
			})
		}
		if want := proj.Holder == p.ID; p.IsCurrentHolder != want {
			drifts = append(drifts, Drift{
				ParticipantID: p.ID,
				Name:          p.Name,
				Field:         "is_current_holder",
				Stored:        fmt.Sprint(p.IsCurrentHolder),
				Replayed:      fmt.Sprint(want),
			})
		}
	}

	orphans := make([]int64, 0)
	for id := range proj.Counts {
		if !known[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	for _, id := range orphans {
		drifts = append(drifts, Drift{
			ParticipantID: id,
			Field:         "participant",
			Stored:        "missing",
			Replayed:      fmt.Sprint(proj.Counts[id]),
		})
	}
	return drifts
}

// ExcludedSet returns the ids of excluded participants.
func ExcludedSet(participants []Participant) map[int64]bool {
	out := make(map[int64]bool)
	for _, p := range participants {
		if p.IsExcluded {
			out[p.ID] = true
		}
	}
	return out
}
