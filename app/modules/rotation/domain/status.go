package rotationdomain

// Stats aggregates award counts for one kind. Min, Max and Average are taken
// over the active (non-excluded) pool; EverHeld counts every participant.
type Stats struct {
	Total    int     `json:"total"`
	Active   int     `json:"active"`
	EverHeld int     `json:"ever_held"`
	Min      int     `json:"min"`
	Max      int     `json:"max"`
	Average  float64 `json:"average"`
}

// Status is the read-only rotation view for one kind.
type Status struct {
	Kind          Kind          `json:"kind"`
	CanAssign     bool          `json:"can_assign"`
	Cycle         Cycle         `json:"cycle"`
	Eligible      []Participant `json:"eligible"`
	CurrentHolder *Participant  `json:"current_holder,omitempty"`
	Stats         Stats         `json:"stats"`
}

// ComputeStats derives Stats from a participant list.
func ComputeStats(participants []Participant) Stats {
	stats := Stats{Total: len(participants)}
	for _, p := range participants {
		if p.AwardCount > 0 {
			stats.EverHeld++
		}
	}

	pool := ActivePool(participants)
	stats.Active = len(pool)
	if len(pool) == 0 {
		return stats
	}

	stats.Min, stats.Max = pool[0].AwardCount, pool[0].AwardCount
	sum := 0
	for _, p := range pool {
		sum += p.AwardCount
		if p.AwardCount < stats.Min {
			stats.Min = p.AwardCount
		}
		if p.AwardCount > stats.Max {
			stats.Max = p.AwardCount
		}
	}
	stats.Average = float64(sum) / float64(len(pool))
	return stats
}

// BuildStatus computes the full status. Assignment is possible whenever the
// eligible set is non-empty; there is no blocked state.
func BuildStatus(kind Kind, participants []Participant) Status {
	eligibility := Evaluate(participants)

	status := Status{
		Kind:      kind,
		CanAssign: len(eligibility.Eligible) > 0,
		Cycle:     eligibility.Cycle,
		Eligible:  eligibility.Eligible,
		Stats:     ComputeStats(participants),
	}
	if status.Eligible == nil {
		status.Eligible = []Participant{}
	}
	for i := range participants {
		if participants[i].IsCurrentHolder {
			holder := participants[i]
			status.CurrentHolder = &holder
			break
		}
	}
	return status
}
