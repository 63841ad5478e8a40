package rotationdomain

import (
	"sort"
	"time"
)

// Participant is a player (mvp) or alliance (winner) as seen by the
// fairness rules.
type Participant struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	AwardCount      int       `json:"award_count"`
	IsCurrentHolder bool      `json:"is_current_holder"`
	IsExcluded      bool      `json:"is_excluded"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Cycle is the rotation state of one kind within one tenant.
type Cycle string

const (
	// CycleNoParticipants means nobody is in the eligible pool; assignment fails.
	CycleNoParticipants Cycle = "no_participants"
	// CycleFirst means someone in the pool has never received the award.
	CycleFirst Cycle = "first_cycle"
	// CycleSteady means everyone in the pool has received it at least once.
	CycleSteady Cycle = "steady_cycle"
)

// Eligibility is the outcome of applying the fairness rule to a pool.
type Eligibility struct {
	Cycle    Cycle
	Eligible []Participant
	// MinCount is the lowest award count in the pool. Zero when the pool is empty.
	MinCount int
}

// Contains reports whether participantID is in the eligible set.
func (e Eligibility) Contains(participantID int64) bool {
	for _, p := range e.Eligible {
		if p.ID == participantID {
			return true
		}
	}
	return false
}

// IDs returns the eligible participant ids in name order.
func (e Eligibility) IDs() []int64 {
	ids := make([]int64, 0, len(e.Eligible))
	for _, p := range e.Eligible {
		ids = append(ids, p.ID)
	}
	return ids
}

// Evaluate applies the fairness rule. Excluded participants are never in the
// pool. In the first cycle only never-awarded participants are eligible; in
// the steady cycle everyone tied at the minimum count is. Ties are left to the
// operator, so the result is only sorted by name for stable presentation.
func Evaluate(participants []Participant) Eligibility {
	pool := ActivePool(participants)
	if len(pool) == 0 {
		return Eligibility{Cycle: CycleNoParticipants}
	}

	minCount := pool[0].AwardCount
	for _, p := range pool[1:] {
		if p.AwardCount < minCount {
			minCount = p.AwardCount
		}
	}

	cycle := CycleSteady
	if minCount == 0 {
		cycle = CycleFirst
	}

	eligible := make([]Participant, 0, len(pool))
	for _, p := range pool {
		if p.AwardCount == minCount {
			eligible = append(eligible, p)
		}
	}
	sortByName(eligible)

	return Eligibility{Cycle: cycle, Eligible: eligible, MinCount: minCount}
}

// ActivePool returns the participants that take part in the rotation.
func ActivePool(participants []Participant) []Participant {
	pool := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if !p.IsExcluded {
			pool = append(pool, p)
		}
	}
	return pool
}

func sortByName(ps []Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Name == ps[j].Name {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].Name < ps[j].Name
	})
}
