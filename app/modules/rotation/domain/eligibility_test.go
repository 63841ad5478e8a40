package rotationdomain

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func players(specs ...Participant) []Participant { return specs }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		pool      []Participant
		wantCycle Cycle
		wantIDs   []int64
		wantMin   int
	}{
		{
			name:      "empty pool",
			pool:      nil,
			wantCycle: CycleNoParticipants,
			wantIDs:   []int64{},
		},
		{
			name: "everyone excluded",
			pool: players(
				Participant{ID: 1, Name: "A", IsExcluded: true},
				Participant{ID: 2, Name: "B", IsExcluded: true},
			),
			wantCycle: CycleNoParticipants,
			wantIDs:   []int64{},
		},
		{
			name: "first cycle prioritises never awarded",
			pool: players(
				Participant{ID: 1, Name: "A", AwardCount: 1},
				Participant{ID: 2, Name: "B", AwardCount: 0},
				Participant{ID: 3, Name: "C", AwardCount: 0},
			),
			wantCycle: CycleFirst,
			wantIDs:   []int64{2, 3},
		},
		{
			name: "steady cycle uses minimum",
			pool: players(
				Participant{ID: 1, Name: "A", AwardCount: 2},
				Participant{ID: 2, Name: "B", AwardCount: 1},
				Participant{ID: 3, Name: "C", AwardCount: 1},
			),
			wantCycle: CycleSteady,
			wantIDs:   []int64{2, 3},
			wantMin:   1,
		},
		{
			name: "excluded participant with lowest count is ignored",
			pool: players(
				Participant{ID: 1, Name: "A", AwardCount: 2},
				Participant{ID: 2, Name: "B", AwardCount: 0, IsExcluded: true},
				Participant{ID: 3, Name: "C", AwardCount: 3},
			),
			wantCycle: CycleSteady,
			wantIDs:   []int64{1},
			wantMin:   2,
		},
		{
			name: "eligible set sorted by name",
			pool: players(
				Participant{ID: 9, Name: "zeta"},
				Participant{ID: 4, Name: "alpha"},
			),
			wantCycle: CycleFirst,
			wantIDs:   []int64{4, 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.pool)
			if got.Cycle != tt.wantCycle {
				t.Errorf("Cycle = %q, want %q", got.Cycle, tt.wantCycle)
			}
			if diff := cmp.Diff(tt.wantIDs, got.IDs()); diff != "" {
				t.Errorf("eligible ids mismatch (-want +got):\n%s", diff)
			}
			if got.MinCount != tt.wantMin {
				t.Errorf("MinCount = %d, want %d", got.MinCount, tt.wantMin)
			}
		})
	}
}

// TestEvaluate_ThreePlayerRotation walks players A, B and C through a full
// first cycle and into the steady cycle.
func TestEvaluate_ThreePlayerRotation(t *testing.T) {
	pool := players(
		Participant{ID: 1, Name: "A"},
		Participant{ID: 2, Name: "B"},
		Participant{ID: 3, Name: "C"},
	)
	award := func(id int64) {
		for i := range pool {
			if pool[i].ID == id {
				pool[i].AwardCount++
			}
		}
	}

	steps := []struct {
		award     int64
		wantCycle Cycle
		wantIDs   []int64
	}{
		{award: 1, wantCycle: CycleFirst, wantIDs: []int64{2, 3}},
		{award: 2, wantCycle: CycleFirst, wantIDs: []int64{3}},
		{award: 3, wantCycle: CycleSteady, wantIDs: []int64{1, 2, 3}},
		{award: 1, wantCycle: CycleSteady, wantIDs: []int64{2, 3}},
	}
	for i, step := range steps {
		if !Evaluate(pool).Contains(step.award) {
			t.Fatalf("step %d: participant %d should be eligible before award", i, step.award)
		}
		award(step.award)
		got := Evaluate(pool)
		if got.Cycle != step.wantCycle {
			t.Errorf("step %d: Cycle = %q, want %q", i, got.Cycle, step.wantCycle)
		}
		if diff := cmp.Diff(step.wantIDs, got.IDs()); diff != "" {
			t.Errorf("step %d: eligible mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestBuildStatus(t *testing.T) {
	pool := players(
		Participant{ID: 1, Name: "A", AwardCount: 2, IsCurrentHolder: true},
		Participant{ID: 2, Name: "B", AwardCount: 1},
		Participant{ID: 3, Name: "C", AwardCount: 0, IsExcluded: true},
		Participant{ID: 4, Name: "D", AwardCount: 3},
	)

	status := BuildStatus(KindMVP, pool)
	if !status.CanAssign {
		t.Fatal("CanAssign = false, want true")
	}
	if status.CurrentHolder == nil || status.CurrentHolder.ID != 1 {
		t.Fatalf("CurrentHolder = %+v, want participant 1", status.CurrentHolder)
	}
	want := Stats{Total: 4, Active: 3, EverHeld: 3, Min: 1, Max: 3, Average: 2}
	if diff := cmp.Diff(want, status.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	empty := BuildStatus(KindWinner, nil)
	if empty.CanAssign || empty.Cycle != CycleNoParticipants || empty.Eligible == nil {
		t.Errorf("empty status = %+v, want no participants with non-nil eligible", empty)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "mvp", want: KindMVP},
		{in: "Player", want: KindMVP},
		{in: "winner", want: KindWinner},
		{in: " alliance ", want: KindWinner},
		{in: "captain", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownKind) {
				t.Errorf("ParseKind(%q) error = %v, want ErrUnknownKind", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if KindWinner.SupportsExclusion() {
		t.Error("alliances must not support exclusion")
	}
}
