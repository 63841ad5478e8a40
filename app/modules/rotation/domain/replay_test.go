package rotationdomain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReplay(t *testing.T) {
	entries := []LedgerEntry{
		{ID: 3, ParticipantID: 20},
		{ID: 1, ParticipantID: 10},
		{ID: 7, ParticipantID: 10},
		{ID: 5, ParticipantID: 30},
	}

	tests := []struct {
		name     string
		excluded map[int64]bool
		want     Projection
	}{
		{
			name: "latest entry holds",
			want: Projection{Counts: map[int64]int{10: 2, 20: 1, 30: 1}, Holder: 10},
		},
		{
			name:     "excluded latest holder clears holder",
			excluded: map[int64]bool{10: true},
			want:     Projection{Counts: map[int64]int{10: 2, 20: 1, 30: 1}, Holder: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Replay(entries, tt.excluded)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Replay() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := Replay(nil, nil); got.Holder != 0 || len(got.Counts) != 0 {
		t.Errorf("Replay(nil) = %+v, want empty projection", got)
	}
}

func TestDiff(t *testing.T) {
	proj := Projection{Counts: map[int64]int{1: 2, 2: 1, 99: 1}, Holder: 2}
	stored := []Participant{
		{ID: 1, Name: "A", AwardCount: 2, IsCurrentHolder: true},
		{ID: 2, Name: "B", AwardCount: 1},
		{ID: 3, Name: "C", AwardCount: 0},
	}

	got := Diff(stored, proj)
	want := []Drift{
		{ParticipantID: 1, Name: "A", Field: "is_current_holder", Stored: "true", Replayed: "false"},
		{ParticipantID: 2, Name: "B", Field: "is_current_holder", Stored: "false", Replayed: "true"},
		{ParticipantID: 99, Field: "participant", Stored: "missing", Replayed: "1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
	}

	consistent := []Participant{
		{ID: 1, AwardCount: 2},
		{ID: 2, AwardCount: 1, IsCurrentHolder: true},
	}
	if drifts := Diff(consistent, Projection{Counts: map[int64]int{1: 2, 2: 1}, Holder: 2}); len(drifts) != 0 {
		t.Errorf("Diff() on consistent state = %v, want none", drifts)
	}
}

func TestHolderFor(t *testing.T) {
	if got := HolderFor(nil, false); got != 0 {
		t.Errorf("HolderFor(nil) = %d, want 0", got)
	}
	latest := &LedgerEntry{ID: 4, ParticipantID: 12}
	if got := HolderFor(latest, false); got != 12 {
		t.Errorf("HolderFor() = %d, want 12", got)
	}
	if got := HolderFor(latest, true); got != 0 {
		t.Errorf("HolderFor(excluded) = %d, want 0", got)
	}
}
