package rotationservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	rotationdb "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories"
	rotationmigrations "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories/migrations"
	tenantstore "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/store"
	"github.com/Black-And-White-Club/award-rotation/app/observability"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const (
	mvp    = rotationdomain.KindMVP
	winner = rotationdomain.KindWinner
)

type harness struct {
	t         *testing.T
	ctx       context.Context
	svc       *RotationService
	store     *tenantstore.Store
	announcer *FakeAnnouncer
}

func openStore(t *testing.T, dir, tenantID string) *tenantstore.Store {
	t.Helper()
	ctx := context.Background()
	store, err := tenantstore.Open(ctx, tenantID, tenantstore.PathFor(dir, tenantID), tenantstore.Options{Create: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.Migrate(ctx, rotationmigrations.Migrations)
	require.NoError(t, err)
	return store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, DefaultRepositories())
}

func newHarnessWith(t *testing.T, repos Repositories) *harness {
	t.Helper()
	announcer := NewFakeAnnouncer()
	return &harness{
		t:         t,
		ctx:       context.Background(),
		svc:       NewRotationService(repos, announcer, slog.Default(), observability.NewNoop(), nil),
		store:     openStore(t, t.TempDir(), "acme"),
		announcer: announcer,
	}
}

func (h *harness) participant(kind rotationdomain.Kind, name string) int64 {
	h.t.Helper()
	p, err := h.svc.CreateParticipant(h.ctx, h.store, kind, name)
	require.NoError(h.t, err)
	return p.ID
}

func (h *harness) event(name string) int64 {
	h.t.Helper()
	e, err := h.svc.CreateEvent(h.ctx, h.store, EventInput{Name: name})
	require.NoError(h.t, err)
	return e.ID
}

func (h *harness) assign(kind rotationdomain.Kind, participantID, eventID int64) rotationdomain.Assignment {
	h.t.Helper()
	a, err := h.svc.Assign(h.ctx, h.store, kind, participantID, eventID)
	require.NoError(h.t, err)
	return a
}

func (h *harness) status(kind rotationdomain.Kind) rotationdomain.Status {
	h.t.Helper()
	st, err := h.svc.RotationStatus(h.ctx, h.store, kind)
	require.NoError(h.t, err)
	return st
}

func (h *harness) eligibleNames(kind rotationdomain.Kind) []string {
	h.t.Helper()
	names := []string{}
	for _, p := range h.status(kind).Eligible {
		names = append(names, p.Name)
	}
	return names
}

func (h *harness) holderName(kind rotationdomain.Kind) string {
	h.t.Helper()
	if holder := h.status(kind).CurrentHolder; holder != nil {
		return holder.Name
	}
	return ""
}

func (h *harness) requireConsistent(kind rotationdomain.Kind) {
	h.t.Helper()
	report, err := h.svc.VerifyLedger(h.ctx, h.store, kind)
	require.NoError(h.t, err, "drifts: %v", report.Drifts)
}

func TestAssignRotationWalk(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "A")
	b := h.participant(mvp, "B")
	c := h.participant(mvp, "C")
	e := h.event("Week 1")

	st := h.status(mvp)
	assert.Equal(t, rotationdomain.CycleFirst, st.Cycle)
	assert.True(t, st.CanAssign)
	assert.Equal(t, []string{"A", "B", "C"}, h.eligibleNames(mvp))
	assert.Nil(t, st.CurrentHolder)

	h.assign(mvp, a, e)
	assert.Equal(t, []string{"B", "C"}, h.eligibleNames(mvp))
	assert.Equal(t, "A", h.holderName(mvp))

	_, err := h.svc.Assign(h.ctx, h.store, mvp, a, e)
	require.ErrorIs(t, err, ErrNotEligible)
	var notEligible *NotEligibleError
	require.True(t, errors.As(err, &notEligible))
	assert.Equal(t, "A", notEligible.Name)
	assert.False(t, notEligible.Excluded)
	assert.Len(t, notEligible.Eligible, 2)

	h.assign(mvp, b, e)
	h.assign(mvp, c, e)
	st = h.status(mvp)
	assert.Equal(t, rotationdomain.CycleSteady, st.Cycle)
	assert.Equal(t, []string{"A", "B", "C"}, h.eligibleNames(mvp))
	assert.Equal(t, "C", st.CurrentHolder.Name)
	assert.Equal(t, rotationdomain.Stats{Total: 3, Active: 3, EverHeld: 3, Min: 1, Max: 1, Average: 1}, st.Stats)

	h.assign(mvp, b, e)
	assert.Equal(t, []string{"A", "C"}, h.eligibleNames(mvp))
	assert.Equal(t, "B", h.holderName(mvp))

	n, err := h.svc.CountFor(h.ctx, h.store, mvp, b)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ev, err := h.svc.GetEvent(h.ctx, h.store, e)
	require.NoError(t, err)
	assert.True(t, ev.HasMVP)
	assert.False(t, ev.HasWinner)

	h.requireConsistent(mvp)
}

func TestAssignFailures(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "A")
	e := h.event("Week 1")

	tests := []struct {
		name    string
		kind    rotationdomain.Kind
		player  int64
		event   int64
		wantErr error
	}{
		{name: "unknown participant", kind: mvp, player: 999, event: e, wantErr: ErrNotFound},
		{name: "unknown event", kind: mvp, player: a, event: 999, wantErr: ErrNotFound},
		{name: "participant of other kind", kind: winner, player: a, event: e, wantErr: ErrNotFound},
		{name: "unknown kind", kind: rotationdomain.Kind("captain"), player: a, event: e, wantErr: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Assign(h.ctx, h.store, tt.kind, tt.player, tt.event)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("no participants", func(t *testing.T) {
		st := h.status(winner)
		assert.Equal(t, rotationdomain.CycleNoParticipants, st.Cycle)
		assert.False(t, st.CanAssign)
		assert.Empty(t, st.Eligible)
	})

	t.Run("failed attempts leave no trace", func(t *testing.T) {
		state, err := rotationdb.NewStateRepo().Get(h.ctx, h.store.DB(), mvp)
		require.NoError(t, err)
		_, err = h.svc.Assign(h.ctx, h.store, mvp, 999, e)
		require.Error(t, err)
		after, err := rotationdb.NewStateRepo().Get(h.ctx, h.store.DB(), mvp)
		require.NoError(t, err)
		assert.Equal(t, state.Version, after.Version)
		assert.Empty(t, h.announcer.Notices())
	})
}

func TestExclusion(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "A")
	b := h.participant(mvp, "B")
	c := h.participant(mvp, "C")
	e := h.event("Week 1")

	_, err := h.svc.SetExcluded(h.ctx, h.store, mvp, c, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, h.eligibleNames(mvp))

	h.assign(mvp, a, e)
	h.assign(mvp, b, e)
	st := h.status(mvp)
	assert.Equal(t, rotationdomain.CycleSteady, st.Cycle, "excluded players do not hold the cycle open")
	assert.Equal(t, []string{"A", "B"}, h.eligibleNames(mvp))
	assert.Equal(t, 3, st.Stats.Total)
	assert.Equal(t, 2, st.Stats.Active)

	_, err = h.svc.Assign(h.ctx, h.store, mvp, c, e)
	var notEligible *NotEligibleError
	require.True(t, errors.As(err, &notEligible))
	assert.True(t, notEligible.Excluded)

	t.Run("excluding the holder clears the holder flag", func(t *testing.T) {
		p, err := h.svc.SetExcluded(h.ctx, h.store, mvp, b, true)
		require.NoError(t, err)
		assert.False(t, p.IsCurrentHolder)
		assert.Equal(t, 1, p.AwardCount)
		assert.Equal(t, "", h.holderName(mvp))
		h.requireConsistent(mvp)
	})

	t.Run("re-including restores the holder from the ledger", func(t *testing.T) {
		p, err := h.svc.SetExcluded(h.ctx, h.store, mvp, b, false)
		require.NoError(t, err)
		assert.True(t, p.IsCurrentHolder)
		assert.Equal(t, "B", h.holderName(mvp))
		h.requireConsistent(mvp)
	})

	t.Run("list filters excluded players", func(t *testing.T) {
		active, err := h.svc.ListParticipants(h.ctx, h.store, mvp, false)
		require.NoError(t, err)
		assert.Len(t, active, 2)
		all, err := h.svc.ListParticipants(h.ctx, h.store, mvp, true)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("alliances cannot be excluded", func(t *testing.T) {
		x := h.participant(winner, "X")
		_, err := h.svc.SetExcluded(h.ctx, h.store, winner, x, true)
		assert.ErrorIs(t, err, ErrExclusionUnsupported)
	})

	t.Run("unknown player", func(t *testing.T) {
		_, err := h.svc.SetExcluded(h.ctx, h.store, mvp, 999, true)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUnassign(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "A")
	b := h.participant(mvp, "B")
	e1 := h.event("Week 1")
	e2 := h.event("Week 2")

	first := h.assign(mvp, a, e1)
	second := h.assign(mvp, b, e2)
	require.Equal(t, "B", h.holderName(mvp))

	removed, err := h.svc.Unassign(h.ctx, h.store, mvp, second.ID)
	require.NoError(t, err)
	assert.Equal(t, b, removed.ParticipantID)
	assert.Equal(t, "B", removed.ParticipantName)
	assert.Equal(t, "A", h.holderName(mvp), "holder falls back to the previous entry")
	assert.Equal(t, []string{"B"}, h.eligibleNames(mvp))

	ev, err := h.svc.GetEvent(h.ctx, h.store, e2)
	require.NoError(t, err)
	assert.False(t, ev.HasMVP)

	_, err = h.svc.Unassign(h.ctx, h.store, mvp, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "", h.holderName(mvp))
	assert.Equal(t, rotationdomain.CycleFirst, h.status(mvp).Cycle)

	_, err = h.svc.Unassign(h.ctx, h.store, mvp, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	h.requireConsistent(mvp)

	notices := h.announcer.Notices()
	require.Len(t, notices, 4)
	assert.Equal(t, rotationdomain.AwardUnassignedV1, notices[2].Topic)
	assert.Equal(t, 0, notices[2].AwardCount)
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "A")
	b := h.participant(mvp, "B")
	e := h.event("Week 1")

	first := h.assign(mvp, a, e)
	second := h.assign(mvp, b, e)
	third := h.assign(mvp, a, e)

	all, err := h.svc.History(h.ctx, h.store, mvp, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{third.ID, second.ID, first.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "Week 1", all[0].EventName)

	mine, err := h.svc.History(h.ctx, h.store, mvp, a, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	again, err := h.svc.History(h.ctx, h.store, mvp, a, 0)
	require.NoError(t, err)
	assert.Equal(t, mine, again, "history restarts from the newest entry")

	_, err = h.svc.History(h.ctx, h.store, mvp, 999, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEventCascade(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "A")
	b := h.participant(mvp, "B")
	x := h.participant(winner, "X")
	y := h.participant(winner, "Y")
	e1 := h.event("Week 1")
	e2 := h.event("Week 2")

	h.assign(mvp, a, e1)
	h.assign(winner, x, e1)
	h.assign(mvp, b, e2)
	h.assign(winner, y, e2)
	h.assign(winner, x, e1)

	summary, err := h.svc.DeleteEvent(h.ctx, h.store, e1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Removed[mvp])
	assert.Equal(t, 2, summary.Removed[winner])
	assert.Equal(t, []int64{x, x}, summary.Decremented[winner])

	players, err := h.svc.ListParticipants(h.ctx, h.store, mvp, true)
	require.NoError(t, err)
	assert.Equal(t, 0, players[0].AwardCount)
	assert.Equal(t, 1, players[1].AwardCount)
	assert.Equal(t, "B", h.holderName(mvp))
	assert.Equal(t, "Y", h.holderName(winner))

	_, err = h.svc.GetEvent(h.ctx, h.store, e1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.svc.DeleteEvent(h.ctx, h.store, e1)
	assert.ErrorIs(t, err, ErrNotFound)

	h.requireConsistent(mvp)
	h.requireConsistent(winner)
}

func TestDeleteParticipant(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "A")
	b := h.participant(mvp, "B")
	e1 := h.event("Week 1")
	e2 := h.event("Week 2")

	h.assign(mvp, a, e1)
	h.assign(mvp, b, e2)

	require.NoError(t, h.svc.DeleteParticipant(h.ctx, h.store, mvp, b))
	assert.Equal(t, "A", h.holderName(mvp))

	ev, err := h.svc.GetEvent(h.ctx, h.store, e2)
	require.NoError(t, err)
	assert.False(t, ev.HasMVP)

	assert.ErrorIs(t, h.svc.DeleteParticipant(h.ctx, h.store, mvp, b), ErrNotFound)
	h.requireConsistent(mvp)
}

func TestParticipantValidation(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "Alice")

	_, err := h.svc.CreateParticipant(h.ctx, h.store, mvp, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.svc.CreateParticipant(h.ctx, h.store, mvp, " Alice ")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = h.svc.CreateParticipant(h.ctx, h.store, winner, "Alice")
	assert.NoError(t, err, "names are unique per kind")

	p, err := h.svc.RenameParticipant(h.ctx, h.store, mvp, a, "Alicia")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", p.Name)

	_, err = h.svc.RenameParticipant(h.ctx, h.store, mvp, 999, "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.svc.ListParticipants(h.ctx, h.store, rotationdomain.Kind("captain"), true)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEvents(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateEvent(h.ctx, h.store, EventInput{Name: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)

	desc := "  finals night "
	e, err := h.svc.CreateEvent(h.ctx, h.store, EventInput{Name: "Finals", Description: &desc})
	require.NoError(t, err)
	require.NotNil(t, e.Description)
	assert.Equal(t, "finals night", *e.Description)
	assert.False(t, e.EventDate.IsZero())

	updated, err := h.svc.UpdateEvent(h.ctx, h.store, e.ID, EventInput{Name: "Grand Finals", EventDate: e.EventDate})
	require.NoError(t, err)
	assert.Equal(t, "Grand Finals", updated.Name)
	assert.Nil(t, updated.Description)

	_, err = h.svc.UpdateEvent(h.ctx, h.store, 999, EventInput{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	events, err := h.svc.ListEvents(h.ctx, h.store)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Grand Finals", events[0].Name)
}

func TestResetRotation(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "A")
	x := h.participant(winner, "X")
	e := h.event("Week 1")
	h.assign(mvp, a, e)
	h.assign(winner, x, e)

	removed, err := h.svc.ResetRotation(h.ctx, h.store, mvp)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	st := h.status(mvp)
	assert.Equal(t, rotationdomain.CycleFirst, st.Cycle)
	assert.Nil(t, st.CurrentHolder)
	assert.Equal(t, "X", h.holderName(winner), "other kind untouched")

	ev, err := h.svc.GetEvent(h.ctx, h.store, e)
	require.NoError(t, err)
	assert.False(t, ev.HasMVP)
	assert.True(t, ev.HasWinner)

	h.requireConsistent(mvp)
	h.requireConsistent(winner)
}

func TestInvariantViolation(t *testing.T) {
	h := newHarness(t)
	a := h.participant(mvp, "A")
	b := h.participant(mvp, "B")
	e := h.event("Week 1")
	h.assign(mvp, a, e)

	_, err := h.store.DB().ExecContext(h.ctx, "UPDATE players SET award_count = 5 WHERE id = ?", a)
	require.NoError(t, err)

	_, err = h.svc.Assign(h.ctx, h.store, mvp, b, e)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	n, err := h.svc.CountFor(h.ctx, h.store, mvp, b)
	require.NoError(t, err)
	assert.Zero(t, n, "rejected assignment must not be written")

	report, err := h.svc.VerifyLedger(h.ctx, h.store, mvp)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, "award_count", report.Drifts[0].Field)

	fixed, err := h.svc.RebuildProjections(h.ctx, h.store, mvp)
	require.NoError(t, err)
	assert.Len(t, fixed.Drifts, 1)
	h.requireConsistent(mvp)

	h.assign(mvp, b, e)
}

func TestAssignRollsBackOnLedgerFailure(t *testing.T) {
	ledger := NewFakeLedgerRepo()
	repos := DefaultRepositories()
	repos.Ledger = ledger
	h := newHarnessWith(t, repos)

	a := h.participant(mvp, "A")
	b := h.participant(mvp, "B")
	e := h.event("Week 1")
	h.assign(mvp, a, e)

	ledger.AppendFunc = func(context.Context, bun.IDB, rotationdomain.Kind, int64, int64, time.Time) (*rotationdb.Assignment, error) {
		return nil, errors.New("disk full")
	}
	_, err := h.svc.Assign(h.ctx, h.store, mvp, b, e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, "A", h.holderName(mvp), "cleared holder flag must be rolled back")
	assert.Equal(t, []string{"Append", "Append"}, ledger.Trace())
	assert.Len(t, h.announcer.Notices(), 1)
	h.requireConsistent(mvp)
}

func TestAnnouncementFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.announcer.PublishFunc = func(context.Context, rotationdomain.AwardNotice) error {
		return errors.New("webhook down")
	}
	a := h.participant(mvp, "A")
	e := h.event("Week 1")

	assignment := h.assign(mvp, a, e)
	assert.Equal(t, "A", assignment.ParticipantName)

	notices := h.announcer.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, rotationdomain.AwardAssignedV1, notices[0].Topic)
	assert.Equal(t, "acme", notices[0].TenantID)
	assert.Equal(t, 1, notices[0].AwardCount)
	assert.Equal(t, "Week 1", notices[0].EventName)
}

func TestTenantIsolation(t *testing.T) {
	dir := t.TempDir()
	svc := NewRotationService(DefaultRepositories(), nil, slog.Default(), nil, nil)
	ctx := context.Background()
	acme := openStore(t, dir, "acme")
	globex := openStore(t, dir, "globex")

	p, err := svc.CreateParticipant(ctx, acme, mvp, "A")
	require.NoError(t, err)
	e, err := svc.CreateEvent(ctx, acme, EventInput{Name: "Week 1"})
	require.NoError(t, err)
	_, err = svc.Assign(ctx, acme, mvp, p.ID, e.ID)
	require.NoError(t, err)

	others, err := svc.ListParticipants(ctx, globex, mvp, true)
	require.NoError(t, err)
	assert.Empty(t, others)
	history, err := svc.History(ctx, globex, mvp, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = svc.Assign(ctx, globex, mvp, p.ID, e.ID)
	assert.ErrorIs(t, err, ErrNotFound, "ids from one tenant mean nothing in another")
}

func TestConcurrentAssignSameTenant(t *testing.T) {
	ctx := context.Background()
	svc := NewRotationService(DefaultRepositories(), nil, slog.Default(), nil, nil)
	first := openStore(t, t.TempDir(), "acme")
	second, err := tenantstore.Open(ctx, "acme", first.Path(), tenantstore.Options{BusyTimeout: 10 * time.Second})
	require.NoError(t, err)
	defer second.Close()

	a, err := svc.CreateParticipant(ctx, first, mvp, "A")
	require.NoError(t, err)
	_, err = svc.CreateParticipant(ctx, first, mvp, "B")
	require.NoError(t, err)
	e, err := svc.CreateEvent(ctx, first, EventInput{Name: "Week 1"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, store := range []*tenantstore.Store{first, second} {
		wg.Add(1)
		go func(i int, store *tenantstore.Store) {
			defer wg.Done()
			_, errs[i] = svc.Assign(ctx, store, mvp, a.ID, e.ID)
		}(i, store)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrNotEligible)
	}
	assert.Equal(t, 1, succeeded, "both writers saw the same eligible set")

	n, err := svc.CountFor(ctx, first, mvp, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRandomOperationsKeepProjectionsConsistent(t *testing.T) {
	faker := gofakeit.New(42)
	h := newHarness(t)

	players := make([]int64, 0, 6)
	for i := 0; i < 6; i++ {
		players = append(players, h.participant(mvp, fmt.Sprintf("%s-%d", faker.FirstName(), i)))
	}
	events := make([]int64, 0, 3)
	for i := 0; i < 3; i++ {
		events = append(events, h.event(fmt.Sprintf("%s %d", faker.Noun(), i)))
	}
	pick := func(ids []int64) int64 { return ids[faker.IntRange(0, len(ids)-1)] }

	for step := 0; step < 80; step++ {
		switch op := faker.IntRange(0, 9); {
		case op <= 4:
			st := h.status(mvp)
			if !st.CanAssign {
				continue
			}
			target := st.Eligible[faker.IntRange(0, len(st.Eligible)-1)]
			h.assign(mvp, target.ID, pick(events))

		case op == 5:
			history, err := h.svc.History(h.ctx, h.store, mvp, 0, 0)
			require.NoError(t, err)
			if len(history) == 0 {
				continue
			}
			_, err = h.svc.Unassign(h.ctx, h.store, mvp, history[faker.IntRange(0, len(history)-1)].ID)
			require.NoError(t, err)

		case op == 6:
			id := pick(players)
			p, err := h.svc.GetParticipant(h.ctx, h.store, mvp, id)
			require.NoError(t, err)
			_, err = h.svc.SetExcluded(h.ctx, h.store, mvp, id, !p.IsExcluded)
			require.NoError(t, err)

		case op == 7:
			id := pick(players)
			st := h.status(mvp)
			eligible := false
			for _, p := range st.Eligible {
				eligible = eligible || p.ID == id
			}
			if eligible {
				continue
			}
			_, err := h.svc.Assign(h.ctx, h.store, mvp, id, pick(events))
			require.ErrorIs(t, err, ErrNotEligible, "step %d", step)

		default:
			idx := faker.IntRange(0, len(events)-1)
			_, err := h.svc.DeleteEvent(h.ctx, h.store, events[idx])
			require.NoError(t, err)
			events[idx] = h.event(fmt.Sprintf("%s %d", faker.Noun(), step))
		}

		all, err := h.svc.ListParticipants(h.ctx, h.store, mvp, true)
		require.NoError(t, err)
		holders := 0
		for _, p := range all {
			if p.IsCurrentHolder {
				holders++
			}
		}
		require.LessOrEqual(t, holders, 1, "step %d", step)

		st := h.status(mvp)
		for _, p := range st.Eligible {
			require.Equal(t, st.Stats.Min, p.AwardCount, "step %d", step)
			require.False(t, p.IsExcluded, "step %d", step)
		}
		h.requireConsistent(mvp)
	}
}
