package rotationservice

import (
	"context"
	"sync"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	rotationdb "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Announcer
// ------------------------

type FakeAnnouncer struct {
	mu      sync.Mutex
	notices []rotationdomain.AwardNotice

	PublishFunc func(ctx context.Context, notice rotationdomain.AwardNotice) error
}

func NewFakeAnnouncer() *FakeAnnouncer {
	return &FakeAnnouncer{}
}

func (f *FakeAnnouncer) Publish(ctx context.Context, notice rotationdomain.AwardNotice) error {
	f.mu.Lock()
	f.notices = append(f.notices, notice)
	f.mu.Unlock()
	if f.PublishFunc != nil {
		return f.PublishFunc(ctx, notice)
	}
	return nil
}

func (f *FakeAnnouncer) Notices() []rotationdomain.AwardNotice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rotationdomain.AwardNotice, len(f.notices))
	copy(out, f.notices)
	return out
}

// ------------------------
// Fake Ledger Repo
// ------------------------

// FakeLedgerRepo delegates to a real ledger unless a *Func override is set,
// so tests can inject failures at one step of a transaction.
type FakeLedgerRepo struct {
	rotationdb.LedgerRepository
	trace []string

	AppendFunc func(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, participantID, eventID int64, at time.Time) (*rotationdb.Assignment, error)
}

func NewFakeLedgerRepo() *FakeLedgerRepo {
	return &FakeLedgerRepo{
		LedgerRepository: rotationdb.NewLedgerRepo(),
		trace:            []string{},
	}
}

func (f *FakeLedgerRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeLedgerRepo) Trace() []string {
	return f.trace
}

func (f *FakeLedgerRepo) Append(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, participantID, eventID int64, at time.Time) (*rotationdb.Assignment, error) {
	f.record("Append")
	if f.AppendFunc != nil {
		return f.AppendFunc(ctx, db, kind, participantID, eventID, at)
	}
	return f.LedgerRepository.Append(ctx, db, kind, participantID, eventID, at)
}
