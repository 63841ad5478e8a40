package rotationservice

import (
	"context"
	"fmt"
	"log/slog"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	rotationdb "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories"
	"github.com/Black-And-White-Club/award-rotation/app/shared/results"
	"github.com/uptrace/bun"
)

// LedgerReport is the outcome of replaying one kind's ledger against the
// stored projections.
type LedgerReport struct {
	Kind    rotationdomain.Kind    `json:"kind"`
	Entries int                    `json:"entries"`
	Drifts  []rotationdomain.Drift `json:"drifts"`
}

// Consistent reports whether the projections matched the replay.
func (r LedgerReport) Consistent() bool { return len(r.Drifts) == 0 }

// ResetRotation starts kind's rotation over: the ledger is emptied, every
// count is zeroed and no one holds the award. It returns the number of
// ledger entries removed.
func (s *RotationService) ResetRotation(ctx context.Context, store TenantStore, kind rotationdomain.Kind) (int, error) {
	if err := validateKind(kind); err != nil {
		return 0, err
	}
	return unwrap(withTelemetry(s, ctx, store, "ResetRotation", kind, func(ctx context.Context) (results.OperationResult[int, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
			now := s.now()
			if _, err := s.state.AcquireRotationLock(ctx, db, kind, now); err != nil {
				return results.OperationResult[int, error]{}, fmt.Errorf("acquire rotation lock: %w", err)
			}
			removed, err := s.ledger.DeleteAll(ctx, db, kind)
			if err != nil {
				return results.OperationResult[int, error]{}, fmt.Errorf("clear ledger: %w", err)
			}
			if err := s.participants.ResetCounts(ctx, db, kind, now); err != nil {
				return results.OperationResult[int, error]{}, fmt.Errorf("reset counts: %w", err)
			}
			if err := s.participants.ClearHolders(ctx, db, kind, now); err != nil {
				return results.OperationResult[int, error]{}, fmt.Errorf("clear holders: %w", err)
			}
			if err := s.events.ClearFlags(ctx, db, kind); err != nil {
				return results.OperationResult[int, error]{}, fmt.Errorf("clear event flags: %w", err)
			}
			return succeed(removed)
		})
	}))
}

// VerifyLedger replays kind's ledger and compares the result with the stored
// counts and holder flag. The report is returned in every case; the error
// wraps ErrInvariantViolation when any drift was found.
func (s *RotationService) VerifyLedger(ctx context.Context, store TenantStore, kind rotationdomain.Kind) (LedgerReport, error) {
	if err := validateKind(kind); err != nil {
		return LedgerReport{}, err
	}
	report, err := unwrap(withTelemetry(s, ctx, store, "VerifyLedger", kind, func(ctx context.Context) (results.OperationResult[LedgerReport, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[LedgerReport, error], error) {
			report, _, err := s.replay(ctx, db, kind)
			if err != nil {
				return results.OperationResult[LedgerReport, error]{}, err
			}
			return succeed(report)
		})
	}))
	if err != nil {
		return LedgerReport{}, err
	}
	if !report.Consistent() {
		s.logger.ErrorContext(ctx, "Ledger replay disagrees with stored projections",
			slog.String("tenant_id", store.TenantID()),
			slog.String("kind", kind.String()),
			slog.Int("drifts", len(report.Drifts)),
		)
		return report, fmt.Errorf("%w: %d %s projection drift(s)", ErrInvariantViolation, len(report.Drifts), kind)
	}
	return report, nil
}

// RebuildProjections rewrites kind's counts, holder flag and event flags
// from the ledger. The returned report lists what was wrong before the
// rebuild.
func (s *RotationService) RebuildProjections(ctx context.Context, store TenantStore, kind rotationdomain.Kind) (LedgerReport, error) {
	if err := validateKind(kind); err != nil {
		return LedgerReport{}, err
	}
	return unwrap(withTelemetry(s, ctx, store, "RebuildProjections", kind, func(ctx context.Context) (results.OperationResult[LedgerReport, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[LedgerReport, error], error) {
			now := s.now()
			if _, err := s.state.AcquireRotationLock(ctx, db, kind, now); err != nil {
				return results.OperationResult[LedgerReport, error]{}, fmt.Errorf("acquire rotation lock: %w", err)
			}
			report, replayed, err := s.replay(ctx, db, kind)
			if err != nil {
				return results.OperationResult[LedgerReport, error]{}, err
			}

			rows, err := s.participants.List(ctx, db, kind, true)
			if err != nil {
				return results.OperationResult[LedgerReport, error]{}, fmt.Errorf("list participants: %w", err)
			}
			for _, p := range rows {
				if err := s.participants.SetCount(ctx, db, kind, p.ID, replayed.proj.Counts[p.ID], now); err != nil {
					return results.OperationResult[LedgerReport, error]{}, fmt.Errorf("set count: %w", err)
				}
			}
			if err := s.participants.ClearHolders(ctx, db, kind, now); err != nil {
				return results.OperationResult[LedgerReport, error]{}, fmt.Errorf("clear holders: %w", err)
			}
			if replayed.proj.Holder != 0 {
				if err := s.participants.SetHolder(ctx, db, kind, replayed.proj.Holder, now); err != nil {
					return results.OperationResult[LedgerReport, error]{}, fmt.Errorf("set holder: %w", err)
				}
			}
			if err := s.events.ClearFlags(ctx, db, kind); err != nil {
				return results.OperationResult[LedgerReport, error]{}, fmt.Errorf("clear event flags: %w", err)
			}
			for eventID := range replayed.events {
				if err := s.events.SetFlag(ctx, db, kind, eventID, true); err != nil {
					return results.OperationResult[LedgerReport, error]{}, fmt.Errorf("set event flag: %w", err)
				}
			}
			return succeed(report)
		})
	}))
}

type replayResult struct {
	proj   rotationdomain.Projection
	events map[int64]bool
}

func (s *RotationService) replay(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (LedgerReport, replayResult, error) {
	rows, err := s.participants.List(ctx, db, kind, true)
	if err != nil {
		return LedgerReport{}, replayResult{}, fmt.Errorf("list participants: %w", err)
	}
	entries, err := s.ledger.ListAll(ctx, db, kind)
	if err != nil {
		return LedgerReport{}, replayResult{}, fmt.Errorf("read ledger: %w", err)
	}

	participants := rotationdb.ParticipantsToDomain(rows)
	proj := rotationdomain.Replay(rotationdb.Entries(entries), rotationdomain.ExcludedSet(participants))
	events := make(map[int64]bool)
	for _, e := range entries {
		events[e.EventID] = true
	}

	drifts := rotationdomain.Diff(participants, proj)
	if drifts == nil {
		drifts = []rotationdomain.Drift{}
	}
	return LedgerReport{Kind: kind, Entries: len(entries), Drifts: drifts}, replayResult{proj: proj, events: events}, nil
}
