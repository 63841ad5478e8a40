package rotationservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	rotationdb "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories"
	"github.com/Black-And-White-Club/award-rotation/app/shared/results"
	"github.com/uptrace/bun"
)

// awardChange is the committed outcome of an assign or unassign together
// with the notice to publish once the transaction is durable.
type awardChange struct {
	Assignment rotationdomain.Assignment
	Notice     rotationdomain.AwardNotice
}

// RotationStatus returns the eligibility view for kind. It never writes.
func (s *RotationService) RotationStatus(ctx context.Context, store TenantStore, kind rotationdomain.Kind) (rotationdomain.Status, error) {
	if err := validateKind(kind); err != nil {
		return rotationdomain.Status{}, err
	}
	return unwrap(withTelemetry(s, ctx, store, "RotationStatus", kind, func(ctx context.Context) (results.OperationResult[rotationdomain.Status, error], error) {
		return runRead(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[rotationdomain.Status, error], error) {
			rows, err := s.participants.List(ctx, db, kind, true)
			if err != nil {
				return results.OperationResult[rotationdomain.Status, error]{}, fmt.Errorf("list participants: %w", err)
			}
			return succeed(rotationdomain.BuildStatus(kind, rotationdb.ParticipantsToDomain(rows)))
		})
	}))
}

// Assign grants kind's award to participantID for eventID. The participant
// must be in the eligible set computed inside the same transaction.
func (s *RotationService) Assign(ctx context.Context, store TenantStore, kind rotationdomain.Kind, participantID, eventID int64) (rotationdomain.Assignment, error) {
	if err := validateKind(kind); err != nil {
		return rotationdomain.Assignment{}, err
	}
	change, err := unwrap(withTelemetry(s, ctx, store, "Assign", kind, func(ctx context.Context) (results.OperationResult[awardChange, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[awardChange, error], error) {
			return s.assignLogic(ctx, db, store.TenantID(), kind, participantID, eventID)
		})
	}))
	if err != nil {
		return rotationdomain.Assignment{}, err
	}

	s.metrics.RecordAssignment(kind.String())
	s.announce(ctx, change.Notice)
	return change.Assignment, nil
}

func (s *RotationService) assignLogic(ctx context.Context, db bun.IDB, tenantID string, kind rotationdomain.Kind, participantID, eventID int64) (results.OperationResult[awardChange, error], error) {
	now := s.now()
	if _, err := s.state.AcquireRotationLock(ctx, db, kind, now); err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("acquire rotation lock: %w", err)
	}

	rows, err := s.participants.List(ctx, db, kind, true)
	if err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("list participants: %w", err)
	}
	if err := s.checkProjections(ctx, db, kind, rows); err != nil {
		return results.OperationResult[awardChange, error]{}, err
	}

	participants := rotationdb.ParticipantsToDomain(rows)
	var target *rotationdomain.Participant
	for i := range participants {
		if participants[i].ID == participantID {
			target = &participants[i]
			break
		}
	}
	if target == nil {
		return fail[awardChange](fmt.Errorf("%s %d: %w", kind.ParticipantNoun(), participantID, ErrNotFound))
	}

	event, err := s.events.Get(ctx, db, eventID)
	if err != nil {
		return failOrErr[awardChange](err, fmt.Sprintf("event %d", eventID))
	}

	eligibility := rotationdomain.Evaluate(participants)
	if !eligibility.Contains(participantID) {
		return fail[awardChange](&NotEligibleError{
			Kind:          kind,
			ParticipantID: participantID,
			Name:          target.Name,
			Excluded:      target.IsExcluded,
			Cycle:         eligibility.Cycle,
			Eligible:      eligibility.Eligible,
		})
	}

	if err := s.participants.ClearHolders(ctx, db, kind, now); err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("clear holders: %w", err)
	}
	entry, err := s.ledger.Append(ctx, db, kind, participantID, eventID, now)
	if err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("append ledger entry: %w", err)
	}
	if err := s.participants.IncrementCount(ctx, db, kind, participantID, now); err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("increment award count: %w", err)
	}
	if err := s.participants.SetHolder(ctx, db, kind, participantID, now); err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("set holder: %w", err)
	}
	if err := s.events.SetFlag(ctx, db, kind, eventID, true); err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("set event flag: %w", err)
	}

	entry.ParticipantName = target.Name
	entry.EventName = event.Name
	assignment := entry.ToDomain(kind)
	return succeed(awardChange{
		Assignment: assignment,
		Notice: rotationdomain.AwardNotice{
			Topic:           rotationdomain.AwardAssignedV1,
			TenantID:        tenantID,
			Kind:            kind,
			AssignmentID:    assignment.ID,
			ParticipantID:   participantID,
			ParticipantName: target.Name,
			EventID:         eventID,
			EventName:       event.Name,
			AwardCount:      target.AwardCount + 1,
			OccurredAt:      now,
		},
	})
}

// checkProjections compares stored counters with the ledger and the holder
// flag with its uniqueness rule. Any disagreement aborts the write.
func (s *RotationService) checkProjections(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, rows []rotationdb.Participant) error {
	counts, err := s.ledger.CountsByParticipant(ctx, db, kind)
	if err != nil {
		return fmt.Errorf("count ledger entries: %w", err)
	}

	holders := 0
	for _, p := range rows {
		if p.AwardCount != counts[p.ID] {
			return fmt.Errorf("%w: %s %q has award_count %d but %d ledger entries",
				ErrInvariantViolation, kind.ParticipantNoun(), p.Name, p.AwardCount, counts[p.ID])
		}
		if p.IsCurrentHolder {
			holders++
		}
	}
	if holders > 1 {
		return fmt.Errorf("%w: %d current %s holders", ErrInvariantViolation, holders, kind)
	}
	return nil
}

// Unassign removes one ledger entry and re-derives the count, holder and
// event flag it contributed to.
func (s *RotationService) Unassign(ctx context.Context, store TenantStore, kind rotationdomain.Kind, assignmentID int64) (rotationdomain.Assignment, error) {
	if err := validateKind(kind); err != nil {
		return rotationdomain.Assignment{}, err
	}
	change, err := unwrap(withTelemetry(s, ctx, store, "Unassign", kind, func(ctx context.Context) (results.OperationResult[awardChange, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[awardChange, error], error) {
			return s.unassignLogic(ctx, db, store.TenantID(), kind, assignmentID)
		})
	}))
	if err != nil {
		return rotationdomain.Assignment{}, err
	}

	s.announce(ctx, change.Notice)
	return change.Assignment, nil
}

func (s *RotationService) unassignLogic(ctx context.Context, db bun.IDB, tenantID string, kind rotationdomain.Kind, assignmentID int64) (results.OperationResult[awardChange, error], error) {
	now := s.now()
	if _, err := s.state.AcquireRotationLock(ctx, db, kind, now); err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("acquire rotation lock: %w", err)
	}

	entry, err := s.ledger.Get(ctx, db, kind, assignmentID)
	if err != nil {
		return failOrErr[awardChange](err, fmt.Sprintf("%s assignment %d", kind, assignmentID))
	}
	if err := s.ledger.Delete(ctx, db, kind, assignmentID); err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("delete ledger entry: %w", err)
	}
	if err := s.participants.DecrementCount(ctx, db, kind, entry.ParticipantID, now); err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("decrement award count: %w", err)
	}
	if err := s.refreshHolder(ctx, db, kind, now); err != nil {
		return results.OperationResult[awardChange, error]{}, err
	}
	if err := s.refreshEventFlag(ctx, db, kind, entry.EventID); err != nil {
		return results.OperationResult[awardChange, error]{}, err
	}

	participant, err := s.participants.Get(ctx, db, kind, entry.ParticipantID)
	if err != nil {
		return results.OperationResult[awardChange, error]{}, fmt.Errorf("reload participant: %w", err)
	}

	assignment := entry.ToDomain(kind)
	return succeed(awardChange{
		Assignment: assignment,
		Notice: rotationdomain.AwardNotice{
			Topic:           rotationdomain.AwardUnassignedV1,
			TenantID:        tenantID,
			Kind:            kind,
			AssignmentID:    assignment.ID,
			ParticipantID:   assignment.ParticipantID,
			ParticipantName: assignment.ParticipantName,
			EventID:         assignment.EventID,
			EventName:       assignment.EventName,
			AwardCount:      participant.AwardCount,
			OccurredAt:      now,
		},
	})
}

// refreshHolder makes the participant of the most recent ledger entry the
// holder, or nobody when the ledger is empty or that participant is excluded.
func (s *RotationService) refreshHolder(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, now time.Time) error {
	if err := s.participants.ClearHolders(ctx, db, kind, now); err != nil {
		return fmt.Errorf("clear holders: %w", err)
	}

	latest, err := s.ledger.Latest(ctx, db, kind)
	if err != nil {
		if errors.Is(err, rotationdb.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("read latest ledger entry: %w", err)
	}

	p, err := s.participants.Get(ctx, db, kind, latest.ParticipantID)
	if err != nil {
		return fmt.Errorf("load holder: %w", err)
	}
	entry := latest.Entry()
	holder := rotationdomain.HolderFor(&entry, p.IsExcluded)
	if holder == 0 {
		return nil
	}
	if err := s.participants.SetHolder(ctx, db, kind, holder, now); err != nil {
		return fmt.Errorf("set holder: %w", err)
	}
	return nil
}

// refreshEventFlag sets the event's kind flag to whether any entry of kind
// still references it.
func (s *RotationService) refreshEventFlag(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, eventID int64) error {
	exists, err := s.ledger.ExistsForEvent(ctx, db, kind, eventID)
	if err != nil {
		return fmt.Errorf("check event assignments: %w", err)
	}
	if err := s.events.SetFlag(ctx, db, kind, eventID, exists); err != nil && !errors.Is(err, rotationdb.ErrNotFound) {
		return fmt.Errorf("set event flag: %w", err)
	}
	return nil
}

// History returns the ledger most recent first. participantID 0 returns
// every participant's entries; limit <= 0 returns all of them.
func (s *RotationService) History(ctx context.Context, store TenantStore, kind rotationdomain.Kind, participantID int64, limit int) ([]rotationdomain.Assignment, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if participantID < 0 {
		return nil, fmt.Errorf("%w: participant id must not be negative", ErrInvalidInput)
	}
	return unwrap(withTelemetry(s, ctx, store, "History", kind, func(ctx context.Context) (results.OperationResult[[]rotationdomain.Assignment, error], error) {
		return runRead(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]rotationdomain.Assignment, error], error) {
			if participantID != 0 {
				if _, err := s.participants.Get(ctx, db, kind, participantID); err != nil {
					return failOrErr[[]rotationdomain.Assignment](err, fmt.Sprintf("%s %d", kind.ParticipantNoun(), participantID))
				}
			}
			rows, err := s.ledger.History(ctx, db, kind, participantID, limit)
			if err != nil {
				return results.OperationResult[[]rotationdomain.Assignment, error]{}, fmt.Errorf("read history: %w", err)
			}
			return succeed(rotationdb.AssignmentsToDomain(kind, rows))
		})
	}))
}

// CountFor returns how many ledger entries participantID has for kind.
func (s *RotationService) CountFor(ctx context.Context, store TenantStore, kind rotationdomain.Kind, participantID int64) (int, error) {
	if err := validateKind(kind); err != nil {
		return 0, err
	}
	return unwrap(withTelemetry(s, ctx, store, "CountFor", kind, func(ctx context.Context) (results.OperationResult[int, error], error) {
		return runRead(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
			if _, err := s.participants.Get(ctx, db, kind, participantID); err != nil {
				return failOrErr[int](err, fmt.Sprintf("%s %d", kind.ParticipantNoun(), participantID))
			}
			n, err := s.ledger.CountFor(ctx, db, kind, participantID)
			if err != nil {
				return results.OperationResult[int, error]{}, fmt.Errorf("count ledger entries: %w", err)
			}
			return succeed(n)
		})
	}))
}
