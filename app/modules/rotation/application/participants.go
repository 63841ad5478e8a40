package rotationservice

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	rotationdb "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories"
	"github.com/Black-And-White-Club/award-rotation/app/shared/results"
	"github.com/uptrace/bun"
)

const maxNameLength = 100

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidInput, maxNameLength)
	}
	return name, nil
}

// ListParticipants returns the participants of kind ordered by name.
func (s *RotationService) ListParticipants(ctx context.Context, store TenantStore, kind rotationdomain.Kind, includeExcluded bool) ([]rotationdomain.Participant, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	return unwrap(withTelemetry(s, ctx, store, "ListParticipants", kind, func(ctx context.Context) (results.OperationResult[[]rotationdomain.Participant, error], error) {
		return runRead(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]rotationdomain.Participant, error], error) {
			rows, err := s.participants.List(ctx, db, kind, includeExcluded)
			if err != nil {
				return results.OperationResult[[]rotationdomain.Participant, error]{}, fmt.Errorf("list participants: %w", err)
			}
			return succeed(rotationdb.ParticipantsToDomain(rows))
		})
	}))
}

// GetParticipant returns one participant.
func (s *RotationService) GetParticipant(ctx context.Context, store TenantStore, kind rotationdomain.Kind, id int64) (rotationdomain.Participant, error) {
	if err := validateKind(kind); err != nil {
		return rotationdomain.Participant{}, err
	}
	return unwrap(withTelemetry(s, ctx, store, "GetParticipant", kind, func(ctx context.Context) (results.OperationResult[rotationdomain.Participant, error], error) {
		return runRead(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[rotationdomain.Participant, error], error) {
			p, err := s.participants.Get(ctx, db, kind, id)
			if err != nil {
				return failOrErr[rotationdomain.Participant](err, fmt.Sprintf("%s %d", kind.ParticipantNoun(), id))
			}
			return succeed(p.ToDomain())
		})
	}))
}

// CreateParticipant adds a participant with no awards. Names are unique
// within a kind.
func (s *RotationService) CreateParticipant(ctx context.Context, store TenantStore, kind rotationdomain.Kind, name string) (rotationdomain.Participant, error) {
	if err := validateKind(kind); err != nil {
		return rotationdomain.Participant{}, err
	}
	name, err := normalizeName(name)
	if err != nil {
		return rotationdomain.Participant{}, err
	}
	return unwrap(withTelemetry(s, ctx, store, "CreateParticipant", kind, func(ctx context.Context) (results.OperationResult[rotationdomain.Participant, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[rotationdomain.Participant, error], error) {
			now := s.now()
			if _, err := s.state.AcquireRotationLock(ctx, db, kind, now); err != nil {
				return results.OperationResult[rotationdomain.Participant, error]{}, fmt.Errorf("acquire rotation lock: %w", err)
			}
			p := &rotationdb.Participant{Name: name, CreatedAt: now, UpdatedAt: now}
			if err := s.participants.Create(ctx, db, kind, p); err != nil {
				return failOrErr[rotationdomain.Participant](err, fmt.Sprintf("%s %q", kind.ParticipantNoun(), name))
			}
			return succeed(p.ToDomain())
		})
	}))
}

// RenameParticipant changes a participant's name.
func (s *RotationService) RenameParticipant(ctx context.Context, store TenantStore, kind rotationdomain.Kind, id int64, name string) (rotationdomain.Participant, error) {
	if err := validateKind(kind); err != nil {
		return rotationdomain.Participant{}, err
	}
	name, err := normalizeName(name)
	if err != nil {
		return rotationdomain.Participant{}, err
	}
	return unwrap(withTelemetry(s, ctx, store, "RenameParticipant", kind, func(ctx context.Context) (results.OperationResult[rotationdomain.Participant, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[rotationdomain.Participant, error], error) {
			if err := s.participants.Rename(ctx, db, kind, id, name, s.now()); err != nil {
				return failOrErr[rotationdomain.Participant](err, fmt.Sprintf("%s %d", kind.ParticipantNoun(), id))
			}
			p, err := s.participants.Get(ctx, db, kind, id)
			if err != nil {
				return results.OperationResult[rotationdomain.Participant, error]{}, fmt.Errorf("reload participant: %w", err)
			}
			return succeed(p.ToDomain())
		})
	}))
}

// DeleteParticipant removes a participant and its assignments, then
// re-derives the holder and the flags of the events it was awarded for.
func (s *RotationService) DeleteParticipant(ctx context.Context, store TenantStore, kind rotationdomain.Kind, id int64) error {
	if err := validateKind(kind); err != nil {
		return err
	}
	_, err := unwrap(withTelemetry(s, ctx, store, "DeleteParticipant", kind, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			now := s.now()
			if _, err := s.state.AcquireRotationLock(ctx, db, kind, now); err != nil {
				return results.OperationResult[struct{}, error]{}, fmt.Errorf("acquire rotation lock: %w", err)
			}
			if _, err := s.participants.Get(ctx, db, kind, id); err != nil {
				return failOrErr[struct{}](err, fmt.Sprintf("%s %d", kind.ParticipantNoun(), id))
			}

			history, err := s.ledger.History(ctx, db, kind, id, 0)
			if err != nil {
				return results.OperationResult[struct{}, error]{}, fmt.Errorf("read history: %w", err)
			}
			if err := s.participants.Delete(ctx, db, kind, id); err != nil {
				return results.OperationResult[struct{}, error]{}, fmt.Errorf("delete participant: %w", err)
			}

			seen := make(map[int64]bool, len(history))
			for _, a := range history {
				if seen[a.EventID] {
					continue
				}
				seen[a.EventID] = true
				if err := s.refreshEventFlag(ctx, db, kind, a.EventID); err != nil {
					return results.OperationResult[struct{}, error]{}, err
				}
			}
			if err := s.refreshHolder(ctx, db, kind, now); err != nil {
				return results.OperationResult[struct{}, error]{}, err
			}
			return succeed(struct{}{})
		})
	}))
	return err
}

// SetExcluded takes a player out of the rotation or brings them back. Award
// counts are untouched. An excluded holder loses the holder flag; bringing
// them back re-derives the holder from the ledger.
func (s *RotationService) SetExcluded(ctx context.Context, store TenantStore, kind rotationdomain.Kind, id int64, excluded bool) (rotationdomain.Participant, error) {
	if err := validateKind(kind); err != nil {
		return rotationdomain.Participant{}, err
	}
	if !kind.SupportsExclusion() {
		return rotationdomain.Participant{}, fmt.Errorf("%w: %s", ErrExclusionUnsupported, kind)
	}
	return unwrap(withTelemetry(s, ctx, store, "SetExcluded", kind, func(ctx context.Context) (results.OperationResult[rotationdomain.Participant, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[rotationdomain.Participant, error], error) {
			now := s.now()
			if _, err := s.state.AcquireRotationLock(ctx, db, kind, now); err != nil {
				return results.OperationResult[rotationdomain.Participant, error]{}, fmt.Errorf("acquire rotation lock: %w", err)
			}
			if err := s.participants.SetExcluded(ctx, db, kind, id, excluded, now); err != nil {
				return failOrErr[rotationdomain.Participant](err, fmt.Sprintf("%s %d", kind.ParticipantNoun(), id))
			}
			if err := s.refreshHolder(ctx, db, kind, now); err != nil {
				return results.OperationResult[rotationdomain.Participant, error]{}, err
			}
			p, err := s.participants.Get(ctx, db, kind, id)
			if err != nil {
				return results.OperationResult[rotationdomain.Participant, error]{}, fmt.Errorf("reload participant: %w", err)
			}
			return succeed(p.ToDomain())
		})
	}))
}
