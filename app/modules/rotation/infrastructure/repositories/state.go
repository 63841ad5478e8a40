package rotationdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/uptrace/bun"
)

// StateRepo implements StateRepository.
type StateRepo struct{}

// NewStateRepo creates a StateRepo.
func NewStateRepo() StateRepository {
	return &StateRepo{}
}

// AcquireRotationLock is the tenant-store counterpart of a per-guild advisory
// lock: the UPDATE takes SQLite's write lock for the rest of the transaction.
func (r *StateRepo) AcquireRotationLock(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, at time.Time) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", rotationdomain.ErrUnknownKind, kind)
	}
	var version int64
	err := db.NewRaw(
		"UPDATE rotation_state SET version = version + 1, updated_at = ? WHERE kind = ? RETURNING version",
		at, string(kind),
	).Scan(ctx, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", kind, ErrRotationStateMissing)
		}
		return 0, fmt.Errorf("state.AcquireRotationLock: %w", err)
	}
	return version, nil
}

func (r *StateRepo) Get(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (*RotationState, error) {
	state := new(RotationState)
	err := db.NewSelect().
		Model(state).
		Where("rs.kind = ?", string(kind)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", kind, ErrRotationStateMissing)
		}
		return nil, fmt.Errorf("state.Get: %w", err)
	}
	return state, nil
}
