package rotationdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/uptrace/bun"
)

// ParticipantRepo implements ParticipantRepository for both kinds.
type ParticipantRepo struct{}

// NewParticipantRepo creates a ParticipantRepo.
func NewParticipantRepo() ParticipantRepository {
	return &ParticipantRepo{}
}

func participantTable(kind rotationdomain.Kind) (bun.Ident, error) {
	t, err := TablesFor(kind)
	if err != nil {
		return "", err
	}
	return bun.Ident(t.Participants), nil
}

func (r *ParticipantRepo) List(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, includeExcluded bool) ([]Participant, error) {
	table, err := participantTable(kind)
	if err != nil {
		return nil, err
	}
	rows := make([]Participant, 0)
	q := db.NewSelect().
		Model(&rows).
		ModelTableExpr("? AS p", table).
		OrderExpr("p.name ASC, p.id ASC")
	if !includeExcluded {
		q = q.Where("p.is_excluded = ?", false)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("participants.List: %w", err)
	}
	return rows, nil
}

func (r *ParticipantRepo) Get(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64) (*Participant, error) {
	table, err := participantTable(kind)
	if err != nil {
		return nil, err
	}
	p := new(Participant)
	err = db.NewSelect().
		Model(p).
		ModelTableExpr("? AS p", table).
		Where("p.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", kind.ParticipantNoun(), id, ErrNotFound)
		}
		return nil, fmt.Errorf("participants.Get: %w", err)
	}
	return p, nil
}

func (r *ParticipantRepo) Create(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, p *Participant) error {
	table, err := participantTable(kind)
	if err != nil {
		return err
	}
	res, err := db.NewInsert().
		Model(p).
		ModelTableExpr("?", table).
		Exec(ctx)
	if err != nil {
		if isDuplicateName(err) {
			return fmt.Errorf("%s %q: %w", kind.ParticipantNoun(), p.Name, ErrDuplicateName)
		}
		return fmt.Errorf("participants.Create: %w", err)
	}
	if p.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("participants.Create: read id: %w", err)
		}
		p.ID = id
	}
	return nil
}

func (r *ParticipantRepo) Rename(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, name string, at time.Time) error {
	table, err := participantTable(kind)
	if err != nil {
		return err
	}
	res, err := db.NewUpdate().
		Model((*Participant)(nil)).
		ModelTableExpr("?", table).
		Set("name = ?", name).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		if isDuplicateName(err) {
			return fmt.Errorf("%s %q: %w", kind.ParticipantNoun(), name, ErrDuplicateName)
		}
		return fmt.Errorf("participants.Rename: %w", err)
	}
	return requireRow(res, kind, id)
}

func (r *ParticipantRepo) Delete(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64) error {
	table, err := participantTable(kind)
	if err != nil {
		return err
	}
	res, err := db.NewDelete().
		Model((*Participant)(nil)).
		ModelTableExpr("?", table).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("participants.Delete: %w", err)
	}
	return requireRow(res, kind, id)
}

func (r *ParticipantRepo) SetExcluded(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, excluded bool, at time.Time) error {
	return r.update(ctx, db, kind, id, "SetExcluded", at, "is_excluded = ?", excluded)
}

func (r *ParticipantRepo) IncrementCount(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, at time.Time) error {
	return r.update(ctx, db, kind, id, "IncrementCount", at, "award_count = award_count + 1")
}

func (r *ParticipantRepo) DecrementCount(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, at time.Time) error {
	return r.update(ctx, db, kind, id, "DecrementCount", at,
		"award_count = CASE WHEN award_count > 0 THEN award_count - 1 ELSE 0 END")
}

func (r *ParticipantRepo) SetCount(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, count int, at time.Time) error {
	if count < 0 {
		count = 0
	}
	return r.update(ctx, db, kind, id, "SetCount", at, "award_count = ?", count)
}

func (r *ParticipantRepo) SetHolder(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, at time.Time) error {
	return r.update(ctx, db, kind, id, "SetHolder", at, "is_current_holder = ?", true)
}

func (r *ParticipantRepo) ResetCounts(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, at time.Time) error {
	table, err := participantTable(kind)
	if err != nil {
		return err
	}
	_, err = db.NewUpdate().
		Model((*Participant)(nil)).
		ModelTableExpr("?", table).
		Set("award_count = 0").
		Set("is_current_holder = ?", false).
		Set("updated_at = ?", at).
		Where("award_count <> 0 OR is_current_holder = ?", true).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("participants.ResetCounts: %w", err)
	}
	return nil
}

func (r *ParticipantRepo) ClearHolders(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, at time.Time) error {
	table, err := participantTable(kind)
	if err != nil {
		return err
	}
	_, err = db.NewUpdate().
		Model((*Participant)(nil)).
		ModelTableExpr("?", table).
		Set("is_current_holder = ?", false).
		Set("updated_at = ?", at).
		Where("is_current_holder = ?", true).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("participants.ClearHolders: %w", err)
	}
	return nil
}

func (r *ParticipantRepo) CountHolders(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (int, error) {
	table, err := participantTable(kind)
	if err != nil {
		return 0, err
	}
	n, err := db.NewSelect().
		Model((*Participant)(nil)).
		ModelTableExpr("? AS p", table).
		Where("p.is_current_holder = ?", true).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("participants.CountHolders: %w", err)
	}
	return n, nil
}

func (r *ParticipantRepo) update(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, op string, at time.Time, set string, args ...interface{}) error {
	table, err := participantTable(kind)
	if err != nil {
		return err
	}
	res, err := db.NewUpdate().
		Model((*Participant)(nil)).
		ModelTableExpr("?", table).
		Set(set, args...).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("participants.%s: %w", op, err)
	}
	return requireRow(res, kind, id)
}

func requireRow(res sql.Result, kind rotationdomain.Kind, id int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %d: %w", kind.ParticipantNoun(), id, ErrNotFound)
	}
	return nil
}

func isDuplicateName(err error) bool {
	return isUniqueViolation(err) && strings.Contains(err.Error(), ".name")
}
