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

// LedgerRepo implements LedgerRepository over mvp_assignments and
// winner_assignments.
type LedgerRepo struct{}

// NewLedgerRepo creates a LedgerRepo.
func NewLedgerRepo() LedgerRepository {
	return &LedgerRepo{}
}

func (r *LedgerRepo) Append(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, participantID, eventID int64, at time.Time) (*Assignment, error) {
	t, err := TablesFor(kind)
	if err != nil {
		return nil, err
	}
	a := &Assignment{
		ParticipantID: participantID,
		EventID:       eventID,
		AssignedAt:    at,
	}
	res, err := db.NewInsert().
		Model(a).
		ModelTableExpr("?", bun.Ident(t.Assignments)).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger.Append: %w", err)
	}
	if a.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("ledger.Append: read id: %w", err)
		}
		a.ID = id
	}
	return a, nil
}

func (r *LedgerRepo) Get(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64) (*Assignment, error) {
	a := new(Assignment)
	q, err := r.joined(db, kind, a)
	if err != nil {
		return nil, err
	}
	if err := q.Where("a.id = ?", id).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s assignment %d: %w", kind, id, ErrNotFound)
		}
		return nil, fmt.Errorf("ledger.Get: %w", err)
	}
	return a, nil
}

func (r *LedgerRepo) Delete(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64) error {
	t, err := TablesFor(kind)
	if err != nil {
		return err
	}
	res, err := db.NewDelete().
		Model((*Assignment)(nil)).
		ModelTableExpr("?", bun.Ident(t.Assignments)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ledger.Delete: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s assignment %d: %w", kind, id, ErrNotFound)
	}
	return nil
}

func (r *LedgerRepo) CountFor(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, participantID int64) (int, error) {
	t, err := TablesFor(kind)
	if err != nil {
		return 0, err
	}
	n, err := db.NewSelect().
		Model((*Assignment)(nil)).
		ModelTableExpr("? AS a", bun.Ident(t.Assignments)).
		Where("a.participant_id = ?", participantID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger.CountFor: %w", err)
	}
	return n, nil
}

func (r *LedgerRepo) CountsByParticipant(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (map[int64]int, error) {
	t, err := TablesFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ParticipantID int64 `bun:"participant_id"`
		N             int   `bun:"n"`
	}
	err = db.NewSelect().
		TableExpr("? AS a", bun.Ident(t.Assignments)).
		ColumnExpr("a.participant_id").
		ColumnExpr("COUNT(*) AS n").
		GroupExpr("a.participant_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("ledger.CountsByParticipant: %w", err)
	}
	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.ParticipantID] = row.N
	}
	return counts, nil
}

func (r *LedgerRepo) History(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, participantID int64, limit int) ([]Assignment, error) {
	rows := make([]Assignment, 0)
	q, err := r.joined(db, kind, &rows)
	if err != nil {
		return nil, err
	}
	if participantID != 0 {
		q = q.Where("a.participant_id = ?", participantID)
	}
	q = q.OrderExpr("a.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("ledger.History: %w", err)
	}
	return rows, nil
}

func (r *LedgerRepo) Latest(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (*Assignment, error) {
	rows, err := r.History(ctx, db, kind, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s ledger is empty: %w", kind, ErrNotFound)
	}
	return &rows[0], nil
}

func (r *LedgerRepo) ListAll(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) ([]Assignment, error) {
	t, err := TablesFor(kind)
	if err != nil {
		return nil, err
	}
	rows := make([]Assignment, 0)
	err = db.NewSelect().
		Model(&rows).
		ModelTableExpr("? AS a", bun.Ident(t.Assignments)).
		OrderExpr("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger.ListAll: %w", err)
	}
	return rows, nil
}

func (r *LedgerRepo) ListByEvent(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, eventID int64) ([]Assignment, error) {
	rows := make([]Assignment, 0)
	q, err := r.joined(db, kind, &rows)
	if err != nil {
		return nil, err
	}
	err = q.Where("a.event_id = ?", eventID).
		OrderExpr("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger.ListByEvent: %w", err)
	}
	return rows, nil
}

func (r *LedgerRepo) ExistsForEvent(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, eventID int64) (bool, error) {
	t, err := TablesFor(kind)
	if err != nil {
		return false, err
	}
	exists, err := db.NewSelect().
		Model((*Assignment)(nil)).
		ModelTableExpr("? AS a", bun.Ident(t.Assignments)).
		Where("a.event_id = ?", eventID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("ledger.ExistsForEvent: %w", err)
	}
	return exists, nil
}

func (r *LedgerRepo) DeleteByEvent(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, eventID int64) (int, error) {
	return r.deleteWhere(ctx, db, kind, "DeleteByEvent", "event_id = ?", eventID)
}

func (r *LedgerRepo) DeleteAll(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (int, error) {
	return r.deleteWhere(ctx, db, kind, "DeleteAll", "1 = 1")
}

func (r *LedgerRepo) deleteWhere(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, op, where string, args ...interface{}) (int, error) {
	t, err := TablesFor(kind)
	if err != nil {
		return 0, err
	}
	res, err := db.NewDelete().
		Model((*Assignment)(nil)).
		ModelTableExpr("?", bun.Ident(t.Assignments)).
		Where(where, args...).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger.%s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

// joined selects ledger rows with the participant and event names attached.
func (r *LedgerRepo) joined(db bun.IDB, kind rotationdomain.Kind, model interface{}) (*bun.SelectQuery, error) {
	t, err := TablesFor(kind)
	if err != nil {
		return nil, err
	}
	return db.NewSelect().
		Model(model).
		ModelTableExpr("? AS a", bun.Ident(t.Assignments)).
		ColumnExpr("a.id, a.participant_id, a.event_id, a.assigned_at").
		ColumnExpr("p.name AS participant_name").
		ColumnExpr("e.name AS event_name").
		Join("JOIN ? AS p ON p.id = a.participant_id", bun.Ident(t.Participants)).
		Join("JOIN events AS e ON e.id = a.event_id"), nil
}
