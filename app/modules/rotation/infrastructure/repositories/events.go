package rotationdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/uptrace/bun"
)

// EventRepo implements EventRepository.
type EventRepo struct{}

// NewEventRepo creates an EventRepo.
func NewEventRepo() EventRepository {
	return &EventRepo{}
}

func (r *EventRepo) Create(ctx context.Context, db bun.IDB, e *Event) error {
	res, err := db.NewInsert().
		Model(e).
		ModelTableExpr("events").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("events.Create: %w", err)
	}
	if e.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("events.Create: read id: %w", err)
		}
		e.ID = id
	}
	return nil
}

func (r *EventRepo) Get(ctx context.Context, db bun.IDB, id int64) (*Event, error) {
	e := new(Event)
	err := db.NewSelect().
		Model(e).
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("events.Get: %w", err)
	}
	return e, nil
}

func (r *EventRepo) List(ctx context.Context, db bun.IDB) ([]Event, error) {
	events := make([]Event, 0)
	err := db.NewSelect().
		Model(&events).
		OrderExpr("e.event_date DESC, e.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("events.List: %w", err)
	}
	return events, nil
}

func (r *EventRepo) Update(ctx context.Context, db bun.IDB, e *Event) error {
	res, err := db.NewUpdate().
		Model((*Event)(nil)).
		ModelTableExpr("events").
		Set("name = ?", e.Name).
		Set("description = ?", e.Description).
		Set("event_date = ?", e.EventDate).
		Where("id = ?", e.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("events.Update: %w", err)
	}
	return requireEventRow(res, e.ID)
}

func (r *EventRepo) Delete(ctx context.Context, db bun.IDB, id int64) error {
	res, err := db.NewDelete().
		Model((*Event)(nil)).
		ModelTableExpr("events").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("events.Delete: %w", err)
	}
	return requireEventRow(res, id)
}

func (r *EventRepo) SetFlag(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, value bool) error {
	t, err := TablesFor(kind)
	if err != nil {
		return err
	}
	res, err := db.NewUpdate().
		Model((*Event)(nil)).
		ModelTableExpr("events").
		Set("? = ?", bun.Ident(t.EventFlag), value).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("events.SetFlag: %w", err)
	}
	return requireEventRow(res, id)
}

func (r *EventRepo) ClearFlags(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) error {
	t, err := TablesFor(kind)
	if err != nil {
		return err
	}
	_, err = db.NewUpdate().
		Model((*Event)(nil)).
		ModelTableExpr("events").
		Set("? = ?", bun.Ident(t.EventFlag), false).
		Where("? = ?", bun.Ident(t.EventFlag), true).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("events.ClearFlags: %w", err)
	}
	return nil
}

func requireEventRow(res sql.Result, id int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return nil
}
