package tenantmigrations

import (
	"context"
	"fmt"

	tenantdb "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating tenants table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().
				Model((*tenantdb.Tenant)(nil)).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create tenants table: %w", err)
			}

			if _, err := tx.NewCreateIndex().
				Model((*tenantdb.Tenant)(nil)).
				Index("idx_tenants_state").
				Column("state").
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create tenants state index: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping tenants table...")

		if _, err := db.NewDropTable().
			Model((*tenantdb.Tenant)(nil)).
			IfExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop tenants table: %w", err)
		}
		return nil
	})
}
