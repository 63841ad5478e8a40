// Package rotationmigrations holds the schema applied to every tenant store.
// Migrations run once per tenant file, never against a shared database.
package rotationmigrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
