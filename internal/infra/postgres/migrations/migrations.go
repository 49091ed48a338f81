// Package migrations holds the bun migrations for the Postgres schema. Each migration lives
// in its own file so bun derives the version from the file name.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
