// Package migrations embeds the SQL schema for the deployment history and
// audit trail into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/moku-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
