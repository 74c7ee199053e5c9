package database

import (
	"database/sql"
	"embed"
	"fmt"
)

//go:embed schema
var schemaFS embed.FS

func Migrate(db *sql.DB, driver string) error {
	b, err := schemaFS.ReadFile("schema/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("read schema for %s: %w", driver, err)
	}

	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
