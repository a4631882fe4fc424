// generate_schema migrates an in-memory catalog and writes the resulting
// schema for sqlc.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"usbb-go/internal/database"
	"usbb-go/internal/database/migrations"
)

func main() {
	out := flag.String("out", filepath.Join("internal", "database", "sqlc", "schema.sql"), "schema file to write")
	flag.Parse()

	if err := run(*out); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

func run(out string) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return err
	}
	schema, err := database.DumpSchema(db)
	if err != nil {
		return err
	}
	return os.WriteFile(out, []byte(schema), 0o644)
}
