package db

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// Open opens a DuckDB database at path. An empty path opens an in-memory
// database, which is what tests use.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("INSTALL json"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install JSON extension: %w", err)
	}

	if _, err := db.Exec("LOAD json"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load JSON extension: %w", err)
	}

	return db, nil
}
