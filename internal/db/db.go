// internal/db/db.go
package db

import (
    "database/sql"
    "fmt"
    "log"

    _ "github.com/lib/pq"

    "github.com/glowdesk/messaging-backend/internal/config"
)

// Open connects to Postgres and verifies the connection. The handle is
// returned rather than stored in a package global so tests can inject fakes.
func Open(cfg config.DBConfig) (*sql.DB, error) {
    conn, err := sql.Open("postgres", cfg.DSN())
    if err != nil {
        return nil, fmt.Errorf("failed to connect to DB: %w", err)
    }

    if err = conn.Ping(); err != nil {
        return nil, fmt.Errorf("failed to ping DB: %w", err)
    }

    log.Println("✅ Connected to database")
    return conn, nil
}
