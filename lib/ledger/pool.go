// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign   TEXT    NOT NULL,
	pid        INTEGER NOT NULL,
	target     TEXT    NOT NULL,
	name       TEXT    NOT NULL DEFAULT '',
	from_state TEXT    NOT NULL,
	to_state   TEXT    NOT NULL,
	error      TEXT,
	at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS transitions_campaign ON transitions (campaign, seq);
`

func openPool(path string, poolSize int) (*sqlitex.Pool, error) {
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: opening %s: %w", path, err)
	}
	return pool, nil
}

// prepareConnection runs once per pooled connection.
func prepareConnection(conn *sqlite.Conn) error {
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("ledger: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("ledger: creating schema: %w", err)
	}
	return nil
}
