// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/liaison/lib/inject"
)

// Config configures Open.
type Config struct {
	// Path is the database file. Its directory must exist.
	Path string

	// PoolSize defaults to max(NumCPU, 4).
	PoolSize int

	Logger *slog.Logger
}

// Ledger is a SQLite-backed campaign history. Safe for concurrent use.
type Ledger struct {
	pool   *sqlitex.Pool
	path   string
	logger *slog.Logger
}

// Event is one stored transition.
type Event struct {
	Seq      int64
	Campaign string
	PID      int
	Target   string
	Name     string
	From     inject.State
	To       inject.State
	Error    string
	At       time.Time
}

// CampaignSummary aggregates one campaign's events.
type CampaignSummary struct {
	Campaign  string
	First     time.Time
	Last      time.Time
	Targets   int
	Succeeded int
	Failed    int
}

// Open opens (creating if needed) the ledger at config.Path.
func Open(config Config) (*Ledger, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("ledger: path is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := openPool(config.Path, config.PoolSize)
	if err != nil {
		return nil, err
	}
	logger.Debug("ledger opened", "path", config.Path)
	return &Ledger{pool: pool, path: config.Path, logger: logger}, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string { return l.path }

// Close closes every connection.
func (l *Ledger) Close() error {
	if err := l.pool.Close(); err != nil {
		return fmt.Errorf("ledger: closing %s: %w", l.path, err)
	}
	return nil
}

// Observe implements inject.Observer. Storage failures are logged:
// a campaign never fails because its history could not be written.
func (l *Ledger) Observe(ctx context.Context, transition inject.Transition) {
	if err := l.Record(ctx, transition); err != nil {
		l.logger.Warn("recording transition", "campaign", transition.Campaign, "pid", transition.Descriptor.PID, "error", err)
	}
}

// Record appends transition.
func (l *Ledger) Record(ctx context.Context, transition inject.Transition) error {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("ledger: take: %w", err)
	}
	defer l.pool.Put(conn)

	var errorText any
	if transition.Err != nil {
		errorText = transition.Err.Error()
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO transitions (campaign, pid, target, name, from_state, to_state, error, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			transition.Campaign,
			transition.Descriptor.PID,
			transition.Descriptor.ID,
			transition.Descriptor.DisplayName,
			transition.From.String(),
			transition.To.String(),
			errorText,
			transition.At.UnixNano(),
		}},
	)
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

// Events returns a campaign's transitions in the order they were
// recorded.
func (l *Ledger) Events(ctx context.Context, campaign string) ([]Event, error) {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: take: %w", err)
	}
	defer l.pool.Put(conn)

	var events []Event
	err = sqlitex.Execute(conn,
		`SELECT seq, campaign, pid, target, name, from_state, to_state, error, at
		 FROM transitions WHERE campaign = ? ORDER BY seq`,
		&sqlitex.ExecOptions{
			Args: []any{campaign},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				event, err := scanEvent(stmt)
				if err != nil {
					return err
				}
				events = append(events, event)
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: query events of %s: %w", campaign, err)
	}
	return events, nil
}

func scanEvent(stmt *sqlite.Stmt) (Event, error) {
	// Columns: seq(0), campaign(1), pid(2), target(3), name(4),
	// from_state(5), to_state(6), error(7), at(8)
	from, err := inject.ParseState(stmt.ColumnText(5))
	if err != nil {
		return Event{}, err
	}
	to, err := inject.ParseState(stmt.ColumnText(6))
	if err != nil {
		return Event{}, err
	}
	return Event{
		Seq:      stmt.ColumnInt64(0),
		Campaign: stmt.ColumnText(1),
		PID:      stmt.ColumnInt(2),
		Target:   stmt.ColumnText(3),
		Name:     stmt.ColumnText(4),
		From:     from,
		To:       to,
		Error:    stmt.ColumnText(7),
		At:       time.Unix(0, stmt.ColumnInt64(8)).UTC(),
	}, nil
}

// Campaigns summarizes every campaign, most recent first.
func (l *Ledger) Campaigns(ctx context.Context) ([]CampaignSummary, error) {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: take: %w", err)
	}
	defer l.pool.Put(conn)

	var summaries []CampaignSummary
	err = sqlitex.Execute(conn,
		`SELECT campaign, MIN(at), MAX(at), COUNT(DISTINCT target),
		        SUM(CASE WHEN to_state = 'detached' AND error IS NULL THEN 1 ELSE 0 END),
		        SUM(CASE WHEN to_state IN ('attach_failed', 'load_failed')
		                   OR (to_state = 'detached' AND error IS NOT NULL) THEN 1 ELSE 0 END)
		 FROM transitions GROUP BY campaign ORDER BY MAX(at) DESC, campaign`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				summaries = append(summaries, CampaignSummary{
					Campaign:  stmt.ColumnText(0),
					First:     time.Unix(0, stmt.ColumnInt64(1)).UTC(),
					Last:      time.Unix(0, stmt.ColumnInt64(2)).UTC(),
					Targets:   stmt.ColumnInt(3),
					Succeeded: stmt.ColumnInt(4),
					Failed:    stmt.ColumnInt(5),
				})
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: query campaigns: %w", err)
	}
	return summaries, nil
}
