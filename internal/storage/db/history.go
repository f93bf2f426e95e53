package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Actions recorded in the history table
const (
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
	ActionImport     = "import"
	ActionRemove     = "remove"
)

// Outcomes recorded in the history table
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// HistoryEvent is one journal entry
type HistoryEvent struct {
	ID        int64
	InstallID string
	Mod       string
	Action    string
	Outcome   string
	Detail    string
	OpID      string
	CreatedAt time.Time
}

// RecordEvent appends an event to the history
func (d *DB) RecordEvent(e HistoryEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := d.Exec(`
		INSERT INTO history (install_id, mod_name, action, outcome, detail, op_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.InstallID, e.Mod, e.Action, e.Outcome, e.Detail, e.OpID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	return nil
}

// GetHistory returns the newest events of an install first. A limit of 0
// returns everything.
func (d *DB) GetHistory(installID string, limit int) ([]HistoryEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.Query(`
		SELECT id, install_id, mod_name, action, outcome, detail, op_id, created_at
		FROM history
		WHERE install_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, installID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var events []HistoryEvent
	for rows.Next() {
		var e HistoryEvent
		var detail, opID sql.NullString
		if err := rows.Scan(&e.ID, &e.InstallID, &e.Mod, &e.Action, &e.Outcome, &detail, &opID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.Detail = detail.String
		e.OpID = opID.String
		events = append(events, e)
	}
	return events, rows.Err()
}
