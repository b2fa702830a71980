// Package audit persists a durable trail of pipeline events (the pipeline
// records trigger dispatch outcomes here, via triggersvc), grounded on
// the teacher's database/repository/audit shape (Event/GetEvent), backed by
// sqlx instead of sqlboiler.
package audit

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Entry is a single persisted audit record.
type Entry struct {
	ID         int64     `db:"id"`
	Identifier string    `db:"identifier"`
	Message    string    `db:"message"`
	Type       string    `db:"type"`
	CreatedAt  time.Time `db:"created_at"`
}

// Repository wraps the pooled connection used to write/read audit entries.
type Repository struct {
	db *sqlx.DB
}

// New wraps db and ensures the audit table exists.
func New(db *sqlx.DB) (*Repository, error) {
	r := &Repository{db: db}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_event (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`); err != nil {
		return nil, errors.Wrap(err, "creating audit_event table")
	}
	return r, nil
}

// Event records an audit entry. Failures are logged by the caller; audit
// writes never block the pipeline they describe.
func (r *Repository) Event(identifier, message, kind string) error {
	query := r.db.Rebind(`INSERT INTO audit_event (identifier, message, type, created_at) VALUES (?, ?, ?, ?)`)
	_, err := r.db.Exec(query, identifier, message, kind, time.Now().UTC())
	return errors.Wrap(err, "inserting audit event")
}

// GetEvent returns entries created within [start, end], ordered by order
// ("asc" or "desc"), capped at limit rows.
func (r *Repository) GetEvent(start, end time.Time, order string, limit int) ([]Entry, error) {
	if order != "asc" && order != "desc" {
		order = "asc"
	}
	query := r.db.Rebind(`SELECT id, identifier, message, type, created_at FROM audit_event
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at ` + order + `
		LIMIT ?`)
	var entries []Entry
	if err := r.db.Select(&entries, query, start, end, limit); err != nil {
		return nil, errors.Wrap(err, "querying audit events")
	}
	return entries, nil
}
