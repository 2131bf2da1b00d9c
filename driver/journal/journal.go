// Package journal persists control steps to a local SQLite database.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/fuzzy-infusion/core/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	at       INTEGER NOT NULL,
	inputs   TEXT NOT NULL,
	rate     REAL NOT NULL,
	fallback INTEGER NOT NULL,
	top_rule TEXT NOT NULL,
	fired    INTEGER NOT NULL
)`

type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends one entry. Timestamps are stored with nanosecond
// precision, inputs as JSON.
func (j *Journal) Record(e session.Entry) error {
	inputs, err := json.Marshal(e.Inputs)
	if err != nil {
		return fmt.Errorf("encoding journal inputs: %w", err)
	}
	_, err = j.db.Exec(
		`INSERT INTO evaluations (at, inputs, rate, fallback, top_rule, fired)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.At.UnixNano(), string(inputs), e.Rate, e.Fallback, e.TopRule, e.Fired)
	if err != nil {
		return fmt.Errorf("recording journal entry: %w", err)
	}
	return nil
}

// Entries returns all recorded entries in insertion order.
func (j *Journal) Entries() ([]session.Entry, error) {
	rows, err := j.db.Query(
		`SELECT at, inputs, rate, fallback, top_rule, fired
		 FROM evaluations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	defer rows.Close()
	var entries []session.Entry
	for rows.Next() {
		var (
			at     int64
			inputs string
			e      session.Entry
		)
		err = rows.Scan(&at, &inputs, &e.Rate, &e.Fallback, &e.TopRule, &e.Fired)
		if err != nil {
			return nil, fmt.Errorf("reading journal entry: %w", err)
		}
		e.At = time.Unix(0, at).UTC()
		err = json.Unmarshal([]byte(inputs), &e.Inputs)
		if err != nil {
			return nil, fmt.Errorf("decoding journal inputs: %w", err)
		}
		entries = append(entries, e)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	return entries, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
