package storage

import (
	"database/sql"
	"time"
)

// recordedAtLayout is fixed-width so recorded_at sorts lexically.
const recordedAtLayout = "2006-01-02T15:04:05.000000000Z"

// HealthRecord is one feature's overall health from one run.
type HealthRecord struct {
	RunID      string    `json:"runId"`
	Feature    string    `json:"feature"`
	Overall    float64   `json:"overall"`
	RecordedAt time.Time `json:"recordedAt"`
}

// RecordHealth appends the overall score of every feature for a run.
func (db *DB) RecordHealth(runID string, overall map[string]float64, at time.Time) error {
	recordedAt := at.UTC().Format(recordedAtLayout)
	return db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO health_history (run_id, feature, overall, recorded_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, feature := range sortedKeys(overall) {
			if _, err := stmt.Exec(runID, feature, overall[feature], recordedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// HealthHistory returns the newest records for a feature, newest first.
func (db *DB) HealthHistory(feature string, limit int) ([]HealthRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, feature, overall, recorded_at
		FROM health_history
		WHERE feature = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, feature, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []HealthRecord
	for rows.Next() {
		var r HealthRecord
		var recordedAt string
		if err := rows.Scan(&r.RunID, &r.Feature, &r.Overall, &recordedAt); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(recordedAtLayout, recordedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// PruneHealthHistory removes records older than the retention period
func (db *DB) PruneHealthHistory(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(recordedAtLayout)
	result, err := db.Exec("DELETE FROM health_history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
