package sqlite

import (
	"database/sql"
	"fmt"

	"ppemonitor/internal/model"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SQLite snapshot repository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert adds a snapshot record and its detections in a single transaction.
// Detection SnapshotID fields are set from the new row.
func (r *SnapshotRepository) Insert(s *model.Snapshot, detections []model.Detection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO snapshots (filename, session_id, timestamp, filepath, filesize, all_required_present)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.Filename, s.SessionID, s.Timestamp, s.FilePath, s.FileSize, s.AllRequiredPresent)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	snapshotID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}

	if len(detections) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO detections (snapshot_id, label, x, y, width, height, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, det := range detections {
			if _, err := stmt.Exec(snapshotID, det.Label, det.X, det.Y, det.Width, det.Height, det.Confidence); err != nil {
				return 0, fmt.Errorf("failed to insert detection: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return snapshotID, nil
}

// GetByFilename retrieves a snapshot by its filename. It returns nil, nil when absent.
func (r *SnapshotRepository) GetByFilename(filename string) (*model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var s model.Snapshot
	err := r.db.Conn().QueryRow(`
		SELECT id, filename, session_id, timestamp, filepath, filesize, all_required_present
		FROM snapshots WHERE filename = ?
	`, filename).Scan(&s.ID, &s.Filename, &s.SessionID, &s.Timestamp, &s.FilePath, &s.FileSize, &s.AllRequiredPresent)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &s, nil
}

// whereClause builds the shared filter part of list and count queries.
func whereClause(filter *model.SnapshotFilter) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.OnlyNonCompliant {
		query += " AND s.all_required_present = 0"
	}

	if filter.Label != "" {
		query += " AND EXISTS (SELECT 1 FROM detections d WHERE d.snapshot_id = s.id AND d.label = ?)"
		args = append(args, filter.Label)
	}

	return query, args
}

// GetAll retrieves snapshots based on filter criteria, newest first.
func (r *SnapshotRepository) GetAll(filter *model.SnapshotFilter) ([]model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `
		SELECT s.id, s.filename, s.session_id, s.timestamp, s.filepath, s.filesize, s.all_required_present
		FROM snapshots s` + where + " ORDER BY s.timestamp DESC, s.id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.Snapshot
	for rows.Next() {
		var s model.Snapshot
		if err := rows.Scan(&s.ID, &s.Filename, &s.SessionID, &s.Timestamp, &s.FilePath, &s.FileSize, &s.AllRequiredPresent); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// GetTotalCount returns the number of snapshots matching the filter.
func (r *SnapshotRepository) GetTotalCount(filter *model.SnapshotFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM snapshots s`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	return count, nil
}

// Exists checks if a snapshot with the given filename exists.
func (r *SnapshotRepository) Exists(filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM snapshots WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot existence: %w", err)
	}
	return count > 0, nil
}
