package store

import (
	"database/sql"
	"fmt"
	"time"
)

// MapSnapshot is one decoded map document persisted for history. Raw holds
// the original JSON as received from the robot so a snapshot can be
// re-decoded later without talking to the firmware.
type MapSnapshot struct {
	ID           int64     `json:"id"`
	RobotID      string    `json:"robot_id"`
	Nonce        string    `json:"nonce"`
	MapVersion   int       `json:"map_version"`
	SizeX        int       `json:"size_x"`
	SizeY        int       `json:"size_y"`
	PixelSizeMm  float64   `json:"pixel_size_mm"`
	SegmentCount int       `json:"segment_count"`
	Raw          []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

const snapshotSelectCols = `id, robot_id, nonce, map_version, size_x, size_y, pixel_size_mm, segment_count, raw, created_at`

func scanSnapshot(row interface{ Scan(...any) error }) (*MapSnapshot, error) {
	var s MapSnapshot
	var createdAt any
	err := row.Scan(&s.ID, &s.RobotID, &s.Nonce, &s.MapVersion, &s.SizeX, &s.SizeY,
		&s.PixelSizeMm, &s.SegmentCount, &s.Raw, &createdAt)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (db *DB) InsertMapSnapshot(s *MapSnapshot) error {
	result, err := db.Exec(db.Q(`INSERT INTO map_snapshots (robot_id, nonce, map_version, size_x, size_y, pixel_size_mm, segment_count, raw) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		s.RobotID, s.Nonce, s.MapVersion, s.SizeX, s.SizeY, s.PixelSizeMm, s.SegmentCount, s.Raw)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert snapshot last id: %w", err)
	}
	s.ID = id
	return nil
}

func (db *DB) GetMapSnapshot(id int64) (*MapSnapshot, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM map_snapshots WHERE id=?`, snapshotSelectCols)), id)
	return scanSnapshot(row)
}

func (db *DB) LatestMapSnapshot(robotID string) (*MapSnapshot, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM map_snapshots WHERE robot_id=? ORDER BY id DESC LIMIT 1`, snapshotSelectCols)), robotID)
	return scanSnapshot(row)
}

// ListMapSnapshots returns snapshot metadata newest first. Raw is left nil;
// fetch a single snapshot by ID when the blob is needed.
func (db *DB) ListMapSnapshots(robotID string, limit int) ([]*MapSnapshot, error) {
	rows, err := db.Query(db.Q(`SELECT id, robot_id, nonce, map_version, size_x, size_y, pixel_size_mm, segment_count, created_at FROM map_snapshots WHERE robot_id=? ORDER BY id DESC LIMIT ?`), robotID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var snaps []*MapSnapshot
	for rows.Next() {
		var s MapSnapshot
		var createdAt any
		if err := rows.Scan(&s.ID, &s.RobotID, &s.Nonce, &s.MapVersion, &s.SizeX, &s.SizeY,
			&s.PixelSizeMm, &s.SegmentCount, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = parseTime(createdAt)
		snaps = append(snaps, &s)
	}
	return snaps, rows.Err()
}

// PruneMapSnapshots deletes all but the newest keep snapshots for a robot
// and reports how many rows were removed.
func (db *DB) PruneMapSnapshots(robotID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := db.Exec(db.Q(`DELETE FROM map_snapshots WHERE robot_id=? AND id NOT IN (SELECT id FROM map_snapshots WHERE robot_id=? ORDER BY id DESC LIMIT ?)`),
		robotID, robotID, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (db *DB) CountMapSnapshots(robotID string) (int, error) {
	var count int
	err := db.QueryRow(db.Q(`SELECT COUNT(*) FROM map_snapshots WHERE robot_id=?`), robotID).Scan(&count)
	return count, err
}

// LatestSnapshotTime returns the created_at of a robot's newest snapshot,
// or the zero time when the robot has none.
func (db *DB) LatestSnapshotTime(robotID string) (time.Time, error) {
	var createdAt any
	err := db.QueryRow(db.Q(`SELECT created_at FROM map_snapshots WHERE robot_id=? ORDER BY id DESC LIMIT 1`), robotID).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(createdAt), nil
}
