package store

import (
	"fmt"
	"strings"
	"time"
)

// Segment is the persistent registry entry for a named room. Rows survive
// map refreshes so names and cleaning counters outlive any one snapshot.
type Segment struct {
	ID           int64     `json:"id"`
	RobotID      string    `json:"robot_id"`
	SegmentID    string    `json:"segment_id"`
	Name         string    `json:"name"`
	PixelCount   int       `json:"pixel_count"`
	CleanedCount int       `json:"cleaned_count"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

const segmentSelectCols = `id, robot_id, segment_id, name, pixel_count, cleaned_count, first_seen, last_seen`

func scanSegment(row interface{ Scan(...any) error }) (*Segment, error) {
	var s Segment
	var firstSeen, lastSeen any
	err := row.Scan(&s.ID, &s.RobotID, &s.SegmentID, &s.Name, &s.PixelCount,
		&s.CleanedCount, &firstSeen, &lastSeen)
	if err != nil {
		return nil, err
	}
	s.FirstSeen = parseTime(firstSeen)
	s.LastSeen = parseTime(lastSeen)
	return &s, nil
}

// UpsertSegment records a segment sighting from a decoded map. An empty
// name never overwrites a previously stored one; robots drop names from
// map payloads while re-mapping.
func (db *DB) UpsertSegment(robotID, segmentID, name string, pixelCount int) error {
	_, err := db.Exec(db.Q(`INSERT INTO segments (robot_id, segment_id, name, pixel_count) VALUES (?, ?, ?, ?)
		ON CONFLICT(robot_id, segment_id) DO UPDATE SET
		name=CASE WHEN excluded.name != '' THEN excluded.name ELSE segments.name END,
		pixel_count=excluded.pixel_count,
		last_seen=datetime('now','localtime')`),
		robotID, segmentID, name, pixelCount)
	if err != nil {
		return fmt.Errorf("upsert segment %s/%s: %w", robotID, segmentID, err)
	}
	return nil
}

func (db *DB) GetSegment(robotID, segmentID string) (*Segment, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM segments WHERE robot_id=? AND segment_id=?`, segmentSelectCols)), robotID, segmentID)
	return scanSegment(row)
}

func (db *DB) ListRobotSegments(robotID string) ([]*Segment, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM segments WHERE robot_id=? ORDER BY segment_id`, segmentSelectCols)), robotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var segs []*Segment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segs = append(segs, s)
	}
	return segs, rows.Err()
}

// IncrementSegmentCleaned bumps the cleaning counter for each segment a
// dispatched job covered.
func (db *DB) IncrementSegmentCleaned(robotID string, segmentIDs []string) error {
	if len(segmentIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(segmentIDs)), ",")
	args := make([]any, 0, len(segmentIDs)+1)
	args = append(args, robotID)
	for _, id := range segmentIDs {
		args = append(args, id)
	}
	_, err := db.Exec(db.Q(fmt.Sprintf(`UPDATE segments SET cleaned_count=cleaned_count+1, last_seen=datetime('now','localtime') WHERE robot_id=? AND segment_id IN (%s)`, placeholders)), args...)
	return err
}
