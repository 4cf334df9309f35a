package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Job is one commanded robot action tracked from submission to completion.
// Args holds the kind-specific arguments as JSON, already transformed and
// validated by the dispatcher.
type Job struct {
	ID          int64      `json:"id"`
	JobUUID     string     `json:"job_uuid"`
	RobotID     string     `json:"robot_id"`
	Kind        string     `json:"kind"`
	Args        string     `json:"args"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	ErrorDetail string     `json:"error_detail"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type JobHistory struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

const jobSelectCols = `id, job_uuid, robot_id, kind, args, source, status, error_detail, created_at, updated_at, completed_at`

func scanJob(row interface{ Scan(...any) error }) (*Job, error) {
	var j Job
	var createdAt, updatedAt, completedAt any
	err := row.Scan(&j.ID, &j.JobUUID, &j.RobotID, &j.Kind, &j.Args, &j.Source,
		&j.Status, &j.ErrorDetail, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	j.CompletedAt = parseTimePtr(completedAt)
	return &j, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (db *DB) CreateJob(j *Job) error {
	args := j.Args
	if args == "" {
		args = "{}"
	}
	result, err := db.Exec(db.Q(`INSERT INTO jobs (job_uuid, robot_id, kind, args, source, status) VALUES (?, ?, ?, ?, ?, ?)`),
		j.JobUUID, j.RobotID, j.Kind, args, j.Source, j.Status)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create job last id: %w", err)
	}
	j.ID = id
	j.Args = args
	return nil
}

// UpdateJobStatus moves a job to a new status and appends a history row.
func (db *DB) UpdateJobStatus(id int64, status, detail string) error {
	_, err := db.Exec(db.Q(`UPDATE jobs SET status=?, error_detail=?, updated_at=datetime('now','localtime') WHERE id=?`),
		status, detail, id)
	if err != nil {
		return err
	}
	_, err = db.Exec(db.Q(`INSERT INTO job_history (job_id, status, detail) VALUES (?, ?, ?)`),
		id, status, detail)
	return err
}

// CompleteJob stamps a terminal status along with completed_at.
func (db *DB) CompleteJob(id int64, status, detail string) error {
	_, err := db.Exec(db.Q(`UPDATE jobs SET status=?, error_detail=?, completed_at=datetime('now','localtime'), updated_at=datetime('now','localtime') WHERE id=?`),
		status, detail, id)
	if err != nil {
		return err
	}
	_, err = db.Exec(db.Q(`INSERT INTO job_history (job_id, status, detail) VALUES (?, ?, ?)`),
		id, status, detail)
	return err
}

func (db *DB) GetJob(id int64) (*Job, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM jobs WHERE id=?`, jobSelectCols)), id)
	return scanJob(row)
}

func (db *DB) GetJobByUUID(uuid string) (*Job, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM jobs WHERE job_uuid=? ORDER BY id DESC LIMIT 1`, jobSelectCols)), uuid)
	return scanJob(row)
}

func (db *DB) ListJobs(status string, limit int) ([]*Job, error) {
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM jobs WHERE status=? ORDER BY id DESC LIMIT ?`, jobSelectCols)), status, limit)
	} else {
		rows, err = db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM jobs ORDER BY id DESC LIMIT ?`, jobSelectCols)), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (db *DB) ListActiveJobs() ([]*Job, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM jobs WHERE status NOT IN ('completed', 'failed', 'cancelled') ORDER BY id DESC`, jobSelectCols)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (db *DB) ListRobotJobs(robotID string, limit int) ([]*Job, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM jobs WHERE robot_id=? ORDER BY id DESC LIMIT ?`, jobSelectCols)), robotID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (db *DB) ListJobHistory(jobID int64) ([]*JobHistory, error) {
	rows, err := db.Query(db.Q(`SELECT id, job_id, status, detail, created_at FROM job_history WHERE job_id=? ORDER BY id`), jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var history []*JobHistory
	for rows.Next() {
		var h JobHistory
		var createdAt any
		if err := rows.Scan(&h.ID, &h.JobID, &h.Status, &h.Detail, &createdAt); err != nil {
			return nil, err
		}
		h.CreatedAt = parseTime(createdAt)
		history = append(history, &h)
	}
	return history, rows.Err()
}
