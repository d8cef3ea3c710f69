package posestream

import (
	"database/sql"
	_ "embed"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Recorder logs every update to SQLite for later analysis.  Each process
// start opens a new run.  It is wired up as a plain hub subscriber so a
// recording fault never touches the viewers.
type Recorder struct {
	db    *sql.DB
	runID string
}

func OpenRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open pose database")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}
	r := &Recorder{db: db, runID: uuid.NewString()}
	_, err = db.Exec(`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		r.runID, time.Now().UTC())
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to start run")
	}
	return r, nil
}

func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) Record(u Update) error {
	// NULL for the degraded state, matching the wire format.
	var errVal any
	if !math.IsInf(float64(u.Error), 1) {
		errVal = float64(u.Error)
	}
	_, err := r.db.Exec(
		`INSERT INTO poses (run_id, timestamp_ms, x, y, angle, error_mm) VALUES (?, ?, ?, ?, ?, ?)`,
		r.runID, u.Timestamp, u.Position[0], u.Position[1], u.Angle, errVal)
	return errors.Wrap(err, "failed to record pose")
}

func (r *Recorder) Close() error {
	return r.db.Close()
}
