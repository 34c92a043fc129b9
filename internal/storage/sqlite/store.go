package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/tablepose/internal/vision/l5entities"
)

// ErrNotFound is returned when a session or pose does not exist.
var ErrNotFound = errors.New("not found")

// Store is the pose history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	// Pragmas go in the DSN so every pooled connection gets them.
	pragmas := []string{
		"journal_mode(WAL)",
		"busy_timeout(5000)",
		"synchronous(NORMAL)",
		"temp_store(MEMORY)",
		"foreign_keys(1)",
	}
	dsn := "file:" + path
	for i, p := range pragmas {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		dsn += sep + "_pragma=" + p
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	if err := s.MigrateUp(); err != nil {
		opsf("%s: %v", path, err)
		db.Close()
		return nil, err
	}
	diagf("opened %s", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Session is one pipeline run.
type Session struct {
	ID          string
	StartedAt   time.Time
	EndedAt     *time.Time
	CameraIndex int
	TableWidth  float64
	TableHeight float64
	ConfigJSON  json.RawMessage
}

// PoseObservation is one stored pose.
type PoseObservation struct {
	SessionID string
	Seq       uint64
	Timestamp time.Time
	EntityID  string
	Kind      string
	MarkerID  int
	X, Y      float64
	Angle     float64
	PixelX    float64
	PixelY    float64
}

// StartSession inserts a session, assigning an ID and start time if unset.
func (s *Store) StartSession(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	query := `
		INSERT INTO sessions (
			session_id, started_at_ns, camera_index, table_width, table_height, config_json
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		sess.ID,
		sess.StartedAt.UnixNano(),
		sess.CameraIndex,
		sess.TableWidth,
		sess.TableHeight,
		nullString(string(sess.ConfigJSON)),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession stamps the session end time.
func (s *Store) EndSession(id string, at time.Time) error {
	res, err := s.db.Exec(`UPDATE sessions SET ended_at_ns = ? WHERE session_id = ?`, at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

const sessionColumns = `session_id, started_at_ns, ended_at_ns, camera_index, table_width, table_height, config_json`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess      Session
		startedNs int64
		endedNs   sql.NullInt64
		cfg       sql.NullString
	)
	if err := row.Scan(&sess.ID, &startedNs, &endedNs, &sess.CameraIndex, &sess.TableWidth, &sess.TableHeight, &cfg); err != nil {
		return nil, err
	}
	sess.StartedAt = time.Unix(0, startedNs)
	if endedNs.Valid {
		t := time.Unix(0, endedNs.Int64)
		sess.EndedAt = &t
	}
	if cfg.Valid {
		sess.ConfigJSON = json.RawMessage(cfg.String)
	}
	return &sess, nil
}

// GetSession returns one session.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]*Session, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// RecordResult writes every pose in res in one transaction.
func (s *Store) RecordResult(sessionID string, res *l5entities.Result) error {
	poses := res.Poses()
	if len(poses) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO pose_observations (
			session_id, frame_seq, ts_unix_nanos, entity_id, kind, marker_id,
			x, y, angle, pixel_x, pixel_y
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ts := res.Timestamp.UnixNano()
	for _, p := range poses {
		if _, err := stmt.Exec(sessionID, int64(res.Seq), ts, p.EntityID, p.Kind.String(), p.MarkerID,
			p.X, p.Y, p.Angle, p.PixelX, p.PixelY); err != nil {
			return fmt.Errorf("insert pose %s: %w", p.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const poseColumns = `session_id, frame_seq, ts_unix_nanos, entity_id, kind, marker_id, x, y, angle, pixel_x, pixel_y`

func scanPose(row rowScanner) (PoseObservation, error) {
	var (
		p      PoseObservation
		seq    int64
		tsNs   int64
		px, py sql.NullFloat64
	)
	if err := row.Scan(&p.SessionID, &seq, &tsNs, &p.EntityID, &p.Kind, &p.MarkerID, &p.X, &p.Y, &p.Angle, &px, &py); err != nil {
		return PoseObservation{}, err
	}
	p.Seq = uint64(seq)
	p.Timestamp = time.Unix(0, tsNs)
	p.PixelX = px.Float64
	p.PixelY = py.Float64
	return p, nil
}

// ListTrajectory returns the poses of one entity in time order.
func (s *Store) ListTrajectory(sessionID, entityID string) ([]PoseObservation, error) {
	rows, err := s.db.Query(`
		SELECT `+poseColumns+`
		FROM pose_observations
		WHERE session_id = ? AND entity_id = ?
		ORDER BY ts_unix_nanos, frame_seq
	`, sessionID, entityID)
	if err != nil {
		return nil, fmt.Errorf("list trajectory: %w", err)
	}
	defer rows.Close()

	var out []PoseObservation
	for rows.Next() {
		p, err := scanPose(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pose: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListEntities returns the distinct entity IDs seen in a session, sorted.
func (s *Store) ListEntities(sessionID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT entity_id FROM pose_observations
		WHERE session_id = ? ORDER BY entity_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LatestPose returns the most recent pose of an entity.
func (s *Store) LatestPose(sessionID, entityID string) (*PoseObservation, error) {
	row := s.db.QueryRow(`
		SELECT `+poseColumns+`
		FROM pose_observations
		WHERE session_id = ? AND entity_id = ?
		ORDER BY ts_unix_nanos DESC, frame_seq DESC
		LIMIT 1
	`, sessionID, entityID)
	p, err := scanPose(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s in session %s: %w", entityID, sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest pose: %w", err)
	}
	return &p, nil
}

// SessionStats are the pipeline counters saved with a session.
type SessionStats struct {
	Frames            uint64
	Dispatches        uint64
	SkippedIncomplete uint64
	SkippedDegenerate uint64
	MarkerFailures    uint64
	SinkErrors        uint64
}

// SaveStats upserts the counters of a session.
func (s *Store) SaveStats(sessionID string, st SessionStats, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO session_stats (
			session_id, frames, dispatches, skipped_incomplete, skipped_degenerate,
			marker_failures, sink_errors, updated_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			frames = excluded.frames,
			dispatches = excluded.dispatches,
			skipped_incomplete = excluded.skipped_incomplete,
			skipped_degenerate = excluded.skipped_degenerate,
			marker_failures = excluded.marker_failures,
			sink_errors = excluded.sink_errors,
			updated_at_ns = excluded.updated_at_ns
	`, sessionID, int64(st.Frames), int64(st.Dispatches), int64(st.SkippedIncomplete),
		int64(st.SkippedDegenerate), int64(st.MarkerFailures), int64(st.SinkErrors), at.UnixNano())
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// GetStats returns the saved counters of a session.
func (s *Store) GetStats(sessionID string) (*SessionStats, error) {
	var st SessionStats
	var f, d, si, sd, mf, se int64
	err := s.db.QueryRow(`
		SELECT frames, dispatches, skipped_incomplete, skipped_degenerate, marker_failures, sink_errors
		FROM session_stats WHERE session_id = ?
	`, sessionID).Scan(&f, &d, &si, &sd, &mf, &se)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stats for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	st = SessionStats{
		Frames: uint64(f), Dispatches: uint64(d), SkippedIncomplete: uint64(si),
		SkippedDegenerate: uint64(sd), MarkerFailures: uint64(mf), SinkErrors: uint64(se),
	}
	return &st, nil
}

// SessionRecorder is a pipeline sink writing results into one session.
type SessionRecorder struct {
	store     *Store
	sessionID string
}

// Recorder returns a sink bound to sessionID.
func (s *Store) Recorder(sessionID string) *SessionRecorder {
	return &SessionRecorder{store: s, sessionID: sessionID}
}

// HandleResult records res.
func (r *SessionRecorder) HandleResult(res *l5entities.Result) error {
	return r.store.RecordResult(r.sessionID, res)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
