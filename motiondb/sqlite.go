package motiondb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/oerror"
	"google.golang.org/protobuf/encoding/protowire"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS clips (
	name     TEXT PRIMARY KEY,
	duration REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS clip_distance (
	clip     TEXT NOT NULL REFERENCES clips(name),
	time     REAL NOT NULL,
	distance REAL NOT NULL,
	PRIMARY KEY (clip, time)
);
CREATE TABLE IF NOT EXISTS exemplars (
	id         INTEGER PRIMARY KEY,
	clip       TEXT NOT NULL,
	time       REAL NOT NULL,
	pose       BLOB NOT NULL,
	trajectory BLOB NOT NULL
);`

// OpenSQLite opens the SQLite motion database at the path passed and loads it into memory.
func OpenSQLite(ctx context.Context, path string, weights Weights) (*Memory, error) {
	if strings.TrimSpace(path) == "" {
		return nil, oerror.Configuration("motion database", "path is required")
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open motion database: %w", err)
	}
	defer db.Close()
	return LoadSQLite(ctx, db, weights)
}

// CreateSchema creates the motion database tables if they do not exist yet.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create motion database schema: %w", err)
	}
	return nil
}

// LoadSQLite reads every clip and exemplar from db. Exemplars are added in id order so that search ties are
// broken the same way every time the database is loaded.
func LoadSQLite(ctx context.Context, db *sql.DB, weights Weights) (*Memory, error) {
	m := NewMemory(weights)

	clips, err := loadClips(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, c := range clips {
		if err := m.AddClip(c); err != nil {
			return nil, err
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT clip, time, pose, trajectory FROM exemplars ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query exemplars: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e          Exemplar
			pose, traj []byte
		)
		if err := rows.Scan(&e.Clip, &e.Time, &pose, &traj); err != nil {
			return nil, fmt.Errorf("scan exemplar: %w", err)
		}
		if e.Pose, err = decodeFloats(pose); err != nil {
			return nil, fmt.Errorf("decode exemplar pose: %w", err)
		}
		if e.Trajectory, err = decodeTrajectory(traj); err != nil {
			return nil, fmt.Errorf("decode exemplar trajectory: %w", err)
		}
		if _, err := m.AddExemplar(e); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read exemplars: %w", err)
	}
	return m, nil
}

// SaveSQLite writes the contents of m to db, which must already have the schema created by CreateSchema.
func SaveSQLite(ctx context.Context, db *sql.DB, m *Memory) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range m.clips {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO clips (name, duration) VALUES (?, ?)`, c.Name, c.Duration); err != nil {
			return fmt.Errorf("insert clip %s: %w", c.Name, err)
		}
		for _, k := range c.Distance {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO clip_distance (clip, time, distance) VALUES (?, ?, ?)`, c.Name, k.Time, k.Value); err != nil {
				return fmt.Errorf("insert clip %s key: %w", c.Name, err)
			}
		}
	}
	for _, e := range m.exemplars {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO exemplars (id, clip, time, pose, trajectory) VALUES (?, ?, ?, ?, ?)`,
			e.Index, e.Clip, e.Time, encodeFloats(make([]byte, 0, len(e.Pose)*4), e.Pose...), encodeTrajectory(e.Trajectory),
		); err != nil {
			return fmt.Errorf("insert exemplar %d: %w", e.Index, err)
		}
	}
	return tx.Commit()
}

func loadClips(ctx context.Context, db *sql.DB) ([]Clip, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.name, c.duration, d.time, d.distance
		FROM clips c JOIN clip_distance d ON d.clip = c.name
		ORDER BY c.name, d.time`)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	var clips []Clip
	for rows.Next() {
		var (
			name     string
			duration float32
			key      CurveKey
		)
		if err := rows.Scan(&name, &duration, &key.Time, &key.Value); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		if len(clips) == 0 || clips[len(clips)-1].Name != name {
			clips = append(clips, Clip{Name: name, Duration: duration})
		}
		c := &clips[len(clips)-1]
		c.Distance = append(c.Distance, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read clips: %w", err)
	}
	return clips, nil
}

func encodeFloats(b []byte, v ...float32) []byte {
	for _, f := range v {
		b = protowire.AppendFixed32(b, math.Float32bits(f))
	}
	return b
}

func decodeFloats(b []byte) ([]float32, error) {
	out := make([]float32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, math.Float32frombits(v))
		b = b[n:]
	}
	return out, nil
}

func encodeTrajectory(t Trajectory) []byte {
	b := make([]byte, 0, len(t)*16)
	for _, p := range t {
		b = encodeFloats(b, p.Offset.X(), p.Offset.Y(), p.Offset.Z(), p.Facing)
	}
	return b
}

func decodeTrajectory(b []byte) (Trajectory, error) {
	f, err := decodeFloats(b)
	if err != nil {
		return nil, err
	}
	if len(f)%4 != 0 {
		return nil, oerror.New("trajectory holds %d floats, expected a multiple of 4", len(f))
	}
	t := make(Trajectory, 0, len(f)/4)
	for i := 0; i < len(f); i += 4 {
		t = append(t, TrajectoryPoint{Offset: mgl32.Vec3{f[i], f[i+1], f[i+2]}, Facing: f[i+3]})
	}
	return t, nil
}
