package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("persist: edit log closed")

// EditLog is a SQLite-backed, append-only record of terrain edits keyed by
// journal sequence number. Writes are batched by a single writer goroutine.
// Append, Flush and Close are called from one goroutine.
type EditLog struct {
	db *sql.DB

	ch   chan logReq
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
	failed atomic.Uint64
}

type logReq struct {
	seq  uint64
	edit world.Edit
	// flush, when set, commits the open transaction and is closed after.
	flush chan struct{}
}

// OpenEditLog opens or creates the log at path.
func OpenEditLog(path string) (*EditLog, error) {
	if path == "" {
		return nil, fmt.Errorf("empty edit log path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	l := &EditLog{
		db: db,
		ch: make(chan logReq, 4096),
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop()
	}()
	return l, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS edits (
			seq INTEGER PRIMARY KEY,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			radius REAL NOT NULL,
			strength REAL NOT NULL,
			mode TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains pending writes and closes the database.
func (l *EditLog) Close() error {
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		l.wg.Wait()
		err = l.db.Close()
	})
	return err
}

// Append queues e under journal sequence seq. It blocks only when the
// writer is far behind.
func (l *EditLog) Append(seq uint64, e world.Edit) error {
	if l == nil {
		return nil
	}
	if l.closed.Load() {
		return ErrClosed
	}
	l.ch <- logReq{seq: seq, edit: e}
	return nil
}

// Flush waits until every queued edit is committed.
func (l *EditLog) Flush() {
	if l == nil || l.closed.Load() {
		return
	}
	done := make(chan struct{})
	l.ch <- logReq{flush: done}
	<-done
}

// Failed returns how many edits could not be written.
func (l *EditLog) Failed() uint64 { return l.failed.Load() }

// Load returns every stored edit in sequence order. Gaps in the sequence
// are reported as an error since replay would diverge.
func (l *EditLog) Load(ctx context.Context) ([]world.Edit, error) {
	l.Flush()
	rows, err := l.db.QueryContext(ctx, `SELECT seq, x, y, z, radius, strength, mode FROM edits ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query edits: %w", err)
	}
	defer rows.Close()

	var out []world.Edit
	for rows.Next() {
		var (
			seq     uint64
			x, y, z float64
			r, s    float64
			mode    string
		)
		if err := rows.Scan(&seq, &x, &y, &z, &r, &s, &mode); err != nil {
			return nil, err
		}
		if seq != uint64(len(out))+1 {
			return nil, fmt.Errorf("edit log gap: expected seq %d, found %d", len(out)+1, seq)
		}
		m, err := world.ParseEditMode(mode)
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", seq, err)
		}
		out = append(out, world.Edit{
			Center:   mgl32.Vec3{float32(x), float32(y), float32(z)},
			Radius:   float32(r),
			Strength: float32(s),
			Mode:     m,
		})
	}
	return out, rows.Err()
}

// Reset deletes every stored edit; used before importing a snapshot.
func (l *EditLog) Reset(ctx context.Context) error {
	l.Flush()
	_, err := l.db.ExecContext(ctx, `DELETE FROM edits`)
	return err
}

// SetMeta stores a key/value pair next to the edits, such as the terrain
// seed they were made against.
func (l *EditLog) SetMeta(ctx context.Context, key, value string) error {
	l.Flush()
	_, err := l.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key, value) VALUES(?, ?)`, key, value)
	return err
}

// Meta reads a value stored with SetMeta.
func (l *EditLog) Meta(ctx context.Context, key string) (string, bool, error) {
	l.Flush()
	var v string
	err := l.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (l *EditLog) loop() {
	ctx := context.Background()

	insert, _ := l.db.Prepare(`INSERT OR REPLACE INTO edits(seq,x,y,z,radius,strength,mode,recorded_at) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 500 * time.Millisecond
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			l.failed.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range l.ch {
		if r.flush != nil {
			commit()
			close(r.flush)
			continue
		}
		begin()
		if tx == nil || insert == nil {
			l.failed.Add(1)
			continue
		}
		e := r.edit
		if _, err := tx.Stmt(insert).Exec(
			int64(r.seq),
			float64(e.Center[0]), float64(e.Center[1]), float64(e.Center[2]),
			float64(e.Radius), float64(e.Strength),
			e.Mode.String(),
			time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			l.failed.Add(1)
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
		// Nothing else queued: commit so a crash loses at most this batch.
		if len(l.ch) == 0 {
			commit()
		}
	}
	commit()
}
