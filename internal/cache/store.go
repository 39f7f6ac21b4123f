package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// sqlite limits host parameters per statement
const lookupChunk = 500

// Record is one cached translation. Records are never updated.
type Record struct {
	Fingerprint     string
	SourceText      string
	Translated      string
	SourceLang      string
	TargetLang      string
	Model           string
	GlossaryVersion string
	CreatedAt       time.Time
}

// ConsistencyWarning is reported when a fingerprint is written again with a
// different translation. The stored text wins.
type ConsistencyWarning struct {
	Fingerprint string
	Stored      string
	Incoming    string
}

func (w ConsistencyWarning) Error() string {
	return fmt.Sprintf("cache: fingerprint %s already holds a different translation", short(w.Fingerprint))
}

// Store is the durable fingerprint cache
type Store struct {
	db    *sql.DB
	sq    sq.StatementBuilderType
	clock clock.Clock
	log   logrus.FieldLogger
	mu    sync.Mutex // serializes write transactions
}

// Option configures a Store
type Option func(*Store)

// WithClock injects the clock used for timestamps
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger for consistency warnings
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens (creating if needed) the SQLite cache at dbPath and applies
// pending migrations.
func Open(dbPath string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("make cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:    db,
		sq:    sq.StatementBuilder.PlaceholderFormat(sq.Question),
		clock: clock.New(),
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the record for fp, or nil when absent
func (s *Store) Get(ctx context.Context, fp string) (*Record, error) {
	recs, err := s.GetMany(ctx, []string{fp})
	if err != nil {
		return nil, err
	}
	if r, ok := recs[fp]; ok {
		return &r, nil
	}
	return nil, nil
}

// GetMany looks up several fingerprints at once
func (s *Store) GetMany(ctx context.Context, fps []string) (map[string]Record, error) {
	out := make(map[string]Record, len(fps))
	for start := 0; start < len(fps); start += lookupChunk {
		end := min(start+lookupChunk, len(fps))
		q := s.sq.Select(
			"fingerprint",
			"source_text",
			"translated_text",
			"src_lang",
			"tgt_lang",
			"model",
			"glossary_version",
			"created_at",
		).
			From("translations").
			Where(sq.Eq{"fingerprint": fps[start:end]})
		sqlStr, args, err := q.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build lookup: %w", err)
		}
		rows, err := s.db.QueryContext(ctx, sqlStr, args...)
		if err != nil {
			return nil, fmt.Errorf("cache lookup: %w", err)
		}
		for rows.Next() {
			var r Record
			var created string
			if err := rows.Scan(&r.Fingerprint, &r.SourceText, &r.Translated, &r.SourceLang, &r.TargetLang, &r.Model, &r.GlossaryVersion, &created); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan cache row: %w", err)
			}
			r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
			out[r.Fingerprint] = r
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("cache lookup: %w", err)
		}
		rows.Close()
	}
	return out, nil
}

// Put stores a single record. See PutBatch.
func (s *Store) Put(ctx context.Context, rec Record) ([]ConsistencyWarning, error) {
	return s.PutBatch(ctx, []Record{rec})
}

// PutBatch stores records in one transaction: either all new records are
// written or none are. Records whose fingerprint already exists are left
// untouched; a differing translation is returned as a warning.
func (s *Store) PutBatch(ctx context.Context, recs []Record) ([]ConsistencyWarning, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var warnings []ConsistencyWarning
	now := s.clock.Now().UTC().Format(time.RFC3339Nano)

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, rec := range recs {
			var stored string
			sel, args, err := s.sq.Select("translated_text").From("translations").
				Where(sq.Eq{"fingerprint": rec.Fingerprint}).ToSql()
			if err != nil {
				return err
			}
			err = tx.QueryRowContext(ctx, sel, args...).Scan(&stored)
			switch {
			case err == nil:
				if stored != rec.Translated {
					warnings = append(warnings, ConsistencyWarning{
						Fingerprint: rec.Fingerprint,
						Stored:      stored,
						Incoming:    rec.Translated,
					})
				}
				continue
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("check fingerprint: %w", err)
			}

			ins, args, err := s.sq.Insert("translations").
				Columns(
					"fingerprint",
					"source_text",
					"translated_text",
					"src_lang",
					"tgt_lang",
					"model",
					"glossary_version",
					"created_at",
				).
				Values(
					rec.Fingerprint,
					rec.SourceText,
					rec.Translated,
					rec.SourceLang,
					rec.TargetLang,
					rec.Model,
					rec.GlossaryVersion,
					now,
				).ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
				return fmt.Errorf("insert fingerprint: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		s.log.WithFields(logrus.Fields{
			"fingerprint": short(w.Fingerprint),
			"stored":      w.Stored,
			"incoming":    w.Incoming,
		}).Warn("cache consistency: keeping stored translation")
	}
	return warnings, nil
}

// PurgeVersion deletes every record cached under a glossary version
func (s *Store) PurgeVersion(ctx context.Context, version string) (int64, error) {
	return s.purge(ctx, sq.Eq{"glossary_version": version})
}

// PurgeExcept deletes every record not cached under keepVersion
func (s *Store) PurgeExcept(ctx context.Context, keepVersion string) (int64, error) {
	return s.purge(ctx, sq.NotEq{"glossary_version": keepVersion})
}

func (s *Store) purge(ctx context.Context, where sq.Sqlizer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlStr, args, err := s.sq.Delete("translations").Where(where).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of cached translations
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	sqlStr, args, err := s.sq.Select("COUNT(*)").From("translations").ToSql()
	if err != nil {
		return 0, err
	}
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache: %w", err)
	}
	return n, nil
}

// Versions lists the glossary versions present in the cache with their
// record counts.
func (s *Store) Versions(ctx context.Context) (map[string]int, error) {
	sqlStr, args, err := s.sq.Select("glossary_version", "COUNT(*)").From("translations").
		GroupBy("glossary_version").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var v string
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, err
		}
		out[v] = n
	}
	return out, rows.Err()
}

// RunStats are the counters persisted for a finished run
type RunStats struct {
	Status     string
	Units      int
	Translated int
	CacheHits  int
	Failed     int
	Calls      int
}

// StartRun records the start of a run and returns its id
func (s *Store) StartRun(ctx context.Context, dryRun bool) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlStr, args, err := s.sq.Insert("runs").
		Columns("id", "started_at", "status", "dry_run").
		Values(id, s.clock.Now().UTC().Format(time.RFC3339Nano), "running", dryRun).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters of a run
func (s *Store) FinishRun(ctx context.Context, id string, st RunStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlStr, args, err := s.sq.Update("runs").
		SetMap(map[string]any{
			"finished_at": s.clock.Now().UTC().Format(time.RFC3339Nano),
			"status":      st.Status,
			"units":       st.Units,
			"translated":  st.Translated,
			"cache_hits":  st.CacheHits,
			"failed":      st.Failed,
			"calls":       st.Calls,
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RunStatus returns the stored status of a run
func (s *Store) RunStatus(ctx context.Context, id string) (string, error) {
	var status string
	sqlStr, args, err := s.sq.Select("status").From("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return "", err
	}
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&status); err != nil {
		return "", fmt.Errorf("run %s: %w", id, err)
	}
	return status, nil
}

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL UNIQUE,
        applied_at TEXT NOT NULL
    )`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		var n int
		err := db.QueryRow(`SELECT 1 FROM schema_migrations WHERE name = ?`, name).Scan(&n)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations(name, applied_at) VALUES (?, ?)`, name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// withTx runs fn within a transaction
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
