// Package store persists the song library, filters, templates, playback
// history, and votes to SQLite. It's grounded on
// update_music_db/legacy.go's database/sql + mattn/go-sqlite3 usage and on
// derat-nup/server/config's versioned-migration style.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/madmaxoft/skautan-go/internal/applog"
	"github.com/madmaxoft/skautan-go/internal/backup"
)

// schemaVersion is the current on-disk schema version. Bump this and add a
// case to migrate when the schema changes.
const schemaVersion = 3

// Store wraps a SQLite connection plus the in-process query cache
// described in, adapted from derat-nup/server/cache's
// hash-keyed query-map pattern to a single in-process tier.
type Store struct {
	db *sql.DB

	mu sync.RWMutex
	cache map[string]interface{}
}

// Open opens (creating if necessary) the SQLite database at path, backs it
// up before running any pending migration ("migrations
// take a pre-upgrade backup" requirement), and returns a ready Store.
// backupDir, if non-empty, is where the pre-migration backup is written
// using the dated backup.Migration layout; if empty, a sibling
// "<path>.pre-migration-vN.bak" file is used instead.
func Open(path, backupDir string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &Store{db: db, cache: make(map[string]interface{})}
	if err := s.migrate(path, backupDir); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(path, backupDir string) error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_info (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("store: create schema_info: %w", err)
	}
	var version int
	row := s.db.QueryRow(`SELECT version FROM schema_info LIMIT 1`)
	if err := row.Scan(&version); err == sql.ErrNoRows {
		version = 0
	} else if err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	if version > 0 {
		if backupDir != "" {
			if err := backup.Migration(backupDir, path, version, time.Now()); err != nil && !errors.Is(err, backup.ErrExists) {
				applog.Warnf("store: pre-migration backup failed, continuing anyway: %v", err)
			}
		} else if err := backup.Snapshot(path, fmt.Sprintf("pre-migration-v%d", version)); err != nil {
			applog.Warnf("store: pre-migration backup failed, continuing anyway: %v", err)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin migration tx: %w", err)
	}
	defer tx.Rollback()

	for v := version; v < schemaVersion; v++ {
		if err := migrationStep(tx, v); err != nil {
			return fmt.Errorf("store: migration step %d: %w", v, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM schema_info`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_info (version) VALUES (?)`, schemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}

// migrationStep applies the single schema change that moves the database
// from version v to v+1.
func migrationStep(tx *sql.Tx, v int) error {
	switch v {
	case 0:
		return createInitialSchema(tx)
	case 1:
		return addSharedDataTimestamps(tx)
	case 2:
		return createNewSongFilesTable(tx)
	default:
		return fmt.Errorf("no migration defined for version %d", v)
	}
}

// addSharedDataTimestamps adds a real per-field timestamp (and, for the
// columns that used to be NOT NULL DEFAULT, a presence flag) to every
// shared_data field that previously had none, so UpdateIfNewer merges on
// these fields survive a reload instead of always looking freshly-modified.
func addSharedDataTimestamps(tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE shared_data ADD COLUMN length_ts INTEGER`,
		`ALTER TABLE shared_data ADD COLUMN rating_local_ts INTEGER`,
		`ALTER TABLE shared_data ADD COLUMN rating_rhythm_ts INTEGER`,
		`ALTER TABLE shared_data ADD COLUMN rating_genre_ts INTEGER`,
		`ALTER TABLE shared_data ADD COLUMN rating_popularity_ts INTEGER`,
		`ALTER TABLE shared_data ADD COLUMN skip_start_set INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE shared_data ADD COLUMN skip_start_ts INTEGER`,
		`ALTER TABLE shared_data ADD COLUMN notes_set INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE shared_data ADD COLUMN notes_ts INTEGER`,
		`ALTER TABLE shared_data ADD COLUMN bg_color_set INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE shared_data ADD COLUMN bg_color_ts INTEGER`,
		`ALTER TABLE shared_data ADD COLUMN detected_tempo_ts INTEGER`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// createNewSongFilesTable adds the staging table backing the two-phase
// discover-then-hash "new files" lifecycle §4.9
// describes: a file discovered by a library scan sits here, unattached to
// any shared_data row, until its content hash has been computed and it's
// promoted into songs.
func createNewSongFilesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE new_song_files (
		file_name TEXT PRIMARY KEY,
		file_size INTEGER NOT NULL,
		discovered_at INTEGER NOT NULL
	)`)
	return err
}

func createInitialSchema(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE shared_data (
			hash TEXT PRIMARY KEY,
			length REAL,
			last_played INTEGER,
			last_played_set INTEGER NOT NULL DEFAULT 0,
			rating_local REAL, rating_local_set INTEGER NOT NULL DEFAULT 0,
			rating_rhythm REAL, rating_rhythm_set INTEGER NOT NULL DEFAULT 0,
			rating_genre REAL, rating_genre_set INTEGER NOT NULL DEFAULT 0,
			rating_popularity REAL, rating_popularity_set INTEGER NOT NULL DEFAULT 0,
			tag_author TEXT, tag_author_ts INTEGER,
			tag_title TEXT, tag_title_ts INTEGER,
			tag_genre TEXT, tag_genre_ts INTEGER,
			tag_mpm REAL, tag_mpm_ts INTEGER,
			skip_start REAL NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			bg_color TEXT NOT NULL DEFAULT '',
			detected_tempo REAL, detected_tempo_set INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE songs (
			file_name TEXT PRIMARY KEY,
			file_size INTEGER NOT NULL,
			hash TEXT,
			tag_fn_author TEXT, tag_fn_author_ts INTEGER,
			tag_fn_title TEXT, tag_fn_title_ts INTEGER,
			tag_fn_genre TEXT, tag_fn_genre_ts INTEGER,
			tag_fn_mpm REAL, tag_fn_mpm_ts INTEGER,
			tag_id3_author TEXT, tag_id3_author_ts INTEGER,
			tag_id3_title TEXT, tag_id3_title_ts INTEGER,
			tag_id3_genre TEXT, tag_id3_genre_ts INTEGER,
			tag_id3_mpm REAL, tag_id3_mpm_ts INTEGER,
			last_tag_rescanned INTEGER,
			num_tag_rescan_attempts INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (hash) REFERENCES shared_data(hash)
		)`,
		`CREATE TABLE filters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			favorite INTEGER NOT NULL DEFAULT 0,
			bg_color TEXT NOT NULL DEFAULT '',
			has_duration INTEGER NOT NULL DEFAULT 0,
			duration_sec REAL NOT NULL DEFAULT 0,
			tree_json TEXT NOT NULL
		)`,
		`CREATE TABLE templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE template_items (
			template_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			filter_id INTEGER NOT NULL,
			has_duration INTEGER NOT NULL DEFAULT 0,
			duration_sec REAL NOT NULL DEFAULT 0,
			FOREIGN KEY (template_id) REFERENCES templates(id),
			FOREIGN KEY (filter_id) REFERENCES filters(id)
		)`,
		`CREATE TABLE history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hash TEXT NOT NULL,
			played_at INTEGER NOT NULL
		)`,
		`CREATE TABLE votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hash TEXT NOT NULL,
			rating_kind TEXT NOT NULL,
			value INTEGER NOT NULL,
			cast_at INTEGER NOT NULL
		)`,
		`CREATE TABLE removal_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_name TEXT NOT NULL,
			reason TEXT NOT NULL,
			removed_at INTEGER NOT NULL
		)`,
		`CREATE INDEX idx_history_hash ON history(hash)`,
		`CREATE INDEX idx_votes_hash ON votes(hash)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

// invalidateCache drops every cached query result. Called after any
// mutating statement, "writes invalidate the whole
// cache tier rather than tracking fine-grained dependencies" simplification.
func (s *Store) invalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]interface{})
}

func (s *Store) cacheGet(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[key]
	return v, ok
}

func (s *Store) cachePut(key string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = v
}
