package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/madmaxoft/skautan-go/internal/dated"
	"github.com/madmaxoft/skautan-go/internal/library"
)

// optFloat/optString/optInt64 convert a dated.Optional into the (value,
// timestamp) column pair SQLite stores it as; absent values become
// (nil, nil).
func optFloat(o dated.Optional[float64]) (interface{}, interface{}) {
	v, ok := o.Get()
	if !ok {
		return nil, nil
	}
	return v, o.Timestamp().Unix()
}

func optString(o dated.Optional[string]) (interface{}, interface{}) {
	v, ok := o.Get()
	if !ok {
		return nil, nil
	}
	return v, o.Timestamp().Unix()
}

func optInt64(o dated.Optional[int64]) (interface{}, interface{}) {
	v, ok := o.Get()
	if !ok {
		return nil, nil
	}
	return v, o.Timestamp().Unix()
}

func scanOptFloat(v sql.NullFloat64, ts sql.NullInt64) dated.Optional[float64] {
	if !v.Valid {
		return dated.Optional[float64]{}
	}
	return dated.NewAt(v.Float64, unixTime(ts))
}

func scanOptString(v sql.NullString, ts sql.NullInt64) dated.Optional[string] {
	if !v.Valid {
		return dated.Optional[string]{}
	}
	return dated.NewAt(v.String, unixTime(ts))
}

func scanOptInt64(v sql.NullInt64, ts sql.NullInt64) dated.Optional[int64] {
	if !v.Valid {
		return dated.Optional[int64]{}
	}
	return dated.NewAt(v.Int64, unixTime(ts))
}

func unixTime(ts sql.NullInt64) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return time.Unix(ts.Int64, 0)
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting upsertSongTx run
// either as its own statement or as part of a larger transaction (e.g.
// SongHashCalculated's stage-then-promote).
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// UpsertSong inserts or replaces s's row, keyed by FileName. For a song
// with a hash it creates an empty shared_data row if none exists yet
// (songs.hash references it); it never changes an existing shared_data
// row, which callers upsert separately.
func (s *Store) UpsertSong(song *library.Song) error {
	if err := upsertSongTx(s.db, song); err != nil {
		return err
	}
	s.invalidateCache()
	return nil
}

func upsertSongTx(ex execer, song *library.Song) error {
	fnAuthor, fnAuthorTS := optString(song.TagFileName.Author)
	fnTitle, fnTitleTS := optString(song.TagFileName.Title)
	fnGenre, fnGenreTS := optString(song.TagFileName.Genre)
	fnMPM, fnMPMTS := optFloat(song.TagFileName.MeasuresPerMinute)
	id3Author, id3AuthorTS := optString(song.TagID3.Author)
	id3Title, id3TitleTS := optString(song.TagID3.Title)
	id3Genre, id3GenreTS := optString(song.TagID3.Genre)
	id3MPM, id3MPMTS := optFloat(song.TagID3.MeasuresPerMinute)
	lastRescan, lastRescanTS := optInt64(song.LastTagRescanned)

	var hash interface{}
	if song.HasHash() {
		hash = song.Hash.String()
		// songs.hash references shared_data(hash): make sure the parent row
		// exists, leaving an existing one untouched.
		if _, err := ex.Exec(`INSERT INTO shared_data (hash) VALUES (?) ON CONFLICT(hash) DO NOTHING`, hash); err != nil {
			return fmt.Errorf("store: ensure shared_data for %s: %w", song.FileName, err)
		}
	}

	_, err := ex.Exec(`
		INSERT INTO songs (
			file_name, file_size, hash,
			tag_fn_author, tag_fn_author_ts, tag_fn_title, tag_fn_title_ts,
			tag_fn_genre, tag_fn_genre_ts, tag_fn_mpm, tag_fn_mpm_ts,
			tag_id3_author, tag_id3_author_ts, tag_id3_title, tag_id3_title_ts,
			tag_id3_genre, tag_id3_genre_ts, tag_id3_mpm, tag_id3_mpm_ts,
			last_tag_rescanned, num_tag_rescan_attempts
		) VALUES (?,?,?, ?,?,?,?, ?,?,?,?, ?,?,?,?, ?,?,?,?, ?,?)
		ON CONFLICT(file_name) DO UPDATE SET
			file_size=excluded.file_size, hash=excluded.hash,
			tag_fn_author=excluded.tag_fn_author, tag_fn_author_ts=excluded.tag_fn_author_ts,
			tag_fn_title=excluded.tag_fn_title, tag_fn_title_ts=excluded.tag_fn_title_ts,
			tag_fn_genre=excluded.tag_fn_genre, tag_fn_genre_ts=excluded.tag_fn_genre_ts,
			tag_fn_mpm=excluded.tag_fn_mpm, tag_fn_mpm_ts=excluded.tag_fn_mpm_ts,
			tag_id3_author=excluded.tag_id3_author, tag_id3_author_ts=excluded.tag_id3_author_ts,
			tag_id3_title=excluded.tag_id3_title, tag_id3_title_ts=excluded.tag_id3_title_ts,
			tag_id3_genre=excluded.tag_id3_genre, tag_id3_genre_ts=excluded.tag_id3_genre_ts,
			tag_id3_mpm=excluded.tag_id3_mpm, tag_id3_mpm_ts=excluded.tag_id3_mpm_ts,
			last_tag_rescanned=excluded.last_tag_rescanned,
			num_tag_rescan_attempts=excluded.num_tag_rescan_attempts
	`,
		song.FileName, song.FileSize, hash,
		fnAuthor, fnAuthorTS, fnTitle, fnTitleTS,
		fnGenre, fnGenreTS, fnMPM, fnMPMTS,
		id3Author, id3AuthorTS, id3Title, id3TitleTS,
		id3Genre, id3GenreTS, id3MPM, id3MPMTS,
		lastRescan, lastRescanTS, song.NumTagRescanAttempts,
	)
	if err != nil {
		return fmt.Errorf("store: upsert song %s: %w", song.FileName, err)
	}
	return nil
}

// DeleteSong removes a song row and records a removal_log entry giving the
// reason, audit-trail requirement.
func (s *Store) DeleteSong(fileName, reason string, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM songs WHERE file_name = ?`, fileName); err != nil {
		return fmt.Errorf("store: delete song %s: %w", fileName, err)
	}
	if _, err := tx.Exec(`INSERT INTO removal_log (file_name, reason, removed_at) VALUES (?,?,?)`,
		fileName, reason, now.Unix()); err != nil {
		return fmt.Errorf("store: log removal of %s: %w", fileName, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.invalidateCache()
	return nil
}

// songSelectColumns is shared by every query that reconstructs a
// library.Song from the songs table, so LoadAllSongs and the single-row
// lookups below stay scan-compatible.
const songSelectColumns = `
	SELECT file_name, file_size, hash,
		tag_fn_author, tag_fn_author_ts, tag_fn_title, tag_fn_title_ts,
		tag_fn_genre, tag_fn_genre_ts, tag_fn_mpm, tag_fn_mpm_ts,
		tag_id3_author, tag_id3_author_ts, tag_id3_title, tag_id3_title_ts,
		tag_id3_genre, tag_id3_genre_ts, tag_id3_mpm, tag_id3_mpm_ts,
		last_tag_rescanned, num_tag_rescan_attempts
	FROM songs
`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSongRow reconstructs a library.Song from one songSelectColumns row.
func scanSongRow(r rowScanner) (*library.Song, error) {
	var (
		fileName string
		fileSize int64
		hash sql.NullString
		fnAuthor, fnTitle, fnGenre sql.NullString
		fnAuthorTS, fnTitleTS, fnGenreTS sql.NullInt64
		fnMPM sql.NullFloat64
		fnMPMTS sql.NullInt64
		id3Author, id3Title, id3Genre sql.NullString
		id3AuthorTS, id3TitleTS, id3GenreTS sql.NullInt64
		id3MPM sql.NullFloat64
		id3MPMTS sql.NullInt64
		lastRescan sql.NullInt64
		lastRescanTS sql.NullInt64
		numRescanAttempts int
	)
	if err := r.Scan(
		&fileName, &fileSize, &hash,
		&fnAuthor, &fnAuthorTS, &fnTitle, &fnTitleTS,
		&fnGenre, &fnGenreTS, &fnMPM, &fnMPMTS,
		&id3Author, &id3AuthorTS, &id3Title, &id3TitleTS,
		&id3Genre, &id3GenreTS, &id3MPM, &id3MPMTS,
		&lastRescan, &lastRescanTS, &numRescanAttempts,
	); err != nil {
		return nil, err
	}

	song := &library.Song{
		FileName: fileName,
		FileSize: fileSize,
		TagFileName: library.Tag{
			Author: scanOptString(fnAuthor, fnAuthorTS),
			Title: scanOptString(fnTitle, fnTitleTS),
			Genre: scanOptString(fnGenre, fnGenreTS),
			MeasuresPerMinute: scanOptFloat(fnMPM, fnMPMTS),
		},
		TagID3: library.Tag{
			Author: scanOptString(id3Author, id3AuthorTS),
			Title: scanOptString(id3Title, id3TitleTS),
			Genre: scanOptString(id3Genre, id3GenreTS),
			MeasuresPerMinute: scanOptFloat(id3MPM, id3MPMTS),
		},
		LastTagRescanned: scanOptInt64(lastRescan, lastRescanTS),
		NumTagRescanAttempts: numRescanAttempts,
	}
	if hash.Valid {
		h, err := parseHash(hash.String)
		if err != nil {
			return nil, fmt.Errorf("song %s: %w", fileName, err)
		}
		song.SetHash(h)
	}
	return song, nil
}

// LoadAllSongs returns every song row, with TagFileName/TagID3 populated
// but SharedData left nil; callers (internal/library index construction)
// attach SharedData afterward via LoadAllSharedData plus Song.AttachSharedData.
func (s *Store) LoadAllSongs() ([]*library.Song, error) {
	rows, err := s.db.Query(songSelectColumns)
	if err != nil {
		return nil, fmt.Errorf("store: load songs: %w", err)
	}
	defer rows.Close()

	var out []*library.Song
	for rows.Next() {
		song, err := scanSongRow(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan song row: %w", err)
		}
		out = append(out, song)
	}
	return out, rows.Err()
}

// AddSongFile records fileName as discovered-but-unhashed, the first half
// of the two-phase "new files" lifecycle §4.9 describes:
// a scan stages every file it finds here before any content hash has been
// computed, so a crash mid-scan never loses track of a discovered file.
// If fileName is already staged, only its stored file size is updated; the
// songs table is not checked.
func (s *Store) AddSongFile(fileName string, fileSize int64, discoveredAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO new_song_files (file_name, file_size, discovered_at) VALUES (?,?,?)
		ON CONFLICT(file_name) DO UPDATE SET file_size=excluded.file_size`,
		fileName, fileSize, discoveredAt.Unix())
	if err != nil {
		return fmt.Errorf("store: add new song file %s: %w", fileName, err)
	}
	s.invalidateCache()
	return nil
}

// ListNewSongFiles returns every file staged by AddSongFile that hasn't yet
// been promoted into songs by SongHashCalculated.
func (s *Store) ListNewSongFiles() ([]library.PendingFile, error) {
	rows, err := s.db.Query(`SELECT file_name, file_size FROM new_song_files`)
	if err != nil {
		return nil, fmt.Errorf("store: list new song files: %w", err)
	}
	defer rows.Close()

	var out []library.PendingFile
	for rows.Next() {
		var p library.PendingFile
		if err := rows.Scan(&p.FileName, &p.FileSize); err != nil {
			return nil, fmt.Errorf("store: scan new song file row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SongHashCalculated promotes a staged file into songs now that its
// content hash (and tags) are known, completing the two-phase lifecycle:
// the new_song_files row is removed and song is upserted in the same
// transaction, so the file is never visible in both places at once.
func (s *Store) SongHashCalculated(song *library.Song) error {
	if !song.HasHash() {
		return fmt.Errorf("store: SongHashCalculated(%s): song has no hash set", song.FileName)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin promote %s: %w", song.FileName, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM new_song_files WHERE file_name=?`, song.FileName); err != nil {
		return fmt.Errorf("store: unstage %s: %w", song.FileName, err)
	}
	if err := upsertSongTx(tx, song); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit promote %s: %w", song.FileName, err)
	}
	s.invalidateCache()
	return nil
}

// SongFromHash returns the first songs row carrying hash, or ok=false if
// none does. Scans re-hashing a file that matches an already-known
// SharedData row use this to recognize "new content that turns out to
// duplicate an existing song" rather than always minting a fresh row.
func (s *Store) SongFromHash(hash library.Hash) (song *library.Song, ok bool, err error) {
	row := s.db.QueryRow(songSelectColumns+` WHERE hash=? LIMIT 1`, hash.String())
	song, err = scanSongRow(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: song by hash %s: %w", hash, err)
	}
	return song, true, nil
}

// SongFromFileName returns the songs row for fileName, or ok=false if none
// exists (the file may still be staged in new_song_files, or simply
// unknown).
func (s *Store) SongFromFileName(fileName string) (song *library.Song, ok bool, err error) {
	row := s.db.QueryRow(songSelectColumns+` WHERE file_name=? LIMIT 1`, fileName)
	song, err = scanSongRow(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: song by file name %s: %w", fileName, err)
	}
	return song, true, nil
}

// RenameFile updates a song's file_name in place (and its new_song_files
// staging row, if it's still staged), preserving its tag history across a
// move/rename instead of the scan seeing a deletion plus a new file.
func (s *Store) RenameFile(oldName, newName string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin rename %s: %w", oldName, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE songs SET file_name=? WHERE file_name=?`, newName, oldName); err != nil {
		return fmt.Errorf("store: rename song %s to %s: %w", oldName, newName, err)
	}
	if _, err := tx.Exec(`UPDATE new_song_files SET file_name=? WHERE file_name=?`, newName, oldName); err != nil {
		return fmt.Errorf("store: rename staged file %s to %s: %w", oldName, newName, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit rename %s: %w", oldName, err)
	}
	s.invalidateCache()
	return nil
}

func parseHash(hexStr string) (library.Hash, error) {
	var h library.Hash
	if len(hexStr) != len(h)*2 {
		return h, fmt.Errorf("hash %q has wrong length", hexStr)
	}
	for i := range h {
		var b byte
		if _, err := fmt.Sscanf(hexStr[i*2:i*2+2], "%02x", &b); err != nil {
			return h, fmt.Errorf("hash %q: %w", hexStr, err)
		}
		h[i] = b
	}
	return h, nil
}
