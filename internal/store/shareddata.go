package store

import (
	"database/sql"
	"fmt"

	"github.com/madmaxoft/skautan-go/internal/dated"
	"github.com/madmaxoft/skautan-go/internal/library"
)

// optRGB mirrors optFloat/optString for the one non-primitive dated field,
// encoding the color as a 6-digit hex string.
func optRGB(o dated.Optional[library.RGB]) (interface{}, interface{}) {
	v, ok := o.Get()
	if !ok {
		return nil, nil
	}
	return fmt.Sprintf("%02x%02x%02x", v.R, v.G, v.B), o.Timestamp().Unix()
}

func scanOptRGB(v sql.NullString, ts sql.NullInt64) dated.Optional[library.RGB] {
	if !v.Valid {
		return dated.Optional[library.RGB]{}
	}
	var r, g, b uint8
	fmt.Sscanf(v.String, "%02x%02x%02x", &r, &g, &b)
	return dated.NewAt(library.RGB{R: r, G: g, B: b}, unixTime(ts))
}

// UpsertSharedData inserts or replaces the shared_data row for sd.Hash, per
//. Every dated.Optional field is persisted alongside its own
// timestamp so a later LoadAllSharedData can reconstruct it exactly
// (rather than stamping it with the load time), which is what lets
// dated.Optional.UpdateIfNewer merge imported data correctly across runs.
func (s *Store) UpsertSharedData(sd *library.SharedData) error {
	length, lengthTS := optFloat(sd.Length)
	lastPlayed, lastPlayedTS := optInt64(sd.LastPlayed)
	ratingLocal, ratingLocalTS := optFloat(sd.Rating.Local)
	ratingRhythm, ratingRhythmTS := optFloat(sd.Rating.RhythmClarity)
	ratingGenre, ratingGenreTS := optFloat(sd.Rating.GenreTypicality)
	ratingPopularity, ratingPopularityTS := optFloat(sd.Rating.Popularity)
	tagAuthor, tagAuthorTS := optString(sd.TagManual.Author)
	tagTitle, tagTitleTS := optString(sd.TagManual.Title)
	tagGenre, tagGenreTS := optString(sd.TagManual.Genre)
	tagMPM, tagMPMTS := optFloat(sd.TagManual.MeasuresPerMinute)
	skipStart, skipStartTS := optFloat(sd.SkipStart)
	notes, notesTS := optString(sd.Notes)
	bgColor, bgColorTS := optRGB(sd.BGColor)
	detectedTempo, detectedTempoTS := optFloat(sd.DetectedTempo)
	// skip_start, notes and bg_color are NOT NULL columns: an absent value
	// is written as the column's default, with its _set flag left at 0.
	if skipStart == nil {
		skipStart = 0.0
	}
	if notes == nil {
		notes = ""
	}
	if bgColor == nil {
		bgColor = ""
	}

	_, err := s.db.Exec(`
		INSERT INTO shared_data (
			hash, length, length_ts, last_played, last_played_set,
			rating_local, rating_local_set, rating_local_ts,
			rating_rhythm, rating_rhythm_set, rating_rhythm_ts,
			rating_genre, rating_genre_set, rating_genre_ts,
			rating_popularity, rating_popularity_set, rating_popularity_ts,
			tag_author, tag_author_ts, tag_title, tag_title_ts,
			tag_genre, tag_genre_ts, tag_mpm, tag_mpm_ts,
			skip_start, skip_start_set, skip_start_ts,
			notes, notes_set, notes_ts,
			bg_color, bg_color_set, bg_color_ts,
			detected_tempo, detected_tempo_set, detected_tempo_ts
		) VALUES (?,?,?, ?,?, ?,?,?, ?,?,?, ?,?,?, ?,?,?, ?,?,?,?, ?,?,?,?, ?,?,?, ?,?,?, ?,?,?, ?,?,?)
		ON CONFLICT(hash) DO UPDATE SET
			length=excluded.length, length_ts=excluded.length_ts,
			last_played=excluded.last_played,
			last_played_set=excluded.last_played_set,
			rating_local=excluded.rating_local, rating_local_set=excluded.rating_local_set, rating_local_ts=excluded.rating_local_ts,
			rating_rhythm=excluded.rating_rhythm, rating_rhythm_set=excluded.rating_rhythm_set, rating_rhythm_ts=excluded.rating_rhythm_ts,
			rating_genre=excluded.rating_genre, rating_genre_set=excluded.rating_genre_set, rating_genre_ts=excluded.rating_genre_ts,
			rating_popularity=excluded.rating_popularity, rating_popularity_set=excluded.rating_popularity_set, rating_popularity_ts=excluded.rating_popularity_ts,
			tag_author=excluded.tag_author, tag_author_ts=excluded.tag_author_ts,
			tag_title=excluded.tag_title, tag_title_ts=excluded.tag_title_ts,
			tag_genre=excluded.tag_genre, tag_genre_ts=excluded.tag_genre_ts,
			tag_mpm=excluded.tag_mpm, tag_mpm_ts=excluded.tag_mpm_ts,
			skip_start=excluded.skip_start, skip_start_set=excluded.skip_start_set, skip_start_ts=excluded.skip_start_ts,
			notes=excluded.notes, notes_set=excluded.notes_set, notes_ts=excluded.notes_ts,
			bg_color=excluded.bg_color, bg_color_set=excluded.bg_color_set, bg_color_ts=excluded.bg_color_ts,
			detected_tempo=excluded.detected_tempo, detected_tempo_set=excluded.detected_tempo_set, detected_tempo_ts=excluded.detected_tempo_ts
	`,
		sd.Hash.String(), length, lengthTS, lastPlayed, presentFlag(lastPlayedTS),
		ratingLocal, presentFlag(ratingLocalTS), ratingLocalTS,
		ratingRhythm, presentFlag(ratingRhythmTS), ratingRhythmTS,
		ratingGenre, presentFlag(ratingGenreTS), ratingGenreTS,
		ratingPopularity, presentFlag(ratingPopularityTS), ratingPopularityTS,
		tagAuthor, tagAuthorTS, tagTitle, tagTitleTS,
		tagGenre, tagGenreTS, tagMPM, tagMPMTS,
		skipStart, presentFlag(skipStartTS), skipStartTS,
		notes, presentFlag(notesTS), notesTS,
		bgColor, presentFlag(bgColorTS), bgColorTS,
		detectedTempo, presentFlag(detectedTempoTS), detectedTempoTS,
	)
	if err != nil {
		return fmt.Errorf("store: upsert shared_data %s: %w", sd.Hash, err)
	}
	s.invalidateCache()
	return nil
}

func presentFlag(ts interface{}) int {
	if ts == nil {
		return 0
	}
	return 1
}

// sharedDataSelectColumns is shared by every query that reconstructs a
// library.SharedData from the shared_data table.
const sharedDataSelectColumns = `
	SELECT hash, length, length_ts, last_played, last_played_set,
		rating_local, rating_local_set, rating_local_ts,
		rating_rhythm, rating_rhythm_set, rating_rhythm_ts,
		rating_genre, rating_genre_set, rating_genre_ts,
		rating_popularity, rating_popularity_set, rating_popularity_ts,
		tag_author, tag_author_ts, tag_title, tag_title_ts,
		tag_genre, tag_genre_ts, tag_mpm, tag_mpm_ts,
		skip_start, skip_start_set, skip_start_ts,
		notes, notes_set, notes_ts,
		bg_color, bg_color_set, bg_color_ts,
		detected_tempo, detected_tempo_set, detected_tempo_ts
	FROM shared_data
`

// scanSharedDataRow reconstructs a library.SharedData from one
// sharedDataSelectColumns row, restoring each dated field's original
// timestamp (not the load time) so a later dated.Optional.UpdateIfNewer
// merge compares true last-modified times rather than always looking fresh.
func scanSharedDataRow(r rowScanner) (*library.SharedData, error) {
	var (
		hashStr string
		length sql.NullFloat64
		lengthTS sql.NullInt64
		lastPlayed sql.NullInt64
		lastPlayedSet int
		ratingLocal, ratingRhythm sql.NullFloat64
		ratingLocalSet, ratingRhythmSet int
		ratingLocalTS, ratingRhythmTS sql.NullInt64
		ratingGenre, ratingPopularity sql.NullFloat64
		ratingGenreSet, ratingPopularitySet int
		ratingGenreTS, ratingPopularityTS sql.NullInt64
		tagAuthor, tagTitle, tagGenre sql.NullString
		tagAuthorTS, tagTitleTS, tagGenreTS sql.NullInt64
		tagMPM sql.NullFloat64
		tagMPMTS sql.NullInt64
		skipStart sql.NullFloat64
		skipStartSet int
		skipStartTS sql.NullInt64
		notes sql.NullString
		notesSet int
		notesTS sql.NullInt64
		bgColor sql.NullString
		bgColorSet int
		bgColorTS sql.NullInt64
		detectedTempo sql.NullFloat64
		detectedTempoSet int
		detectedTempoTS sql.NullInt64
	)
	if err := r.Scan(
		&hashStr, &length, &lengthTS, &lastPlayed, &lastPlayedSet,
		&ratingLocal, &ratingLocalSet, &ratingLocalTS,
		&ratingRhythm, &ratingRhythmSet, &ratingRhythmTS,
		&ratingGenre, &ratingGenreSet, &ratingGenreTS,
		&ratingPopularity, &ratingPopularitySet, &ratingPopularityTS,
		&tagAuthor, &tagAuthorTS, &tagTitle, &tagTitleTS,
		&tagGenre, &tagGenreTS, &tagMPM, &tagMPMTS,
		&skipStart, &skipStartSet, &skipStartTS,
		&notes, &notesSet, &notesTS,
		&bgColor, &bgColorSet, &bgColorTS,
		&detectedTempo, &detectedTempoSet, &detectedTempoTS,
	); err != nil {
		return nil, err
	}

	h, err := parseHash(hashStr)
	if err != nil {
		return nil, fmt.Errorf("shared_data: %w", err)
	}
	sd := library.NewSharedData(h)
	if length.Valid {
		sd.Length = dated.NewAt(length.Float64, unixTime(lengthTS))
	}
	if lastPlayedSet == 1 && lastPlayed.Valid {
		sd.LastPlayed = dated.NewAt(lastPlayed.Int64, unixTime(sql.NullInt64{Int64: lastPlayed.Int64, Valid: true}))
	}
	if ratingLocalSet == 1 {
		sd.Rating.Local = scanOptFloat(ratingLocal, ratingLocalTS)
	}
	if ratingRhythmSet == 1 {
		sd.Rating.RhythmClarity = scanOptFloat(ratingRhythm, ratingRhythmTS)
	}
	if ratingGenreSet == 1 {
		sd.Rating.GenreTypicality = scanOptFloat(ratingGenre, ratingGenreTS)
	}
	if ratingPopularitySet == 1 {
		sd.Rating.Popularity = scanOptFloat(ratingPopularity, ratingPopularityTS)
	}
	sd.TagManual = library.Tag{
		Author: scanOptString(tagAuthor, tagAuthorTS),
		Title: scanOptString(tagTitle, tagTitleTS),
		Genre: scanOptString(tagGenre, tagGenreTS),
		MeasuresPerMinute: scanOptFloat(tagMPM, tagMPMTS),
	}
	if skipStartSet == 1 {
		sd.SkipStart = scanOptFloat(skipStart, skipStartTS)
	}
	if notesSet == 1 {
		sd.Notes = scanOptString(notes, notesTS)
	}
	if bgColorSet == 1 {
		sd.BGColor = scanOptRGB(bgColor, bgColorTS)
	}
	if detectedTempoSet == 1 {
		sd.DetectedTempo = scanOptFloat(detectedTempo, detectedTempoTS)
	}
	return sd, nil
}

// LoadAllSharedData returns every shared_data row, keyed by hex hash
// string for the caller to re-attach to in-memory Songs.
func (s *Store) LoadAllSharedData() (map[string]*library.SharedData, error) {
	rows, err := s.db.Query(sharedDataSelectColumns)
	if err != nil {
		return nil, fmt.Errorf("store: load shared_data: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*library.SharedData)
	for rows.Next() {
		sd, err := scanSharedDataRow(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan shared_data row: %w", err)
		}
		out[sd.Hash.String()] = sd
	}
	return out, rows.Err()
}

// LoadSharedData returns the shared_data row for hash, or ok=false if none
// exists yet. Used by merge-on-import to find the record a freshly-scanned
// SharedData should be merged into rather than blindly overwriting.
func (s *Store) LoadSharedData(hash library.Hash) (sd *library.SharedData, ok bool, err error) {
	row := s.db.QueryRow(sharedDataSelectColumns+` WHERE hash=? LIMIT 1`, hash.String())
	sd, err = scanSharedDataRow(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: shared_data %s: %w", hash, err)
	}
	return sd, true, nil
}

