package store

import (
	"fmt"
	"time"

	"github.com/madmaxoft/skautan-go/internal/library"
)

// RatingKind names which of a SharedData's four rating components a vote
// applies to.
type RatingKind string

const (
	RatingLocal RatingKind = "local"
	RatingRhythmClarity RatingKind = "rhythm"
	RatingGenreTypicality RatingKind = "genre"
	RatingPopularity RatingKind = "popularity"
)

// CastVote records a vote of the given kind and value (an integer rating,
// typically 1-5) for hash, then recomputes and persists that rating
// component's aggregate mean via library.AggregateRating, per
// §4.18's vote-server endpoint.
func (s *Store) CastVote(hash library.Hash, kind RatingKind, value int, castAt time.Time) (mean float64, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO votes (hash, rating_kind, value, cast_at) VALUES (?,?,?,?)`,
		hash.String(), string(kind), value, castAt.Unix()); err != nil {
		return 0, fmt.Errorf("store: cast vote: %w", err)
	}

	rows, err := tx.Query(`SELECT value FROM votes WHERE hash=? AND rating_kind=?`, hash.String(), string(kind))
	if err != nil {
		return 0, fmt.Errorf("store: read votes: %w", err)
	}
	var values []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, err
		}
		values = append(values, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	mean, ok := library.AggregateRating(values)
	if !ok {
		mean = 0
	}

	column, setColumn := ratingColumns(kind)
	if column == "" {
		return 0, fmt.Errorf("store: unknown rating kind %q", kind)
	}
	query := fmt.Sprintf(`
		INSERT INTO shared_data (hash, %s, %s)
		VALUES (?, ?, 1)
		ON CONFLICT(hash) DO UPDATE SET %s=excluded.%s, %s=1
	`, column, setColumn, column, column, setColumn)
	if _, err := tx.Exec(query, hash.String(), mean); err != nil {
		return 0, fmt.Errorf("store: persist aggregate rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.invalidateCache()
	return mean, nil
}

func ratingColumns(kind RatingKind) (column, setColumn string) {
	switch kind {
	case RatingLocal:
		return "rating_local", "rating_local_set"
	case RatingRhythmClarity:
		return "rating_rhythm", "rating_rhythm_set"
	case RatingGenreTypicality:
		return "rating_genre", "rating_genre_set"
	case RatingPopularity:
		return "rating_popularity", "rating_popularity_set"
	}
	return "", ""
}
