package store

import (
	"fmt"
	"time"

	"github.com/madmaxoft/skautan-go/internal/library"
)

// HistoryEntry is one row of the playback history log.
type HistoryEntry struct {
	Hash library.Hash
	PlayedAt time.Time
}

// RecordPlayback appends a history row and updates the song's SharedData
// last_played field.
func (s *Store) RecordPlayback(hash library.Hash, playedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO history (hash, played_at) VALUES (?,?)`,
		hash.String(), playedAt.Unix()); err != nil {
		return fmt.Errorf("store: record playback: %w", err)
	}
	if _, err := tx.Exec(`UPDATE shared_data SET last_played=?, last_played_set=1 WHERE hash=?`,
		playedAt.Unix(), hash.String()); err != nil {
		return fmt.Errorf("store: update last_played: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.invalidateCache()
	return nil
}

// RecentHistory returns the most recent limit history entries, most recent
// first.
func (s *Store) RecentHistory(limit int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(`SELECT hash, played_at FROM history ORDER BY played_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var hashStr string
		var playedAt int64
		if err := rows.Scan(&hashStr, &playedAt); err != nil {
			return nil, err
		}
		h, err := parseHash(hashStr)
		if err != nil {
			return nil, err
		}
		out = append(out, HistoryEntry{Hash: h, PlayedAt: time.Unix(playedAt, 0)})
	}
	return out, rows.Err()
}
