package store

import (
	"fmt"

	"github.com/madmaxoft/skautan-go/internal/library"
)

// LoadLibraryIndex loads every song and shared_data row and joins them into
// a library.Index, the fully cross-referenced in-memory graph the player,
// playlist, and sampler operate on. This is the composition step
// LoadAllSongs and LoadAllSharedData's doc comments describe: songs are
// loaded with SharedData left nil, shared_data rows are loaded keyed by
// hex hash, and library.NewIndex does the attaching.
func (s *Store) LoadLibraryIndex() (*library.Index, error) {
	songs, err := s.LoadAllSongs()
	if err != nil {
		return nil, err
	}
	byHex, err := s.LoadAllSharedData()
	if err != nil {
		return nil, err
	}

	byHash := make(map[library.Hash]*library.SharedData, len(byHex))
	for hexStr, sd := range byHex {
		h, err := parseHash(hexStr)
		if err != nil {
			return nil, fmt.Errorf("store: shared_data row with malformed hash %q: %w", hexStr, err)
		}
		byHash[h] = sd
	}

	return library.NewIndex(songs, byHash), nil
}
