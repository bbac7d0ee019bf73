package library

// Index is the fully cross-referenced in-memory library the player,
// playlist, and sampler operate on: every Song whose Hash has been set and
// that has a matching SharedData row is attached to it's
// "the Song carries references to a SharedData record by strong reference"
// invariant. This mirrors derat-nup/server/db/song.go's in-memory index,
// which likewise joins song rows to their keyed metadata after loading
// both from storage independently.
type Index struct {
	Songs []*Song
	SharedData map[Hash]*SharedData
}

// NewIndex joins songs and sharedData by hash, attaching each hashed song
// to its SharedData row when one exists. Songs still in the "new files"
// state (HasHash == false) are left unattached, matching.
func NewIndex(songs []*Song, sharedData map[Hash]*SharedData) *Index {
	idx := &Index{Songs: songs, SharedData: sharedData}
	for _, s := range songs {
		if !s.HasHash() {
			continue
		}
		if sd, ok := sharedData[s.Hash]; ok {
			s.AttachSharedData(sd)
		}
	}
	return idx
}

// BySharedData returns every Song sharing hash's SharedData row, i.e. the
// duplicate set describes, in the order they appear in
// idx.Songs (the SharedData.duplicates set itself is unordered).
func (idx *Index) BySharedData(hash Hash) []*Song {
	var out []*Song
	for _, s := range idx.Songs {
		if s.HasHash() && s.Hash == hash {
			out = append(out, s)
		}
	}
	return out
}

// Candidates returns every Song eligible for template/filter matching: it
// excludes songs still in the "new files" state, since those have no
// SharedData yet and 's filterable properties (length, rating,
// last played, etc.) all live on SharedData.
func (idx *Index) Candidates() []*Song {
	out := make([]*Song, 0, len(idx.Songs))
	for _, s := range idx.Songs {
		if s.HasHash() && s.SharedData != nil {
			out = append(out, s)
		}
	}
	return out
}
