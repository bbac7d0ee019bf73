package library

// MergeTag merges src into dst field by field via UpdateIfNewer, so a
// freshly-scanned Tag only overwrites fields whose scanned timestamp is
// actually newer than what's already stored.
func MergeTag(dst *Tag, src Tag) {
	dst.Author.UpdateIfNewer(src.Author)
	dst.Title.UpdateIfNewer(src.Title)
	dst.Genre.UpdateIfNewer(src.Genre)
	dst.MeasuresPerMinute.UpdateIfNewer(src.MeasuresPerMinute)
}

// MergeSong merges a freshly-scanned src into the already-stored dst,
// driving the "merge incoming scanned data into an
// existing record" import guarantee. FileSize isn't dated (it has no
// per-field modification time of its own), so it's always taken from src:
// a rescan's stat is definitionally the current truth.
func MergeSong(dst, src *Song) {
	dst.FileSize = src.FileSize
	MergeTag(&dst.TagFileName, src.TagFileName)
	MergeTag(&dst.TagID3, src.TagID3)
	dst.LastTagRescanned.UpdateIfNewer(src.LastTagRescanned)
	if src.NumTagRescanAttempts > dst.NumTagRescanAttempts {
		dst.NumTagRescanAttempts = src.NumTagRescanAttempts
	}
}

// MergeSharedData merges a freshly-computed src into the already-stored
// dst field by field. Hash is immutable and assumed equal on both sides.
func MergeSharedData(dst, src *SharedData) {
	dst.Length.UpdateIfNewer(src.Length)
	dst.LastPlayed.UpdateIfNewer(src.LastPlayed)
	dst.Rating.Local.UpdateIfNewer(src.Rating.Local)
	dst.Rating.RhythmClarity.UpdateIfNewer(src.Rating.RhythmClarity)
	dst.Rating.GenreTypicality.UpdateIfNewer(src.Rating.GenreTypicality)
	dst.Rating.Popularity.UpdateIfNewer(src.Rating.Popularity)
	MergeTag(&dst.TagManual, src.TagManual)
	dst.SkipStart.UpdateIfNewer(src.SkipStart)
	dst.Notes.UpdateIfNewer(src.Notes)
	dst.BGColor.UpdateIfNewer(src.BGColor)
	dst.DetectedTempo.UpdateIfNewer(src.DetectedTempo)
}
