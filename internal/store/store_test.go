package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/library"
	"github.com/madmaxoft/skautan-go/internal/template"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "library.db"), "")
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestUpsertAndLoadSong(t *testing.T) {
	st := openTestStore(t)

	song := &library.Song{FileName: "a.mp3", FileSize: 1234}
	song.TagFileName.Author.Set("The Authors")
	song.TagID3.Title.Set("A Title")
	if err := st.UpsertSong(song); err != nil {
		t.Fatalf("UpsertSong = %v", err)
	}

	songs, err := st.LoadAllSongs()
	if err != nil {
		t.Fatalf("LoadAllSongs = %v", err)
	}
	if len(songs) != 1 {
		t.Fatalf("LoadAllSongs returned %d songs; want 1", len(songs))
	}
	got := songs[0]
	if got.FileName != "a.mp3" || got.FileSize != 1234 {
		t.Errorf("loaded song = %+v; want FileName=a.mp3, FileSize=1234", got)
	}
	if author, ok := got.TagFileName.Author.Get(); !ok || author != "The Authors" {
		t.Errorf("loaded TagFileName.Author = %q, %v; want %q, true", author, ok, "The Authors")
	}
	if got.HasHash() {
		t.Error("a song never given a hash reports HasHash = true")
	}
}

func TestUpsertSongIsIdempotentOnFileName(t *testing.T) {
	st := openTestStore(t)

	song := &library.Song{FileName: "a.mp3", FileSize: 100}
	if err := st.UpsertSong(song); err != nil {
		t.Fatalf("first UpsertSong = %v", err)
	}
	song.FileSize = 200
	song.SetHash(library.Hash{1, 2, 3})
	if err := st.UpsertSong(song); err != nil {
		t.Fatalf("second UpsertSong = %v", err)
	}

	songs, err := st.LoadAllSongs()
	if err != nil {
		t.Fatalf("LoadAllSongs = %v", err)
	}
	if len(songs) != 1 {
		t.Fatalf("LoadAllSongs returned %d songs; want 1 (upsert should replace, not duplicate)", len(songs))
	}
	if songs[0].FileSize != 200 || !songs[0].HasHash() {
		t.Errorf("loaded song = %+v; want the updated FileSize and a hash", songs[0])
	}
}

func TestDeleteSongRecordsRemoval(t *testing.T) {
	st := openTestStore(t)
	song := &library.Song{FileName: "a.mp3", FileSize: 1}
	if err := st.UpsertSong(song); err != nil {
		t.Fatalf("UpsertSong = %v", err)
	}
	if err := st.DeleteSong("a.mp3", "file missing", time.Now()); err != nil {
		t.Fatalf("DeleteSong = %v", err)
	}
	songs, err := st.LoadAllSongs()
	if err != nil {
		t.Fatalf("LoadAllSongs = %v", err)
	}
	if len(songs) != 0 {
		t.Errorf("LoadAllSongs after DeleteSong returned %d songs; want 0", len(songs))
	}
}

// TestNewSongFilesLifecycle exercises the two-phase discover-then-promote
// path: AddSongFile stages a file before its hash is known; once
// SongHashCalculated runs, the file is visible via SongFromFileName/
// SongFromHash and gone from ListNewSongFiles.
func TestNewSongFilesLifecycle(t *testing.T) {
	st := openTestStore(t)
	now := time.Now()

	if err := st.AddSongFile("a.mp3", 1000, now); err != nil {
		t.Fatalf("AddSongFile = %v", err)
	}
	staged, err := st.ListNewSongFiles()
	if err != nil {
		t.Fatalf("ListNewSongFiles = %v", err)
	}
	if len(staged) != 1 || staged[0].FileName != "a.mp3" {
		t.Fatalf("ListNewSongFiles = %+v; want one entry for a.mp3", staged)
	}
	if _, ok, err := st.SongFromFileName("a.mp3"); err != nil || ok {
		t.Fatalf("SongFromFileName(a.mp3) before promotion = %v, %v; want ok=false", ok, err)
	}

	song := &library.Song{FileName: "a.mp3", FileSize: 1000}
	song.SetHash(library.Hash{1, 2, 3})
	if err := st.SongHashCalculated(song); err != nil {
		t.Fatalf("SongHashCalculated = %v", err)
	}

	staged, err = st.ListNewSongFiles()
	if err != nil {
		t.Fatalf("ListNewSongFiles after promotion = %v", err)
	}
	if len(staged) != 0 {
		t.Errorf("ListNewSongFiles after promotion = %+v; want none", staged)
	}
	byName, ok, err := st.SongFromFileName("a.mp3")
	if err != nil || !ok {
		t.Fatalf("SongFromFileName(a.mp3) after promotion = %v, %v; want ok=true", ok, err)
	}
	if !byName.HasHash() {
		t.Error("promoted song has no hash")
	}
	byHash, ok, err := st.SongFromHash(library.Hash{1, 2, 3})
	if err != nil || !ok {
		t.Fatalf("SongFromHash after promotion = %v, %v; want ok=true", ok, err)
	}
	if byHash.FileName != "a.mp3" {
		t.Errorf("SongFromHash returned FileName %q; want a.mp3", byHash.FileName)
	}
}

func TestUpsertAndLoadSharedData(t *testing.T) {
	st := openTestStore(t)
	hash := library.Hash{9, 9, 9}
	sd := library.NewSharedData(hash)
	sd.Length.Set(123.5)
	sd.Rating.Local.Set(4)
	if err := st.UpsertSharedData(sd); err != nil {
		t.Fatalf("UpsertSharedData = %v", err)
	}

	all, err := st.LoadAllSharedData()
	if err != nil {
		t.Fatalf("LoadAllSharedData = %v", err)
	}
	got, ok := all[hash.String()]
	if !ok {
		t.Fatalf("LoadAllSharedData missing hash %s", hash)
	}
	if length, ok := got.Length.Get(); !ok || length != 123.5 {
		t.Errorf("loaded Length = %v, %v; want 123.5, true", length, ok)
	}
}

func TestLoadLibraryIndexAttachesSharedData(t *testing.T) {
	st := openTestStore(t)
	hash := library.Hash{5}
	sd := library.NewSharedData(hash)
	sd.Length.Set(200)
	if err := st.UpsertSharedData(sd); err != nil {
		t.Fatalf("UpsertSharedData = %v", err)
	}
	song := &library.Song{FileName: "a.mp3", FileSize: 1}
	song.SetHash(hash)
	if err := st.UpsertSong(song); err != nil {
		t.Fatalf("UpsertSong = %v", err)
	}

	idx, err := st.LoadLibraryIndex()
	if err != nil {
		t.Fatalf("LoadLibraryIndex = %v", err)
	}
	if len(idx.Songs) != 1 {
		t.Fatalf("Index.Songs has %d entries; want 1", len(idx.Songs))
	}
	got := idx.Songs[0]
	if got.SharedData == nil {
		t.Fatal("LoadLibraryIndex did not attach SharedData to the hashed song")
	}
	if length, _ := got.SharedData.Data.Length.Get(); length != 200 {
		t.Errorf("attached SharedData.Length = %v; want 200", length)
	}
}

func TestUpsertAndLoadFilterRoundTrips(t *testing.T) {
	st := openTestStore(t)
	tree := filter.NewBoolTree(filter.NodeAnd)
	tree.AddComparisonChild(tree.Root(), filter.PropGenreID3, filter.CmpEqual, "Waltz")
	f := &filter.Filter{Tree: tree, Name: "My Filter"}

	if err := st.UpsertFilter(f); err != nil {
		t.Fatalf("UpsertFilter = %v", err)
	}
	if f.ID == 0 {
		t.Fatal("UpsertFilter did not assign an id to a new filter")
	}

	loaded, err := st.LoadAllFilters()
	if err != nil {
		t.Fatalf("LoadAllFilters = %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("LoadAllFilters returned %d filters; want 1", len(loaded))
	}
	if loaded[0].Name != "My Filter" {
		t.Errorf("loaded filter Name = %q; want %q", loaded[0].Name, "My Filter")
	}
	if loaded[0].Tree.Hash() != tree.Hash() {
		t.Error("loaded filter's tree hash differs from the original")
	}
}

// TestDeleteFilterCascadesThroughTemplates covers the filter-delete
// cascade: the template_items row referencing the deleted filter must be
// gone from the database, and the in-memory Template passed in must no
// longer reference it either.
func TestDeleteFilterCascadesThroughTemplates(t *testing.T) {
	st := openTestStore(t)

	tree := filter.NewBoolTree(filter.NodeAnd)
	tree.AddComparisonChild(tree.Root(), filter.PropGenreID3, filter.CmpEqual, "Waltz")
	f := &filter.Filter{Tree: tree, Name: "Waltzes"}
	if err := st.UpsertFilter(f); err != nil {
		t.Fatalf("UpsertFilter = %v", err)
	}

	tmpl := &template.Template{Name: "Evening"}
	tmpl.Append(template.Item{Filter: f})
	if err := st.UpsertTemplate(tmpl); err != nil {
		t.Fatalf("UpsertTemplate = %v", err)
	}

	if err := st.DeleteFilter(f, []*template.Template{tmpl}); err != nil {
		t.Fatalf("DeleteFilter = %v", err)
	}

	if tmpl.ReferencesFilter(f) {
		t.Error("template still references the deleted filter in memory")
	}

	filters, err := st.LoadAllFilters()
	if err != nil {
		t.Fatalf("LoadAllFilters = %v", err)
	}
	if len(filters) != 0 {
		t.Errorf("LoadAllFilters after DeleteFilter returned %d filters; want 0", len(filters))
	}

	reloaded, err := st.LoadAllTemplates(nil)
	if err != nil {
		t.Fatalf("LoadAllTemplates = %v", err)
	}
	if len(reloaded) != 1 {
		t.Fatalf("LoadAllTemplates returned %d templates; want 1", len(reloaded))
	}
	if len(reloaded[0].Items) != 0 {
		t.Errorf("reloaded template has %d items; want 0 (template_items row should have been cascaded)", len(reloaded[0].Items))
	}
}

// TestCastVoteAggregatesMean exercises the vote-endpoint scenario: casting
// three votes for the same song/kind produces their arithmetic mean,
// persisted into the matching shared_data rating column.
func TestCastVoteAggregatesMean(t *testing.T) {
	st := openTestStore(t)
	hash := library.Hash{7}
	now := time.Now()

	for _, v := range []int{3, 4, 5} {
		if _, err := st.CastVote(hash, RatingLocal, v, now); err != nil {
			t.Fatalf("CastVote(%d) = %v", v, err)
		}
	}
	mean, err := st.CastVote(hash, RatingLocal, 4, now)
	if err != nil {
		t.Fatalf("CastVote(4) = %v", err)
	}
	want := float64(3+4+5+4) / 4
	if mean != want {
		t.Errorf("CastVote returned mean %v; want %v", mean, want)
	}

	all, err := st.LoadAllSharedData()
	if err != nil {
		t.Fatalf("LoadAllSharedData = %v", err)
	}
	sd, ok := all[hash.String()]
	if !ok {
		t.Fatalf("LoadAllSharedData missing hash %s after voting", hash)
	}
	if rating, ok := sd.Rating.Local.Get(); !ok || rating != want {
		t.Errorf("persisted Rating.Local = %v, %v; want %v, true", rating, ok, want)
	}
}
